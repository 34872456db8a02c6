package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/rocketsafe/rocketsafe/internal/models"
)

var testNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func searchLog(query string, results int, age time.Duration) models.SearchLog {
	return models.SearchLog{
		Query:        query,
		QueryLower:   "",
		ResultsCount: results,
		Language:     "en",
		CreatedAt:    testNow.Add(-age),
	}
}

func TestRollupSearchesBasics(t *testing.T) {
	logs := []models.SearchLog{
		searchLog("Ashkelon", 3, time.Hour),
		searchLog("ashkelon", 3, 2*time.Hour),
		searchLog("Sderot", 1, 3*time.Hour),
		searchLog("nowhere", 0, 4*time.Hour),
		searchLog("old query", 1, 40*24*time.Hour), // outside the window
	}

	report := RollupSearches(logs, 30, testNow)

	if report.TotalSearches != 4 {
		t.Errorf("TotalSearches = %d, want 4", report.TotalSearches)
	}
	if report.NoResultsCount != 1 {
		t.Errorf("NoResultsCount = %d, want 1", report.NoResultsCount)
	}
	if report.NoResultsPercentage != 25 {
		t.Errorf("NoResultsPercentage = %d, want 25", report.NoResultsPercentage)
	}
	if report.UniqueQueries != 3 {
		t.Errorf("UniqueQueries = %d, want 3 (case-insensitive grouping)", report.UniqueQueries)
	}
	if report.LanguageDistribution["en"] != 4 {
		t.Errorf("LanguageDistribution[en] = %d, want 4", report.LanguageDistribution["en"])
	}

	if len(report.TopQueries) != 3 {
		t.Fatalf("TopQueries has %d entries, want 3", len(report.TopQueries))
	}
	if report.TopQueries[0].Query != "Ashkelon" || report.TopQueries[0].Count != 2 {
		t.Errorf("TopQueries[0] = %+v, want Ashkelon x2 keeping first-seen casing", report.TopQueries[0])
	}
}

func TestRollupSearchesTieBreakByFirstSeen(t *testing.T) {
	logs := []models.SearchLog{
		searchLog("beta", 1, 3*time.Hour),
		searchLog("alpha", 1, 2*time.Hour),
		searchLog("beta", 1, time.Hour),
		searchLog("alpha", 1, time.Minute),
	}

	report := RollupSearches(logs, 7, testNow)
	if len(report.TopQueries) != 2 {
		t.Fatalf("TopQueries has %d entries, want 2", len(report.TopQueries))
	}
	// Equal counts; beta appeared first in the log order
	if report.TopQueries[0].Query != "beta" {
		t.Errorf("TopQueries[0] = %q, want beta (first seen)", report.TopQueries[0].Query)
	}
}

func TestRollupSearchesTopQueryLimit(t *testing.T) {
	var logs []models.SearchLog
	for i := 0; i < 30; i++ {
		logs = append(logs, searchLog(fmt.Sprintf("query-%02d", i), 1, time.Hour))
	}

	report := RollupSearches(logs, 7, testNow)
	if len(report.TopQueries) != topQueryLimit {
		t.Errorf("TopQueries has %d entries, want %d", len(report.TopQueries), topQueryLimit)
	}
}

func TestRollupSearchesSelectedLocations(t *testing.T) {
	sel := &models.SelectedLocation{Name: "Ashkelon", NameEn: "Ashkelon", NameHe: "אשקלון", Latitude: 31.6688, Longitude: 34.5743}
	logs := []models.SearchLog{
		{Query: "ash", ResultsCount: 2, Selected: sel, CreatedAt: testNow.Add(-time.Hour)},
		{Query: "ashk", ResultsCount: 1, Selected: sel, CreatedAt: testNow.Add(-2 * time.Hour)},
	}

	report := RollupSearches(logs, 7, testNow)
	if len(report.TopLocations) != 1 {
		t.Fatalf("TopLocations has %d entries, want 1", len(report.TopLocations))
	}
	if report.TopLocations[0].Count != 2 || report.TopLocations[0].NameHe != "אשקלון" {
		t.Errorf("TopLocations[0] = %+v", report.TopLocations[0])
	}
}

func TestRollupSearchesDailyActivitySparseAndSorted(t *testing.T) {
	logs := []models.SearchLog{
		searchLog("a", 1, 0),
		searchLog("b", 1, 48*time.Hour),
		searchLog("c", 1, 48*time.Hour),
	}

	report := RollupSearches(logs, 7, testNow)
	if len(report.DailyActivity) != 2 {
		t.Fatalf("DailyActivity has %d entries, want 2 (sparse)", len(report.DailyActivity))
	}
	if report.DailyActivity[0].Date != "2026-08-13" || report.DailyActivity[0].Count != 2 {
		t.Errorf("DailyActivity[0] = %+v", report.DailyActivity[0])
	}
	if report.DailyActivity[1].Date != "2026-08-15" || report.DailyActivity[1].Count != 1 {
		t.Errorf("DailyActivity[1] = %+v", report.DailyActivity[1])
	}
}

func check(lat, lng float64, tier string, recent int, age time.Duration) models.LocationCheck {
	return models.LocationCheck{
		Latitude:     lat,
		Longitude:    lng,
		RiskTier:     tier,
		RecentAlerts: recent,
		CreatedAt:    testNow.Add(-age),
	}
}

func TestRollupChecksDistributionAndPercentages(t *testing.T) {
	checks := []models.LocationCheck{
		check(31.6, 34.6, "safe", 0, time.Hour),
		check(31.6, 34.6, "low", 0, time.Hour),
		check(31.6, 34.6, "moderate", 1, time.Hour),
		check(31.6, 34.6, "very-high", 6, time.Hour),
		check(48.8, 2.35, "very-high", 9, time.Hour), // outside coverage, dropped
	}

	report := RollupChecks(checks, 30, testNow)

	if report.TotalChecks != 4 {
		t.Errorf("TotalChecks = %d, want 4 (out-of-bounds check excluded)", report.TotalChecks)
	}
	if report.RiskDistribution.Safe != 1 || report.RiskDistribution.LowRisk != 1 ||
		report.RiskDistribution.ModerateRisk != 1 || report.RiskDistribution.VeryHighRisk != 1 {
		t.Errorf("RiskDistribution = %+v", report.RiskDistribution)
	}
	if report.AtRiskCount != 2 || report.SafeCount != 2 {
		t.Errorf("AtRiskCount = %d, SafeCount = %d; want 2 and 2", report.AtRiskCount, report.SafeCount)
	}
	if report.AtRiskPercentage != 50 || report.SafePercentage != 50 {
		t.Errorf("percentages = %d/%d, want 50/50", report.AtRiskPercentage, report.SafePercentage)
	}
}

func TestRollupChecksHighRiskClusters(t *testing.T) {
	checks := []models.LocationCheck{
		// Two checks that round to the same 3-decimal cell
		check(31.66881, 34.57429, "moderate", 2, time.Hour),
		check(31.66883, 34.57431, "high", 4, time.Hour),
		// A different cell with one heavier check
		check(31.5240, 34.5953, "very-high", 6, time.Hour),
		// Safe check never clusters
		check(31.9, 34.9, "safe", 0, time.Hour),
	}

	report := RollupChecks(checks, 30, testNow)

	if len(report.HighRiskLocations) != 2 {
		t.Fatalf("HighRiskLocations has %d entries, want 2", len(report.HighRiskLocations))
	}

	top := report.HighRiskLocations[0]
	if top.MaxRecentAlerts != 6 {
		t.Errorf("top cluster MaxRecentAlerts = %d, want 6", top.MaxRecentAlerts)
	}

	second := report.HighRiskLocations[1]
	if second.ChecksCount != 2 {
		t.Errorf("second cluster ChecksCount = %d, want 2 (rounded into one cell)", second.ChecksCount)
	}
	if second.Latitude != 31.669 || second.Longitude != 34.574 {
		t.Errorf("second cluster at (%v, %v), want rounded (31.669, 34.574)", second.Latitude, second.Longitude)
	}
	if second.AvgRecentAlerts != 3.0 {
		t.Errorf("second cluster AvgRecentAlerts = %v, want 3.0", second.AvgRecentAlerts)
	}
}

func TestRollupChecksDailyActivityCoversWeek(t *testing.T) {
	checks := []models.LocationCheck{
		check(31.6, 34.6, "safe", 0, time.Hour),
		check(31.6, 34.6, "safe", 0, 6*24*time.Hour), // within 7 days, outside a 1-day window
		check(31.6, 34.6, "safe", 0, 9*24*time.Hour), // outside 7 days
	}

	report := RollupChecks(checks, 1, testNow)

	if report.TotalChecks != 1 {
		t.Errorf("TotalChecks = %d, want 1 inside the 1-day window", report.TotalChecks)
	}
	if len(report.DailyActivity) != 2 {
		t.Errorf("DailyActivity has %d entries, want 2 (always the trailing week)", len(report.DailyActivity))
	}
}
