package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rocketsafe/rocketsafe/internal/models"
	"github.com/rocketsafe/rocketsafe/internal/risk"
)

// Reporting-only rollups over logged events. Unlike the risk path, these
// tolerate bad records: an entry that cannot be grouped is skipped, not
// fatal, and the rest of the report is still produced.

const (
	topQueryLimit       = 20
	topLocationLimit    = 20
	highRiskClusterSize = 10
)

// QueryCount is one entry in the top-queries list.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// LocationCount is one entry in the top-selected-locations list.
type LocationCount struct {
	Name      string  `json:"name"`
	NameHe    string  `json:"name_he"`
	Count     int     `json:"count"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DayCount is one calendar day's event count. Days with no events are
// omitted; the series is sparse.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// SearchReport aggregates logged search queries.
type SearchReport struct {
	Period               string          `json:"period"`
	Since                time.Time       `json:"since"`
	TotalSearches        int             `json:"total_searches"`
	NoResultsCount       int             `json:"no_results_count"`
	NoResultsPercentage  int             `json:"no_results_percentage"`
	UniqueQueries        int             `json:"unique_queries"`
	TopQueries           []QueryCount    `json:"top_queries"`
	TopLocations         []LocationCount `json:"top_locations"`
	LanguageDistribution map[string]int  `json:"language_distribution"`
	DailyActivity        []DayCount      `json:"daily_activity"`
}

// RollupSearches builds the search analytics for the trailing day window.
// Grouping is case-insensitive on the query text; the first-seen original
// casing is kept for display. Ties on count break by first-seen order so the
// report is deterministic.
func RollupSearches(logs []models.SearchLog, days int, now time.Time) SearchReport {
	since := now.Add(-time.Duration(days) * 24 * time.Hour)
	report := SearchReport{
		Period:               durationLabel(days),
		Since:                since,
		LanguageDistribution: make(map[string]int),
	}

	type queryAgg struct {
		original  string
		count     int
		firstSeen int
	}
	queries := make(map[string]*queryAgg)
	locations := make(map[string]*LocationCount)
	locationOrder := make(map[string]int)
	daily := make(map[string]int)

	for _, entry := range logs {
		if entry.CreatedAt.Before(since) {
			continue
		}
		report.TotalSearches++
		if entry.ResultsCount == 0 {
			report.NoResultsCount++
		}
		if entry.Language != "" {
			report.LanguageDistribution[entry.Language]++
		}
		daily[entry.CreatedAt.UTC().Format("2006-01-02")]++

		key := entry.QueryLower
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(entry.Query))
		}
		if key != "" {
			agg, ok := queries[key]
			if !ok {
				agg = &queryAgg{original: strings.TrimSpace(entry.Query), firstSeen: len(queries)}
				queries[key] = agg
			}
			agg.count++
		}

		if sel := entry.Selected; sel != nil && sel.NameEn != "" {
			lc, ok := locations[sel.NameEn]
			if !ok {
				lc = &LocationCount{
					Name:      sel.NameEn,
					NameHe:    sel.NameHe,
					Latitude:  sel.Latitude,
					Longitude: sel.Longitude,
				}
				locations[sel.NameEn] = lc
				locationOrder[sel.NameEn] = len(locationOrder)
			}
			lc.Count++
		}
	}

	report.UniqueQueries = len(queries)
	if report.TotalSearches > 0 {
		report.NoResultsPercentage = roundPercent(report.NoResultsCount, report.TotalSearches)
	}

	ordered := make([]*queryAgg, 0, len(queries))
	for _, agg := range queries {
		ordered = append(ordered, agg)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].firstSeen < ordered[j].firstSeen
	})
	for _, agg := range ordered {
		if len(report.TopQueries) == topQueryLimit {
			break
		}
		report.TopQueries = append(report.TopQueries, QueryCount{Query: agg.original, Count: agg.count})
	}

	orderedLocs := make([]*LocationCount, 0, len(locations))
	for _, lc := range locations {
		orderedLocs = append(orderedLocs, lc)
	}
	sort.Slice(orderedLocs, func(i, j int) bool {
		if orderedLocs[i].Count != orderedLocs[j].Count {
			return orderedLocs[i].Count > orderedLocs[j].Count
		}
		return locationOrder[orderedLocs[i].Name] < locationOrder[orderedLocs[j].Name]
	})
	for _, lc := range orderedLocs {
		if len(report.TopLocations) == topLocationLimit {
			break
		}
		report.TopLocations = append(report.TopLocations, *lc)
	}

	report.DailyActivity = sortedDays(daily)
	return report
}

// RiskDistribution counts checks per live-check tier.
type RiskDistribution struct {
	Safe         int `json:"safe"`
	LowRisk      int `json:"low_risk"`
	ModerateRisk int `json:"moderate_risk"`
	HighRisk     int `json:"high_risk"`
	VeryHighRisk int `json:"very_high_risk"`
}

// HighRiskCluster is a coordinate cell (3 decimal places, roughly 100 m) with
// repeated at-risk checks.
type HighRiskCluster struct {
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	ChecksCount     int     `json:"checks_count"`
	AvgRecentAlerts float64 `json:"avg_recent_alerts"`
	MaxRecentAlerts int     `json:"max_recent_alerts"`
}

// DashboardReport aggregates logged location checks inside the coverage area.
type DashboardReport struct {
	Period            string            `json:"period"`
	Since             time.Time         `json:"since"`
	TotalChecks       int               `json:"total_checks"`
	AtRiskCount       int               `json:"at_risk_count"`
	AtRiskPercentage  int               `json:"at_risk_percentage"`
	SafeCount         int               `json:"safe_count"`
	SafePercentage    int               `json:"safe_percentage"`
	RiskDistribution  RiskDistribution  `json:"risk_distribution"`
	DailyActivity     []DayCount        `json:"daily_activity"`
	HighRiskLocations []HighRiskCluster `json:"high_risk_locations"`
}

// RollupChecks builds the dashboard analytics for the trailing day window.
// Only checks inside the coverage bounds count; the daily series covers the
// last 7 days regardless of the requested window, matching the dashboard's
// activity widget.
func RollupChecks(checks []models.LocationCheck, days int, now time.Time) DashboardReport {
	since := now.Add(-time.Duration(days) * 24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	report := DashboardReport{
		Period: durationLabel(days),
		Since:  since,
	}

	type cluster struct {
		lat, lng    float64
		count       int
		totalRecent int
		maxRecent   int
		firstSeen   int
	}
	clusters := make(map[[2]float64]*cluster)
	daily := make(map[string]int)

	for _, check := range checks {
		if !models.IsraelBounds.Contains(check.Latitude, check.Longitude) {
			continue
		}
		if check.CreatedAt.After(weekAgo) || check.CreatedAt.Equal(weekAgo) {
			daily[check.CreatedAt.UTC().Format("2006-01-02")]++
		}
		if check.CreatedAt.Before(since) {
			continue
		}

		report.TotalChecks++
		switch risk.Tier(check.RiskTier) {
		case risk.TierSafe:
			report.RiskDistribution.Safe++
		case risk.TierLow:
			report.RiskDistribution.LowRisk++
		case risk.TierModerate:
			report.RiskDistribution.ModerateRisk++
		case risk.TierHigh:
			report.RiskDistribution.HighRisk++
		case risk.TierVeryHigh:
			report.RiskDistribution.VeryHighRisk++
		}

		if check.RecentAlerts > 0 {
			key := [2]float64{round3(check.Latitude), round3(check.Longitude)}
			c, ok := clusters[key]
			if !ok {
				c = &cluster{lat: key[0], lng: key[1], firstSeen: len(clusters)}
				clusters[key] = c
			}
			c.count++
			c.totalRecent += check.RecentAlerts
			if check.RecentAlerts > c.maxRecent {
				c.maxRecent = check.RecentAlerts
			}
		}
	}

	dist := report.RiskDistribution
	report.AtRiskCount = dist.ModerateRisk + dist.HighRisk + dist.VeryHighRisk
	report.SafeCount = dist.Safe + dist.LowRisk
	total := report.AtRiskCount + report.SafeCount
	if total > 0 {
		report.AtRiskPercentage = roundPercent(report.AtRiskCount, total)
		report.SafePercentage = roundPercent(report.SafeCount, total)
	}

	ordered := make([]*cluster, 0, len(clusters))
	for _, c := range clusters {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].maxRecent != ordered[j].maxRecent {
			return ordered[i].maxRecent > ordered[j].maxRecent
		}
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].firstSeen < ordered[j].firstSeen
	})
	for _, c := range ordered {
		if len(report.HighRiskLocations) == highRiskClusterSize {
			break
		}
		report.HighRiskLocations = append(report.HighRiskLocations, HighRiskCluster{
			Latitude:        c.lat,
			Longitude:       c.lng,
			ChecksCount:     c.count,
			AvgRecentAlerts: math.Round(float64(c.totalRecent)/float64(c.count)*10) / 10,
			MaxRecentAlerts: c.maxRecent,
		})
	}

	report.DailyActivity = sortedDays(daily)
	return report
}

func sortedDays(daily map[string]int) []DayCount {
	out := make([]DayCount, 0, len(daily))
	for date, count := range daily {
		out = append(out, DayCount{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func roundPercent(part, total int) int {
	return int(math.Round(float64(part) / float64(total) * 100))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func durationLabel(days int) string {
	return fmt.Sprintf("%d days", days)
}
