package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"github.com/rocketsafe/rocketsafe/config"
	"github.com/rocketsafe/rocketsafe/internal/logger"
	"github.com/rocketsafe/rocketsafe/internal/models"
	"github.com/rocketsafe/rocketsafe/internal/snapshot"
	"github.com/rocketsafe/rocketsafe/internal/store"
)

const testEpoch int64 = 1_700_000_000

func init() {
	logger.Init("error", "text")
}

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Alerts: []models.AlertRecord{
			{WarningSeconds: 30, LocationNames: []string{"אשקלון"}, Timestamp: testEpoch - 600},
			{WarningSeconds: 60, LocationNames: []string{"שדרות"}, Timestamp: testEpoch - 86400},
		},
		Locations: []models.LocationEntity{
			{ID: "100", Names: map[string]string{"he": "אשקלון", "en": "Ashkelon"}, Lat: 31.6688, Lng: 34.5743},
			{ID: "200", Names: map[string]string{"he": "שדרות", "en": "Sderot"}, Lat: 31.5240, Lng: 34.5953},
		},
		Polygons: []models.PolygonEntity{
			{ID: "100", Boundary: [][2]float64{{31.6, 34.5}, {31.7, 34.5}, {31.7, 34.6}}},
			{ID: "200", Boundary: [][2]float64{{31.5, 34.55}, {31.55, 34.55}, {31.55, 34.65}}},
		},
		FetchedAt: testEpoch - 60,
	}
}

type testEnv struct {
	router *chi.Mux
	store  *store.InMemoryStore
	holder *snapshot.Holder
	clock  clockwork.Clock
}

func newTestEnv(t *testing.T, seed bool) *testEnv {
	t.Helper()

	holder := snapshot.NewHolder()
	if seed {
		holder.Swap(testSnapshot())
	}
	memStore := store.NewInMemoryStore()
	clock := clockwork.NewFakeClockAt(time.Unix(testEpoch, 0))

	feedCfg := config.FeedConfig{CacheTTL: 3200 * time.Second}
	handler := NewHandler(holder, memStore, clock, feedCfg, "test-version", "test-build", "test-commit")

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	return &testEnv{router: r, store: memStore, holder: holder, clock: clock}
}

func (env *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, true)

	for _, path := range []string{"/health", "/v1/health", "/v1/health/live"} {
		if rec := env.get(t, path); rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestReadinessRequiresSnapshot(t *testing.T) {
	env := newTestEnv(t, false)
	if rec := env.get(t, "/v1/health/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness before snapshot = %d, want 503", rec.Code)
	}

	env.holder.Swap(testSnapshot())
	if rec := env.get(t, "/v1/health/ready"); rec.Code != http.StatusOK {
		t.Errorf("readiness after snapshot = %d, want 200", rec.Code)
	}
}

func TestGetAlerts(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.get(t, "/v1/alerts")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=3200" {
		t.Errorf("Cache-Control = %q, want public, max-age=3200", got)
	}

	// The feed is re-served in the upstream tuple form
	var tuples [][]json.RawMessage
	decodeBody(t, rec, &tuples)
	if len(tuples) != 2 {
		t.Fatalf("got %d records, want 2", len(tuples))
	}
	if len(tuples[0]) != 4 {
		t.Errorf("record has %d tuple fields, want 4", len(tuples[0]))
	}
}

func TestGetAlertsBeforeSnapshot(t *testing.T) {
	env := newTestEnv(t, false)
	if rec := env.get(t, "/v1/alerts"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestGetFrequencies(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.get(t, "/v1/frequencies?window=week")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Window      string                      `json:"window"`
		Frequencies map[string]polygonFrequency `json:"frequencies"`
	}
	decodeBody(t, rec, &resp)

	if resp.Window != "week" {
		t.Errorf("window = %q, want week", resp.Window)
	}
	if len(resp.Frequencies) != 2 {
		t.Fatalf("got %d polygon entries, want 2", len(resp.Frequencies))
	}
	ashkelon := resp.Frequencies["100"]
	if ashkelon.Count != 1 || ashkelon.Tier != "low" || ashkelon.Color != "#90EE90" {
		t.Errorf("polygon 100 = %+v, want count 1, tier low, color #90EE90", ashkelon)
	}
}

func TestGetFrequenciesInvalidWindow(t *testing.T) {
	env := newTestEnv(t, true)
	if rec := env.get(t, "/v1/frequencies?window=year"); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSafetyCheck(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.post(t, "/v1/safety-check", SafetyCheckRequest{Latitude: 31.6688, Longitude: 34.5743})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}

	var resp SafetyCheckResponse
	decodeBody(t, rec, &resp)

	// One recent alert at Ashkelon, one day-old alert at Sderot inside 20 km
	if resp.RiskTier != "moderate" {
		t.Errorf("RiskTier = %q, want moderate", resp.RiskTier)
	}
	if resp.Color != "#d97706" {
		t.Errorf("Color = %q, want #d97706", resp.Color)
	}
	if resp.IsSafe {
		t.Error("IsSafe = true, want false with a recent alert nearby")
	}
	if resp.RecentCount != 1 || resp.HistoricalCount != 2 {
		t.Errorf("counts = %d recent / %d historical, want 1 / 2", resp.RecentCount, resp.HistoricalCount)
	}
	if len(resp.RecentAlerts) != 1 || resp.RecentAlerts[0].City != "Ashkelon" {
		t.Errorf("RecentAlerts = %+v", resp.RecentAlerts)
	}
	if resp.RadiusKm != 20 {
		t.Errorf("RadiusKm = %v, want the 20 km default", resp.RadiusKm)
	}

	// The check is logged for the dashboard
	logged, err := env.store.QueryLocationChecks(req().Context(), time.Unix(0, 0))
	if err != nil {
		t.Fatalf("query logged checks: %v", err)
	}
	if len(logged) != 1 {
		t.Fatalf("logged %d checks, want 1", len(logged))
	}
	if logged[0].RiskTier != "moderate" || logged[0].RecentAlerts != 1 {
		t.Errorf("logged check = %+v", logged[0])
	}
}

func req() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/", nil)
}

func TestSafetyCheckValidation(t *testing.T) {
	env := newTestEnv(t, true)

	tests := []struct {
		name string
		body SafetyCheckRequest
	}{
		{"latitude out of range", SafetyCheckRequest{Latitude: 95, Longitude: 34.5}},
		{"longitude out of range", SafetyCheckRequest{Latitude: 31.6, Longitude: 200}},
		{"negative radius", SafetyCheckRequest{Latitude: 31.6, Longitude: 34.5, RadiusKm: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.post(t, "/v1/safety-check", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestLogSearch(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.post(t, "/v1/log-search", LogSearchRequest{
		Query:        "  Ashkelon ",
		ResultsCount: 3,
		Language:     "en",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	logs, err := env.store.QuerySearchLogs(req().Context(), time.Unix(0, 0))
	if err != nil {
		t.Fatalf("query logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("logged %d searches, want 1", len(logs))
	}
	if logs[0].Query != "Ashkelon" || logs[0].QueryLower != "ashkelon" {
		t.Errorf("logged query %q / %q, want trimmed original and lowercase key", logs[0].Query, logs[0].QueryLower)
	}
}

func TestLogSearchValidation(t *testing.T) {
	env := newTestEnv(t, true)

	if rec := env.post(t, "/v1/log-search", LogSearchRequest{Query: "   "}); rec.Code != http.StatusBadRequest {
		t.Errorf("blank query status = %d, want 400", rec.Code)
	}
	if rec := env.post(t, "/v1/log-search", LogSearchRequest{Query: "x", ResultsCount: -1}); rec.Code != http.StatusBadRequest {
		t.Errorf("negative results status = %d, want 400", rec.Code)
	}
}

func TestSearchAnalytics(t *testing.T) {
	env := newTestEnv(t, true)

	for i := 0; i < 3; i++ {
		env.post(t, "/v1/log-search", LogSearchRequest{Query: "ashkelon", ResultsCount: 1})
	}
	env.post(t, "/v1/log-search", LogSearchRequest{Query: "nowhere", ResultsCount: 0})

	rec := env.get(t, "/v1/analytics/searches?days=7")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		TotalSearches  int `json:"total_searches"`
		NoResultsCount int `json:"no_results_count"`
		UniqueQueries  int `json:"unique_queries"`
	}
	decodeBody(t, rec, &resp)
	if resp.TotalSearches != 4 || resp.NoResultsCount != 1 || resp.UniqueQueries != 2 {
		t.Errorf("analytics = %+v", resp)
	}
}

func TestDashboardAnalytics(t *testing.T) {
	env := newTestEnv(t, true)

	env.post(t, "/v1/safety-check", SafetyCheckRequest{Latitude: 31.6688, Longitude: 34.5743})
	env.post(t, "/v1/safety-check", SafetyCheckRequest{Latitude: 32.5, Longitude: 35.1})

	rec := env.get(t, "/v1/dashboard/analytics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		TotalChecks int `json:"total_checks"`
		AtRiskCount int `json:"at_risk_count"`
	}
	decodeBody(t, rec, &resp)
	if resp.TotalChecks != 2 {
		t.Errorf("TotalChecks = %d, want 2", resp.TotalChecks)
	}
	if resp.AtRiskCount != 1 {
		t.Errorf("AtRiskCount = %d, want 1 (only the Ashkelon check has a recent alert)", resp.AtRiskCount)
	}
}

func TestDashboardAnalyticsInvalidDays(t *testing.T) {
	env := newTestEnv(t, true)
	if rec := env.get(t, "/v1/dashboard/analytics?days=0"); rec.Code != http.StatusBadRequest {
		t.Errorf("days=0 status = %d, want 400", rec.Code)
	}
	if rec := env.get(t, "/v1/dashboard/analytics?days=9999"); rec.Code != http.StatusBadRequest {
		t.Errorf("days=9999 status = %d, want 400", rec.Code)
	}
}

func TestRecentChecks(t *testing.T) {
	env := newTestEnv(t, true)

	for i := 0; i < 3; i++ {
		env.post(t, "/v1/safety-check", SafetyCheckRequest{Latitude: 31.6688, Longitude: 34.5743})
	}

	rec := env.get(t, "/v1/dashboard/recent-checks?limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Count int `json:"count"`
		Total int `json:"total"`
		Limit int `json:"limit"`
	}
	decodeBody(t, rec, &resp)
	if resp.Count != 2 || resp.Total != 3 || resp.Limit != 2 {
		t.Errorf("page = %+v, want count 2 of total 3", resp)
	}
}

func TestGetPolygons(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.get(t, "/v1/polygons")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var boundaries map[string][][2]float64
	decodeBody(t, rec, &boundaries)
	if len(boundaries) != 2 {
		t.Fatalf("got %d polygons, want 2", len(boundaries))
	}
	ring := boundaries["100"]
	if len(ring) != 4 {
		t.Fatalf("ring has %d vertices, want 4 (closed)", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Error("ring is not closed")
	}
}

func TestMapBounds(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.get(t, "/v1/map/bounds")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var bounds models.Bounds
	decodeBody(t, rec, &bounds)
	if bounds.North < bounds.South || bounds.East < bounds.West {
		t.Errorf("degenerate bounds: %+v", bounds)
	}
	if bounds.South < 31.4 || bounds.North > 31.8 {
		t.Errorf("bounds %+v do not tightly enclose the test polygons", bounds)
	}
}

func TestVersionEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.get(t, "/v1/version")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["version"] != "test-version" {
		t.Errorf("version = %q, want test-version", resp["version"])
	}
}
