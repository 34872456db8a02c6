package api

import (
	"net"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	apperrors "github.com/rocketsafe/rocketsafe/internal/errors"
	"github.com/rocketsafe/rocketsafe/internal/logger"
	"github.com/rocketsafe/rocketsafe/internal/metrics"
	"github.com/rocketsafe/rocketsafe/internal/models"
	"github.com/rocketsafe/rocketsafe/internal/proximity"
	"github.com/rocketsafe/rocketsafe/internal/risk"
)

// SafetyCheckRequest is the POST /safety-check body.
type SafetyCheckRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km,omitempty"`
}

// NearbyAlert is one recent alert in the safety-check response.
type NearbyAlert struct {
	City       string  `json:"city"`
	DistanceKm float64 `json:"distance_km"`
	Timestamp  int64   `json:"timestamp"`
}

// SafetyCheckResponse is the POST /safety-check result.
type SafetyCheckResponse struct {
	RiskTier        string        `json:"risk_tier"`
	Color           string        `json:"color"`
	IsSafe          bool          `json:"is_safe"`
	RecentAlerts    []NearbyAlert `json:"recent_alerts"`
	RecentCount     int           `json:"recent_alerts_count"`
	HistoricalCount int           `json:"historical_alerts_count"`
	RadiusKm        float64       `json:"radius_km"`
	CheckedAt       int64         `json:"checked_at"`
	SnapshotAgeSecs int64         `json:"snapshot_age_seconds"`
}

// safetyCheckHandler handles POST /safety-check. It scans the snapshot for
// alerts near the given point, classifies the live risk, and logs the check
// for the dashboard. A failed event write never fails the check itself.
func (h *Handler) safetyCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SafetyCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.snapshots.Current()
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "alert data not loaded yet")
		return
	}

	now := h.clock.Now()
	result, err := proximity.New(snap).Scan(proximity.Query{
		Lat:      req.Latitude,
		Lng:      req.Longitude,
		RadiusKm: req.RadiusKm,
		Now:      now.Unix(),
	})
	if err != nil {
		if apperrors.IsValidation(err) {
			h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		logger.WithContext(ctx).Error("Safety check failed", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	tier := risk.ClassifyLive(result.RecentCount, result.HistoricalCount)
	metrics.RecordSafetyCheck(string(tier))

	radiusKm := req.RadiusKm
	if radiusKm == 0 {
		radiusKm = proximity.DefaultRadiusKm
	}

	resp := SafetyCheckResponse{
		RiskTier:        string(tier),
		Color:           risk.LiveColor(tier),
		IsSafe:          result.RecentCount == 0,
		RecentAlerts:    make([]NearbyAlert, 0, len(result.Recent)),
		RecentCount:     result.RecentCount,
		HistoricalCount: result.HistoricalCount,
		RadiusKm:        radiusKm,
		CheckedAt:       now.Unix(),
		SnapshotAgeSecs: now.Unix() - snap.FetchedAt,
	}
	for _, m := range result.Recent {
		resp.RecentAlerts = append(resp.RecentAlerts, NearbyAlert{
			City:       m.CityName,
			DistanceKm: m.DistanceKm,
			Timestamp:  m.Alert.Timestamp,
		})
	}

	h.logLocationCheck(r, req, result, tier)
	h.writeJSONResponse(w, http.StatusOK, resp)
}

func (h *Handler) logLocationCheck(r *http.Request, req SafetyCheckRequest, result proximity.Result, tier risk.Tier) {
	check := models.LocationCheck{
		ID:               uuid.NewString(),
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		RiskTier:         string(tier),
		RecentAlerts:     result.RecentCount,
		HistoricalAlerts: result.HistoricalCount,
		UserAgent:        r.UserAgent(),
		IP:               clientIP(r),
		CreatedAt:        h.clock.Now().UTC(),
	}

	if err := h.store.InsertLocationCheck(r.Context(), check); err != nil {
		metrics.RecordEventLogWrite("location_check", "error")
		logger.WithContext(r.Context()).Warn("Failed to log location check", "error", err)
		return
	}
	metrics.RecordEventLogWrite("location_check", "ok")
}

// LogSearchRequest is the POST /log-search body.
type LogSearchRequest struct {
	Query        string                   `json:"query"`
	ResultsCount int                      `json:"results_count"`
	Selected     *models.SelectedLocation `json:"selected_location,omitempty"`
	Language     string                   `json:"language,omitempty"`
}

// logSearchHandler handles POST /log-search.
func (h *Handler) logSearchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LogSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "query is required")
		return
	}
	if req.ResultsCount < 0 {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "results_count must be non-negative")
		return
	}

	entry := models.SearchLog{
		ID:           uuid.NewString(),
		Query:        query,
		QueryLower:   strings.ToLower(query),
		ResultsCount: req.ResultsCount,
		Selected:     req.Selected,
		Language:     req.Language,
		UserAgent:    r.UserAgent(),
		IP:           clientIP(r),
		CreatedAt:    h.clock.Now().UTC(),
	}

	if err := h.store.InsertSearchLog(ctx, entry); err != nil {
		metrics.RecordEventLogWrite("search_log", "error")
		logger.WithContext(ctx).Error("Failed to log search", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	metrics.RecordEventLogWrite("search_log", "ok")

	h.writeJSONResponse(w, http.StatusOK, map[string]string{"status": "logged", "id": entry.ID})
}

// clientIP extracts the originating client address, honoring the proxy
// header set by the hosting platform.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
