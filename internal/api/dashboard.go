package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rocketsafe/rocketsafe/internal/analytics"
	"github.com/rocketsafe/rocketsafe/internal/logger"
	"github.com/rocketsafe/rocketsafe/internal/models"
)

const (
	defaultAnalyticsDays = 30
	maxAnalyticsDays     = 365

	defaultRecentChecksLimit = 50
	maxRecentChecksLimit     = 500
)

// searchAnalyticsHandler handles GET /analytics/searches?days=N.
func (h *Handler) searchAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	days, err := parseDays(r, defaultAnalyticsDays)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	now := h.clock.Now().UTC()
	since := now.Add(-time.Duration(days) * 24 * time.Hour)

	logs, err := h.store.QuerySearchLogs(ctx, since)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to query search logs", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, analytics.RollupSearches(logs, days, now))
}

// dashboardAnalyticsHandler handles GET /dashboard/analytics?days=N.
func (h *Handler) dashboardAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	days, err := parseDays(r, defaultAnalyticsDays)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	now := h.clock.Now().UTC()

	// The daily-activity widget always spans 7 days, so the query window is
	// at least that wide even for shorter report periods.
	queryDays := days
	if queryDays < 7 {
		queryDays = 7
	}
	since := now.Add(-time.Duration(queryDays) * 24 * time.Hour)

	checks, err := h.store.QueryLocationChecks(ctx, since)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to query location checks", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, analytics.RollupChecks(checks, days, now))
}

// recentChecksHandler handles GET /dashboard/recent-checks?limit=N&offset=M.
// Only checks inside the coverage area are listed.
func (h *Handler) recentChecksHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultRecentChecksLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > maxRecentChecksLimit {
			h.writeErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxRecentChecksLimit))
			return
		}
		limit = parsed
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil || parsed < 0 {
			h.writeErrorResponse(w, r, http.StatusBadRequest, "offset must be non-negative")
			return
		}
		offset = parsed
	}

	checks, total, err := h.store.RecentLocationChecks(ctx, models.IsraelBounds, limit, offset)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to query recent checks", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := map[string]interface{}{
		"data":      checks,
		"count":     len(checks),
		"total":     total,
		"limit":     limit,
		"offset":    offset,
		"timestamp": h.clock.Now().UTC(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

func parseDays(r *http.Request, defaultDays int) (int, error) {
	daysStr := r.URL.Query().Get("days")
	if daysStr == "" {
		return defaultDays, nil
	}
	days, err := strconv.Atoi(daysStr)
	if err != nil || days < 1 || days > maxAnalyticsDays {
		return 0, fmt.Errorf("days must be between 1 and %d", maxAnalyticsDays)
	}
	return days, nil
}
