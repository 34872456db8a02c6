package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"

	"github.com/rocketsafe/rocketsafe/config"
	"github.com/rocketsafe/rocketsafe/internal/snapshot"
	"github.com/rocketsafe/rocketsafe/internal/store"
)

// Handler handles HTTP requests for the API
type Handler struct {
	snapshots *snapshot.Holder
	store     store.Store
	clock     clockwork.Clock
	feedCfg   config.FeedConfig
	version   string
	buildTime string
	gitCommit string
	startTime time.Time
}

// NewHandler creates a new API handler
func NewHandler(snapshots *snapshot.Holder, st store.Store, clock clockwork.Clock, feedCfg config.FeedConfig, version, buildTime, gitCommit string) *Handler {
	return &Handler{
		snapshots: snapshots,
		store:     st,
		clock:     clock,
		feedCfg:   feedCfg,
		version:   version,
		buildTime: buildTime,
		gitCommit: gitCommit,
		startTime: clock.Now(),
	}
}

// RegisterRoutes registers all API routes. writeMiddleware wraps only the
// event-writing endpoints; read endpoints stay unthrottled.
func (h *Handler) RegisterRoutes(r *chi.Mux, writeMiddleware ...func(http.Handler) http.Handler) {
	r.Route("/v1", func(r chi.Router) {
		// Health check endpoints
		r.Get("/health", h.healthHandler)
		r.Get("/health/ready", h.readinessHandler)
		r.Get("/health/live", h.livenessHandler)

		// Alert data endpoints
		r.Get("/alerts", h.getAlertsHandler)
		r.Get("/frequencies", h.getFrequenciesHandler)
		r.Get("/polygons", h.getPolygonsHandler)
		r.Get("/map/bounds", h.getMapBoundsHandler)

		// Safety check and event logging
		r.With(writeMiddleware...).Post("/safety-check", h.safetyCheckHandler)
		r.With(writeMiddleware...).Post("/log-search", h.logSearchHandler)

		// Analytics
		r.Get("/analytics/searches", h.searchAnalyticsHandler)
		r.Get("/dashboard/analytics", h.dashboardAnalyticsHandler)
		r.Get("/dashboard/recent-checks", h.recentChecksHandler)

		// System info
		r.Get("/version", h.versionHandler)
	})

	// Root health check
	r.Get("/health", h.healthHandler)
}

// healthHandler provides basic health check
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": h.clock.Now().UTC(),
		"version":   h.version,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// readinessHandler checks if the application is ready to serve traffic. The
// service is not ready until the first snapshot has been swapped in; the
// event store being down degrades logging but does not block serving.
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{
		"snapshot": "ok",
		"store":    "ok",
	}

	statusCode := http.StatusOK

	if _, err := h.snapshots.Current(); err != nil {
		checks["snapshot"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	if err := h.store.Health(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
	}

	response := map[string]interface{}{
		"status":    "ready",
		"timestamp": h.clock.Now().UTC(),
		"checks":    checks,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// livenessHandler checks if the application is alive
func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": h.clock.Now().UTC(),
		"uptime":    h.clock.Since(h.startTime).String(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// versionHandler returns version information
func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":    h.version,
		"build_time": h.buildTime,
		"git_commit": h.gitCommit,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: h.clock.Now().UTC(),
		RequestID: r.Header.Get("X-Request-ID"),
	}

	h.writeJSONResponse(w, statusCode, response)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
