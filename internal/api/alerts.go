package api

import (
	"fmt"
	"net/http"

	"github.com/rocketsafe/rocketsafe/internal/frequency"
	"github.com/rocketsafe/rocketsafe/internal/logger"
	"github.com/rocketsafe/rocketsafe/internal/models"
	"github.com/rocketsafe/rocketsafe/internal/risk"
	"github.com/rocketsafe/rocketsafe/internal/spatial"
)

// getAlertsHandler handles GET /alerts. It re-serves the historical feed in
// the upstream tuple form so existing map clients keep working unchanged.
func (h *Handler) getAlertsHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Current()
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "alert data not loaded yet")
		return
	}

	maxAge := int(h.feedCfg.CacheTTL.Seconds())
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
	h.writeJSONResponse(w, http.StatusOK, snap.Alerts)
}

// polygonFrequency is one polygon's entry in the frequencies response.
type polygonFrequency struct {
	Count int    `json:"count"`
	Tier  string `json:"tier"`
	Color string `json:"color"`
}

// getFrequenciesHandler handles GET /frequencies?window=24h|week|month|all.
// It returns the per-polygon alert counts for the window, classified and
// colored for direct use as map polygon styles.
func (h *Handler) getFrequenciesHandler(w http.ResponseWriter, r *http.Request) {
	window, err := models.ParseTimeWindow(r.URL.Query().Get("window"))
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	snap, errSnap := h.snapshots.Current()
	if errSnap != nil {
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "alert data not loaded yet")
		return
	}

	table := frequency.Aggregate(snap, window, h.clock.Now().Unix())

	frequencies := make(map[string]polygonFrequency, len(table))
	for id, count := range table {
		tier := risk.ClassifyCount(count)
		frequencies[id] = polygonFrequency{
			Count: count,
			Tier:  string(tier),
			Color: risk.CountColor(tier),
		}
	}

	response := map[string]interface{}{
		"window":      string(window),
		"polygons":    len(frequencies),
		"frequencies": frequencies,
		"timestamp":   h.clock.Now().UTC(),
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	h.writeJSONResponse(w, http.StatusOK, response)
}

// getPolygonsHandler handles GET /polygons. Boundaries are served with closed
// rings; map renderers expect the first vertex repeated at the end.
func (h *Handler) getPolygonsHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Current()
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "alert data not loaded yet")
		return
	}

	boundaries := make(map[string][][2]float64, len(snap.Polygons))
	for _, p := range snap.Polygons {
		boundaries[p.ID] = p.ClosedBoundary()
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	h.writeJSONResponse(w, http.StatusOK, boundaries)
}

// getMapBoundsHandler handles GET /map/bounds. It returns the bounding box
// enclosing every registry polygon so the map can fit its initial viewport.
func (h *Handler) getMapBoundsHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Current()
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "alert data not loaded yet")
		return
	}

	bounds, ok := spatial.PolygonBounds(snap.Polygons)
	if !ok {
		logger.WithContext(r.Context()).Warn("No polygons available for map bounds, using coverage area")
		bounds = models.IsraelBounds
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	h.writeJSONResponse(w, http.StatusOK, bounds)
}
