package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec   // labels: method, path, status
	HTTPDuration    *prometheus.HistogramVec // labels: method, path
	FeedFetches     *prometheus.CounterVec   // labels: outcome={success,error,cache_hit}
	FeedAlertCount  prometheus.Gauge
	SnapshotSwaps   prometheus.Counter
	SafetyChecks    *prometheus.CounterVec // labels: tier
	EventLogWrites  *prometheus.CounterVec // labels: kind={location_check,search_log}, status
	SnapshotAgeSecs prometheus.Gauge
}

var global *Metrics

// Init registers the collectors with the default registry. Safe to skip when
// metrics are disabled; every record call no-ops on a nil global.
func Init() {
	global = newMetrics()
	prometheus.MustRegister(
		global.HTTPRequests,
		global.HTTPDuration,
		global.FeedFetches,
		global.FeedAlertCount,
		global.SnapshotSwaps,
		global.SafetyChecks,
		global.EventLogWrites,
		global.SnapshotAgeSecs,
	)
}

func newMetrics() *Metrics {
	return &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rocketsafe",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rocketsafe",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "path"}),
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rocketsafe",
			Name:      "feed_fetches_total",
			Help:      "Upstream alert feed fetches by outcome.",
		}, []string{"outcome"}),
		FeedAlertCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rocketsafe",
			Name:      "feed_alert_records",
			Help:      "Number of alert records in the current snapshot.",
		}),
		SnapshotSwaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rocketsafe",
			Name:      "snapshot_swaps_total",
			Help:      "Total snapshot rebuilds swapped in.",
		}),
		SafetyChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rocketsafe",
			Name:      "safety_checks_total",
			Help:      "Safety checks served, by resulting risk tier.",
		}, []string{"tier"}),
		EventLogWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rocketsafe",
			Name:      "event_log_writes_total",
			Help:      "Event-store writes by kind and status.",
		}, []string{"kind", "status"}),
		SnapshotAgeSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rocketsafe",
			Name:      "snapshot_age_seconds",
			Help:      "Age of the current snapshot's feed data.",
		}),
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if global == nil {
		return
	}
	global.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	global.HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordFeedFetch records a feed fetch outcome.
func RecordFeedFetch(outcome string) {
	if global == nil {
		return
	}
	global.FeedFetches.WithLabelValues(outcome).Inc()
}

// RecordSnapshotSwap records a snapshot rebuild with its alert count.
func RecordSnapshotSwap(alertCount int) {
	if global == nil {
		return
	}
	global.SnapshotSwaps.Inc()
	global.FeedAlertCount.Set(float64(alertCount))
}

// RecordSafetyCheck records one served safety check.
func RecordSafetyCheck(tier string) {
	if global == nil {
		return
	}
	global.SafetyChecks.WithLabelValues(tier).Inc()
}

// RecordEventLogWrite records an event-store write attempt.
func RecordEventLogWrite(kind, status string) {
	if global == nil {
		return
	}
	global.EventLogWrites.WithLabelValues(kind, status).Inc()
}

// SetSnapshotAge publishes the current snapshot's age.
func SetSnapshotAge(age time.Duration) {
	if global == nil {
		return
	}
	global.SnapshotAgeSecs.Set(age.Seconds())
}
