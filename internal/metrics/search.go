package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	IndexQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xsearch",
			Name:      "index_query_duration_seconds",
			Help:      "Per-type index query duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"type", "operation"},
	)

	IndexFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xsearch",
			Name:      "index_failures_total",
			Help:      "Index queries that contributed no results",
		},
		[]string{"type", "reason"}, // "error" / "timeout"
	)

	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xsearch",
			Name:      "cache_requests_total",
			Help:      "Response cache lookups by namespace and outcome",
		},
		[]string{"namespace", "result"}, // "hit" / "miss" / "error"
	)

	ThrottleRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xsearch",
			Name:      "throttle_rejections_total",
			Help:      "Requests rejected by the throttle",
		},
		[]string{"route"},
	)

	RecorderDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xsearch",
			Name:      "recorder_dropped_total",
			Help:      "Background recording jobs dropped because the queue was full",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexQueryDuration)
	prometheus.MustRegister(IndexFailuresTotal)
	prometheus.MustRegister(CacheRequestsTotal)
	prometheus.MustRegister(ThrottleRejectionsTotal)
	prometheus.MustRegister(RecorderDroppedTotal)
	searchMetricsRegistered = true
}
