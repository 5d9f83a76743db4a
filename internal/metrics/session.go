package metrics

import "github.com/prometheus/client_golang/prometheus"

// Conversation session metrics.
var (
	SessionTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receiptdex",
			Name:      "session_turns_total",
			Help:      "Total conversation turns appended",
		},
		[]string{"role"},
	)

	SessionImagesPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "receiptdex",
			Name:      "session_images_pruned_total",
			Help:      "Image payloads evicted from live history by retention",
		},
	)

	SessionResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receiptdex",
			Name:      "session_resolve_total",
			Help:      "Image reference resolutions by source",
		},
		[]string{"source"}, // "history" / "cache" / "store" / "miss"
	)
)

var sessionMetricsRegistered bool

// RegisterSessionMetrics registers Prometheus session metrics. Must be called once from main.
func RegisterSessionMetrics() {
	if sessionMetricsRegistered {
		return
	}
	prometheus.MustRegister(SessionTurnsTotal)
	prometheus.MustRegister(SessionImagesPrunedTotal)
	prometheus.MustRegister(SessionResolveTotal)
	sessionMetricsRegistered = true
}
