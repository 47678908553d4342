package addon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the dispatcher
var (
	// dispatchedTotal tracks deliveries started per provider
	dispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addon_dispatch_total",
			Help: "Total number of addon deliveries dispatched",
		},
		[]string{"provider"},
	)

	// handledTotal tracks HandleEvent results per provider
	handledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addon_handler_results_total",
			Help: "Total number of addon handler invocations by status",
		},
		[]string{"provider", "status"}, // status: success|error|panic
	)

	// handlerDuration tracks HandleEvent duration
	handlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "addon_handler_duration_seconds",
			Help:    "Addon handler duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"provider"},
	)

	// droppedTotal tracks deliveries that never ran
	droppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addon_dispatch_dropped_total",
			Help: "Total number of dropped addon deliveries",
		},
		[]string{"provider", "reason"}, // reason: shutdown
	)

	// activeDeliveries tracks currently running delivery goroutines
	activeDeliveries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "addon_dispatch_active_goroutines",
			Help: "Number of active addon delivery goroutines",
		},
	)

	// cacheRefreshTotal tracks config cache reloads
	// result: success, error, stale (invalidated while loading)
	cacheRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addon_config_cache_refresh_total",
			Help: "Total number of addon config cache refreshes",
		},
		[]string{"result"},
	)
)

// RecordDispatch increments the dispatch counter for provider.
func RecordDispatch(provider string) {
	dispatchedTotal.WithLabelValues(provider).Inc()
}

// RecordHandled records one handler result and its duration.
func RecordHandled(provider, status string, duration time.Duration) {
	handledTotal.WithLabelValues(provider, status).Inc()
	handlerDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordDropped increments the dropped counter.
func RecordDropped(provider, reason string) {
	droppedTotal.WithLabelValues(provider, reason).Inc()
}

func IncrementActiveDeliveries() { activeDeliveries.Inc() }

func DecrementActiveDeliveries() { activeDeliveries.Dec() }

// RecordCacheRefresh counts a config cache reload by result.
func RecordCacheRefresh(result string) {
	cacheRefreshTotal.WithLabelValues(result).Inc()
}
