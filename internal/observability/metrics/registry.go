// Package metrics provides Prometheus metrics for addon deliveries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery metrics are recorded by the addon delivery helper.
var (
	// EventsHandledTotal mirrors every addon_events_handled signal.
	EventsHandledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addon_events_handled_total",
			Help: "Total number of events handled by addons",
		},
		[]string{"result", "destination"},
	)

	// DeliveryDuration measures one FetchRetry call including retries.
	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "addon_delivery_duration_seconds",
			Help:    "Addon delivery duration in seconds, retries included",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "outcome"},
	)

	// DeliveryRetriesTotal counts retries issued after a failed attempt.
	DeliveryRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addon_delivery_retries_total",
			Help: "Total number of addon delivery retries",
		},
		[]string{"provider"},
	)

	// DeliveryRejectedTotal counts requests never sent (circuit open, rate limiter canceled).
	DeliveryRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addon_delivery_rejected_total",
			Help: "Total number of addon deliveries rejected before sending",
		},
		[]string{"provider", "reason"},
	)

	// RegistrarErrorsTotal counts integration events that could not be stored.
	RegistrarErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "addon_registrar_errors_total",
			Help: "Total number of delivery outcomes that failed to persist",
		},
	)
)
