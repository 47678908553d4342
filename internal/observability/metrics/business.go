package metrics

import "time"

// RecordEventHandled records one delivery outcome per destination.
func RecordEventHandled(result, destination string) {
	EventsHandledTotal.WithLabelValues(result, destination).Inc()
}

// RecordDelivery records the duration of one delivery; outcome is "ok" or a failure code.
func RecordDelivery(provider, outcome string, duration time.Duration) {
	DeliveryDuration.WithLabelValues(provider, outcome).Observe(duration.Seconds())
}

// RecordRetry records one retry for the provider.
func RecordRetry(provider string) {
	DeliveryRetriesTotal.WithLabelValues(provider).Inc()
}

// RecordRejected records a delivery that never reached the network.
func RecordRejected(provider, reason string) {
	DeliveryRejectedTotal.WithLabelValues(provider, reason).Inc()
}

// RecordRegistrarError records a failed integration-event write.
func RecordRegistrarError() {
	RegistrarErrorsTotal.Inc()
}
