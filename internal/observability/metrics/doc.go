// Package metrics provides Prometheus metrics for addon deliveries.
//
// All metrics are registered with the Prometheus default registry and
// exposed via the worker's /metrics endpoint.
//
// Example usage:
//
//	start := time.Now()
//	// ... deliver ...
//	metrics.RecordDelivery("slack", "ok", time.Since(start))
//	metrics.RecordEventHandled("success", "slack")
package metrics
