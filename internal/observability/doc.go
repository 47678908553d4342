// Package observability groups the logging, metrics and tracing helpers
// shared by the addon worker.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics for admin HTTP traffic and addon deliveries
//   - tracing: OpenTelemetry spans around deliveries and HTTP requests
//
// Example usage:
//
//	logger := logging.NewLogger()
//	logger.Info("worker started")
//
//	metrics.RecordEventHandled("success", "slack")
package observability
