// Package tracing provides OpenTelemetry spans for the admin HTTP API and
// for outbound addon deliveries.
//
// Example usage:
//
//	ctx, span := tracing.StartDelivery(ctx, "slack", http.MethodPost, url)
//	// ... send request ...
//	tracing.EndDelivery(span, resp.StatusCode, attempts, "")
package tracing
