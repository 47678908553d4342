package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartDelivery opens a client span for one outbound addon request.
func StartDelivery(ctx context.Context, provider, method, url string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "addon.deliver",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("addon.provider", provider),
			attribute.String("http.method", method),
			attribute.String("http.url", url),
		),
	)
}

// EndDelivery records the final status and closes the span.
// attempts is the number of requests made, including retries.
func EndDelivery(span trace.Span, status int, attempts int, failure string) {
	span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.Int("addon.attempts", attempts),
	)
	if failure != "" {
		span.SetStatus(codes.Error, failure)
	}
	span.End()
}
