package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans points the package tracer at an in-memory exporter for the
// duration of the test.
func recordSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	previous := tracer
	tracer = tp.Tracer("flaghook")
	t.Cleanup(func() {
		tracer = previous
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func attrs(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestMiddleware_CreatesSpan(t *testing.T) {
	// Arrange
	exporter := recordSpans(t)
	route := func(p string) string {
		if strings.HasPrefix(p, "/api/admin/addons/") {
			return "/api/admin/addons/:id"
		}
		return p
	}
	handler := Middleware(route)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rec := httptest.NewRecorder()

	// Act
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/admin/addons/12", nil))

	// Assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "PUT /api/admin/addons/:id", spans[0].Name)
	got := attrs(spans[0].Attributes)
	assert.Equal(t, "PUT", got["http.method"].AsString())
	assert.Equal(t, "/api/admin/addons/:id", got["http.route"].AsString())
	assert.Equal(t, int64(http.StatusCreated), got["http.status_code"].AsInt64())
	assert.Equal(t, spans[0].SpanContext.TraceID().String(), rec.Header().Get("X-Trace-Id"))
	assert.NotEqual(t, codes.Error, spans[0].Status.Code)
}

func TestMiddleware_ServerErrorMarksSpan(t *testing.T) {
	exporter := recordSpans(t)
	handler := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /health", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestMiddleware_ContinuesIncomingTrace(t *testing.T) {
	// Arrange
	exporter := recordSpans(t)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator()) })

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest(http.MethodGet, "/api/admin/addons", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")

	// Act
	Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(httptest.NewRecorder(), req)

	// Assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, traceID, spans[0].SpanContext.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent.SpanID().String())
}
