package addon

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"flaghook/internal/config"
	"flaghook/internal/domain/entity"
	"flaghook/internal/infra/eventbus"
	"flaghook/internal/infra/flags"
)

// recordingRegistrar captures registered outcomes.
type recordingRegistrar struct {
	mu       sync.Mutex
	outcomes []entity.DeliveryOutcome
	err      error
}

func (r *recordingRegistrar) RegisterEvent(_ context.Context, outcome entity.DeliveryOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
	return r.err
}

func (r *recordingRegistrar) last(t *testing.T) entity.DeliveryOutcome {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) == 0 {
		t.Fatal("no outcome registered")
	}
	return r.outcomes[len(r.outcomes)-1]
}

// capturedRequest is one request seen by a recordingServer.
type capturedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// recordingServer replies with status and records every request.
type recordingServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []capturedRequest
	status   int
}

func newRecordingServer(t *testing.T, status int) *recordingServer {
	t.Helper()
	rs := &recordingServer{status: status}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rs.mu.Lock()
		rs.requests = append(rs.requests, capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		code := rs.status
		rs.mu.Unlock()
		w.WriteHeader(code)
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) Requests() []capturedRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]capturedRequest(nil), rs.requests...)
}

func (rs *recordingServer) SetStatus(code int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.status = code
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testDeps returns dependencies with a fast backoff and no breaker.
func testDeps(registrar Registrar) Dependencies {
	return Dependencies{
		Logger:     quietLogger(),
		Registrar:  registrar,
		Flags:      flags.NewStatic(),
		Bus:        eventbus.NewMemoryBus(quietLogger()),
		UnleashURL: "http://unleash.example",
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
		Policies: &config.PolicyFile{
			Default: config.DeliveryPolicy{Backoff: time.Millisecond},
		},
	}
}

func sampleEvent() entity.Event {
	return entity.Event{
		ID:          42,
		Type:        entity.FeatureCreated,
		CreatedBy:   "some@user.com",
		CreatedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		FeatureName: "some-toggle",
		Project:     "default",
		Data: map[string]any{
			"name":    "some-toggle",
			"enabled": false,
		},
	}
}
