package addon

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"flaghook/internal/config"
	"flaghook/internal/domain/entity"
	"flaghook/internal/infra/eventbus"
	"flaghook/internal/observability/metrics"
	"flaghook/internal/observability/tracing"
	"flaghook/internal/resilience/circuitbreaker"
	"flaghook/internal/resilience/retry"

	"github.com/sony/gobreaker"
)

// Failure codes reported in DeliveryResult.Code.
const (
	CodeHTTPStatus     = "http_status"
	CodeNetwork        = "network_error"
	CodeTimeout        = "timeout"
	CodeCircuitOpen    = "circuit_open"
	CodeRateLimited    = "rate_limited"
	CodeInvalidRequest = "invalid_request"
)

// maxResponseBody caps how much of a destination's reply is kept.
const maxResponseBody = 64 << 10

// RequestOptions describes one outbound request. Method defaults to GET.
type RequestOptions struct {
	Method  string
	Headers map[string]string
	Body    []byte
	// IntegrationID scopes the circuit breaker to one addon config. Zero
	// falls back to the request URL.
	IntegrationID int64
}

// RetryPolicy bounds FetchRetry. MaxRetries of zero uses the provider
// policy (1 unless configured); a negative value disables retries.
type RetryPolicy struct {
	MaxRetries int
	// OnBeforeRetry is called before each retry with the upcoming attempt
	// number, starting at 2.
	OnBeforeRetry func(attempt int, err error)
	// Backoff is the delay before the first retry.
	Backoff time.Duration
}

// DeliveryResult is what FetchRetry resolves to. It is never nil.
type DeliveryResult struct {
	OK       bool
	Status   int
	Code     string
	Body     []byte
	Attempts int
}

// Deliverer performs retried HTTP deliveries and records their outcomes
// for one provider. Breakers are kept per destination so one broken
// endpoint never rejects requests to another. It is safe for concurrent use.
type Deliverer struct {
	provider  string
	client    *http.Client
	registrar Registrar
	bus       eventbus.Bus
	logger    *slog.Logger
	policy    config.DeliveryPolicy
	limiter   *RateLimiter

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

// NewDeliverer builds the helper from the provider's delivery policy.
func NewDeliverer(provider string, deps Dependencies, logger *slog.Logger) *Deliverer {
	if logger == nil {
		logger = slog.Default()
	}
	policy := deps.Policies.For(provider)
	d := &Deliverer{
		provider:  provider,
		client:    deps.httpClient(),
		registrar: deps.Registrar,
		bus:       deps.Bus,
		logger:    logger,
		policy:    policy,
	}
	if policy.RateLimit > 0 {
		d.limiter = NewRateLimiter(policy.RateLimit, policy.Burst)
	}
	if policy.CircuitBreaker {
		d.breakers = make(map[string]*circuitbreaker.CircuitBreaker)
	}
	return d
}

// breakerFor returns the destination's breaker, or nil when breakers are
// disabled by policy.
func (d *Deliverer) breakerFor(integrationID int64, url string) *circuitbreaker.CircuitBreaker {
	if d.breakers == nil {
		return nil
	}
	key := url
	if integrationID > 0 {
		key = strconv.FormatInt(integrationID, 10)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	cb, ok := d.breakers[key]
	if !ok {
		cb = circuitbreaker.New(circuitbreaker.DeliveryConfig(d.provider, key))
		d.breakers[key] = cb
	}
	return cb
}

func (d *Deliverer) retryConfig(p RetryPolicy) retry.Config {
	retries := d.policy.Retries()
	switch {
	case p.MaxRetries < 0:
		retries = 0
	case p.MaxRetries > 0:
		retries = p.MaxRetries
	}
	cfg := retry.DeliveryConfig(retries)
	cfg.Logger = d.logger.With(slog.String("provider", d.provider))

	backoff := d.policy.Backoff
	if p.Backoff > 0 {
		backoff = p.Backoff
	}
	if backoff > 0 {
		cfg.InitialDelay = backoff
		if cfg.MaxDelay < backoff {
			cfg.MaxDelay = backoff
		}
	}
	cfg.OnRetry = func(attempt int, err error) {
		metrics.RecordRetry(d.provider)
		if p.OnBeforeRetry != nil {
			p.OnBeforeRetry(attempt, err)
		}
	}
	return cfg
}

// FetchRetry sends the request, retrying network errors, 408, 429 and 5xx
// responses up to the policy's bound. It never returns an error; failures
// are described by the result.
func (d *Deliverer) FetchRetry(ctx context.Context, url string, opts RequestOptions, policy RetryPolicy) *DeliveryResult {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	ctx, span := tracing.StartDelivery(ctx, d.provider, method, url)
	start := time.Now()
	result := &DeliveryResult{}

	finish := func(err error) *DeliveryResult {
		if err == nil {
			result.OK = true
			metrics.RecordDelivery(d.provider, "ok", time.Since(start))
			tracing.EndDelivery(span, result.Status, result.Attempts, "")
			return result
		}
		if result.Code == "" {
			result.Code = failureCode(err)
		}
		metrics.RecordDelivery(d.provider, result.Code, time.Since(start))
		tracing.EndDelivery(span, result.Status, result.Attempts, result.Code)
		d.logger.Warn("addon delivery failed",
			slog.String("provider", d.provider),
			slog.String("url", url),
			slog.String("method", method),
			slog.String("code", result.Code),
			slog.Int("status", result.Status),
			slog.Int("attempts", result.Attempts),
			slog.Any("error", err))
		return result
	}

	if d.limiter != nil {
		if err := d.limiter.Allow(ctx); err != nil {
			result.Code = CodeRateLimited
			metrics.RecordRejected(d.provider, CodeRateLimited)
			return finish(err)
		}
	}

	attempt := func() error {
		result.Attempts++
		var body io.Reader
		if opts.Body != nil {
			body = bytes.NewReader(opts.Body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			result.Code = CodeInvalidRequest
			return err
		}
		for k, v := range opts.Headers {
			req.Header.Set(k, v)
		}

		resp, err := d.client.Do(req)
		if err != nil {
			result.Status = 0
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		result.Status = resp.StatusCode
		result.Body, _ = io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			result.Code = ""
			return nil
		}
		return &retry.HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	run := func() error {
		return retry.WithBackoff(ctx, d.retryConfig(policy), attempt)
	}

	breaker := d.breakerFor(opts.IntegrationID, url)
	if breaker == nil {
		return finish(run())
	}

	var deliveryErr error
	_, err := breaker.Execute(func() (interface{}, error) {
		deliveryErr = run()
		if isOutage(deliveryErr) {
			return nil, deliveryErr
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		result.Code = CodeCircuitOpen
		metrics.RecordRejected(d.provider, CodeCircuitOpen)
		return finish(err)
	}
	return finish(deliveryErr)
}

// isOutage reports whether err should count against the circuit breaker.
// Client errors other than 408 and 429 are the caller's fault.
func isOutage(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 ||
			httpErr.StatusCode == http.StatusTooManyRequests ||
			httpErr.StatusCode == http.StatusRequestTimeout
	}
	return true
}

func failureCode(err error) string {
	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		return CodeHTTPStatus
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}
	return CodeNetwork
}

// RegisterEvent records a delivery outcome and announces it on the bus.
// Registrar failures are logged and never returned.
func (d *Deliverer) RegisterEvent(ctx context.Context, outcome entity.DeliveryOutcome) {
	if d.registrar != nil {
		if err := d.registrar.RegisterEvent(ctx, outcome); err != nil {
			metrics.RecordRegistrarError()
			d.logger.Error("failed to register integration event",
				slog.Int64("integration_id", outcome.IntegrationID),
				slog.String("state", string(outcome.State)),
				slog.Any("error", err))
		}
	}

	metrics.RecordEventHandled(string(outcome.State), d.provider)
	if d.bus != nil {
		d.bus.Emit(ctx, eventbus.AddonEventsHandled, eventbus.HandledSignal{
			Result:      string(outcome.State),
			Destination: d.provider,
		})
	}
}

// Health folds the destination breakers of this provider into one entry.
// CircuitState is the worst state across destinations.
func (d *Deliverer) Health() ProviderHealth {
	h := ProviderHealth{Provider: d.provider, CircuitState: "disabled"}
	if d.breakers == nil {
		return h
	}
	h.CircuitState = gobreaker.StateClosed.String()
	d.mu.Lock()
	defer d.mu.Unlock()
	h.Destinations = len(d.breakers)
	for _, cb := range d.breakers {
		counts := cb.Counts()
		h.Requests += counts.Requests
		h.Failures += counts.TotalFailures
		switch cb.State() {
		case gobreaker.StateOpen:
			h.OpenCircuits++
			h.CircuitState = gobreaker.StateOpen.String()
		case gobreaker.StateHalfOpen:
			if h.CircuitState != gobreaker.StateOpen.String() {
				h.CircuitState = gobreaker.StateHalfOpen.String()
			}
		}
	}
	return h
}
