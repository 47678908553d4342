// Package addon implements the delivery side of integrations: the message
// formatter, the shared delivery helper and one type per provider.
package addon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"flaghook/internal/config"
	"flaghook/internal/domain/entity"
	"flaghook/internal/infra/eventbus"
	"flaghook/internal/infra/flags"
	"flaghook/internal/observability/logging"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidDefinition is returned by NewBase for a malformed definition.
var ErrInvalidDefinition = errors.New("invalid addon definition")

// Addon is one provider capable of delivering an event to a destination.
type Addon interface {
	Name() string
	Definition() entity.AddonDefinition
	HandleEvent(ctx context.Context, event entity.Event, parameters map[string]string, integrationID int64) error
}

// Closer is implemented by addons that own background resources.
type Closer interface {
	Close()
}

// Registrar persists delivery outcomes.
type Registrar interface {
	RegisterEvent(ctx context.Context, outcome entity.DeliveryOutcome) error
}

// Dependencies are shared by every addon.
type Dependencies struct {
	Logger     *slog.Logger
	Registrar  Registrar
	Flags      flags.Resolver
	Bus        eventbus.Bus
	UnleashURL string
	HTTPClient *http.Client
	Policies   *config.PolicyFile
}

const defaultHTTPTimeout = 10 * time.Second

func (d Dependencies) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

var validate = validator.New()

// Base carries what every concrete addon shares. The delivery helper is
// held by reference so addons can be tested against a substitute.
type Base struct {
	definition entity.AddonDefinition
	logger     *slog.Logger
	flags      flags.Resolver
	formatter  *Formatter
	deliverer  *Deliverer
}

// NewBase validates the definition and wires the delivery helper.
func NewBase(definition entity.AddonDefinition, deps Dependencies) (*Base, error) {
	logger := logging.Component(deps.Logger, "addon/"+definition.Name)
	if err := validate.Struct(definition); err != nil {
		logger.Error("invalid addon definition",
			slog.String("addon", definition.Name),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidDefinition, definition.Name, err)
	}

	resolver := deps.Flags
	if resolver == nil {
		resolver = flags.NewStatic()
	}
	return &Base{
		definition: definition,
		logger:     logger,
		flags:      resolver,
		formatter:  NewFormatter(deps.UnleashURL),
		deliverer:  NewDeliverer(definition.Name, deps, logger),
	}, nil
}

func (b *Base) Name() string { return b.definition.Name }

func (b *Base) Definition() entity.AddonDefinition { return b.definition }

// Health reports the provider's delivery state.
func (b *Base) Health() ProviderHealth { return b.deliverer.Health() }

// Deliverer exposes the delivery helper, e.g. to record outcomes of
// deliveries that never reached HandleEvent.
func (b *Base) Deliverer() *Deliverer { return b.deliverer }

// ProviderHealth is the per-provider entry of /health/addons.
type ProviderHealth struct {
	Provider     string `json:"provider"`
	CircuitState string `json:"circuitState"`
	Destinations int    `json:"destinations"`
	OpenCircuits int    `json:"openCircuits"`
	Requests     uint32 `json:"requests"`
	Failures     uint32 `json:"failures"`
}

// HealthReporter is implemented by addons built on Base.
type HealthReporter interface {
	Health() ProviderHealth
}

// customHeaders parses the customHeaders parameter. Parse failures are
// logged and yield no headers.
func (b *Base) customHeaders(raw string) map[string]string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	headers, err := parseHeaders(raw)
	if err != nil {
		b.logger.Warn("could not parse the json in the customHeaders parameter",
			slog.Any("error", err))
		return nil
	}
	return headers
}

func mergeHeaders(dst map[string]string, extra map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(extra))
	}
	for k, v := range extra {
		dst[k] = v
	}
	return dst
}
