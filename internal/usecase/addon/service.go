package addon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"flaghook/internal/domain/entity"
	"flaghook/internal/handler/http/requestid"
	addons "flaghook/internal/infra/addon"
	"flaghook/internal/infra/eventbus"
	"flaghook/internal/observability/logging"
	"flaghook/internal/repository"
	"flaghook/internal/usecase/tagtype"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	DefaultCacheTTL        = time.Minute
	DefaultDeliveryTimeout = 30 * time.Second
	DefaultMaxConcurrent   = 20
	shutdownRecordTimeout  = 5 * time.Second
)

// AuditStore persists domain events produced by config changes.
type AuditStore interface {
	StoreEvent(ctx context.Context, event entity.DomainEvent) error
}

// TagTypeRegistrar registers the tag types providers introduce.
type TagTypeRegistrar interface {
	ValidateUnique(ctx context.Context, name string) error
	CreateTagType(ctx context.Context, def entity.TagTypeDefinition, by entity.AuditUser) error
}

// Config tunes the dispatcher. Zero values fall back to the defaults.
type Config struct {
	CacheTTL        time.Duration
	DeliveryTimeout time.Duration
	// MaxConcurrent caps running deliveries. Further deliveries wait for a
	// free slot; they are never dropped while the service runs.
	MaxConcurrent int
	// InvalidateOnWrite drops the config cache after every create, update
	// and remove so changes reach dispatch immediately.
	InvalidateOnWrite bool
}

func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	return c
}

// Deps are the collaborators of Service.
type Deps struct {
	Repo     repository.AddonRepository
	Audit    AuditStore
	TagTypes TagTypeRegistrar
	Bus      eventbus.Bus
	Registry *addons.Registry
	Logger   *slog.Logger
}

// Service fans flag-change events out to matching addon configs and owns
// the config CRUD lifecycle.
type Service struct {
	repo     repository.AddonRepository
	audit    AuditStore
	tagTypes TagTypeRegistrar
	bus      eventbus.Bus
	registry *addons.Registry
	logger   *slog.Logger
	cfg      Config

	configs   *TTLCache[[]*entity.AddonConfig]
	sensitive map[string]map[string]bool
	subs      []eventbus.Subscription

	workerPool     chan struct{}
	wg             sync.WaitGroup
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	closeOnce      sync.Once
}

var validate = validator.New()

// NewService builds the service and subscribes it to every supported
// event type on the bus.
func NewService(deps Deps, cfg Config) *Service {
	cfg = cfg.withDefaults()
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	s := &Service{
		repo:           deps.Repo,
		audit:          deps.Audit,
		tagTypes:       deps.TagTypes,
		bus:            deps.Bus,
		registry:       deps.Registry,
		logger:         logging.Component(deps.Logger, "services/addon-service"),
		cfg:            cfg,
		sensitive:      make(map[string]map[string]bool),
		workerPool:     make(chan struct{}, cfg.MaxConcurrent),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	enabled := true
	s.configs = NewTTLCache(cfg.CacheTTL, func(ctx context.Context) ([]*entity.AddonConfig, error) {
		return s.repo.GetAll(ctx, repository.AddonFilter{Enabled: &enabled})
	})

	for _, def := range s.registry.Definitions() {
		names := make(map[string]bool)
		for _, p := range def.Parameters {
			if p.Sensitive {
				names[p.Name] = true
			}
		}
		s.sensitive[def.Name] = names
	}

	if s.bus != nil {
		for _, t := range entity.SupportedEventTypes() {
			s.subs = append(s.subs, s.bus.On(string(t), s.onEvent))
		}
	}
	return s
}

// onEvent runs on the emitter's goroutine and only schedules work.
func (s *Service) onEvent(ctx context.Context, payload any) {
	var event entity.Event
	switch e := payload.(type) {
	case entity.Event:
		event = e
	case *entity.Event:
		if e == nil {
			return
		}
		event = *e
	default:
		s.logger.Warn("ignoring event with unexpected payload", slog.String("payload_type", fmt.Sprintf("%T", payload)))
		return
	}

	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Dispatch(ctx, event); err != nil {
			s.logger.Error("failed to dispatch event",
				slog.String("event_type", string(event.Type)),
				slog.Int64("event_id", event.ID),
				slog.Any("error", err))
		}
	}()
}

// Dispatch starts one delivery per matching, enabled config and returns
// how many were started. It does not wait for the deliveries.
func (s *Service) Dispatch(ctx context.Context, event entity.Event) (int, error) {
	configs, err := s.configs.GetOrRefresh(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch addon configs: %w", err)
	}

	requestID := requestid.FromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	started := 0
	for _, cfg := range configs {
		if !cfg.Subscribes(event.Type) ||
			!cfg.MatchesProject(event.Project) ||
			!cfg.MatchesEnvironment(event.Environment) {
			continue
		}
		provider, ok := s.registry.Get(cfg.Provider)
		if !ok {
			s.logger.Debug("skipping config with unregistered provider",
				slog.Int64("integration_id", cfg.ID),
				slog.String("provider", cfg.Provider))
			continue
		}
		s.wg.Add(1)
		go s.deliver(requestID, provider, event, cfg)
		started++
	}

	if started > 0 {
		s.logger.Info("dispatching event to addons",
			slog.String("request_id", requestID),
			slog.String("event_type", string(event.Type)),
			slog.Int64("event_id", event.ID),
			slog.Int("addons", started))
	}
	return started, nil
}

// deliver runs one addon's HandleEvent in its own goroutine.
func (s *Service) deliver(requestID string, provider addons.Addon, event entity.Event, cfg *entity.AddonConfig) {
	defer s.wg.Done()

	IncrementActiveDeliveries()
	defer DecrementActiveDeliveries()

	name := provider.Name()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			RecordHandled(name, "panic", time.Since(start))
			s.logger.Error("panic in addon handler",
				slog.String("request_id", requestID),
				slog.String("provider", name),
				slog.Int64("integration_id", cfg.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	select {
	case s.workerPool <- struct{}{}:
		defer func() { <-s.workerPool }()
	case <-s.shutdownCtx.Done():
	}
	if s.shutdownCtx.Err() != nil {
		s.recordNotAttempted(requestID, provider, event, cfg)
		return
	}

	ctx, cancel := context.WithTimeout(s.shutdownCtx, s.cfg.DeliveryTimeout)
	defer cancel()
	ctx = requestid.WithRequestID(ctx, requestID)

	RecordDispatch(name)
	err := provider.HandleEvent(ctx, event, cfg.Parameters, cfg.ID)
	duration := time.Since(start)

	if err != nil {
		RecordHandled(name, "error", duration)
		s.logger.Warn("addon failed to handle event",
			slog.String("request_id", requestID),
			slog.String("provider", name),
			slog.Int64("integration_id", cfg.ID),
			slog.String("event_type", string(event.Type)),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return
	}
	RecordHandled(name, "success", duration)
	s.logger.Debug("addon handled event",
		slog.String("request_id", requestID),
		slog.String("provider", name),
		slog.Int64("integration_id", cfg.ID),
		slog.Duration("duration", duration))
}

// outcomeRecorder is implemented by providers built on addons.Base.
type outcomeRecorder interface {
	Deliverer() *addons.Deliverer
}

// recordNotAttempted stores a failed-retryable outcome for a delivery that
// was canceled by shutdown before HandleEvent ran.
func (s *Service) recordNotAttempted(requestID string, provider addons.Addon, event entity.Event, cfg *entity.AddonConfig) {
	name := provider.Name()
	RecordDropped(name, "shutdown")
	s.logger.Warn("addon delivery not attempted: service shutting down",
		slog.String("request_id", requestID),
		slog.String("provider", name),
		slog.Int64("integration_id", cfg.ID),
		slog.String("event_type", string(event.Type)))

	rec, ok := provider.(outcomeRecorder)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.shutdownCtx), shutdownRecordTimeout)
	defer cancel()
	rec.Deliverer().RegisterEvent(ctx, entity.DeliveryOutcome{
		IntegrationID: cfg.ID,
		State:         entity.DeliveryFailedRetryable,
		StateDetails:  "Delivery was not attempted because the addon service shut down.",
		Event:         event,
		Details:       map[string]any{"reason": "shutdown"},
	})
}

// Wait blocks until every started dispatch and delivery has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close unsubscribes from the bus and releases provider resources. It
// does not wait for in-flight deliveries.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		if s.bus != nil {
			for _, sub := range s.subs {
				s.bus.Off(sub)
			}
		}
		s.subs = nil
	})
}

// Shutdown stops accepting events and waits for in-flight deliveries.
// When ctx expires first the remaining deliveries are canceled.
func (s *Service) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down addon service")
	s.Close()
	defer s.registry.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.shutdownCancel()
		s.logger.Info("addon service shutdown complete")
		return nil
	case <-ctx.Done():
		s.shutdownCancel()
		s.logger.Warn("addon service shutdown timeout")
		return ctx.Err()
	}
}

// GetProviderDefinitions lists every registered provider, sorted by name.
func (s *Service) GetProviderDefinitions() []entity.AddonDefinition {
	return s.registry.Definitions()
}

// GetProviderHealth reports the delivery health of every provider.
func (s *Service) GetProviderHealth() []addons.ProviderHealth {
	return s.registry.Health()
}

// GetAddons returns every config with sensitive parameters masked.
func (s *Service) GetAddons(ctx context.Context) ([]*entity.AddonConfig, error) {
	configs, err := s.repo.GetAll(ctx, repository.AddonFilter{})
	if err != nil {
		return nil, fmt.Errorf("list addons: %w", err)
	}
	out := make([]*entity.AddonConfig, 0, len(configs))
	for _, c := range configs {
		out = append(out, s.mask(c))
	}
	return out, nil
}

// GetAddon returns one config with sensitive parameters masked.
func (s *Service) GetAddon(ctx context.Context, id int64) (*entity.AddonConfig, error) {
	cfg, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get addon: %w", err)
	}
	if cfg == nil {
		return nil, ErrAddonNotFound
	}
	return s.mask(cfg), nil
}

// mask returns a copy of cfg with sensitive parameter values replaced.
func (s *Service) mask(cfg *entity.AddonConfig) *entity.AddonConfig {
	out := *cfg
	sensitive := s.sensitive[cfg.Provider]
	out.Parameters = make(map[string]string, len(cfg.Parameters))
	for k, v := range cfg.Parameters {
		if sensitive[k] {
			v = entity.MaskedValue
		}
		out.Parameters[k] = v
	}
	return &out
}

// CreateAddon validates and stores a new config. The returned record is
// not masked.
func (s *Service) CreateAddon(ctx context.Context, in entity.AddonConfigInput, by entity.AuditUser) (*entity.AddonConfig, error) {
	def, err := s.validateInput(in)
	if err != nil {
		return nil, err
	}
	if def.Deprecated != "" {
		return nil, newInputError(ErrDeprecatedProvider, def.Deprecated)
	}
	if err := validateURLParameters(def, in.Parameters); err != nil {
		return nil, err
	}

	created, err := s.repo.Insert(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("insert addon: %w", err)
	}
	s.addTagTypes(ctx, def)
	s.invalidate()

	s.logger.Info("addon created",
		slog.String("user", by.Username),
		slog.String("provider", created.Provider),
		slog.Int64("integration_id", created.ID))

	if err := s.audit.StoreEvent(ctx, entity.NewAddonConfigCreatedEvent(created, by)); err != nil {
		return nil, fmt.Errorf("store audit event: %w", err)
	}
	return created, nil
}

// UpdateAddon replaces a config. Incoming parameters equal to the mask
// keep their stored value.
func (s *Service) UpdateAddon(ctx context.Context, id int64, in entity.AddonConfigInput, by entity.AuditUser) (*entity.AddonConfig, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get addon: %w", err)
	}
	if existing == nil {
		return nil, ErrAddonNotFound
	}

	def, err := s.validateInput(in)
	if err != nil {
		return nil, err
	}
	if def.HasSensitiveParameters() {
		params := make(map[string]string, len(in.Parameters))
		for k, v := range in.Parameters {
			if v == entity.MaskedValue {
				v = existing.Parameters[k]
			}
			params[k] = v
		}
		in.Parameters = params
	}
	if err := validateURLParameters(def, in.Parameters); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, in)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, ErrAddonNotFound
		}
		return nil, fmt.Errorf("update addon: %w", err)
	}
	s.invalidate()

	if err := s.audit.StoreEvent(ctx, entity.NewAddonConfigUpdatedEvent(existing, updated, by)); err != nil {
		return nil, fmt.Errorf("store audit event: %w", err)
	}
	s.logger.Info("addon updated",
		slog.String("user", by.Username),
		slog.Int64("integration_id", id))
	return updated, nil
}

// RemoveAddon deletes a config. Removing a missing id is a no-op.
func (s *Service) RemoveAddon(ctx context.Context, id int64, by entity.AuditUser) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get addon: %w", err)
	}
	if existing == nil {
		return nil
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete addon: %w", err)
	}
	s.invalidate()

	if err := s.audit.StoreEvent(ctx, entity.NewAddonConfigDeletedEvent(existing, by)); err != nil {
		return fmt.Errorf("store audit event: %w", err)
	}
	s.logger.Info("addon removed",
		slog.String("user", by.Username),
		slog.Int64("integration_id", id))
	return nil
}

func (s *Service) invalidate() {
	if s.cfg.InvalidateOnWrite {
		s.configs.Invalidate()
	}
}

// validateInput checks the input schema, the provider and the required
// parameters, in that order.
func (s *Service) validateInput(in entity.AddonConfigInput) (entity.AddonDefinition, error) {
	if strings.TrimSpace(in.Provider) == "" {
		return entity.AddonDefinition{}, newInputError(ErrNoProvider,
			"No addon provider supplied. The property was either missing or an empty value.")
	}
	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return entity.AddonDefinition{}, &entity.ValidationError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
			}
		}
		return entity.AddonDefinition{}, fmt.Errorf("validate addon: %w", err)
	}

	provider, ok := s.registry.Get(in.Provider)
	if !ok {
		return entity.AddonDefinition{}, newInputError(ErrUnknownProvider,
			"Unknown addon provider "+in.Provider)
	}
	def := provider.Definition()

	var missing []string
	for _, p := range def.Parameters {
		if p.Required && strings.TrimSpace(in.Parameters[p.Name]) == "" {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return entity.AddonDefinition{}, newInputError(ErrMissingParameters,
			"Missing required parameters: "+strings.Join(missing, ","))
	}

	supported := make(map[entity.EventType]bool, len(def.Events))
	for _, e := range def.Events {
		supported[e] = true
	}
	var unsupported []string
	for _, e := range in.Events {
		if !supported[e] {
			unsupported = append(unsupported, string(e))
		}
	}
	if len(unsupported) > 0 {
		sort.Strings(unsupported)
		return entity.AddonDefinition{}, newInputError(ErrUnsupportedEvent,
			fmt.Sprintf("Provider %s does not support events: %s", def.Name, strings.Join(unsupported, ",")))
	}
	return def, nil
}

// validateURLParameters checks url-typed parameters that carry a value.
func validateURLParameters(def entity.AddonDefinition, params map[string]string) error {
	for _, p := range def.Parameters {
		if p.Type != entity.ParameterURL {
			continue
		}
		v := params[p.Name]
		if v == "" {
			continue
		}
		if err := entity.ValidateURL(p.Name, v); err != nil {
			return err
		}
	}
	return nil
}

// addTagTypes registers the provider's tag types. Existing names are
// expected; other failures are logged and never fail the caller.
func (s *Service) addTagTypes(ctx context.Context, def entity.AddonDefinition) {
	if s.tagTypes == nil {
		return
	}
	for _, tt := range def.TagTypes {
		err := s.tagTypes.ValidateUnique(ctx, tt.Name)
		if err == nil {
			err = s.tagTypes.CreateTagType(ctx, tt, entity.SystemUser)
		}
		if err != nil && !errors.Is(err, tagtype.ErrNameExists) {
			s.logger.Error("failed to register tag type",
				slog.String("tag_type", tt.Name),
				slog.String("provider", def.Name),
				slog.Any("error", err))
		}
	}
}
