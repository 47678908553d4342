package worker

import (
	"fmt"
	"log/slog"
	"time"

	"flaghook/internal/pkg/config"
)

// WorkerConfig holds everything the worker binary reads from the
// environment. LoadConfigFromEnv never fails: invalid values fall back to
// the defaults from DefaultConfig and are reported as warnings and metrics.
//
// Environment variables:
//   - UNLEASH_URL: base URL used in message links (default: http://localhost:4242)
//   - ADDON_CACHE_TTL: lifetime of the enabled-config cache, 1s-1h (default: 1m)
//   - ADDON_DELIVERY_TIMEOUT: per-delivery deadline, 1s-5m (default: 30s)
//   - ADDON_MAX_CONCURRENT: concurrent deliveries, 1-500 (default: 20)
//   - ADDON_INVALIDATE_ON_WRITE: drop the cache after config writes (default: false)
//   - ADDON_POLICY_FILE: optional YAML delivery policy file
//   - REDIS_URL: redis:// or rediss:// URL; empty disables the stream bridge
//   - REDIS_EVENT_STREAM, REDIS_EVENT_GROUP: stream and consumer group names
//   - ADMIN_PORT: admin API port (default: 8080)
//   - METRICS_PORT: health and metrics port (default: 9090)
//   - INTEGRATION_EVENTS_RETENTION: age after which delivery records are deleted, 1h-8760h (default: 48h)
//   - INTEGRATION_EVENTS_CLEANUP_SCHEDULE: cron expression (default: "0 * * * *")
//   - WORKER_TIMEZONE: IANA zone for the cleanup schedule (default: UTC)
//   - FEATURE_FLAGS: comma-separated operational flags
type WorkerConfig struct {
	UnleashURL string

	CacheTTL          time.Duration
	DeliveryTimeout   time.Duration
	MaxConcurrent     int
	InvalidateOnWrite bool
	PolicyFile        string

	RedisURL         string
	RedisEventStream string
	RedisEventGroup  string

	AdminPort   int
	MetricsPort int

	Retention       time.Duration
	CleanupSchedule string
	Timezone        string

	FeatureFlags []string
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		UnleashURL:       "http://localhost:4242",
		CacheTTL:         time.Minute,
		DeliveryTimeout:  30 * time.Second,
		MaxConcurrent:    20,
		RedisEventStream: "unleash:events",
		RedisEventGroup:  "addon-workers",
		AdminPort:        8080,
		MetricsPort:      9090,
		Retention:        48 * time.Hour,
		CleanupSchedule:  "0 * * * *",
		Timezone:         "UTC",
	}
}

// Validate checks every field against the rules LoadConfigFromEnv applies.
func (c *WorkerConfig) Validate() error {
	if err := config.ValidateURL("http", "https")(c.UnleashURL); err != nil {
		return fmt.Errorf("UnleashURL: %w", err)
	}
	if err := config.DurationRange(time.Second, time.Hour)(c.CacheTTL); err != nil {
		return fmt.Errorf("CacheTTL: %w", err)
	}
	if err := config.DurationRange(time.Second, 5*time.Minute)(c.DeliveryTimeout); err != nil {
		return fmt.Errorf("DeliveryTimeout: %w", err)
	}
	if err := config.IntRange(1, 500)(c.MaxConcurrent); err != nil {
		return fmt.Errorf("MaxConcurrent: %w", err)
	}
	if c.RedisURL != "" {
		if err := config.ValidateURL("redis", "rediss")(c.RedisURL); err != nil {
			return fmt.Errorf("RedisURL: %w", err)
		}
	}
	if err := config.ValidatePort(c.AdminPort); err != nil {
		return fmt.Errorf("AdminPort: %w", err)
	}
	if err := config.ValidatePort(c.MetricsPort); err != nil {
		return fmt.Errorf("MetricsPort: %w", err)
	}
	if c.AdminPort == c.MetricsPort {
		return fmt.Errorf("AdminPort and MetricsPort must differ")
	}
	if err := config.DurationRange(time.Hour, 365*24*time.Hour)(c.Retention); err != nil {
		return fmt.Errorf("Retention: %w", err)
	}
	if err := config.ValidateCronSchedule(c.CleanupSchedule); err != nil {
		return fmt.Errorf("CleanupSchedule: %w", err)
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		return fmt.Errorf("Timezone: %w", err)
	}
	return nil
}

// loader applies one result at a time and keeps the fallback bookkeeping
// in one place.
type loader struct {
	logger   *slog.Logger
	metrics  *WorkerMetrics
	fallback bool
}

func track[T any](l *loader, field string, result config.LoadResult[T]) T {
	if result.FallbackApplied {
		l.fallback = true
		l.metrics.RecordValidationError(field)
		l.metrics.RecordFallback(field)
		for _, warning := range result.Warnings {
			l.logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}
	l.metrics.SetFallbackActive(field, result.FallbackApplied)
	return result.Value
}

// LoadConfigFromEnv loads WorkerConfig with the fail-open strategy. The
// error is always nil.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	l := &loader{logger: logger, metrics: metrics}

	cfg.UnleashURL = track(l, "unleash_url",
		config.LoadEnvString("UNLEASH_URL", cfg.UnleashURL, config.ValidateURL("http", "https")))

	cfg.CacheTTL = track(l, "addon_cache_ttl",
		config.LoadEnvDuration("ADDON_CACHE_TTL", cfg.CacheTTL, config.DurationRange(time.Second, time.Hour)))
	cfg.DeliveryTimeout = track(l, "addon_delivery_timeout",
		config.LoadEnvDuration("ADDON_DELIVERY_TIMEOUT", cfg.DeliveryTimeout, config.DurationRange(time.Second, 5*time.Minute)))
	cfg.MaxConcurrent = track(l, "addon_max_concurrent",
		config.LoadEnvInt("ADDON_MAX_CONCURRENT", cfg.MaxConcurrent, config.IntRange(1, 500)))
	cfg.InvalidateOnWrite = track(l, "addon_invalidate_on_write",
		config.LoadEnvBool("ADDON_INVALIDATE_ON_WRITE", cfg.InvalidateOnWrite))
	cfg.PolicyFile = config.LoadEnvString("ADDON_POLICY_FILE", "", nil).Value

	cfg.RedisURL = track(l, "redis_url",
		config.LoadEnvString("REDIS_URL", "", config.ValidateURL("redis", "rediss")))
	cfg.RedisEventStream = config.LoadEnvString("REDIS_EVENT_STREAM", cfg.RedisEventStream, nil).Value
	cfg.RedisEventGroup = config.LoadEnvString("REDIS_EVENT_GROUP", cfg.RedisEventGroup, nil).Value

	cfg.AdminPort = track(l, "admin_port",
		config.LoadEnvInt("ADMIN_PORT", cfg.AdminPort, config.ValidatePort))
	cfg.MetricsPort = track(l, "metrics_port",
		config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, func(p int) error {
			if err := config.ValidatePort(p); err != nil {
				return err
			}
			if p == cfg.AdminPort {
				return fmt.Errorf("port %d is already used by ADMIN_PORT", p)
			}
			return nil
		}))

	cfg.Retention = track(l, "integration_events_retention",
		config.LoadEnvDuration("INTEGRATION_EVENTS_RETENTION", cfg.Retention, config.DurationRange(time.Hour, 365*24*time.Hour)))
	cfg.CleanupSchedule = track(l, "integration_events_cleanup_schedule",
		config.LoadEnvString("INTEGRATION_EVENTS_CLEANUP_SCHEDULE", cfg.CleanupSchedule, config.ValidateCronSchedule))
	cfg.Timezone = track(l, "timezone",
		config.LoadEnvString("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone))

	cfg.FeatureFlags = config.StringList("FEATURE_FLAGS", nil)

	if l.fallback {
		logger.Warn("worker configuration loaded with fallbacks")
	}
	metrics.RecordLoadTimestamp()
	return &cfg, nil
}
