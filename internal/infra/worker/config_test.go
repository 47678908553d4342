package worker

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.DeliveryTimeout)
	assert.Equal(t, 20, cfg.MaxConcurrent)
	assert.False(t, cfg.InvalidateOnWrite)
	assert.Empty(t, cfg.RedisURL)
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkerConfig)
		wantErr string
	}{
		{name: "bad unleash url", mutate: func(c *WorkerConfig) { c.UnleashURL = "ftp://x" }, wantErr: "UnleashURL"},
		{name: "cache ttl too long", mutate: func(c *WorkerConfig) { c.CacheTTL = 2 * time.Hour }, wantErr: "CacheTTL"},
		{name: "zero concurrency", mutate: func(c *WorkerConfig) { c.MaxConcurrent = 0 }, wantErr: "MaxConcurrent"},
		{name: "redis scheme", mutate: func(c *WorkerConfig) { c.RedisURL = "http://localhost" }, wantErr: "RedisURL"},
		{name: "same ports", mutate: func(c *WorkerConfig) { c.MetricsPort = c.AdminPort }, wantErr: "must differ"},
		{name: "short retention", mutate: func(c *WorkerConfig) { c.Retention = time.Minute }, wantErr: "Retention"},
		{name: "bad schedule", mutate: func(c *WorkerConfig) { c.CleanupSchedule = "often" }, wantErr: "CleanupSchedule"},
		{name: "bad timezone", mutate: func(c *WorkerConfig) { c.Timezone = "Nowhere/City" }, wantErr: "Timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Run("TC-1: reads every variable", func(t *testing.T) {
		// Arrange
		t.Setenv("UNLEASH_URL", "https://unleash.example.com")
		t.Setenv("ADDON_CACHE_TTL", "30s")
		t.Setenv("ADDON_DELIVERY_TIMEOUT", "10s")
		t.Setenv("ADDON_MAX_CONCURRENT", "8")
		t.Setenv("ADDON_INVALIDATE_ON_WRITE", "true")
		t.Setenv("ADDON_POLICY_FILE", "/etc/flaghook/policies.yaml")
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("REDIS_EVENT_STREAM", "events")
		t.Setenv("REDIS_EVENT_GROUP", "workers")
		t.Setenv("ADMIN_PORT", "8081")
		t.Setenv("METRICS_PORT", "9091")
		t.Setenv("INTEGRATION_EVENTS_RETENTION", "72h")
		t.Setenv("INTEGRATION_EVENTS_CLEANUP_SCHEDULE", "@daily")
		t.Setenv("WORKER_TIMEZONE", "Europe/Oslo")
		t.Setenv("FEATURE_FLAGS", "webhookDomainLogging, other")
		metrics := NewWorkerMetrics(nil)

		// Act
		cfg, err := LoadConfigFromEnv(discardLogger(), metrics)

		// Assert
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, WorkerConfig{
			UnleashURL:        "https://unleash.example.com",
			CacheTTL:          30 * time.Second,
			DeliveryTimeout:   10 * time.Second,
			MaxConcurrent:     8,
			InvalidateOnWrite: true,
			PolicyFile:        "/etc/flaghook/policies.yaml",
			RedisURL:          "redis://localhost:6379/0",
			RedisEventStream:  "events",
			RedisEventGroup:   "workers",
			AdminPort:         8081,
			MetricsPort:       9091,
			Retention:         72 * time.Hour,
			CleanupSchedule:   "@daily",
			Timezone:          "Europe/Oslo",
			FeatureFlags:      []string{"webhookDomainLogging", "other"},
		}, *cfg)
		assert.Equal(t, float64(0), testutil.ToFloat64(metrics.FallbackActive))
		assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), float64(0))
	})

	t.Run("TC-2: invalid values fall back to defaults", func(t *testing.T) {
		// Arrange
		t.Setenv("ADDON_CACHE_TTL", "forever")
		t.Setenv("ADDON_MAX_CONCURRENT", "0")
		t.Setenv("REDIS_URL", "localhost:6379")
		t.Setenv("INTEGRATION_EVENTS_CLEANUP_SCHEDULE", "whenever")
		metrics := NewWorkerMetrics(nil)

		// Act
		cfg, err := LoadConfigFromEnv(discardLogger(), metrics)

		// Assert
		require.NoError(t, err)
		defaults := DefaultConfig()
		assert.Equal(t, defaults.CacheTTL, cfg.CacheTTL)
		assert.Equal(t, defaults.MaxConcurrent, cfg.MaxConcurrent)
		assert.Empty(t, cfg.RedisURL)
		assert.Equal(t, defaults.CleanupSchedule, cfg.CleanupSchedule)
		require.NoError(t, cfg.Validate())

		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbackActive))
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("addon_cache_ttl")))
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("redis_url")))
	})

	t.Run("TC-3: metrics port may not collide with the admin port", func(t *testing.T) {
		t.Setenv("ADMIN_PORT", "9000")
		t.Setenv("METRICS_PORT", "9000")

		cfg, err := LoadConfigFromEnv(discardLogger(), NewWorkerMetrics(nil))

		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.AdminPort)
		assert.Equal(t, DefaultConfig().MetricsPort, cfg.MetricsPort)
	})
}
