package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConnectionConfig(t *testing.T) {
	cfg := DefaultConnectionConfig()

	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.Equal(t, 1*time.Hour, cfg.ConnMaxLifetime)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxIdleTime)
}

func TestGetConnectionConfigFromEnv_MaxOpenConns(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected int
	}{
		{name: "valid value", envValue: "50", expected: 50},
		{name: "invalid value - non-numeric", envValue: "invalid", expected: 10},
		{name: "invalid value - zero", envValue: "0", expected: 10},
		{name: "invalid value - negative", envValue: "-10", expected: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_MAX_OPEN_CONNS", tt.envValue)

			cfg := getConnectionConfigFromEnv()
			assert.Equal(t, tt.expected, cfg.MaxOpenConns)
		})
	}
}

func TestGetConnectionConfigFromEnv_Durations(t *testing.T) {
	tests := []struct {
		name         string
		lifetime     string
		idle         string
		wantLifetime time.Duration
		wantIdle     time.Duration
	}{
		{name: "valid values", lifetime: "2h", idle: "15m", wantLifetime: 2 * time.Hour, wantIdle: 15 * time.Minute},
		{name: "mixed units", lifetime: "1h30m", idle: "45s", wantLifetime: 90 * time.Minute, wantIdle: 45 * time.Second},
		{name: "not a duration", lifetime: "invalid", idle: "nope", wantLifetime: time.Hour, wantIdle: 30 * time.Minute},
		{name: "zero and negative", lifetime: "0s", idle: "-1m", wantLifetime: time.Hour, wantIdle: 30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_CONN_MAX_LIFETIME", tt.lifetime)
			t.Setenv("DB_CONN_MAX_IDLE_TIME", tt.idle)

			cfg := getConnectionConfigFromEnv()
			assert.Equal(t, tt.wantLifetime, cfg.ConnMaxLifetime)
			assert.Equal(t, tt.wantIdle, cfg.ConnMaxIdleTime)
		})
	}
}

func TestGetConnectionConfigFromEnv_PartialCustomValues(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "75")
	t.Setenv("DB_MAX_IDLE_CONNS", "")

	cfg := getConnectionConfigFromEnv()

	assert.Equal(t, 75, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
}

func TestOpen_MissingDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	db, err := Open(context.Background())
	assert.Nil(t, db)
	assert.True(t, errors.Is(err, ErrMissingDSN))
}

func TestOpen_SuccessfulConnection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	db, err := Open(ctx)
	if errors.Is(err, ErrMissingDSN) {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.NoError(t, db.PingContext(ctx))
}
