package eventbus

import (
	"context"
	"testing"
	"time"

	"flaghook/internal/domain/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBridge(t *testing.T, bus Bus) (*RedisBridge, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := DefaultBridgeConfig()
	cfg.Block = 50 * time.Millisecond
	return NewRedisBridge(client, bus, cfg, nil), client
}

func TestRedisBridge_ForwardsEventsByType(t *testing.T) {
	bus := NewMemoryBus(nil)
	received := make(chan entity.Event, 1)
	bus.On(string(entity.FeatureArchived), func(_ context.Context, p any) {
		received <- p.(entity.Event)
	})

	bridge, _ := newTestBridge(t, bus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := bridge.Publish(ctx, entity.Event{
		ID:          4,
		Type:        entity.FeatureArchived,
		CreatedBy:   "a@b.com",
		FeatureName: "f1",
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	select {
	case ev := <-received:
		assert.Equal(t, int64(4), ev.ID)
		assert.Equal(t, "f1", ev.FeatureName)
	case <-time.After(3 * time.Second):
		t.Fatal("event was not forwarded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("bridge did not stop")
	}
}

func TestRedisBridge_EnsureGroupIdempotent(t *testing.T) {
	bridge, _ := newTestBridge(t, NewMemoryBus(nil))

	require.NoError(t, bridge.EnsureGroup(context.Background()))
	require.NoError(t, bridge.EnsureGroup(context.Background()))
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]interface{}
		wantErr bool
	}{
		{name: "valid", values: map[string]interface{}{"event": `{"type":"feature-created","featureName":"f1"}`}},
		{name: "missing field", values: map[string]interface{}{"other": "x"}, wantErr: true},
		{name: "bad json", values: map[string]interface{}{"event": "{"}, wantErr: true},
		{name: "no type", values: map[string]interface{}{"event": `{"featureName":"f1"}`}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := decodeEvent(redis.XMessage{ID: "1-0", Values: tt.values})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entity.FeatureCreated, ev.Type)
		})
	}
}
