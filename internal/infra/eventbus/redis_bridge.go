package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"flaghook/internal/domain/entity"

	"github.com/redis/go-redis/v9"
)

// eventField is the stream entry field holding the JSON-encoded event.
const eventField = "event"

// BridgeConfig configures the Redis Streams ingestion of flag events.
type BridgeConfig struct {
	Stream    string
	Group     string
	Consumer  string
	BatchSize int64
	Block     time.Duration
}

// DefaultBridgeConfig returns the defaults used when env overrides are absent.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		Stream:    "flag_events",
		Group:     "addons",
		Consumer:  "flaghook-worker",
		BatchSize: 50,
		Block:     2 * time.Second,
	}
}

// RedisBridge reads flag events from a Redis stream and re-emits them on
// the in-process bus, keyed by event type.
type RedisBridge struct {
	client *redis.Client
	bus    Bus
	cfg    BridgeConfig
	logger *slog.Logger
}

func NewRedisBridge(client *redis.Client, bus Bus, cfg BridgeConfig, logger *slog.Logger) *RedisBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBridge{client: client, bus: bus, cfg: cfg, logger: logger}
}

// EnsureGroup creates the consumer group, reading from the start of the
// stream so events published before the first start are not skipped.
func (b *RedisBridge) EnsureGroup(ctx context.Context) error {
	err := b.client.XGroupCreateMkStream(ctx, b.cfg.Stream, b.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

// Publish appends an event to the stream. The flag-management core uses
// the same encoding.
func (b *RedisBridge) Publish(ctx context.Context, event entity.Event) (string, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.cfg.Stream,
		Values: map[string]any{eventField: string(raw)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd (stream=%s): %w", b.cfg.Stream, err)
	}
	return id, nil
}

// Run consumes until ctx is canceled. Entries that cannot be decoded are
// acknowledged and dropped so they are not redelivered forever.
func (b *RedisBridge) Run(ctx context.Context) error {
	if err := b.EnsureGroup(ctx); err != nil {
		return err
	}
	b.logger.Info("redis event bridge started",
		slog.String("stream", b.cfg.Stream),
		slog.String("group", b.cfg.Group))

	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := b.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Warn("reading event stream failed",
				slog.String("stream", b.cfg.Stream),
				slog.Any("error", err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		if n > 0 {
			b.logger.Debug("forwarded flag events", slog.Int("count", n))
		}
	}
}

func (b *RedisBridge) poll(ctx context.Context) (int, error) {
	streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    b.cfg.Group,
		Consumer: b.cfg.Consumer,
		Streams:  []string{b.cfg.Stream, ">"},
		Count:    b.cfg.BatchSize,
		Block:    b.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading from stream: %w", err)
	}

	forwarded := 0
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			event, decodeErr := decodeEvent(msg)
			if decodeErr != nil {
				b.logger.Error("failed to decode flag event",
					slog.String("message_id", msg.ID),
					slog.Any("error", decodeErr))
			} else {
				b.bus.Emit(ctx, string(event.Type), event)
				forwarded++
			}
			if ackErr := b.client.XAck(ctx, b.cfg.Stream, b.cfg.Group, msg.ID).Err(); ackErr != nil {
				b.logger.Warn("xack failed",
					slog.String("message_id", msg.ID),
					slog.Any("error", ackErr))
			}
		}
	}
	return forwarded, nil
}

func decodeEvent(msg redis.XMessage) (entity.Event, error) {
	raw, ok := msg.Values[eventField].(string)
	if !ok || raw == "" {
		return entity.Event{}, fmt.Errorf("missing %q field", eventField)
	}
	var event entity.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return entity.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if event.Type == "" {
		return entity.Event{}, errors.New("event type is empty")
	}
	return event, nil
}
