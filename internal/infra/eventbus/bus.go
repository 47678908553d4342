// Package eventbus is the in-process publish/subscribe hub between the
// flag-management core, the addon dispatcher and observability listeners.
package eventbus

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// AddonEventsHandled is emitted once per delivery outcome.
const AddonEventsHandled = "addon_events_handled"

// HandledSignal is the payload of AddonEventsHandled.
type HandledSignal struct {
	Result      string `json:"result"`
	Destination string `json:"destination"`
}

// Handler receives one emitted payload. It runs on the emitter's goroutine.
type Handler func(ctx context.Context, payload any)

// Subscription identifies a registered handler for Off.
type Subscription struct {
	topic string
	id    uint64
}

// Bus is the subscription surface consumed by the dispatcher.
type Bus interface {
	On(topic string, handler Handler) Subscription
	Off(sub Subscription)
	Emit(ctx context.Context, topic string, payload any)
}

type entry struct {
	id      uint64
	handler Handler
}

// MemoryBus delivers synchronously in registration order.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	nextID   uint64
	logger   *slog.Logger
}

func NewMemoryBus(logger *slog.Logger) *MemoryBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryBus{
		handlers: make(map[string][]entry),
		logger:   logger,
	}
}

func (b *MemoryBus) On(topic string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[topic] = append(b.handlers[topic], entry{id: b.nextID, handler: handler})
	return Subscription{topic: topic, id: b.nextID}
}

func (b *MemoryBus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	current := b.handlers[sub.topic]
	kept := current[:0:0]
	for _, e := range current {
		if e.id != sub.id {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(b.handlers, sub.topic)
		return
	}
	b.handlers[sub.topic] = kept
}

// Emit calls every handler of topic. A panicking handler is logged and
// does not prevent the remaining handlers from running.
func (b *MemoryBus) Emit(ctx context.Context, topic string, payload any) {
	b.mu.RLock()
	snapshot := append([]entry(nil), b.handlers[topic]...)
	b.mu.RUnlock()

	for _, e := range snapshot {
		b.invoke(ctx, topic, e.handler, payload)
	}
}

func (b *MemoryBus) invoke(ctx context.Context, topic string, handler Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in event handler",
				slog.String("topic", topic),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	handler(ctx, payload)
}

// ListenerCount reports how many handlers are registered on topic.
func (b *MemoryBus) ListenerCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}
