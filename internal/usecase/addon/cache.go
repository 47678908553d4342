package addon

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TTLCache memoizes the result of load for ttl. Concurrent refreshes
// collapse into one call to load, and the cached value is replaced whole.
// A load that overlaps Invalidate is returned to its callers but never
// stored.
type TTLCache[T any] struct {
	ttl  time.Duration
	load func(context.Context) (T, error)
	now  func() time.Time

	mu        sync.RWMutex
	value     T
	expiresAt time.Time
	gen       uint64
	flight    singleflight.Group
}

func NewTTLCache[T any](ttl time.Duration, load func(context.Context) (T, error)) *TTLCache[T] {
	return &TTLCache[T]{ttl: ttl, load: load, now: time.Now}
}

// GetOrRefresh returns the cached value, loading it when expired. A
// failed load leaves the previous value in place and returns the error.
func (c *TTLCache[T]) GetOrRefresh(ctx context.Context) (T, error) {
	c.mu.RLock()
	if c.now().Before(c.expiresAt) {
		v := c.value
		c.mu.RUnlock()
		return v, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	v, err, _ := c.flight.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		fresh, err := c.load(ctx)
		if err != nil {
			RecordCacheRefresh("error")
			return fresh, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen {
			RecordCacheRefresh("stale")
			return fresh, nil
		}
		c.value = fresh
		c.expiresAt = c.now().Add(c.ttl)
		RecordCacheRefresh("success")
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate forces the next GetOrRefresh to reload.
func (c *TTLCache[T]) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}
