package addon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache_GetOrRefresh(t *testing.T) {
	// Arrange
	var loads atomic.Int32
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache(time.Minute, func(context.Context) (int, error) {
		return int(loads.Add(1)), nil
	})
	c.now = func() time.Time { return now }

	// Act / Assert
	v, err := c.GetOrRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	now = now.Add(59 * time.Second)
	v, _ = c.GetOrRefresh(context.Background())
	assert.Equal(t, 1, v, "still fresh")

	now = now.Add(2 * time.Second)
	v, _ = c.GetOrRefresh(context.Background())
	assert.Equal(t, 2, v, "expired")

	c.Invalidate()
	v, _ = c.GetOrRefresh(context.Background())
	assert.Equal(t, 3, v, "invalidated")
}

func TestTTLCache_FailedLoadKeepsPreviousValue(t *testing.T) {
	fail := false
	c := NewTTLCache(time.Nanosecond, func(context.Context) (string, error) {
		if fail {
			return "", errors.New("boom")
		}
		return "ok", nil
	})

	v, err := c.GetOrRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	fail = true
	time.Sleep(time.Millisecond)
	_, err = c.GetOrRefresh(context.Background())
	assert.EqualError(t, err, "boom")
	assert.Equal(t, "ok", c.value)
}

func TestTTLCache_ConcurrentRefreshLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	c := NewTTLCache(time.Hour, func(context.Context) (int, error) {
		loads.Add(1)
		<-release
		return 7, nil
	})

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.GetOrRefresh(context.Background())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, r := range results {
		assert.Equal(t, 7, r)
	}
}

func TestTTLCache_InvalidateDuringRefreshDiscardsLoad(t *testing.T) {
	// Arrange
	var loads atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	c := NewTTLCache(time.Hour, func(context.Context) (int, error) {
		n := int(loads.Add(1))
		if n == 1 {
			close(started)
			<-release
		}
		return n, nil
	})

	// Act: invalidate while the first load is in flight
	done := make(chan int)
	go func() {
		v, _ := c.GetOrRefresh(context.Background())
		done <- v
	}()
	<-started
	c.Invalidate()
	close(release)
	first := <-done
	second, err := c.GetOrRefresh(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second, "the overlapping load must not be cached")
	assert.Equal(t, int32(2), loads.Load())
}
