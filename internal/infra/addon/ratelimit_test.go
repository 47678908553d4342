package addon

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("TC-1: should allow request within rate limit", func(t *testing.T) {
		// Arrange
		limiter := NewRateLimiter(10.0, 5)

		// Act
		err := limiter.Allow(context.Background())

		// Assert
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("TC-2: should reject request when the deadline is shorter than the wait", func(t *testing.T) {
		// Arrange
		limiter := NewRateLimiter(1.0, 1)
		if err := limiter.Allow(context.Background()); err != nil {
			t.Fatalf("first request should succeed: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		// Act
		err := limiter.Allow(ctx)

		// Assert
		if err == nil {
			t.Error("expected error, but request succeeded")
		}
	})

	t.Run("TC-3: should handle burst requests immediately", func(t *testing.T) {
		// Arrange
		limiter := NewRateLimiter(2.0, 5)
		start := time.Now()

		// Act
		for i := 0; i < 5; i++ {
			if err := limiter.Allow(context.Background()); err != nil {
				t.Fatalf("request %d failed: %v", i+1, err)
			}
		}

		// Assert
		if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
			t.Errorf("burst should not block, took %v", elapsed)
		}
	})

	t.Run("TC-4: should return error on canceled context", func(t *testing.T) {
		// Arrange
		limiter := NewRateLimiter(1.0, 1)
		_ = limiter.Allow(context.Background())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// Act
		err := limiter.Allow(ctx)

		// Assert
		if err == nil {
			t.Error("expected error for canceled context")
		}
	})
}
