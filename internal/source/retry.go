package source

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/minhpq/funnel/internal/core/stream"
	"github.com/minhpq/funnel/internal/flatten"
)

// RetryConfig defines retry behavior for opening inner streams.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     5 * time.Second,
}

// WithRetry wraps a mapper so that failed opens are retried with
// exponential backoff before the failure reaches the run's policy. The
// engine itself never retries; this middleware is where open-retry lives.
func WithRetry[O, I any](m flatten.Mapper[O, I], cfg RetryConfig) flatten.Mapper[O, I] {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetryConfig.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultRetryConfig.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryConfig.MaxDelay
	}

	return func(ctx context.Context, item O) (stream.Stream[I], error) {
		var lastErr error

		for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
			s, err := m(ctx, item)
			if err == nil {
				return s, nil
			}
			lastErr = err

			if attempt == cfg.MaxAttempts-1 {
				break
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(calculateBackoff(attempt, cfg)):
			}
		}

		return nil, fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
	}
}

func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(2, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
