package source

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/minhpq/funnel/internal/core/stream"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestWithRetry_EventualSuccess(t *testing.T) {
	calls := 0
	m := func(ctx context.Context, item string) (stream.Stream[int], error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return stream.Of(42), nil
	}

	s, err := WithRetry(m, fastRetry(5))(context.Background(), "x")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	defer s.Close()

	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	got, err := stream.Collect(context.Background(), s)
	if err != nil || len(got) != 1 || got[0] != 42 {
		t.Errorf("expected [42], got %v (%v)", got, err)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	cause := errors.New("permanent")
	calls := 0
	m := func(ctx context.Context, item string) (stream.Stream[int], error) {
		calls++
		return nil, cause
	}

	_, err := WithRetry(m, fastRetry(3))(context.Background(), "x")
	if !errors.Is(err, cause) {
		t.Fatalf("expected the original cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Errorf("error should report the attempt count, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestWithRetry_NoRetryOnFirstSuccess(t *testing.T) {
	calls := 0
	m := func(ctx context.Context, item string) (stream.Stream[int], error) {
		calls++
		return stream.Of(1), nil
	}

	s, err := WithRetry(m, fastRetry(5))(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestWithRetry_CancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := func(ctx context.Context, item string) (stream.Stream[int], error) {
		cancel()
		return nil, errors.New("transient")
	}

	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour}
	_, err := WithRetry(m, cfg)(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{InitialDelay: time.Second, MaxDelay: 10 * time.Second}

	if d := calculateBackoff(0, cfg); d != time.Second {
		t.Errorf("attempt 0: expected 1s, got %v", d)
	}
	if d := calculateBackoff(1, cfg); d != 2*time.Second {
		t.Errorf("attempt 1: expected 2s, got %v", d)
	}
	if d := calculateBackoff(2, cfg); d != 4*time.Second {
		t.Errorf("attempt 2: expected 4s, got %v", d)
	}
	if d := calculateBackoff(10, cfg); d != 10*time.Second {
		t.Errorf("attempt 10: expected cap at 10s, got %v", d)
	}
}

func TestWithRetry_DefaultsApplied(t *testing.T) {
	calls := 0
	m := func(ctx context.Context, item string) (stream.Stream[int], error) {
		calls++
		return stream.Of(1), nil
	}

	// Zero config falls back to the defaults instead of zero attempts.
	s, err := WithRetry(m, RetryConfig{})(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()
	if calls != 1 {
		t.Errorf("expected one attempt, got %d", calls)
	}
}
