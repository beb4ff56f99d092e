package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/minhpq/funnel/internal/core/domain"
)

// Sink delivers run output into a run-scoped Redis list, one list element
// per chunk. Appends buffer locally; Flush ships the batch in a single
// RPUSH so a mid-run crash never leaves half an append behind.
type Sink struct {
	ctx     context.Context
	client  *Client
	key     string
	ttl     time.Duration
	pending []any
}

// NewSink creates a sink writing to the output list for one run. The
// shared client stays open after Close; the caller owns it.
func NewSink(ctx context.Context, client *Client, feed string, run domain.RunID, ttl time.Duration) *Sink {
	return &Sink{
		ctx:    ctx,
		client: client,
		key:    outputKey(feed, string(run)),
		ttl:    ttl,
	}
}

// Key returns the Redis list this sink writes to.
func (s *Sink) Key() string {
	return s.key
}

// Append buffers one chunk for the next flush.
func (s *Sink) Append(p []byte) error {
	buf := make([]byte, len(p))
	copy(buf, p)
	s.pending = append(s.pending, buf)
	return nil
}

// Flush pushes every buffered chunk onto the list.
func (s *Sink) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}

	if err := s.client.rdb.RPush(s.ctx, s.key, s.pending...).Err(); err != nil {
		return fmt.Errorf("rpush failed: %w", err)
	}
	s.pending = nil

	if s.ttl > 0 {
		if err := s.client.rdb.Expire(s.ctx, s.key, s.ttl).Err(); err != nil {
			return fmt.Errorf("expire failed: %w", err)
		}
	}
	return nil
}

// Close ships any remaining chunks.
func (s *Sink) Close() error {
	return s.Flush()
}

// Output reads back the full output list for a run.
func (c *Client) Output(ctx context.Context, feed string, run domain.RunID) ([]string, error) {
	vals, err := c.rdb.LRange(ctx, outputKey(feed, string(run)), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}
	return vals, nil
}
