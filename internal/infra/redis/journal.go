package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minhpq/funnel/internal/journal"
	"github.com/minhpq/funnel/internal/metrics"
)

// JournalRepo implements journal.Journal using Redis. Each entry lives
// under its own key with a TTL; a sorted set indexed by record time
// serves newest-first reads.
type JournalRepo struct {
	client *Client
	ttl    time.Duration
}

// NewJournalRepo creates a Redis-backed journal. A zero ttl keeps
// entries until Redis evicts them.
func NewJournalRepo(client *Client, ttl time.Duration) *JournalRepo {
	return &JournalRepo{client: client, ttl: ttl}
}

// Record stores one entry and indexes it by record time.
func (r *JournalRepo) Record(ctx context.Context, e journal.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	if err := r.client.rdb.Set(ctx, entryKey(e.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set journal entry: %w", err)
	}

	if err := r.client.rdb.ZAdd(ctx, indexKey(), redis.Z{
		Score:  float64(e.At.UnixNano()),
		Member: e.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index journal entry: %w", err)
	}

	metrics.JournalEntries.WithLabelValues(e.Feed, "redis").Inc()
	return nil
}

// Recent returns up to n entries, newest first.
func (r *JournalRepo) Recent(ctx context.Context, n int) ([]journal.Entry, error) {
	stop := int64(n) - 1
	if n <= 0 {
		stop = -1
	}

	ids, err := r.client.rdb.ZRevRange(ctx, indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}

	entries := make([]journal.Entry, 0, len(ids))
	for _, id := range ids {
		data, err := r.client.rdb.Get(ctx, entryKey(id)).Bytes()
		if err == redis.Nil {
			// Entry expired but ID still indexed, remove it
			r.client.rdb.ZRem(ctx, indexKey(), id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get journal entry: %w", err)
		}

		var e journal.Entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// Close leaves the shared client open; the caller owns it.
func (r *JournalRepo) Close() error {
	return nil
}
