// Package worker holds background maintenance loops that run next to the
// feeds without sitting on their drain path.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// JournalStore deletes aged journal entries for one feed.
type JournalStore interface {
	DeleteOlderThan(ctx context.Context, feed string, cutoff time.Time) (int64, error)
}

// ChunkStore deletes aged output chunks for one feed.
type ChunkStore interface {
	DeleteChunksOlderThan(ctx context.Context, feed string, cutoff time.Time) (int64, error)
}

// Pruner deletes old rows for one feed based on its retention period.
type Pruner struct {
	feed      string
	retention time.Duration
	journal   JournalStore
	chunks    ChunkStore
	log       *slog.Logger
}

// NewPruner creates a new Pruner worker. Either store may be nil when the
// feed does not write to that backend.
func NewPruner(feed string, retention time.Duration, journal JournalStore, chunks ChunkStore) *Pruner {
	return &Pruner{
		feed:      feed,
		retention: retention,
		journal:   journal,
		chunks:    chunks,
		log:       slog.Default().With("feed", feed),
	}
}

// Start runs the pruner loop until the context ends.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check at 10% of the retention period, clamped to [1m, 1h]
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)

	if p.journal != nil {
		n, err := p.journal.DeleteOlderThan(ctx, p.feed, cutoff)
		if err != nil {
			p.log.Error("Failed to prune journal entries", "error", err)
		} else if n > 0 {
			p.log.Info("Pruned journal entries", "deleted", n)
		}
	}

	if p.chunks != nil {
		n, err := p.chunks.DeleteChunksOlderThan(ctx, p.feed, cutoff)
		if err != nil {
			p.log.Error("Failed to prune sink chunks", "error", err)
		} else if n > 0 {
			p.log.Info("Pruned sink chunks", "deleted", n)
		}
	}
}
