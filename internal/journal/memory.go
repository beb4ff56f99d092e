package journal

import (
	"context"
	"sync"

	"github.com/minhpq/funnel/internal/metrics"
)

// DefaultMemoryLimit caps how many entries a MemoryJournal retains.
const DefaultMemoryLimit = 1024

// MemoryJournal keeps the newest entries in memory. Oldest entries are
// dropped once the limit is reached.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
}

func NewMemoryJournal(limit int) *MemoryJournal {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &MemoryJournal{limit: limit}
}

func (j *MemoryJournal) Record(ctx context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries, e)
	if len(j.entries) > j.limit {
		j.entries = j.entries[len(j.entries)-j.limit:]
	}
	metrics.JournalEntries.WithLabelValues(e.Feed, "memory").Inc()
	return nil
}

func (j *MemoryJournal) Recent(ctx context.Context, n int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if n <= 0 || n > len(j.entries) {
		n = len(j.entries)
	}

	// Newest first.
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = j.entries[len(j.entries)-1-i]
	}
	return out, nil
}

func (j *MemoryJournal) Close() error {
	return nil
}

// Len reports how many entries are currently retained.
func (j *MemoryJournal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}
