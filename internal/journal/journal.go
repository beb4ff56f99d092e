// Package journal keeps a durable trail of recovered faults. Every time a
// run substitutes, resumes past or skips an error, the journal gets one
// entry; aborted runs surface their error to the caller instead.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/minhpq/funnel/internal/core/domain"
)

// Entry is one recovered fault.
type Entry struct {
	ID       string              `db:"id" json:"id"`
	RunID    domain.RunID        `db:"run_id" json:"run_id"`
	Feed     string              `db:"feed" json:"feed"`
	Level    domain.FailureLevel `db:"level" json:"level"`
	Decision string              `db:"decision" json:"decision"`
	Cause    string              `db:"cause" json:"cause"`
	At       time.Time           `db:"recorded_at" json:"at"`
}

// NewEntry stamps a journal entry with a fresh ID and the current time.
func NewEntry(runID domain.RunID, feed string, level domain.FailureLevel, decision, cause string) Entry {
	return Entry{
		ID:       uuid.New().String(),
		RunID:    runID,
		Feed:     feed,
		Level:    level,
		Decision: decision,
		Cause:    cause,
		At:       time.Now(),
	}
}

// Journal stores recovered-fault entries.
type Journal interface {
	// Record appends one entry.
	Record(ctx context.Context, e Entry) error

	// Recent returns up to n entries, newest first.
	Recent(ctx context.Context, n int) ([]Entry, error)

	// Close releases the backend.
	Close() error
}
