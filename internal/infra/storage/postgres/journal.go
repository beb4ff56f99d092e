package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/minhpq/funnel/internal/journal"
	"github.com/minhpq/funnel/internal/metrics"
)

// JournalRepo implements journal.Journal on PostgreSQL.
type JournalRepo struct {
	db *DB
}

// NewJournalRepo creates a PostgreSQL-backed journal.
func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Record inserts one entry.
func (r *JournalRepo) Record(ctx context.Context, e journal.Entry) error {
	query := `INSERT INTO journal_entries (id, run_id, feed, level, decision, cause, recorded_at)
		VALUES (:id, :run_id, :feed, :level, :decision, :cause, :recorded_at)`

	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}

	metrics.JournalEntries.WithLabelValues(e.Feed, "postgres").Inc()
	return nil
}

// Recent returns up to n entries, newest first.
func (r *JournalRepo) Recent(ctx context.Context, n int) ([]journal.Entry, error) {
	if n <= 0 {
		n = 100
	}

	var entries []journal.Entry
	query := `SELECT id, run_id, feed, level, decision, cause, recorded_at
		FROM journal_entries ORDER BY recorded_at DESC LIMIT $1`

	if err := r.db.SelectContext(ctx, &entries, query, n); err != nil {
		return nil, fmt.Errorf("failed to select journal entries: %w", err)
	}
	return entries, nil
}

// DeleteOlderThan removes a feed's entries recorded before the cutoff.
func (r *JournalRepo) DeleteOlderThan(ctx context.Context, feed string, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM journal_entries WHERE feed = $1 AND recorded_at < $2`, feed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete journal entries: %w", err)
	}
	return res.RowsAffected()
}

// Close leaves the shared connection open; the caller owns it.
func (r *JournalRepo) Close() error {
	return nil
}
