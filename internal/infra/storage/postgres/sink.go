package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/minhpq/funnel/internal/core/domain"
)

// Sink delivers run output into the sink_chunks table, one row per
// chunk, sequence numbered in append order. Appends accumulate in an
// open transaction; Flush commits the batch. Close rolls back anything
// never flushed, so the table only ever holds complete batches.
type Sink struct {
	ctx  context.Context
	db   *SinkDB
	feed string
	run  domain.RunID
	tx   *sql.Tx
	seq  int64
}

// NewSink creates a sink writing chunks for one run. The shared
// connection stays open after Close; the caller owns it.
func NewSink(ctx context.Context, db *SinkDB, feed string, run domain.RunID) *Sink {
	return &Sink{ctx: ctx, db: db, feed: feed, run: run}
}

// Append inserts one chunk into the current batch.
func (s *Sink) Append(p []byte) error {
	if s.tx == nil {
		tx, err := s.db.DB.BeginTx(s.ctx, nil)
		if err != nil {
			return fmt.Errorf("begin failed: %w", err)
		}
		s.tx = tx
	}

	s.seq++
	if _, err := s.tx.ExecContext(s.ctx,
		`INSERT INTO sink_chunks (feed, run_id, seq, chunk) VALUES ($1, $2, $3, $4)`,
		s.feed, string(s.run), s.seq, p); err != nil {
		return fmt.Errorf("insert chunk failed: %w", err)
	}
	return nil
}

// Flush commits the current batch.
func (s *Sink) Flush() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Close discards any batch that was never flushed.
func (s *Sink) Close() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}
