package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Use pgx via database/sql

	"github.com/minhpq/funnel/internal/core/domain"
)

// SinkDB is the pgx-driver connection reserved for bulk chunk writes,
// kept separate from the journal pool so a slow drain never starves it.
type SinkDB struct {
	DB *sql.DB
}

// NewSinkDB creates a new database connection for the chunk sink.
func NewSinkDB(dsn string) (*SinkDB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SinkDB{DB: db}, nil
}

// Close closes the database connection.
func (p *SinkDB) Close() error {
	return p.DB.Close()
}

// Output reads back the committed chunks for a run in append order.
func (p *SinkDB) Output(ctx context.Context, run domain.RunID) ([][]byte, error) {
	rows, err := p.DB.QueryContext(ctx,
		`SELECT chunk FROM sink_chunks WHERE run_id = $1 ORDER BY seq`, string(run))
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks [][]byte
	for rows.Next() {
		var chunk []byte
		if err := rows.Scan(&chunk); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// DeleteChunksOlderThan removes a feed's chunks written before the cutoff.
func (p *SinkDB) DeleteChunksOlderThan(ctx context.Context, feed string, cutoff time.Time) (int64, error) {
	res, err := p.DB.ExecContext(ctx,
		`DELETE FROM sink_chunks WHERE feed = $1 AND created_at < $2`, feed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", err)
	}
	return res.RowsAffected()
}
