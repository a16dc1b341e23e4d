// Package history records every index build run in PostgreSQL so operators
// can see when the files on disk were produced and from how many documents.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/postgres"
)

// Schema creates the table Store writes to.
const Schema = `CREATE TABLE IF NOT EXISTS index_runs (
    id          BIGSERIAL PRIMARY KEY,
    run_id      TEXT NOT NULL UNIQUE,
    status      TEXT NOT NULL,
    trigger     TEXT NOT NULL,
    documents   INTEGER NOT NULL DEFAULT 0,
    words       INTEGER NOT NULL DEFAULT 0,
    postings    INTEGER NOT NULL DEFAULT 0,
    digest      TEXT NOT NULL DEFAULT '',
    error       TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
)`

// Run statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// RunRecord is one row of index_runs.
type RunRecord struct {
	RunID      string
	Status     string
	Trigger    string
	Documents  int
	Words      int
	Postings   int
	Digest     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store persists run records.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a run history store.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "run-history"),
	}
}

// Migrate creates the index_runs table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating index_runs table: %w", err)
	}
	return nil
}

// retention is how many runs are kept; older rows are pruned on insert.
const retention = 1000

// Record inserts rec and prunes runs beyond the retention limit.
func (s *Store) Record(ctx context.Context, rec RunRecord) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO index_runs
			(run_id, status, trigger, documents, words, postings, digest, error, started_at, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			rec.RunID, rec.Status, rec.Trigger, rec.Documents, rec.Words, rec.Postings,
			rec.Digest, rec.Error, rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
		)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM index_runs WHERE id <= (
				SELECT id FROM index_runs ORDER BY id DESC OFFSET $1 LIMIT 1
			)`,
			retention,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("recording run %s: %w", rec.RunID, err)
	}
	s.logger.Debug("run recorded",
		"run_id", rec.RunID,
		"status", rec.Status,
	)
	return nil
}

// Latest returns the most recent run, or nil if none has been recorded.
func (s *Store) Latest(ctx context.Context) (*RunRecord, error) {
	var rec RunRecord
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT run_id, status, trigger, documents, words, postings, digest, error, started_at, finished_at
		FROM index_runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&rec.RunID, &rec.Status, &rec.Trigger, &rec.Documents, &rec.Words, &rec.Postings,
		&rec.Digest, &rec.Error, &rec.StartedAt, &rec.FinishedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	return &rec, nil
}

// LastSuccess returns when the most recent successful run finished, or the
// zero time if there is none.
func (s *Store) LastSuccess(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT finished_at FROM index_runs WHERE status = $1 ORDER BY finished_at DESC LIMIT 1`,
		StatusSuccess,
	).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("querying last successful run: %w", err)
	}
	return t, nil
}
