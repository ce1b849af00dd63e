// Package runlog persists the run history of the batch jobs in
// PostgreSQL, so operators can see when a dataset was last planned,
// aggregated, or indexed and how much work each run did.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lschmelzeisen/nasty-analysis/pkg/postgres"
)

// Run is one completed batch job execution.
type Run struct {
	ID        uuid.UUID
	Job       string
	Dataset   string
	Items     int64
	Documents int64
	TookMS    int64
	StartedAt time.Time
}

// Store reads and writes the run history table.
type Store struct {
	client *postgres.Client
	logger *slog.Logger
}

// NewStore returns a Store over client.
func NewStore(client *postgres.Client) *Store {
	return &Store{
		client: client,
		logger: slog.Default().With("component", "runlog"),
	}
}

// EnsureSchema creates the run history table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.client.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS run_history (
			id         UUID PRIMARY KEY,
			job        TEXT NOT NULL,
			dataset    TEXT NOT NULL,
			items      BIGINT NOT NULL,
			documents  BIGINT NOT NULL,
			took_ms    BIGINT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS run_history_job_started_idx
			ON run_history (job, started_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating run history schema: %w", err)
	}
	return nil
}

// Record inserts one run, assigning its ID.
func (s *Store) Record(ctx context.Context, run Run) (uuid.UUID, error) {
	run.ID = uuid.New()
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_history (id, job, dataset, items, documents, took_ms, started_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			run.ID, run.Job, run.Dataset, run.Items, run.Documents, run.TookMS, run.StartedAt,
		)
		return err
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("recording %s run: %w", run.Job, err)
	}
	s.logger.Info("recorded run",
		"id", run.ID,
		"job", run.Job,
		"dataset", run.Dataset,
		"items", run.Items,
		"documents", run.Documents,
		"took_ms", run.TookMS,
	)
	return run.ID, nil
}

// Latest returns the most recent run of job for dataset, or sql.ErrNoRows
// when none exists.
func (s *Store) Latest(ctx context.Context, job, dataset string) (Run, error) {
	row := s.client.DB.QueryRowContext(ctx, `
		SELECT id, job, dataset, items, documents, took_ms, started_at
		FROM run_history
		WHERE job = $1 AND dataset = $2
		ORDER BY started_at DESC
		LIMIT 1`,
		job, dataset,
	)
	var run Run
	err := row.Scan(&run.ID, &run.Job, &run.Dataset, &run.Items, &run.Documents, &run.TookMS, &run.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("loading latest %s run: %w", job, err)
	}
	return run, nil
}

// List returns the most recent runs across all jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.client.DB.QueryContext(ctx, `
		SELECT id, job, dataset, items, documents, took_ms, started_at
		FROM run_history
		ORDER BY started_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Job, &run.Dataset, &run.Items, &run.Documents, &run.TookMS, &run.StartedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
