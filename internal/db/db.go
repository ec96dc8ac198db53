// Package db provides PostgreSQL storage for the run history.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/content-curator/internal/types"
)

// Schema creates the runs table. It is safe to apply repeatedly.
const Schema = `CREATE TABLE IF NOT EXISTS runs (
	id             UUID PRIMARY KEY,
	status         TEXT NOT NULL,
	state          TEXT NOT NULL,
	criterion      TEXT NOT NULL DEFAULT '',
	scraped_count  INTEGER NOT NULL DEFAULT 0,
	new_count      INTEGER NOT NULL DEFAULT 0,
	selected_title TEXT NOT NULL DEFAULT '',
	selected_link  TEXT NOT NULL DEFAULT '',
	output_path    TEXT NOT NULL DEFAULT '',
	message        TEXT NOT NULL DEFAULT '',
	started_at     TIMESTAMPTZ NOT NULL,
	completed_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS runs_started_at_idx ON runs (started_at DESC);`

var runColumns = []string{
	"id", "status", "state", "criterion", "scraped_count", "new_count",
	"selected_title", "selected_link", "output_path", "message", "started_at", "completed_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate applies Schema.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// RunFromResult converts a finished run result into a history row.
func RunFromResult(res *types.RunResult, criterion string, completedAt time.Time) (Run, error) {
	id, err := uuid.Parse(res.RunID)
	if err != nil {
		return Run{}, fmt.Errorf("invalid run id %q: %w", res.RunID, err)
	}
	run := Run{
		ID:            id,
		Status:        string(res.Status),
		State:         string(res.State),
		Criterion:     criterion,
		ScrapedCount:  res.ScrapedCount,
		NewCount:      res.NewCount,
		SelectedTitle: res.SelectedTitle,
		OutputPath:    res.ArtifactLocation,
		Message:       res.Message,
		StartedAt:     res.StartedAt,
		CompletedAt:   &completedAt,
	}
	if res.Selected != nil {
		run.SelectedLink = res.Selected.Link
	}
	return run, nil
}

// SaveRun inserts a run, or replaces the mutable columns of an existing one.
func (db *DB) SaveRun(ctx context.Context, run Run) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO runs (id, status, state, criterion, scraped_count, new_count,
		                   selected_title, selected_link, output_path, message, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status,
		   state = EXCLUDED.state,
		   scraped_count = EXCLUDED.scraped_count,
		   new_count = EXCLUDED.new_count,
		   selected_title = EXCLUDED.selected_title,
		   selected_link = EXCLUDED.selected_link,
		   output_path = EXCLUDED.output_path,
		   message = EXCLUDED.message,
		   completed_at = EXCLUDED.completed_at`,
		run.ID, run.Status, run.State, run.Criterion, run.ScrapedCount, run.NewCount,
		run.SelectedTitle, run.SelectedLink, run.OutputPath, run.Message, run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun retrieves a run by ID. A missing run is nil, nil.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	query, args, err := psql.Select(runColumns...).From("runs").Where(sq.Eq{"id": runID.String()}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	run, err := scanRun(db.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs matching filters, newest first.
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	query, args, err := listRunsQuery(filters)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func listRunsQuery(filters RunFilters) (string, []any, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	q := psql.Select(runColumns...).From("runs")
	if filters.Status != "" {
		q = q.Where(sq.Eq{"status": filters.Status})
	}
	if filters.State != "" {
		q = q.Where(sq.Eq{"state": filters.State})
	}
	return q.OrderBy("started_at DESC").Limit(uint64(limit)).ToSql()
}

func scanRun(row pgx.Row) (Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.Status, &run.State, &run.Criterion, &run.ScrapedCount, &run.NewCount,
		&run.SelectedTitle, &run.SelectedLink, &run.OutputPath, &run.Message, &run.StartedAt, &run.CompletedAt)
	return run, err
}
