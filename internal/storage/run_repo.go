package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_run_store.go -package=mocks legacy-sync/internal/storage RunStore

import (
	"context"
	"database/sql"
	"fmt"
)

// RunStore defines the interface for migration run history.
type RunStore interface {
	// SaveRun inserts a run or updates it by id.
	SaveRun(ctx context.Context, run *Run) error
	// LatestRun returns the most recently started run.
	// Returns nil and ErrNotFound if no run was recorded.
	LatestRun(ctx context.Context) (*Run, error)
}

// RunRepo provides methods for run history operations.
// It implements the RunStore interface.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// SaveRun inserts a new run or updates an existing one.
func (r *RunRepo) SaveRun(ctx context.Context, run *Run) error {
	summary := string(run.Summary)
	if summary == "" {
		summary = "{}"
	}
	finished := ""
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.UTC().Format(timeLayout)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO migration_runs (id, started_at, finished_at, state, summary)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		 finished_at = excluded.finished_at, state = excluded.state, summary = excluded.summary`,
		run.ID, run.StartedAt.UTC().Format(timeLayout), finished, run.State, summary,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently started run.
func (r *RunRepo) LatestRun(ctx context.Context) (*Run, error) {
	var (
		run               Run
		started, finished string
		summary           string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, started_at, finished_at, state, summary FROM migration_runs ORDER BY started_at DESC LIMIT 1",
	).Scan(&run.ID, &started, &finished, &run.State, &summary)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	if run.StartedAt, err = parseTimestamp(started); err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if run.FinishedAt, err = parseTimestamp(finished); err != nil {
		return nil, fmt.Errorf("failed to parse finished_at: %w", err)
	}
	run.Summary = []byte(summary)

	return &run, nil
}
