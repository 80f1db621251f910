package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"legacy-sync/internal/contextutil"
	"legacy-sync/internal/storage"
)

// Migrator runs one migration.
type Migrator interface {
	Run(ctx context.Context, runID string) (*Summary, error)
}

// Runner serialises migrations and records each one in the run history.
type Runner struct {
	migrator Migrator
	runs     storage.RunStore

	mu      sync.Mutex
	cancel  context.CancelFunc // Set while a run is active
	current string
	wg      sync.WaitGroup
}

// NewRunner creates a new Runner.
func NewRunner(migrator Migrator, runs storage.RunStore) *Runner {
	return &Runner{migrator: migrator, runs: runs}
}

// Run executes a migration and waits for it. It returns ErrRunInProgress
// when another run is active.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	runCtx, id, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.end()
	return r.execute(runCtx, id)
}

// Start launches a migration in the background and returns its run id.
// The run outlives ctx; Close stops it.
func (r *Runner) Start(ctx context.Context) (string, error) {
	runCtx, id, err := r.begin(context.WithoutCancel(ctx))
	if err != nil {
		return "", err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.end()
		_, _ = r.execute(runCtx, id)
	}()
	return id, nil
}

// Current returns the id of the active run, if any.
func (r *Runner) Current() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.cancel != nil
}

// Latest returns the most recent run from the history.
func (r *Runner) Latest(ctx context.Context) (*storage.Run, error) {
	return r.runs.LatestRun(ctx)
}

// Close cancels an active run and waits for it to stop at the next batch
// boundary.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Runner) begin(ctx context.Context) (context.Context, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return nil, "", ErrRunInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.current = uuid.New().String()
	return runCtx, r.current, nil
}

func (r *Runner) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = nil
	r.current = ""
}

func (r *Runner) execute(ctx context.Context, id string) (*Summary, error) {
	logger := contextutil.LoggerFromContext(ctx)

	started := time.Now().UTC()
	if err := r.runs.SaveRun(ctx, &storage.Run{ID: id, StartedAt: started, State: StateScanning.String()}); err != nil {
		logger.WarnContext(ctx, "failed to record run start", "run_id", id, "error", err)
	}

	sum, runErr := r.migrator.Run(ctx, id)
	if sum == nil {
		sum = newSummary(id)
		sum.StartedAt = started
		sum.FinishedAt = time.Now().UTC()
		sum.State = StateFailed
		if runErr != nil {
			sum.FailReason = runErr.Error()
		}
	}
	if sum.FinishedAt.IsZero() {
		sum.FinishedAt = time.Now().UTC()
	}

	if err := r.save(ctx, id, started, sum); err != nil {
		logger.ErrorContext(ctx, "failed to record run summary", "run_id", id, "error", err)
		if runErr == nil {
			return sum, err
		}
		return sum, errors.Join(runErr, err)
	}
	return sum, runErr
}

func (r *Runner) save(ctx context.Context, id string, started time.Time, sum *Summary) error {
	data, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	// The run may have been cancelled; the record must still land.
	return r.runs.SaveRun(context.WithoutCancel(ctx), &storage.Run{
		ID:         id,
		StartedAt:  started,
		FinishedAt: sum.FinishedAt,
		State:      sum.State.String(),
		Summary:    data,
	})
}
