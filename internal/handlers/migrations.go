package handlers

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_migration_service.go -package=mocks legacy-sync/internal/handlers MigrationService

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"legacy-sync/internal/contextutil"
	"legacy-sync/internal/migrate"
	"legacy-sync/internal/storage"
)

// MigrationService starts migration runs and reports on them.
// It is implemented by migrate.Runner.
type MigrationService interface {
	// Start launches a run in the background and returns its id.
	// Returns migrate.ErrRunInProgress if a run is already active.
	Start(ctx context.Context) (string, error)
	// Latest returns the most recently started run, or storage.ErrNotFound.
	Latest(ctx context.Context) (*storage.Run, error)
}

// StartMigrationResponse is returned when a run is accepted.
type StartMigrationResponse struct {
	RunID string `json:"run_id"`
}

// RunResponse describes a stored migration run.
type RunResponse struct {
	ID         string          `json:"id"`
	State      string          `json:"state"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty"`
}

// MigrationHandler handles POST /api/migrations.
type MigrationHandler struct {
	migrations MigrationService
}

// NewMigrationHandler creates a new MigrationHandler.
func NewMigrationHandler(migrations MigrationService) *MigrationHandler {
	return &MigrationHandler{migrations: migrations}
}

// ServeHTTP starts a migration run. Returns 202 Accepted with the run id,
// or 409 Conflict while another run is active.
//
// swagger:route POST /api/migrations startMigration
func (h *MigrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id, err := h.migrations.Start(ctx)
	if errors.Is(err, migrate.ErrRunInProgress) {
		writeError(w, http.StatusConflict, "A migration run is already in progress")
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to start migration", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start migration")
		return
	}

	logger.InfoContext(ctx, "migration run accepted", "run_id", id)
	if err := writeJSON(w, http.StatusAccepted, StartMigrationResponse{RunID: id}); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// LatestRunHandler handles GET /api/migrations/latest.
type LatestRunHandler struct {
	migrations MigrationService
}

// NewLatestRunHandler creates a new LatestRunHandler.
func NewLatestRunHandler(migrations MigrationService) *LatestRunHandler {
	return &LatestRunHandler{migrations: migrations}
}

// ServeHTTP returns the latest run with its summary, or 404 if none has run.
//
// swagger:route GET /api/migrations/latest latestMigration
func (h *LatestRunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	run, err := h.migrations.Latest(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No migration has run yet")
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to load latest run", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load latest run")
		return
	}

	resp := RunResponse{
		ID:        run.ID,
		State:     run.State,
		StartedAt: run.StartedAt,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		resp.FinishedAt = &finished
	}
	if len(run.Summary) > 0 {
		resp.Summary = run.Summary
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
