package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"legacy-sync/internal/contextutil"
	"legacy-sync/internal/storage"
)

// RecordHandler handles GET /api/records/{collection}/{id}.
type RecordHandler struct {
	records storage.RecordStore
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(records storage.RecordStore) *RecordHandler {
	return &RecordHandler{records: records}
}

// ServeHTTP returns one migrated record.
func (h *RecordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	collection := chi.URLParam(r, "collection")
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if collection == "" || err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid record reference")
		return
	}

	record, err := h.records.Get(ctx, collection, id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to get record", "collection", collection, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get record")
		return
	}

	if err := writeJSON(w, http.StatusOK, record); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
