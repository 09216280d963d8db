package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/foliochat/folio/internal/ingest"
	"github.com/foliochat/folio/internal/log"
)

// Ingester is the ingestion capability consumed by the ingest handler.
type Ingester interface {
	Run(ctx context.Context, mode ingest.Mode) (*ingest.Report, error)
}

// ingestHandler serves POST /api/v1/ingest.
type ingestHandler struct {
	pipeline Ingester
	logger   log.Logger
}

// trigger runs an ingestion synchronously and returns the report.
// Mode is selected with ?mode=full|incremental (default full).
func (h *ingestHandler) trigger(w http.ResponseWriter, r *http.Request) {
	mode, err := ingest.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_mode", err.Error(), h.logger)
		return
	}

	report, err := h.pipeline.Run(r.Context(), mode)
	if err != nil {
		if errors.Is(err, ingest.ErrRunInProgress) {
			writeError(w, http.StatusConflict, "run_in_progress", "an ingestion run is already in progress", h.logger)
			return
		}
		if r.Context().Err() != nil {
			return
		}
		h.logger.Error("ingestion run failed", "mode", mode, "error", err)
		writeError(w, http.StatusInternalServerError, "ingestion_failed", err.Error(), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, report, h.logger)
}
