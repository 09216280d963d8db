package api

import (
	"context"
	"net/http"

	"github.com/foliochat/folio/internal/log"
)

// IndexStats is the read-only index statistics capability consumed by
// the stats handler.
type IndexStats interface {
	Count(ctx context.Context) (int, error)
	CountBySourceType(ctx context.Context) (map[string]int, error)
}

// statsHandler serves GET /api/v1/stats.
type statsHandler struct {
	index  IndexStats
	logger log.Logger
}

// statsResponse reports index size overall and per source type.
type statsResponse struct {
	TotalEntries int            `json:"total_entries"`
	BySourceType map[string]int `json:"by_source_type"`
}

func (h *statsHandler) getStats(w http.ResponseWriter, r *http.Request) {
	total, err := h.index.Count(r.Context())
	if err != nil {
		h.logger.Error("counting index entries failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "index_unavailable", "vector index is unavailable", h.logger)
		return
	}

	byType, err := h.index.CountBySourceType(r.Context())
	if err != nil {
		h.logger.Error("counting index entries by source type failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "index_unavailable", "vector index is unavailable", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{TotalEntries: total, BySourceType: byType}, h.logger)
}
