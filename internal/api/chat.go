package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/foliochat/folio/internal/chat"
	"github.com/foliochat/folio/internal/log"
)

// maxChatBodyBytes caps the chat request body size.
const maxChatBodyBytes = 64 * 1024

// Asker is the chat capability consumed by the chat handler.
type Asker interface {
	Ask(ctx context.Context, question string) (*chat.Answer, error)
}

// chatHandler serves POST /api/v1/chat.
type chatHandler struct {
	service Asker
	logger  log.Logger
}

// chatRequest is the JSON body of a chat request.
type chatRequest struct {
	Message string `json:"message"`
}

func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxChatBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read request body", h.logger)
		return
	}
	if len(body) > maxChatBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", h.logger)
		return
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "empty_message", "message must not be empty", h.logger)
		return
	}

	answer, err := h.service.Ask(r.Context(), req.Message)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		h.logger.Error("chat request failed", "error", err)
		writeError(w, http.StatusBadGateway, "generation_failed", "failed to generate a response", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, answer, h.logger)
}
