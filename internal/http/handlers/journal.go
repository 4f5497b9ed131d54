package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/whisperleaf/whisperleaf/internal/http/middleware"
	"github.com/whisperleaf/whisperleaf/internal/mood"
	"github.com/whisperleaf/whisperleaf/internal/pipeline"
	"github.com/whisperleaf/whisperleaf/internal/vault"
	"github.com/whisperleaf/whisperleaf/pkg/logging"
)

// JournalHandler runs inbound entries through the pipeline dispatcher.
type JournalHandler struct {
	dispatcher *pipeline.Dispatcher
	logger     *logging.Logger
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(dispatcher *pipeline.Dispatcher, logger *logging.Logger) *JournalHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &JournalHandler{dispatcher: dispatcher, logger: logger}
}

// Submit handles POST /api/v1/journal.
func (h *JournalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if caller, ok := middleware.CallerFromContext(r.Context()); ok {
		req.CallerID = caller
	}

	resp, err := h.dispatcher.Submit(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, mood.ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, mood.ErrClassifierTimeout):
			http.Error(w, "classifier unavailable", http.StatusServiceUnavailable)
		case errors.Is(err, vault.ErrPolicyViolation):
			h.logger.Error("vault rejected a pipeline write", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		default:
			h.logger.Error("pipeline request failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode journal response", "error", err)
	}
}
