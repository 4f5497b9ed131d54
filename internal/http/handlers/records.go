package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/whisperleaf/whisperleaf/internal/http/middleware"
	"github.com/whisperleaf/whisperleaf/internal/safety"
	"github.com/whisperleaf/whisperleaf/internal/vault"
	"github.com/whisperleaf/whisperleaf/pkg/logging"
)

// RecordsHandler serves vault record retrieval and erasure.
type RecordsHandler struct {
	vault  *vault.Vault
	audit  *safety.AuditService
	logger *logging.Logger
}

// NewRecordsHandler creates a new records handler. Audit may be nil.
func NewRecordsHandler(v *vault.Vault, audit *safety.AuditService, logger *logging.Logger) *RecordsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RecordsHandler{vault: v, audit: audit, logger: logger}
}

type recordResponse struct {
	ID           string            `json:"id"`
	Content      string            `json:"content"`
	PrivacyLevel string            `json:"privacy_level"`
	CreatedAt    string            `json:"created_at"`
	Attachments  vault.Attachments `json:"attachments"`
}

// Get handles GET /api/v1/records/{id}.
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller, _ := middleware.CallerFromContext(r.Context())

	content, err := h.vault.Read(r.Context(), id, caller)
	if err != nil {
		h.writeReadError(w, id, err)
		return
	}
	rec, err := h.vault.Get(r.Context(), id)
	if err != nil {
		h.writeReadError(w, id, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recordResponse{
		ID:           rec.ID,
		Content:      content,
		PrivacyLevel: rec.PrivacyLevel.String(),
		CreatedAt:    rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Attachments:  rec.Attachments,
	})
}

// Delete handles DELETE /api/v1/records/{id}.
func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	caller, _ := middleware.CallerFromContext(r.Context())

	rec, err := h.vault.Get(r.Context(), id)
	if err != nil {
		h.writeReadError(w, id, err)
		return
	}
	if err := h.vault.Delete(r.Context(), id); err != nil {
		h.writeReadError(w, id, err)
		return
	}
	if h.audit != nil {
		_ = h.audit.LogRecordErased(r.Context(), caller, id, rec.PrivacyLevel.String())
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordsHandler) writeReadError(w http.ResponseWriter, id string, err error) {
	var integrityErr *vault.IntegrityError
	switch {
	case errors.Is(err, vault.ErrNotFound):
		http.Error(w, "record not found", http.StatusNotFound)
	case errors.Is(err, vault.ErrPolicyViolation):
		http.Error(w, "access denied", http.StatusForbidden)
	case errors.Is(err, vault.ErrKeyUnavailable):
		http.Error(w, "record content is no longer recoverable", http.StatusGone)
	case errors.As(err, &integrityErr):
		h.logger.Error("record failed integrity check", "record_id", id, "error", err)
		http.Error(w, "record failed integrity check", http.StatusConflict)
	default:
		h.logger.Error("record operation failed", "record_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
