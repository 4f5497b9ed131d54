package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/whisperleaf/whisperleaf/internal/constitution"
	"github.com/whisperleaf/whisperleaf/pkg/logging"
)

// AdminRulesHandler reloads the constitutional rule set from the configured
// rules file.
type AdminRulesHandler struct {
	engine    *constitution.Engine
	rulesPath string
	logger    *logging.Logger
}

// NewAdminRulesHandler creates a new rules handler.
func NewAdminRulesHandler(engine *constitution.Engine, rulesPath string, logger *logging.Logger) *AdminRulesHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminRulesHandler{engine: engine, rulesPath: rulesPath, logger: logger}
}

// Reload handles POST /api/v1/admin/rules/reload. A failed load leaves the
// active rule set untouched.
func (h *AdminRulesHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.rulesPath == "" {
		http.Error(w, "no rules file configured", http.StatusConflict)
		return
	}
	data, err := os.ReadFile(h.rulesPath)
	if err != nil {
		h.logger.Error("failed to read rules file", "path", h.rulesPath, "error", err)
		http.Error(w, "failed to read rules file", http.StatusInternalServerError)
		return
	}
	if err := h.engine.ReloadFrom(data); err != nil {
		var loadErr *constitution.RuleLoadError
		if errors.As(err, &loadErr) {
			h.logger.Error("rule reload rejected", "problems", loadErr.Problems)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{
				"error":    "rule load failed",
				"problems": loadErr.Problems,
			})
			return
		}
		http.Error(w, "rule reload failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"reloaded": true,
		"rules":    h.engine.ActiveRuleCount(),
	})
}
