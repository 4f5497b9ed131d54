package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisperleaf/whisperleaf/internal/constitution"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestAdminRulesReload(t *testing.T) {
	engine := constitution.NewEngine(nil, constitution.DefaultRules())
	path := writeRulesFile(t, `
rules:
  - name: only_rule
    priority: 1
    conditions:
      action_types: [journal_entry]
    decision: allow
`)
	h := NewAdminRulesHandler(engine, path, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/rules/reload", nil)
	rec := httptest.NewRecorder()
	h.Reload(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, engine.ActiveRuleCount())
}

func TestAdminRulesReloadRejectsBadFile(t *testing.T) {
	engine := constitution.NewEngine(nil, constitution.DefaultRules())
	before := engine.ActiveRuleCount()
	path := writeRulesFile(t, `
rules:
  - name: broken
    priority: 1
    decision: maybe
`)
	h := NewAdminRulesHandler(engine, path, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/rules/reload", nil)
	rec := httptest.NewRecorder()
	h.Reload(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, before, engine.ActiveRuleCount())
	assert.Contains(t, rec.Body.String(), "problems")
}

func TestAdminRulesReloadMissingFile(t *testing.T) {
	engine := constitution.NewEngine(nil, constitution.DefaultRules())
	h := NewAdminRulesHandler(engine, filepath.Join(t.TempDir(), "absent.yaml"), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/rules/reload", nil)
	rec := httptest.NewRecorder()
	h.Reload(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdminRulesReloadUnconfigured(t *testing.T) {
	engine := constitution.NewEngine(nil, constitution.DefaultRules())
	h := NewAdminRulesHandler(engine, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/rules/reload", nil)
	rec := httptest.NewRecorder()
	h.Reload(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
