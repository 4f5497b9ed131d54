package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/whisperleaf/whisperleaf/internal/constitution"
	"github.com/whisperleaf/whisperleaf/internal/observability/metrics"
)

// HealthHandler reports liveness plus a small operational snapshot.
type HealthHandler struct {
	engine   *constitution.Engine
	gatherer prometheus.Gatherer
}

// NewHealthHandler creates a health handler. The gatherer may be nil, in
// which case the default prometheus gatherer is used.
func NewHealthHandler(engine *constitution.Engine, gatherer prometheus.Gatherer) *HealthHandler {
	return &HealthHandler{engine: engine, gatherer: gatherer}
}

// Check handles GET /healthz.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status": "ok",
	}
	if h.engine != nil {
		body["active_rules"] = h.engine.ActiveRuleCount()
	}
	snap := metrics.GatherClassifierLatency(h.gatherer)
	if snap.SampleCount > 0 {
		body["classifier_latency"] = snap
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
