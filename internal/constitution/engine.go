package constitution

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/whisperleaf/whisperleaf/internal/crisis"
	"github.com/whisperleaf/whisperleaf/pkg/logging"
)

var engineTracer = otel.Tracer("whisperleaf/policy-engine")

// RuleRef references a rule that contributed to a decision.
type RuleRef struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
}

// PolicyDecision is the outcome of evaluating one action. It is derived per
// call and never persisted on its own.
type PolicyDecision struct {
	Allowed         bool      `json:"allowed"`
	ViolatedRules   []RuleRef `json:"violated_rules,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
}

// emergencyActions are the intervention actions eligible for the
// crisis-exception override at high risk.
var emergencyActions = map[string]bool{
	"surface_crisis_resources": true,
	"alert_emergency_contact":  true,
}

// Engine evaluates actions against the active rule set. The set is replaced
// atomically on reload; evaluations in flight keep the snapshot they started
// with.
type Engine struct {
	logger *logging.Logger
	active atomic.Pointer[RuleSet]
}

// NewEngine creates an Engine with the given initial rule set.
func NewEngine(logger *logging.Logger, initial *RuleSet) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{logger: logger}
	e.active.Store(initial)
	return e
}

// Reload swaps in a fully-loaded rule set.
func (e *Engine) Reload(rs *RuleSet) {
	e.active.Store(rs)
	e.logger.Info("constitutional rule set reloaded", "rules", rs.Len())
}

// ReloadFrom loads a YAML rule source and, on success, swaps it in. On
// failure the previously active set remains authoritative.
func (e *Engine) ReloadFrom(data []byte) error {
	rs, err := LoadRules(data)
	if err != nil {
		return err
	}
	e.Reload(rs)
	return nil
}

// ActiveRuleCount reports the size of the active set.
func (e *Engine) ActiveRuleCount() int {
	return e.active.Load().Len()
}

// Evaluate decides whether the proposed action is allowed. Matching rules are
// processed in priority order; the first deny settles the outcome, with every
// matching deny recorded for transparency. No matching rule at all fails
// closed. The crisis-exception override is applied last: at high risk an
// emergency-intervention action is forced through, and the override itself is
// recorded as an informational violated-rule entry so the bypass is always
// auditable.
func (e *Engine) Evaluate(action string, reqContext map[string]string, consent map[string]bool, assessment *crisis.CrisisAssessment) *PolicyDecision {
	_, span := engineTracer.Start(context.Background(), "constitution.evaluate")
	defer span.End()

	snapshot := e.active.Load()
	decision := evaluateSnapshot(snapshot, action, reqContext, consent, assessment)

	span.SetAttributes(
		attribute.String("policy.action", action),
		attribute.Bool("policy.allowed", decision.Allowed),
		attribute.Int("policy.violated_rules", len(decision.ViolatedRules)),
	)
	if !decision.Allowed {
		e.logger.Info("action denied by constitutional rules",
			"action", action,
			"violated_rules", ruleNames(decision.ViolatedRules),
		)
	}
	return decision
}

func evaluateSnapshot(rs *RuleSet, action string, reqContext map[string]string, consent map[string]bool, assessment *crisis.CrisisAssessment) *PolicyDecision {
	decision := &PolicyDecision{Allowed: true}

	matched := 0
	for i := range rs.rules {
		r := &rs.rules[i]
		if !r.matches(action, reqContext, consent, assessment) {
			continue
		}
		matched++
		decision.Recommendations = append(decision.Recommendations, r.Recommendations...)
		if r.Decision == DecisionDeny {
			decision.Allowed = false
			decision.ViolatedRules = append(decision.ViolatedRules, RuleRef{
				Name:     r.Name,
				Severity: SeverityBlocking,
				Reason:   r.Reason,
			})
		}
	}

	if matched == 0 {
		decision.Allowed = false
		decision.ViolatedRules = append(decision.ViolatedRules, RuleRef{
			Name:     "default_deny",
			Severity: SeverityInfo,
			Reason:   "no constitutional rule matched the action; failing closed",
		})
	}

	if !decision.Allowed && assessment != nil && assessment.RiskLevel == crisis.RiskHigh && emergencyActions[action] {
		decision.Allowed = true
		decision.ViolatedRules = append(decision.ViolatedRules, RuleRef{
			Name:     "crisis_exception_override",
			Severity: SeverityInfo,
			Reason:   "emergency intervention forced through at high crisis risk",
		})
		decision.Recommendations = append(decision.Recommendations, assessment.RecommendedActions...)
	}

	return decision
}

func ruleNames(refs []RuleRef) []string {
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name
	}
	return names
}
