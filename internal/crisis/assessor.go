// Package crisis assesses free-text emotional input for crisis risk. The
// assessor is deterministic, never blocks, and on any internal failure
// degrades to a conservative assessment instead of reporting no risk.
package crisis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/whisperleaf/whisperleaf/internal/mood"
	"github.com/whisperleaf/whisperleaf/pkg/logging"
)

var assessorTracer = otel.Tracer("whisperleaf/crisis-assessor")

// RiskLevel is the ordered crisis severity: none < low < medium < high.
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
)

var riskNames = map[RiskLevel]string{
	RiskNone:   "none",
	RiskLow:    "low",
	RiskMedium: "medium",
	RiskHigh:   "high",
}

func (r RiskLevel) String() string {
	if name, ok := riskNames[r]; ok {
		return name
	}
	return "none"
}

// MarshalJSON renders the level as its name.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON parses a level name.
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRiskLevel converts a level name to a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	for level, name := range riskNames {
		if name == strings.ToLower(strings.TrimSpace(s)) {
			return level, nil
		}
	}
	return RiskNone, fmt.Errorf("crisis: unknown risk level %q", s)
}

// CrisisAssessment is the result of a single assessment call. It is attached
// to the originating request and retained as part of the audit trail when
// the request is persisted.
type CrisisAssessment struct {
	RiskLevel          RiskLevel `json:"risk_level"`
	RiskFactors        []string  `json:"risk_factors,omitempty"`
	Confidence         float64   `json:"confidence"`
	RecommendedActions []string  `json:"recommended_actions"`
	FollowUpRequired   bool      `json:"follow_up_required"`
}

// Assessor evaluates text plus emotional analysis for crisis risk.
type Assessor struct {
	logger *logging.Logger

	// intensity thresholds for the emotional signal
	mediumIntensity float64
	lowIntensity    float64
}

// NewAssessor creates an Assessor with default thresholds.
func NewAssessor(logger *logging.Logger) *Assessor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Assessor{
		logger:          logger,
		mediumIntensity: 0.9,
		lowIntensity:    0.7,
	}
}

// Assess combines the lexical indicator scan with the emotional and
// contextual signals. The final level is the maximum of the signals, never
// an average: a single strong indicator is sufficient to raise the level.
// Confidence is the weakest confidence among the contributing signals.
func (a *Assessor) Assess(ctx context.Context, analysis *mood.EmotionAnalysis, text, userContext string) (assessment *CrisisAssessment) {
	_, span := assessorTracer.Start(ctx, "crisis.assess")
	defer span.End()

	// Any failure in the scan degrades to a conservative non-none
	// assessment rather than silently returning none.
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("crisis scan failed, degrading to conservative assessment", "panic", r)
			assessment = degradedAssessment()
		}
		span.SetAttributes(
			attribute.String("crisis.risk_level", assessment.RiskLevel.String()),
			attribute.Float64("crisis.confidence", assessment.Confidence),
			attribute.Bool("crisis.follow_up_required", assessment.FollowUpRequired),
		)
	}()

	lexicalLevel, lexicalConfidence, factors := scanIndicators(text)

	emotionalLevel, emotionalConfidence, emotionalFactors := a.emotionalSignal(analysis, userContext)
	factors = append(factors, emotionalFactors...)

	if protective := scanProtective(text, userContext); len(protective) > 0 {
		factors = append(factors, protective...)
		if emotionalLevel > RiskNone {
			emotionalLevel--
		}
	}

	level := maxLevel(lexicalLevel, emotionalLevel)

	confidence := 0.9 // confident in the absence of any signal
	contributed := false
	if lexicalLevel > RiskNone {
		confidence = lexicalConfidence
		contributed = true
	}
	if emotionalLevel > RiskNone && (!contributed || emotionalConfidence < confidence) {
		confidence = emotionalConfidence
	}

	assessment = &CrisisAssessment{
		RiskLevel:          level,
		RiskFactors:        factors,
		Confidence:         confidence,
		RecommendedActions: ActionsFor(level),
		FollowUpRequired:   level >= RiskMedium,
	}

	if level == RiskHigh {
		a.logger.Warn("high crisis risk detected",
			"risk_factors", factors,
			"confidence", confidence,
		)
	}

	return assessment
}

// QuickScan is a cheap pre-filter used for crisis-lane dispatch: it reports
// whether the text carries any high-severity indicator.
func (a *Assessor) QuickScan(text string) bool {
	for _, p := range indicatorPatterns {
		if p.level == RiskHigh && p.re.MatchString(text) {
			return true
		}
	}
	return false
}

// scanIndicators runs the lexical pattern scan. The signal level is the
// maximum level among matches; its confidence is the strongest matching
// weight at that level.
func scanIndicators(text string) (RiskLevel, float64, []string) {
	level := RiskNone
	confidence := 0.0
	var factors []string
	seen := make(map[string]bool)

	for _, p := range indicatorPatterns {
		if !p.re.MatchString(text) {
			continue
		}
		if !seen[p.label] {
			seen[p.label] = true
			factors = append(factors, p.label)
		}
		if p.level > level {
			level = p.level
			confidence = p.weight
		} else if p.level == level && p.weight > confidence {
			confidence = p.weight
		}
	}

	return level, confidence, factors
}

// emotionalSignal combines the emotion analysis with user-context hints
// into a single signal. Hints raise the signal by one level each, capped
// at high.
func (a *Assessor) emotionalSignal(analysis *mood.EmotionAnalysis, userContext string) (RiskLevel, float64, []string) {
	level := RiskNone
	confidence := 1.0
	var factors []string

	if analysis != nil && negativeEmotions[analysis.PrimaryEmotion] {
		switch {
		case analysis.Intensity >= a.mediumIntensity:
			level = RiskMedium
			factors = append(factors, "emotion:intense_"+analysis.PrimaryEmotion)
		case analysis.Intensity >= a.lowIntensity:
			level = RiskLow
			factors = append(factors, "emotion:elevated_"+analysis.PrimaryEmotion)
		}
		if level > RiskNone {
			confidence = analysis.Confidence
		}
	}

	if userContext != "" {
		for _, h := range contextHints {
			if h.re.MatchString(userContext) {
				factors = append(factors, h.label)
				if level < RiskHigh {
					level++
				}
				if confidence > 0.6 {
					// Context hints are advisory, not observed.
					confidence = 0.6
				}
			}
		}
	}

	return level, confidence, factors
}

// scanProtective collects protective-factor labels from the text and the
// caller-supplied context.
func scanProtective(text, userContext string) []string {
	var factors []string
	seen := make(map[string]bool)
	for _, h := range protectiveHints {
		if seen[h.label] {
			continue
		}
		if h.re.MatchString(text) || (userContext != "" && h.re.MatchString(userContext)) {
			seen[h.label] = true
			factors = append(factors, h.label)
		}
	}
	return factors
}

// degradedAssessment is returned when the scan itself failed: medium risk,
// low confidence, follow-up required.
func degradedAssessment() *CrisisAssessment {
	return &CrisisAssessment{
		RiskLevel:          RiskMedium,
		RiskFactors:        []string{"scan_degraded"},
		Confidence:         0.2,
		RecommendedActions: ActionsFor(RiskMedium),
		FollowUpRequired:   true,
	}
}

func maxLevel(a, b RiskLevel) RiskLevel {
	if a > b {
		return a
	}
	return b
}
