// Package pipeline coordinates the emotional core: classify, assess, apply
// policy, and conditionally persist. The coordinator owns the classifier
// timeout, the single bounded retry, and the conservative degradation path
// when classification fails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/whisperleaf/whisperleaf/internal/constitution"
	"github.com/whisperleaf/whisperleaf/internal/crisis"
	"github.com/whisperleaf/whisperleaf/internal/mood"
	"github.com/whisperleaf/whisperleaf/internal/observability/metrics"
	"github.com/whisperleaf/whisperleaf/internal/safety"
	"github.com/whisperleaf/whisperleaf/internal/vault"
	"github.com/whisperleaf/whisperleaf/pkg/logging"
)

var pipelineTracer = otel.Tracer("whisperleaf/pipeline")

const defaultClassifierTimeout = 5 * time.Second

// Request is the inbound shape from the transport layer.
type Request struct {
	Text         string          `json:"text"`
	Context      string          `json:"context,omitempty"`
	ActionType   string          `json:"action_type"`
	CallerID     string          `json:"-"`
	ConsentFlags map[string]bool `json:"consent_flags,omitempty"`
	PrivacyLevel string          `json:"privacy_level,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
}

// Response carries everything the core produced for one request. RecordID is
// empty when nothing was persisted.
type Response struct {
	Analysis *mood.EmotionAnalysis        `json:"analysis"`
	Crisis   *crisis.CrisisAssessment     `json:"crisis_assessment"`
	Decision *constitution.PolicyDecision `json:"decision"`
	RecordID string                       `json:"record_id,omitempty"`
}

// persistingActions are the action types whose affirmative decision leads to
// a vault write.
var persistingActions = map[string]bool{
	"journal_entry": true,
	"store_record":  true,
}

// Coordinator runs one request through the full pipeline.
type Coordinator struct {
	logger     *logging.Logger
	classifier *mood.Classifier
	assessor   *crisis.Assessor
	engine     *constitution.Engine
	vault      *vault.Vault
	audit      *safety.AuditService
	metrics    *metrics.PipelineMetrics

	classifierTimeout time.Duration
}

// NewCoordinator wires the pipeline. Audit and metrics may be nil.
func NewCoordinator(
	logger *logging.Logger,
	classifier *mood.Classifier,
	assessor *crisis.Assessor,
	engine *constitution.Engine,
	v *vault.Vault,
	audit *safety.AuditService,
	m *metrics.PipelineMetrics,
	classifierTimeout time.Duration,
) *Coordinator {
	if logger == nil {
		logger = logging.Default()
	}
	if classifierTimeout <= 0 {
		classifierTimeout = defaultClassifierTimeout
	}
	return &Coordinator{
		logger:            logger,
		classifier:        classifier,
		assessor:          assessor,
		engine:            engine,
		vault:             v,
		audit:             audit,
		metrics:           m,
		classifierTimeout: classifierTimeout,
	}
}

// Process runs classification, crisis assessment, policy evaluation, and
// conditional persistence. A policy denial is a normal outcome carried on
// the response, not an error. Classification failure other than invalid
// input degrades to conservative crisis handling instead of aborting.
func (c *Coordinator) Process(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := pipelineTracer.Start(ctx, "pipeline.process")
	defer span.End()

	if req.ActionType == "" {
		req.ActionType = "journal_entry"
	}
	requestID := uuid.NewString()
	span.SetAttributes(
		attribute.String("pipeline.action", req.ActionType),
		attribute.String("pipeline.request_id", requestID),
	)

	analysis, classifyErr := c.classify(ctx, req)
	if classifyErr != nil {
		if errors.Is(classifyErr, mood.ErrInvalidInput) {
			c.observeRequest(req.ActionType, "invalid_input")
			return nil, classifyErr
		}
		c.logger.Warn("classification failed, continuing with conservative crisis handling",
			"request_id", requestID,
			"error", classifyErr,
		)
		if c.audit != nil {
			_ = c.audit.LogClassifierDegraded(ctx, req.CallerID, requestID, classifyErr.Error())
		}
	}

	assessment := c.assessor.Assess(ctx, analysis, req.Text, req.Context)
	if classifyErr != nil && assessment.RiskLevel == crisis.RiskNone {
		// Without a trustworthy analysis, a clean lexical scan is not
		// enough to report no risk.
		assessment = &crisis.CrisisAssessment{
			RiskLevel:          crisis.RiskLow,
			RiskFactors:        append(assessment.RiskFactors, "classifier_degraded"),
			Confidence:         minFloat(assessment.Confidence, 0.3),
			RecommendedActions: crisis.ActionsFor(crisis.RiskLow),
			FollowUpRequired:   assessment.FollowUpRequired,
		}
	}
	c.metrics.ObserveCrisisAssessment(assessment.RiskLevel.String())
	if assessment.RiskLevel == crisis.RiskHigh && c.audit != nil {
		_ = c.audit.LogHighRiskDetected(ctx, req.CallerID, requestID,
			assessment.RiskLevel.String(), assessment.RiskFactors)
	}

	reqContext := map[string]string{}
	if req.CallerID != "" {
		reqContext["caller_id"] = req.CallerID
	}
	decision := c.engine.Evaluate(req.ActionType, reqContext, req.ConsentFlags, assessment)
	c.metrics.ObservePolicyDecision(req.ActionType, decision.Allowed)

	resp := &Response{
		Analysis: analysis,
		Crisis:   assessment,
		Decision: decision,
	}

	if !decision.Allowed {
		if c.audit != nil {
			_ = c.audit.LogActionDenied(ctx, req.CallerID, requestID,
				req.ActionType, ruleNames(decision))
		}
		c.observeRequest(req.ActionType, "denied")
		return resp, nil
	}
	if overrideApplied(decision) {
		if c.audit != nil {
			_ = c.audit.LogCrisisOverrideApplied(ctx, req.CallerID, requestID,
				req.ActionType, ruleNames(decision))
		}
		c.logger.Warn("crisis exception override applied",
			"request_id", requestID,
			"action", req.ActionType,
		)
	}

	if !persistingActions[req.ActionType] {
		c.observeRequest(req.ActionType, "allowed")
		return resp, nil
	}

	level := vault.LevelEncrypted
	if req.PrivacyLevel != "" {
		parsed, err := vault.ParsePrivacyLevel(req.PrivacyLevel)
		if err != nil {
			c.observeRequest(req.ActionType, "invalid_input")
			return nil, fmt.Errorf("pipeline: %w: %v", mood.ErrInvalidInput, err)
		}
		level = parsed
	}

	rec, err := c.vault.Write(ctx, req.Text, level, vault.Attachments{
		Analysis: analysis,
		Crisis:   assessment,
		Tags:     req.Tags,
	}, decision)
	if err != nil {
		c.metrics.ObserveVaultOperation("write", "error")
		c.observeRequest(req.ActionType, "error")
		return nil, err
	}
	c.metrics.ObserveVaultOperation("write", "ok")
	c.observeRequest(req.ActionType, "persisted")

	resp.RecordID = rec.ID
	return resp, nil
}

// classify runs the classifier under the configured timeout, retrying once
// on timeout before giving up.
func (c *Coordinator) classify(ctx context.Context, req *Request) (*mood.EmotionAnalysis, error) {
	analysis, err := c.classifyOnce(ctx, req)
	if errors.Is(err, mood.ErrClassifierTimeout) {
		c.logger.Warn("classifier timed out, retrying once")
		analysis, err = c.classifyOnce(ctx, req)
	}
	return analysis, err
}

func (c *Coordinator) classifyOnce(ctx context.Context, req *Request) (*mood.EmotionAnalysis, error) {
	cctx, cancel := context.WithTimeout(ctx, c.classifierTimeout)
	defer cancel()

	start := time.Now()
	analysis, err := c.classifier.Classify(cctx, req.Text, req.Context)
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
		c.metrics.ObserveClassifierLatency("ok", elapsed)
	case errors.Is(err, mood.ErrClassifierTimeout):
		c.metrics.ObserveClassifierLatency("timeout", elapsed)
	default:
		c.metrics.ObserveClassifierLatency("error", elapsed)
	}
	return analysis, err
}

func (c *Coordinator) observeRequest(action, outcome string) {
	c.metrics.ObserveRequest(action, outcome)
}

func overrideApplied(d *constitution.PolicyDecision) bool {
	for _, ref := range d.ViolatedRules {
		if ref.Name == "crisis_exception_override" {
			return true
		}
	}
	return false
}

func ruleNames(d *constitution.PolicyDecision) []string {
	names := make([]string, len(d.ViolatedRules))
	for i, ref := range d.ViolatedRules {
		names[i] = ref.Name
	}
	return names
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
