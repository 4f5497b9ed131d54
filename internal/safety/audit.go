// Package safety records the audit trail for safety-relevant events: crisis
// detections, policy denials, overrides, and erasures.
package safety

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of safety event.
type AuditEventType string

const (
	// EventHighRiskDetected is logged when an assessment reaches high risk.
	EventHighRiskDetected AuditEventType = "safety.high_risk_detected"
	// EventCrisisOverrideApplied is logged when the crisis exception forces
	// a denied emergency action through.
	EventCrisisOverrideApplied AuditEventType = "safety.crisis_override_applied"
	// EventActionDenied is logged when the policy engine denies an action.
	EventActionDenied AuditEventType = "safety.action_denied"
	// EventRecordErased is logged when a vault record is erased.
	EventRecordErased AuditEventType = "safety.record_erased"
	// EventClassifierDegraded is logged when classification failed and the
	// pipeline fell back to conservative handling.
	EventClassifierDegraded AuditEventType = "safety.classifier_degraded"
)

// AuditEvent represents an immutable safety audit record.
type AuditEvent struct {
	ID        string          `json:"id"`
	EventType AuditEventType  `json:"event_type"`
	CallerID  string          `json:"caller_id,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	RecordID  string          `json:"record_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditDetails contains event-specific details.
type AuditDetails struct {
	// For high risk detected
	RiskLevel   string   `json:"risk_level,omitempty"`
	RiskFactors []string `json:"risk_factors,omitempty"`

	// For action denied and crisis override
	Action        string   `json:"action,omitempty"`
	ViolatedRules []string `json:"violated_rules,omitempty"`

	// For record erased
	PrivacyLevel string `json:"privacy_level,omitempty"`

	// For classifier degraded
	FailureReason string `json:"failure_reason,omitempty"`
}

// AuditService handles safety audit logging.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// LogEvent records a safety audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO safety_audit_events (
			id, event_type, caller_id, request_id, record_id, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.CallerID),
		nullString(event.RequestID),
		nullString(event.RecordID),
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("safety: failed to log audit event: %w", err)
	}

	return nil
}

// LogHighRiskDetected logs a high-risk crisis assessment. The entry text
// itself is never stored here; the vault owns content.
func (s *AuditService) LogHighRiskDetected(ctx context.Context, callerID, requestID, riskLevel string, riskFactors []string) error {
	details := AuditDetails{
		RiskLevel:   riskLevel,
		RiskFactors: riskFactors,
	}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventHighRiskDetected,
		CallerID:  callerID,
		RequestID: requestID,
		Details:   detailsJSON,
	})
}

// LogCrisisOverrideApplied logs that a denied emergency action was forced
// through by the crisis exception.
func (s *AuditService) LogCrisisOverrideApplied(ctx context.Context, callerID, requestID, action string, violatedRules []string) error {
	details := AuditDetails{
		Action:        action,
		ViolatedRules: violatedRules,
	}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventCrisisOverrideApplied,
		CallerID:  callerID,
		RequestID: requestID,
		Details:   detailsJSON,
	})
}

// LogActionDenied logs a policy denial with the governing rules.
func (s *AuditService) LogActionDenied(ctx context.Context, callerID, requestID, action string, violatedRules []string) error {
	details := AuditDetails{
		Action:        action,
		ViolatedRules: violatedRules,
	}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventActionDenied,
		CallerID:  callerID,
		RequestID: requestID,
		Details:   detailsJSON,
	})
}

// LogRecordErased logs an erasure.
func (s *AuditService) LogRecordErased(ctx context.Context, callerID, recordID, privacyLevel string) error {
	details := AuditDetails{PrivacyLevel: privacyLevel}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventRecordErased,
		CallerID:  callerID,
		RecordID:  recordID,
		Details:   detailsJSON,
	})
}

// LogClassifierDegraded logs a classification failure that triggered
// conservative crisis handling.
func (s *AuditService) LogClassifierDegraded(ctx context.Context, callerID, requestID, reason string) error {
	details := AuditDetails{FailureReason: reason}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventClassifierDegraded,
		CallerID:  callerID,
		RequestID: requestID,
		Details:   detailsJSON,
	})
}

// QueryEvents retrieves audit events with filters.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, caller_id, request_id, record_id, details, created_at
		FROM safety_audit_events
		WHERE 1=1
	`
	var args []interface{}
	argIdx := 1

	if filter.CallerID != "" {
		query += fmt.Sprintf(" AND caller_id = $%d", argIdx)
		args = append(args, filter.CallerID)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("safety: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var callerID, requestID, recordID sql.NullString
		err := rows.Scan(&e.ID, &e.EventType, &callerID, &requestID, &recordID, &e.Details, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("safety: failed to scan audit event: %w", err)
		}
		e.CallerID = callerID.String
		e.RequestID = requestID.String
		e.RecordID = recordID.String
		events = append(events, e)
	}

	return events, nil
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	CallerID  string
	EventType AuditEventType
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
