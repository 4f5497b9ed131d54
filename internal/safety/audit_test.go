package safety

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_LogEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)

	tests := []struct {
		name  string
		event AuditEvent
	}{
		{
			name: "log high risk detected",
			event: AuditEvent{
				EventType: EventHighRiskDetected,
				CallerID:  uuid.New().String(),
				RequestID: "req-123",
				Details:   json.RawMessage(`{"risk_level": "high"}`),
			},
		},
		{
			name: "log action denied",
			event: AuditEvent{
				EventType: EventActionDenied,
				CallerID:  uuid.New().String(),
				Details:   json.RawMessage(`{"action": "share_emotional_data"}`),
			},
		},
		{
			name: "log record erased",
			event: AuditEvent{
				EventType: EventRecordErased,
				RecordID:  "rec-123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectExec("INSERT INTO safety_audit_events").
				WillReturnResult(sqlmock.NewResult(1, 1))

			assert.NoError(t, service.LogEvent(context.Background(), tt.event))
		})
	}
}

func TestAuditService_LogCrisisOverrideApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)

	mock.ExpectExec("INSERT INTO safety_audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = service.LogCrisisOverrideApplied(
		context.Background(),
		"caller-123",
		"req-456",
		"surface_crisis_resources",
		[]string{"block_all_interventions", "crisis_exception_override"},
	)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_LogHighRiskDetected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)

	mock.ExpectExec("INSERT INTO safety_audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = service.LogHighRiskDetected(
		context.Background(),
		"caller-123",
		"req-456",
		"high",
		[]string{"suicidal_ideation:direct"},
	)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_QueryEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "event_type", "caller_id", "request_id", "record_id", "details", "created_at",
	}).AddRow(
		uuid.New(), EventActionDenied, "caller-123", "req-456", nil, []byte(`{}`), now,
	)

	mock.ExpectQuery("SELECT (.+) FROM safety_audit_events").
		WillReturnRows(rows)

	filter := AuditFilter{
		CallerID:  "caller-123",
		StartTime: now.Add(-24 * time.Hour),
		EndTime:   now,
		Limit:     100,
	}

	events, err := service.QueryEvents(context.Background(), filter)
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, EventActionDenied, events[0].EventType)
}

func TestAuditEventType_String(t *testing.T) {
	tests := []struct {
		eventType AuditEventType
		expected  string
	}{
		{EventHighRiskDetected, "safety.high_risk_detected"},
		{EventCrisisOverrideApplied, "safety.crisis_override_applied"},
		{EventActionDenied, "safety.action_denied"},
		{EventRecordErased, "safety.record_erased"},
		{EventClassifierDegraded, "safety.classifier_degraded"},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.eventType))
		})
	}
}
