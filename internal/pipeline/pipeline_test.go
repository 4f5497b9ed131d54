package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisperleaf/whisperleaf/internal/constitution"
	"github.com/whisperleaf/whisperleaf/internal/crisis"
	"github.com/whisperleaf/whisperleaf/internal/mood"
	"github.com/whisperleaf/whisperleaf/internal/observability/metrics"
	"github.com/whisperleaf/whisperleaf/internal/vault"
)

type slowModel struct {
	delay time.Duration
	calls int
	mu    sync.Mutex
}

func (m *slowModel) Score(ctx context.Context, text string) (*mood.RawScores, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return mood.NewLexiconModel().Score(ctx, text)
}

func (m *slowModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestCoordinator(t *testing.T, model mood.Model, timeout time.Duration) *Coordinator {
	t.Helper()
	keys, err := vault.NewHKDFKeyProvider([]byte("test-master-key-material-0123456"))
	require.NoError(t, err)

	engine := constitution.NewEngine(nil, constitution.DefaultRules())
	v := vault.New(nil, vault.NewMemoryStore(), vault.NewMemoryKeystore(), keys, engine)
	m := metrics.NewPipelineMetrics(prometheus.NewRegistry())

	return NewCoordinator(
		nil,
		mood.NewClassifier(model, nil),
		crisis.NewAssessor(nil),
		engine,
		v,
		nil,
		m,
		timeout,
	)
}

func TestProcessPersistsAllowedJournalEntry(t *testing.T) {
	c := newTestCoordinator(t, mood.NewLexiconModel(), time.Second)

	resp, err := c.Process(context.Background(), &Request{
		Text:       "I feel happy today",
		ActionType: "journal_entry",
		CallerID:   "user-1",
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Analysis)
	assert.Equal(t, "joy", resp.Analysis.PrimaryEmotion)
	assert.Equal(t, mood.ColorGreen, resp.Analysis.MoodColor)
	assert.Equal(t, crisis.RiskNone, resp.Crisis.RiskLevel)
	assert.True(t, resp.Decision.Allowed)
	assert.NotEmpty(t, resp.RecordID)

	// Default privacy is the most conservative level.
	rec, err := c.vault.Get(context.Background(), resp.RecordID)
	require.NoError(t, err)
	assert.Equal(t, vault.LevelEncrypted, rec.PrivacyLevel)
}

func TestProcessDenialCarriesReasons(t *testing.T) {
	c := newTestCoordinator(t, mood.NewLexiconModel(), time.Second)

	resp, err := c.Process(context.Background(), &Request{
		Text:         "I want to share how I've been feeling",
		ActionType:   "share_emotional_data",
		CallerID:     "user-1",
		ConsentFlags: map[string]bool{"user_consent": false},
	})
	require.NoError(t, err)

	assert.False(t, resp.Decision.Allowed)
	assert.Empty(t, resp.RecordID)
	require.NotEmpty(t, resp.Decision.ViolatedRules)
	assert.Equal(t, "sharing_requires_user_consent", resp.Decision.ViolatedRules[0].Name)
}

func TestProcessCrisisPath(t *testing.T) {
	c := newTestCoordinator(t, mood.NewLexiconModel(), time.Second)

	resp, err := c.Process(context.Background(), &Request{
		Text:       "I feel hopeless and want to end it all",
		ActionType: "journal_entry",
		CallerID:   "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, crisis.RiskHigh, resp.Crisis.RiskLevel)
	assert.True(t, resp.Crisis.FollowUpRequired)
	assert.NotEmpty(t, resp.Crisis.RecommendedActions)
	assert.NotEmpty(t, resp.RecordID, "crisis entries are still persisted for the user")
}

func TestProcessInvalidInput(t *testing.T) {
	c := newTestCoordinator(t, mood.NewLexiconModel(), time.Second)

	_, err := c.Process(context.Background(), &Request{Text: "   ", ActionType: "journal_entry"})
	assert.ErrorIs(t, err, mood.ErrInvalidInput)
}

func TestProcessRetriesTimeoutOnceThenDegrades(t *testing.T) {
	model := &slowModel{delay: 200 * time.Millisecond}
	c := newTestCoordinator(t, model, 20*time.Millisecond)

	resp, err := c.Process(context.Background(), &Request{
		Text:       "just checking in",
		ActionType: "journal_entry",
		CallerID:   "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, model.callCount(), "exactly one retry after the first timeout")
	assert.Nil(t, resp.Analysis)
	assert.Equal(t, crisis.RiskLow, resp.Crisis.RiskLevel,
		"degraded classification must not report zero risk")
	assert.Contains(t, resp.Crisis.RiskFactors, "classifier_degraded")
	assert.LessOrEqual(t, resp.Crisis.Confidence, 0.3)
}

func TestProcessDegradedKeepsLexicalSignal(t *testing.T) {
	model := &slowModel{delay: 200 * time.Millisecond}
	c := newTestCoordinator(t, model, 20*time.Millisecond)

	resp, err := c.Process(context.Background(), &Request{
		Text:       "I want to die",
		ActionType: "journal_entry",
		CallerID:   "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, crisis.RiskHigh, resp.Crisis.RiskLevel,
		"lexical indicators still count when the classifier is down")
}

func TestProcessInvalidPrivacyLevel(t *testing.T) {
	c := newTestCoordinator(t, mood.NewLexiconModel(), time.Second)

	_, err := c.Process(context.Background(), &Request{
		Text:         "entry",
		ActionType:   "journal_entry",
		CallerID:     "user-1",
		PrivacyLevel: "classified",
	})
	assert.ErrorIs(t, err, mood.ErrInvalidInput)
}

func TestProcessNonPersistingAction(t *testing.T) {
	c := newTestCoordinator(t, mood.NewLexiconModel(), time.Second)

	resp, err := c.Process(context.Background(), &Request{
		Text:       "I feel hopeless and want to end it all",
		ActionType: "surface_crisis_resources",
		CallerID:   "user-1",
	})
	require.NoError(t, err)

	assert.True(t, resp.Decision.Allowed)
	assert.Empty(t, resp.RecordID)
}
