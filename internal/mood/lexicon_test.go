package mood

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexiconScoresKeywords(t *testing.T) {
	m := NewLexiconModel()

	tests := []struct {
		name      string
		text      string
		wantFirst string
	}{
		{"happy", "I feel happy today", "joy"},
		{"hopeless", "everything feels hopeless", "despair"},
		{"anxious", "I'm so anxious and worried about tomorrow", "anxiety"},
		{"angry", "I am furious about what happened", "anger"},
		{"grieving", "still grieving the loss of my mother", "grief"},
		{"inspired", "feeling really inspired and creative tonight", "inspiration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores, err := m.Score(context.Background(), tt.text)
			require.NoError(t, err)
			require.NotEmpty(t, scores.Labels)
			assert.Equal(t, tt.wantFirst, scores.Labels[0].Label)
		})
	}
}

func TestLexiconNeutralFallback(t *testing.T) {
	m := NewLexiconModel()

	scores, err := m.Score(context.Background(), "the meeting is at three")
	require.NoError(t, err)

	require.Len(t, scores.Labels, 1)
	assert.Equal(t, "calm", scores.Labels[0].Label)
	assert.LessOrEqual(t, scores.Confidence, 0.3)
}

func TestLexiconNegationDampens(t *testing.T) {
	m := NewLexiconModel()

	scores, err := m.Score(context.Background(), "I am not sad")
	require.NoError(t, err)

	require.NotEmpty(t, scores.Labels)
	assert.Equal(t, "calm", scores.Labels[0].Label, "negated sadness should read as neutral")
}

func TestLexiconCanceledContext(t *testing.T) {
	m := NewLexiconModel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Score(ctx, "I feel happy")
	assert.Error(t, err)
}

func TestLexiconDeterministicOrdering(t *testing.T) {
	m := NewLexiconModel()

	a, err := m.Score(context.Background(), "sad and worried and angry")
	require.NoError(t, err)
	b, err := m.Score(context.Background(), "sad and worried and angry")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
