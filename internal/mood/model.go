// Package mood classifies free-text emotional input into an EmotionAnalysis
// using scores produced by an external classification model.
package mood

import (
	"context"
	"errors"
)

// MoodColor is one of five coarse categories summarizing a detected
// emotional cluster.
type MoodColor string

const (
	// ColorBlue covers sadness, grief and melancholy.
	ColorBlue MoodColor = "blue"
	// ColorGreen covers calm, balanced and content states.
	ColorGreen MoodColor = "green"
	// ColorYellow covers anxiety, worry and stress.
	ColorYellow MoodColor = "yellow"
	// ColorPurple covers creative, inspired and curious states.
	ColorPurple MoodColor = "purple"
	// ColorRed covers anger, frustration and intensity.
	ColorRed MoodColor = "red"
)

var (
	// ErrInvalidInput is returned when the input text is empty or not
	// analyzable. Caller error, not retried.
	ErrInvalidInput = errors.New("mood: invalid input")

	// ErrClassifierTimeout is returned when the external model did not
	// answer within the caller-imposed deadline.
	ErrClassifierTimeout = errors.New("mood: classifier timeout")
)

// LabelScore is a single raw emotion label with its model score.
type LabelScore struct {
	Label string
	Score float64
}

// RawScores is the external model's output contract: emotion labels ordered
// by descending score, plus the model's own confidence in the scoring.
type RawScores struct {
	Labels     []LabelScore
	Confidence float64
}

// Model is the subset of the external classification model the classifier
// depends on. Implementations must be safe for concurrent use.
type Model interface {
	Score(ctx context.Context, text string) (*RawScores, error)
}

// EmotionAnalysis is the immutable result of a classification call.
// Intensity and Confidence are independent axes: a low-confidence
// classification still reports whatever intensity the text implies.
type EmotionAnalysis struct {
	PrimaryEmotion    string    `json:"primary_emotion"`
	SecondaryEmotions []string  `json:"secondary_emotions,omitempty"`
	MoodColor         MoodColor `json:"mood_color"`
	Intensity         float64   `json:"intensity"`
	Confidence        float64   `json:"confidence"`
}
