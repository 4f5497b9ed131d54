package mood

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/whisperleaf/whisperleaf/pkg/logging"
)

var classifierTracer = otel.Tracer("whisperleaf/mood-classifier")

// colorByLabel maps every emotion label the models emit to exactly one mood
// color. The table must stay total: a label missing here is a configuration
// defect and classification fails closed to green with flagged confidence.
var colorByLabel = map[string]MoodColor{
	"sadness": ColorBlue,
	"grief":   ColorBlue,
	"despair": ColorBlue,

	"joy":  ColorGreen,
	"calm": ColorGreen,

	"anxiety": ColorYellow,
	"fear":    ColorYellow,
	"stress":  ColorYellow,

	"curiosity":   ColorPurple,
	"inspiration": ColorPurple,

	"anger":       ColorRed,
	"frustration": ColorRed,
}

// unmappedLabelConfidence caps confidence when the primary label has no
// color mapping, so downstream consumers see the defect.
const unmappedLabelConfidence = 0.25

// secondaryScoreFloor drops trace-level labels from SecondaryEmotions.
const secondaryScoreFloor = 0.15

// intensityModifiers adjust the heuristic intensity when they appear near
// emotional vocabulary.
var intensityModifiers = map[string]float64{
	"extremely": 0.2, "incredibly": 0.2, "utterly": 0.2, "desperately": 0.25,
	"completely": 0.15, "totally": 0.15, "deeply": 0.15, "overwhelmingly": 0.25,
	"very": 0.1, "really": 0.1, "constantly": 0.15, "always": 0.1,
	"somewhat": -0.1, "slightly": -0.15, "mildly": -0.15, "barely": -0.2,
}

// Classifier wraps the external model and produces EmotionAnalysis values.
type Classifier struct {
	model  Model
	logger *logging.Logger
}

// NewClassifier creates a Classifier over the given model.
func NewClassifier(model Model, logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Classifier{model: model, logger: logger}
}

// Classify analyzes text and returns an immutable EmotionAnalysis.
// userContext is advisory free text (recent events, prior state) passed
// through to the model; it never changes the validity of the input.
func (c *Classifier) Classify(ctx context.Context, text, userContext string) (*EmotionAnalysis, error) {
	ctx, span := classifierTracer.Start(ctx, "mood.classify")
	defer span.End()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	if !containsLetters(trimmed) {
		return nil, fmt.Errorf("%w: no analyzable content", ErrInvalidInput)
	}

	scored := trimmed
	if userContext != "" {
		scored = trimmed + "\n" + userContext
	}

	raw, err := c.model.Score(ctx, scored)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrClassifierTimeout, err)
		}
		return nil, fmt.Errorf("mood: model scoring: %w", err)
	}
	if len(raw.Labels) == 0 {
		return nil, fmt.Errorf("mood: model returned no labels")
	}

	primary := raw.Labels[0]
	analysis := &EmotionAnalysis{
		PrimaryEmotion: primary.Label,
		Intensity:      computeIntensity(trimmed),
		Confidence:     clamp01(raw.Confidence),
	}
	for _, l := range raw.Labels[1:] {
		if l.Score >= secondaryScoreFloor {
			analysis.SecondaryEmotions = append(analysis.SecondaryEmotions, l.Label)
		}
	}

	color, ok := colorByLabel[primary.Label]
	if !ok {
		// Unmapped label: fail closed to neutral, flag via low confidence.
		c.logger.Warn("emotion label has no mood color mapping",
			"label", primary.Label,
		)
		color = ColorGreen
		if analysis.Confidence > unmappedLabelConfidence {
			analysis.Confidence = unmappedLabelConfidence
		}
	}
	analysis.MoodColor = color

	span.SetAttributes(
		attribute.String("mood.primary_emotion", analysis.PrimaryEmotion),
		attribute.String("mood.color", string(analysis.MoodColor)),
		attribute.Float64("mood.intensity", analysis.Intensity),
		attribute.Float64("mood.confidence", analysis.Confidence),
	)

	return analysis, nil
}

// computeIntensity estimates emotional intensity from surface features of
// the text. Intentionally independent of model confidence.
func computeIntensity(text string) float64 {
	intensity := 0.45

	exclamations := strings.Count(text, "!")
	intensity += minf(float64(exclamations)*0.1, 0.25)

	letters, uppers := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters > 0 {
		capsRatio := float64(uppers) / float64(letters)
		// Ignore ordinary sentence-initial capitals.
		if capsRatio > 0.2 {
			intensity += minf(capsRatio*0.5, 0.25)
		}
	}

	for _, word := range strings.Fields(strings.ToLower(text)) {
		if mod, ok := intensityModifiers[strings.Trim(word, ".,!?")]; ok {
			intensity += mod
		}
	}

	return clamp01(intensity)
}

func containsLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
