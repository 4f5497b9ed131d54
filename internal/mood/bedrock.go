package mood

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/whisperleaf/whisperleaf/pkg/logging"
)

// BedrockConverseAPI is the subset of the Bedrock client used for scoring.
type BedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockModel scores emotion labels via an LLM on Bedrock. Callers impose
// the timeout; a slow model surfaces as a context deadline error.
type BedrockModel struct {
	client  BedrockConverseAPI
	modelID string
	logger  *logging.Logger
}

// NewBedrockModel creates a BedrockModel. modelID should be a model ARN/ID.
func NewBedrockModel(client BedrockConverseAPI, modelID string, logger *logging.Logger) *BedrockModel {
	if logger == nil {
		logger = logging.Default()
	}
	return &BedrockModel{client: client, modelID: modelID, logger: logger}
}

// Score asks the model for per-label emotion scores as JSON.
func (m *BedrockModel) Score(ctx context.Context, text string) (*RawScores, error) {
	if m.client == nil {
		return nil, fmt.Errorf("mood: bedrock model not configured")
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(m.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: scoringSystemPrompt},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: scoringPrompt(text)},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(256),
			Temperature: aws.Float32(0.0),
		},
	}

	resp, err := m.client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("mood: bedrock converse: %w", err)
	}

	out := extractResponseText(resp)
	if out == "" {
		return conservativeScores(), nil
	}
	return parseScoresJSON(out)
}

func extractResponseText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	output, ok := resp.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(output.Value.Content) == 0 {
		return ""
	}
	textBlock, ok := output.Value.Content[0].(*brtypes.ContentBlockMemberText)
	if !ok {
		return ""
	}
	return textBlock.Value
}

func parseScoresJSON(text string) (*RawScores, error) {
	// Find JSON in response (might be wrapped in markdown code blocks)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return conservativeScores(), nil
	}

	var payload struct {
		Labels []struct {
			Label string  `json:"label"`
			Score float64 `json:"score"`
		} `json:"labels"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return conservativeScores(), nil
	}
	if len(payload.Labels) == 0 {
		return conservativeScores(), nil
	}

	scores := &RawScores{Confidence: clamp01(payload.Confidence)}
	for _, l := range payload.Labels {
		scores.Labels = append(scores.Labels, LabelScore{Label: strings.ToLower(l.Label), Score: clamp01(l.Score)})
	}
	return scores, nil
}

// conservativeScores is the fallback when the model answered with something
// unusable: neutral label, low confidence.
func conservativeScores() *RawScores {
	return &RawScores{
		Labels:     []LabelScore{{Label: "calm", Score: 0.5}},
		Confidence: 0.2,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

const scoringSystemPrompt = `You score the emotional content of private journal text. Return ONLY a JSON object. Be precise and conservative.`

func scoringPrompt(text string) string {
	return fmt.Sprintf(`Score the emotions present in this text. Return ONLY a JSON object:

{
  "labels": [{"label": "sadness|grief|despair|joy|calm|anxiety|fear|stress|curiosity|inspiration|anger|frustration", "score": 0.0-1.0}],
  "confidence": 0.0-1.0
}

Order labels by descending score and omit labels scoring below 0.1.

Text:
%s`, text)
}
