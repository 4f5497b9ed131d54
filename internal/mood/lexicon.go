package mood

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// LexiconModel scores emotion labels from weighted keyword tables. It is the
// default in-process model: deterministic, dependency-free, and good enough
// for sovereign deployments that keep everything local.
type LexiconModel struct {
	keywords map[string]map[string]float64
	negation map[string]bool
}

var wordRe = regexp.MustCompile(`[a-z']+`)

// NewLexiconModel builds the keyword tables.
func NewLexiconModel() *LexiconModel {
	return &LexiconModel{
		keywords: map[string]map[string]float64{
			"sadness": {
				"sad": 0.9, "sadness": 0.9, "down": 0.7, "low": 0.6, "blue": 0.7,
				"crying": 0.8, "tears": 0.7, "hurt": 0.7, "disappointed": 0.7,
				"lonely": 0.8, "alone": 0.6, "isolated": 0.8, "abandoned": 0.9,
			},
			"grief": {
				"grief": 0.9, "grieving": 0.9, "mourning": 0.85, "loss": 0.8,
				"heartbroken": 0.9, "devastated": 0.85, "shattered": 0.9,
			},
			"despair": {
				"hopeless": 0.9, "despair": 0.9, "worthless": 0.9, "empty": 0.8,
				"numb": 0.8, "defeated": 0.8, "broken": 0.8, "useless": 0.8,
			},
			"joy": {
				"happy": 0.8, "joy": 0.8, "joyful": 0.8, "pleased": 0.7,
				"grateful": 0.8, "thankful": 0.8, "delighted": 0.8, "glad": 0.7,
			},
			"calm": {
				"calm": 0.9, "peaceful": 0.9, "serene": 0.9, "relaxed": 0.8,
				"content": 0.8, "balanced": 0.8, "grounded": 0.8, "okay": 0.6,
				"fine": 0.6, "safe": 0.7,
			},
			"anxiety": {
				"anxious": 0.9, "anxiety": 0.9, "worried": 0.9, "worry": 0.9,
				"nervous": 0.8, "restless": 0.8, "uneasy": 0.8, "tense": 0.8,
				"overwhelmed": 0.9, "spiraling": 0.9, "pressure": 0.8,
			},
			"fear": {
				"scared": 0.8, "afraid": 0.8, "fearful": 0.8, "terrified": 0.9,
				"panic": 0.95, "panicked": 0.95, "panicking": 0.95, "frantic": 0.9,
				"trapped": 0.8, "suffocating": 0.9,
			},
			"stress": {
				"stressed": 0.9, "stress": 0.9, "swamped": 0.8, "exhausted": 0.7,
				"burnout": 0.85, "drowning": 0.9, "buried": 0.8,
			},
			"curiosity": {
				"curious": 0.8, "wonder": 0.8, "wondering": 0.8, "fascinated": 0.8,
				"exploring": 0.8, "discovering": 0.8, "learning": 0.7,
			},
			"inspiration": {
				"creative": 0.9, "inspired": 0.9, "inspiration": 0.9, "motivated": 0.8,
				"passionate": 0.9, "excited": 0.8, "energetic": 0.8, "alive": 0.8,
				"dreaming": 0.8, "playful": 0.7,
			},
			"anger": {
				"angry": 0.9, "anger": 0.9, "mad": 0.8, "furious": 0.95,
				"rage": 0.95, "livid": 0.9, "hostile": 0.9, "seething": 0.9,
				"outraged": 0.9, "betrayed": 0.8,
			},
			"frustration": {
				"frustrated": 0.9, "frustration": 0.9, "irritated": 0.8,
				"annoyed": 0.7, "fed": 0.5, "unfair": 0.8, "bitter": 0.8,
			},
		},
		negation: map[string]bool{
			"not": true, "no": true, "never": true,
			"hardly": true, "barely": true, "scarcely": true,
		},
	}
}

// Score tallies keyword weights per label, damping words that appear right
// after a negation ("not sad"), and normalizes across matched labels.
func (m *LexiconModel) Score(ctx context.Context, text string) (*RawScores, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := wordRe.FindAllString(strings.ToLower(text), -1)
	scores := make(map[string]float64)
	total := 0.0

	for i, word := range words {
		negated := false
		// Negation within the two preceding words reverses the signal.
		for j := max(0, i-2); j < i; j++ {
			if m.negation[words[j]] {
				negated = true
				break
			}
		}
		for label, table := range m.keywords {
			w, ok := table[word]
			if !ok {
				continue
			}
			if negated {
				// Negated emotion words mostly cancel and nudge neutral.
				w *= 0.2
				scores["calm"] += 0.2
				total += 0.2
			}
			scores[label] += w
			total += w
		}
	}

	if total == 0 {
		// No emotional vocabulary found: neutral, low confidence.
		return &RawScores{
			Labels:     []LabelScore{{Label: "calm", Score: 0.5}},
			Confidence: 0.3,
		}, nil
	}

	labels := make([]LabelScore, 0, len(scores))
	for label, s := range scores {
		labels = append(labels, LabelScore{Label: label, Score: s / total})
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Score != labels[j].Score {
			return labels[i].Score > labels[j].Score
		}
		return labels[i].Label < labels[j].Label
	})

	confidence := labels[0].Score
	if confidence > 0.95 {
		confidence = 0.95
	}
	if len(labels) > 1 {
		// Competing labels reduce certainty in the top pick.
		confidence = labels[0].Score - labels[1].Score/2
		if confidence < 0.2 {
			confidence = 0.2
		}
	}

	return &RawScores{Labels: labels, Confidence: confidence}, nil
}
