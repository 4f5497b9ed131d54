package vault

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/whisperleaf/whisperleaf/internal/crisis"
	"github.com/whisperleaf/whisperleaf/internal/mood"
)

// PrivacyLevel is the ordered confidentiality level of a record:
// public < private < encrypted.
type PrivacyLevel int

const (
	// LevelPublic stores plaintext with no access check on read.
	LevelPublic PrivacyLevel = iota
	// LevelPrivate stores plaintext but requires an authenticated caller.
	LevelPrivate
	// LevelEncrypted stores ciphertext only; the vault never has independent
	// custody of the decrypted content at rest.
	LevelEncrypted
)

var levelNames = map[PrivacyLevel]string{
	LevelPublic:    "public",
	LevelPrivate:   "private",
	LevelEncrypted: "encrypted",
}

func (l PrivacyLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "private"
}

// MarshalJSON renders the level as its name.
func (l PrivacyLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON parses a level name.
func (l *PrivacyLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePrivacyLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParsePrivacyLevel converts a level name to a PrivacyLevel.
func ParsePrivacyLevel(s string) (PrivacyLevel, error) {
	for level, name := range levelNames {
		if name == strings.ToLower(strings.TrimSpace(s)) {
			return level, nil
		}
	}
	return LevelPrivate, fmt.Errorf("vault: unknown privacy level %q", s)
}

// Attachments carries the analysis results and tags stored alongside a
// record's content.
type Attachments struct {
	Analysis *mood.EmotionAnalysis    `json:"analysis,omitempty"`
	Crisis   *crisis.CrisisAssessment `json:"crisis_assessment,omitempty"`
	Tags     []string                 `json:"tags,omitempty"`
}

// Record is a persisted journal entry. Content holds plaintext or ciphertext
// depending on the privacy level. Records are never mutated after creation;
// the only later operation is explicit erasure.
type Record struct {
	ID           string       `json:"id"`
	Content      []byte       `json:"content"`
	PrivacyLevel PrivacyLevel `json:"privacy_level"`
	CreatedAt    time.Time    `json:"created_at"`
	Attachments  Attachments  `json:"attachments"`
	Checksum     string       `json:"checksum"`
}
