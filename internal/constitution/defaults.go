package constitution

import (
	_ "embed"
	"fmt"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// DefaultRules returns the embedded baseline rule set covering safety,
// consent, and therapeutic boundaries.
func DefaultRules() *RuleSet {
	rs, err := LoadRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("constitution: embedded default rules invalid: %v", err))
	}
	return rs
}
