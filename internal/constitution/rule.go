// Package constitution implements the policy engine that governs what the
// system is allowed to do with emotional data. Rules are loaded from YAML,
// held as an immutable snapshot, and evaluated as a pure function over the
// proposed action, its context, and an optional crisis assessment.
package constitution

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/whisperleaf/whisperleaf/internal/crisis"
)

// Decision is the outcome a rule prescribes when it matches.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// Severity classifies a violated-rule entry on a PolicyDecision.
type Severity string

const (
	// SeverityBlocking marks a deny rule that contributed to the denial.
	SeverityBlocking Severity = "blocking"
	// SeverityInfo marks an informational entry, such as the fail-closed
	// default or a crisis-exception override.
	SeverityInfo Severity = "info"
)

// Conditions is a conjunction of predicates; a rule matches only when every
// populated predicate holds. An empty Conditions matches every request.
type Conditions struct {
	// ActionTypes restricts the rule to the listed action types.
	ActionTypes []string `yaml:"action_types"`
	// ContextEquals requires each key to be present in the request context
	// with exactly the given value.
	ContextEquals map[string]string `yaml:"context_equals"`
	// ConsentPresent requires each named consent flag to be affirmatively set.
	ConsentPresent []string `yaml:"consent_present"`
	// ConsentMissing requires each named consent flag to be absent or false.
	ConsentMissing []string `yaml:"consent_missing"`
	// MinCrisisLevel, when set, requires an attached crisis assessment at or
	// above the named level.
	MinCrisisLevel string `yaml:"min_crisis_level"`
}

// Rule is a single constitutional rule. Lower priority values are evaluated
// first. Name is unique within a rule set.
type Rule struct {
	Name            string     `yaml:"name"`
	Priority        int        `yaml:"priority"`
	Conditions      Conditions `yaml:"conditions"`
	Decision        Decision   `yaml:"decision"`
	Reason          string     `yaml:"reason"`
	Recommendations []string   `yaml:"recommendations"`

	minCrisis    crisis.RiskLevel
	hasMinCrisis bool
}

func (r *Rule) matches(action string, reqContext map[string]string, consent map[string]bool, assessment *crisis.CrisisAssessment) bool {
	if len(r.Conditions.ActionTypes) > 0 {
		found := false
		for _, t := range r.Conditions.ActionTypes {
			if t == action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for key, want := range r.Conditions.ContextEquals {
		if reqContext[key] != want {
			return false
		}
	}
	for _, flag := range r.Conditions.ConsentPresent {
		if !consent[flag] {
			return false
		}
	}
	for _, flag := range r.Conditions.ConsentMissing {
		if consent[flag] {
			return false
		}
	}
	if r.hasMinCrisis {
		if assessment == nil || assessment.RiskLevel < r.minCrisis {
			return false
		}
	}
	return true
}

// RuleSet is an immutable, priority-sorted snapshot of rules.
type RuleSet struct {
	rules []Rule
}

// Len reports the number of rules in the set.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// RuleLoadError reports every validation problem found in a rule source. A
// load that produces it leaves any previously active rule set untouched.
type RuleLoadError struct {
	Problems []string
}

func (e *RuleLoadError) Error() string {
	return fmt.Sprintf("constitution: rule load failed: %s", strings.Join(e.Problems, "; "))
}

// LoadRules parses and validates a YAML rule source. The load is all or
// nothing: any malformed rule fails the whole load.
func LoadRules(data []byte) (*RuleSet, error) {
	var doc struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &RuleLoadError{Problems: []string{fmt.Sprintf("parse: %v", err)}}
	}

	var problems []string
	seen := make(map[string]bool)
	for i := range doc.Rules {
		r := &doc.Rules[i]
		if r.Name == "" {
			problems = append(problems, fmt.Sprintf("rule %d: missing name", i))
			continue
		}
		if seen[r.Name] {
			problems = append(problems, fmt.Sprintf("rule %q: duplicate name", r.Name))
		}
		seen[r.Name] = true
		if r.Decision != DecisionAllow && r.Decision != DecisionDeny {
			problems = append(problems, fmt.Sprintf("rule %q: invalid decision %q", r.Name, r.Decision))
		}
		if r.Conditions.MinCrisisLevel != "" {
			level, err := crisis.ParseRiskLevel(r.Conditions.MinCrisisLevel)
			if err != nil {
				problems = append(problems, fmt.Sprintf("rule %q: invalid min_crisis_level %q", r.Name, r.Conditions.MinCrisisLevel))
			} else {
				r.minCrisis = level
				r.hasMinCrisis = true
			}
		}
	}
	if len(problems) > 0 {
		return nil, &RuleLoadError{Problems: problems}
	}

	rules := make([]Rule, len(doc.Rules))
	copy(rules, doc.Rules)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})

	return &RuleSet{rules: rules}, nil
}
