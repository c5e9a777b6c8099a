package model

import "fmt"

// EligibilityStatus is the outcome of one grant evaluation.
type EligibilityStatus string

// Eligibility statuses.
const (
	StatusEligible    EligibilityStatus = "eligible"
	StatusConditional EligibilityStatus = "conditional"
	StatusIneligible  EligibilityStatus = "ineligible"
)

// Certainty is the qualitative confidence attached to a rule evaluation,
// separate from the numeric score.
type Certainty string

// Certainty levels.
const (
	CertaintyHigh   Certainty = "high"
	CertaintyMedium Certainty = "medium"
	CertaintyLow    Certainty = "low"
)

// RuleSet is the canonical internal shape for a grant's eligibility rules.
// Catalog JSON carries either a flat rule map or named groups; the loader
// normalizes both into this tagged union so evaluation only ever sees one
// shape. Exactly one of Flat or Groups is populated.
type RuleSet struct {
	Flat   map[string]any `json:"flat,omitempty"`
	Groups []RuleGroup    `json:"groups,omitempty"`
}

// Grouped reports whether the rule set uses named tiers.
func (rs *RuleSet) Grouped() bool {
	return len(rs.Groups) > 0
}

// Empty reports whether no rules are declared at all.
func (rs *RuleSet) Empty() bool {
	return len(rs.Flat) == 0 && len(rs.Groups) == 0
}

// RuleGroup is one named tier of a grouped rule set. A group may carry its
// own award formula, overriding the grant-level default.
type RuleGroup struct {
	Name  string         `json:"name"`
	Rules map[string]any `json:"rules"`
	Award *AwardSpec     `json:"estimated_award,omitempty"`
}

// AwardSpec describes how an estimated award amount is computed.
type AwardSpec struct {
	Type    string  `json:"type"` // flat, percentage, credit
	Base    float64 `json:"base,omitempty"`
	Field   string  `json:"field,omitempty"`
	Percent float64 `json:"percent,omitempty"`
	Cap     float64 `json:"cap,omitempty"`
	// Credit formulas (payroll tax credits): usable amount is the minimum of
	// the requested credit, Percent of LiabilityField, and Cap; the remainder
	// carries forward.
	LiabilityField string `json:"liability_field,omitempty"`
}

// GrantDefinition describes one grant program in the catalog.
type GrantDefinition struct {
	Key                string    `json:"key"`
	Name               string    `json:"name"`
	Tags               []string  `json:"tags"`
	RequiredFields     []string  `json:"required_fields"`
	Rules              RuleSet   `json:"rules"`
	Award              AwardSpec `json:"estimated_award"`
	RequiredForms      []string  `json:"requiredForms"`
	EligibleIndustries []string  `json:"eligible_industries"`
}

// Validate ensures the definition is usable.
func (g *GrantDefinition) Validate() error {
	if g.Key == "" {
		return fmt.Errorf("grant definition key is required")
	}
	if g.Name == "" {
		return fmt.Errorf("grant definition %q: name is required", g.Key)
	}
	if len(g.Rules.Flat) > 0 && len(g.Rules.Groups) > 0 {
		return fmt.Errorf("grant definition %q: flat rules and rule groups are mutually exclusive", g.Key)
	}
	return nil
}

// RuleEvaluationResult is the outcome of evaluating one rule set against a
// profile. Eligible is nil when missing data makes the outcome indeterminate.
type RuleEvaluationResult struct {
	Eligible      *bool             `json:"eligible"`
	Status        EligibilityStatus `json:"status"`
	Score         int               `json:"score"`
	Certainty     Certainty         `json:"certainty"`
	Reasoning     []string          `json:"reasoning"`
	CheckedRules  int               `json:"checked_rules"`
	MissingFields []string          `json:"missing_fields"`
	SelectedGroup string            `json:"selected_group,omitempty"`
	RequiredForms []string          `json:"required_forms,omitempty"`
}

// GrantResult is the engine's per-grant output unit.
// Invariant: Status == eligible iff Eligible points at true; Status ==
// conditional iff Eligible is nil; otherwise Status == ineligible.
type GrantResult struct {
	Name            string            `json:"name"`
	Eligible        *bool             `json:"eligible"`
	Score           int               `json:"score"`
	EstimatedAmount float64           `json:"estimated_amount"`
	Reasoning       []string          `json:"reasoning"`
	MissingFields   []string          `json:"missing_fields"`
	TagScore        int               `json:"tag_score"`
	Status          EligibilityStatus `json:"status"`
	Rationale       string            `json:"rationale"`
	Debug           map[string]any    `json:"debug,omitempty"`
}

// EligibilityReport aggregates the per-grant results for one request.
type EligibilityReport struct {
	Results       []GrantResult `json:"results"`
	MissingFields []string      `json:"missing_fields"`
	RequiredForms []string      `json:"requiredForms"`
}

// BoolPtr returns a pointer to b; rule results use pointer booleans to
// distinguish "no" from "unknown".
func BoolPtr(b bool) *bool {
	return &b
}
