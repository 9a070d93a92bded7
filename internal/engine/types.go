package engine

import "github.com/TimurManjosov/packgenie/internal/rules"

// Context is the nested fact record describing a job: system type, site
// measurements, selected equipment. It usually comes straight from JSON.
type Context map[string]any

// ConditionResult records the outcome of one condition.
type ConditionResult struct {
	Condition rules.Condition `json:"condition"`
	Passed    bool            `json:"passed"`
}

// Verdict is the deterministic output of EvaluatePack.
// The JSON shape matches the pack builder's test report.
type Verdict struct {
	IncludeResults []ConditionResult `json:"include_if"`
	ExcludeResults []ConditionResult `json:"exclude_if"`
	ShouldInclude  bool              `json:"shouldInclude"`
}

// IncludePass reports whether every include condition passed.
// An empty include list passes.
func (v Verdict) IncludePass() bool {
	for _, r := range v.IncludeResults {
		if !r.Passed {
			return false
		}
	}
	return true
}

// Excluded reports whether at least one exclude condition passed.
func (v Verdict) Excluded() bool {
	for _, r := range v.ExcludeResults {
		if r.Passed {
			return true
		}
	}
	return false
}
