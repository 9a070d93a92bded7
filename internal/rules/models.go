package rules

// Operator represents a comparison operator used in pack rule conditions.
type Operator string

// Supported operators (string values match the pack file format).
const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
)

// Operators lists the recognised operators in display order.
var Operators = []Operator{
	OpEquals,
	OpNotEquals,
	OpGreaterThan,
	OpLessThan,
	OpContains,
	OpNotContains,
}

// Known reports whether op is one of the recognised operators.
// Matching is exact: "Equals" or "eq" are not recognised.
func (op Operator) Known() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// Condition represents a single rule predicate: a dotted field path into the
// job context, an operator, and a literal (string, number or bool).
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
}

// RuleSet holds a pack's inclusion and exclusion clauses.
// All include_if conditions must pass (an empty list passes);
// any passing exclude_if condition excludes the pack.
type RuleSet struct {
	IncludeIf []Condition `json:"include_if" yaml:"include_if"`
	ExcludeIf []Condition `json:"exclude_if" yaml:"exclude_if"`
}

// Empty reports whether the rule set has no conditions at all.
func (rs RuleSet) Empty() bool {
	return len(rs.IncludeIf) == 0 && len(rs.ExcludeIf) == 0
}
