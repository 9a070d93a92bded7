package rules

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sentinel errors carried by lint issues.
var (
	ErrInvalidOperator  = errors.New("invalid operator")
	ErrInvalidCondition = errors.New("invalid condition")
	ErrInvalidValueType = errors.New("invalid value type")
)

// Clause names used in lint issue locations.
const (
	ClauseInclude = "include_if"
	ClauseExclude = "exclude_if"
)

// LintIssue describes one suspicious condition. Lint issues are advisory:
// the engine evaluates malformed conditions to false instead of failing.
type LintIssue struct {
	Clause string `json:"clause"`
	Index  int    `json:"index"`
	Err    error  `json:"-"`
	Detail string `json:"detail"`
}

func (i LintIssue) Error() string {
	return fmt.Sprintf("%s[%d]: %s", i.Clause, i.Index, i.Detail)
}

// Unwrap exposes the sentinel so callers can use errors.Is.
func (i LintIssue) Unwrap() error {
	return i.Err
}

// Lint performs strict validation of a RuleSet and returns every issue found.
// It is a pure function: it never mutates rs and has no side effects.
func Lint(rs RuleSet) []LintIssue {
	var issues []LintIssue
	for i, c := range rs.IncludeIf {
		if issue, ok := lintCondition(ClauseInclude, i, c); !ok {
			issues = append(issues, issue)
		}
	}
	for i, c := range rs.ExcludeIf {
		if issue, ok := lintCondition(ClauseExclude, i, c); !ok {
			issues = append(issues, issue)
		}
	}
	return issues
}

func lintCondition(clause string, i int, c Condition) (LintIssue, bool) {
	issue := LintIssue{Clause: clause, Index: i}

	if strings.TrimSpace(c.Field) == "" {
		issue.Err = ErrInvalidCondition
		issue.Detail = "field must not be empty"
		return issue, false
	}
	for _, part := range strings.Split(c.Field, ".") {
		if part == "" {
			issue.Err = ErrInvalidCondition
			issue.Detail = fmt.Sprintf("field %q has an empty path segment", c.Field)
			return issue, false
		}
	}

	if !c.Operator.Known() {
		issue.Err = ErrInvalidOperator
		issue.Detail = fmt.Sprintf("operator %q is not supported", c.Operator)
		return issue, false
	}

	if !isScalar(c.Value) {
		issue.Err = ErrInvalidValueType
		issue.Detail = fmt.Sprintf("operator %q requires a string, number or bool value", c.Operator)
		return issue, false
	}

	if c.Operator == OpGreaterThan || c.Operator == OpLessThan {
		if !isNumericLiteral(c.Value) {
			issue.Err = ErrInvalidValueType
			issue.Detail = fmt.Sprintf("operator %q requires a numeric value", c.Operator)
			return issue, false
		}
	}

	return issue, true
}

// isScalar returns true for the literal types a condition value may hold.
func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// isNumericLiteral accepts numbers and strings that parse as numbers.
func isNumericLiteral(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return err == nil && !math.IsNaN(f)
	}
	return false
}

// ParseLiteral converts free-text input into a condition literal:
// "true" and "false" become bools, text that is entirely a finite number
// becomes float64, and anything else is kept as a string. There is no
// leading-number parse: "30kw" is the string "30kw", never 30.
func ParseLiteral(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return raw
}
