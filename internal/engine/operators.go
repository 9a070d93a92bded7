package engine

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/TimurManjosov/packgenie/internal/rules"
)

// OperatorHandler evaluates one condition operator against a resolved value.
// actual is nil when the field path did not resolve.
type OperatorHandler interface {
	Check(actual, expected any) bool
}

var operatorHandlers = map[rules.Operator]OperatorHandler{
	rules.OpEquals:      equalsHandler{},
	rules.OpNotEquals:   notEqualsHandler{},
	rules.OpGreaterThan: numericCompareHandler{cmp: func(a, b float64) bool { return a > b }},
	rules.OpLessThan:    numericCompareHandler{cmp: func(a, b float64) bool { return a < b }},
	rules.OpContains:    containsHandler{},
	rules.OpNotContains: notContainsHandler{},
}

// getOperatorHandler looks up op exactly; there are no aliases.
func getOperatorHandler(op rules.Operator) (OperatorHandler, bool) {
	h, ok := operatorHandlers[op]
	return h, ok
}

// EvaluateCondition resolves cond.Field in ctx and applies cond.Operator.
// Every failure mode (missing field, wrong type, unknown operator) is false.
func EvaluateCondition(cond rules.Condition, ctx Context) bool {
	handler, ok := getOperatorHandler(cond.Operator)
	if !ok {
		return false
	}
	actual, _ := Resolve(ctx, cond.Field)
	return handler.Check(actual, cond.Value)
}

type equalsHandler struct{}

func (equalsHandler) Check(actual, expected any) bool {
	return strictEqual(actual, expected)
}

type notEqualsHandler struct{}

func (notEqualsHandler) Check(actual, expected any) bool {
	return !strictEqual(actual, expected)
}

type numericCompareHandler struct {
	cmp func(a, b float64) bool
}

// Check compares after numeric coercion. NaN never satisfies the comparison.
func (h numericCompareHandler) Check(actual, expected any) bool {
	a := toNumber(actual)
	b := toNumber(expected)
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return h.cmp(a, b)
}

type containsHandler struct{}

func (containsHandler) Check(actual, expected any) bool {
	items, ok := toSequence(actual)
	if !ok {
		return false
	}
	return sequenceHas(items, expected)
}

// notContainsHandler is false on non-sequences, same as containsHandler.
// The two are complements only when actual is a sequence.
type notContainsHandler struct{}

func (notContainsHandler) Check(actual, expected any) bool {
	items, ok := toSequence(actual)
	if !ok {
		return false
	}
	return !sequenceHas(items, expected)
}

func sequenceHas(items []any, expected any) bool {
	for _, item := range items {
		if strictEqual(item, expected) {
			return true
		}
	}
	return false
}

// strictEqual requires the same kind and value. All numeric types count as one
// number kind so a JSON float64 equals a programmatic int. Mappings and
// sequences are never equal to anything, including themselves.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := a.(string); ok {
		y, ok := b.(string)
		return ok && x == y
	}
	if x, ok := a.(bool); ok {
		y, ok := b.(bool)
		return ok && x == y
	}
	if x, ok := asFloat64(a); ok {
		y, ok := asFloat64(b)
		return ok && x == y
	}
	return false
}

// asFloat64 accepts only numeric types; strings and bools are not numbers here.
func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uintptr:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// toNumber coerces a value for numeric comparison. Booleans are 1 or 0,
// blank strings are 0, other strings must parse completely, and absent
// values, mappings and sequences are NaN.
func toNumber(v any) float64 {
	if f, ok := asFloat64(v); ok {
		return f
	}
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		return parseNumber(x)
	default:
		return math.NaN()
	}
}

// parseNumber reads decimal text plus 0x, 0o and 0b integers. "Infinity" is
// the only spelling of infinity; "inf", "nan", hex floats and digit
// separators are NaN.
func parseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.ContainsAny(s, "iInNxX_") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

func toSequence(v any) ([]any, bool) {
	switch values := v.(type) {
	case []any:
		return values, true
	case []string:
		return widen(values), true
	case []float64:
		return widen(values), true
	case []int:
		return widen(values), true
	case []bool:
		return widen(values), true
	default:
		return nil, false
	}
}

func widen[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
