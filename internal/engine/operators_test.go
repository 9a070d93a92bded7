package engine

import (
	"encoding/json"
	"testing"

	"github.com/TimurManjosov/packgenie/internal/rules"
)

func jobContext() Context {
	return Context{
		"system": map[string]any{"system_type": "combi", "pressurised": true},
		"site": map[string]any{
			"bathrooms_count":    float64(2),
			"cold_main_flow_lpm": "18.5",
			"blank":              "",
		},
		"boiler": map[string]any{
			"model": "wor_8000_30kw_combi",
			"flags": []any{"wifi", float64(30), true},
			"tags":  []string{"erp_a", "compact"},
		},
		"meter": map[string]any{
			"pulses":       uint(3),
			"offset":       int8(-2),
			"readings":     []any{uint16(7), int64(9)},
			"inf":          "inf",
			"hex":          "0x10",
			"infinity":     "Infinity",
			"neg_infinity": "-Infinity",
			"grouped":      "1_000",
			"hex_float":    "0x1p4",
			"huge":         "1e400",
			"reset":        nil,
		},
	}
}

func TestEvaluateCondition(t *testing.T) {
	ctx := jobContext()

	tests := []struct {
		name string
		cond rules.Condition
		want bool
	}{
		// equals / not_equals
		{"equals string", rules.Condition{Field: "system.system_type", Operator: rules.OpEquals, Value: "combi"}, true},
		{"equals wrong string", rules.Condition{Field: "system.system_type", Operator: rules.OpEquals, Value: "system"}, false},
		{"equals is type strict", rules.Condition{Field: "site.bathrooms_count", Operator: rules.OpEquals, Value: "2"}, false},
		{"equals int vs float", rules.Condition{Field: "site.bathrooms_count", Operator: rules.OpEquals, Value: 2}, true},
		{"equals bool", rules.Condition{Field: "system.pressurised", Operator: rules.OpEquals, Value: true}, true},
		{"equals bool vs number", rules.Condition{Field: "system.pressurised", Operator: rules.OpEquals, Value: 1}, false},
		{"equals missing", rules.Condition{Field: "nonexistent.path", Operator: rules.OpEquals, Value: "x"}, false},
		{"equals mapping", rules.Condition{Field: "system", Operator: rules.OpEquals, Value: "combi"}, false},
		{"not_equals string", rules.Condition{Field: "system.system_type", Operator: rules.OpNotEquals, Value: "system"}, true},
		{"not_equals missing", rules.Condition{Field: "nonexistent.path", Operator: rules.OpNotEquals, Value: "x"}, true},

		// greater_than / less_than
		{"greater_than", rules.Condition{Field: "site.bathrooms_count", Operator: rules.OpGreaterThan, Value: 1}, true},
		{"greater_than equal", rules.Condition{Field: "site.bathrooms_count", Operator: rules.OpGreaterThan, Value: 2}, false},
		{"greater_than string actual", rules.Condition{Field: "site.cold_main_flow_lpm", Operator: rules.OpGreaterThan, Value: 18}, true},
		{"greater_than string expected", rules.Condition{Field: "site.bathrooms_count", Operator: rules.OpGreaterThan, Value: "1.5"}, true},
		{"less_than", rules.Condition{Field: "site.cold_main_flow_lpm", Operator: rules.OpLessThan, Value: 20}, true},
		{"less_than blank is zero", rules.Condition{Field: "site.blank", Operator: rules.OpLessThan, Value: 1}, true},
		{"less_than bool is one", rules.Condition{Field: "system.pressurised", Operator: rules.OpLessThan, Value: 2}, true},
		{"greater_than text is NaN", rules.Condition{Field: "system.system_type", Operator: rules.OpGreaterThan, Value: 0}, false},
		{"less_than text is NaN", rules.Condition{Field: "system.system_type", Operator: rules.OpLessThan, Value: 0}, false},
		{"greater_than missing", rules.Condition{Field: "site.floor_area", Operator: rules.OpGreaterThan, Value: -1}, false},
		{"greater_than sequence", rules.Condition{Field: "boiler.flags", Operator: rules.OpGreaterThan, Value: 0}, false},

		// contains / not_contains
		{"contains string element", rules.Condition{Field: "boiler.flags", Operator: rules.OpContains, Value: "wifi"}, true},
		{"contains number element", rules.Condition{Field: "boiler.flags", Operator: rules.OpContains, Value: 30}, true},
		{"contains bool element", rules.Condition{Field: "boiler.flags", Operator: rules.OpContains, Value: true}, true},
		{"contains is type strict", rules.Condition{Field: "boiler.flags", Operator: rules.OpContains, Value: "30"}, false},
		{"contains typed slice", rules.Condition{Field: "boiler.tags", Operator: rules.OpContains, Value: "compact"}, true},
		{"contains on string", rules.Condition{Field: "boiler.model", Operator: rules.OpContains, Value: "30kw"}, false},
		{"not_contains absent element", rules.Condition{Field: "boiler.flags", Operator: rules.OpNotContains, Value: "hydrogen"}, true},
		{"not_contains present element", rules.Condition{Field: "boiler.flags", Operator: rules.OpNotContains, Value: "wifi"}, false},
		{"not_contains on string", rules.Condition{Field: "boiler.model", Operator: rules.OpNotContains, Value: "30kw"}, false},
		{"not_contains on missing", rules.Condition{Field: "boiler.missing", Operator: rules.OpNotContains, Value: "x"}, false},

		// integer widths
		{"equals uint", rules.Condition{Field: "meter.pulses", Operator: rules.OpEquals, Value: 3}, true},
		{"equals uint vs float", rules.Condition{Field: "meter.pulses", Operator: rules.OpEquals, Value: 3.0}, true},
		{"equals int8", rules.Condition{Field: "meter.offset", Operator: rules.OpEquals, Value: -2}, true},
		{"equals uint8 expected", rules.Condition{Field: "site.bathrooms_count", Operator: rules.OpEquals, Value: uint8(2)}, true},
		{"greater_than uint", rules.Condition{Field: "meter.pulses", Operator: rules.OpGreaterThan, Value: 1}, true},
		{"less_than int8", rules.Condition{Field: "meter.offset", Operator: rules.OpLessThan, Value: 0}, true},
		{"contains uint16 element", rules.Condition{Field: "meter.readings", Operator: rules.OpContains, Value: 7}, true},
		{"not_contains int64 element", rules.Condition{Field: "meter.readings", Operator: rules.OpNotContains, Value: uint32(9)}, false},

		{"less_than null leaf is absent", rules.Condition{Field: "meter.reset", Operator: rules.OpLessThan, Value: 1}, false},

		// number spellings
		{"inf is NaN", rules.Condition{Field: "meter.inf", Operator: rules.OpGreaterThan, Value: 5}, false},
		{"inf is NaN below", rules.Condition{Field: "meter.inf", Operator: rules.OpLessThan, Value: 5}, false},
		{"hex integer", rules.Condition{Field: "meter.hex", Operator: rules.OpGreaterThan, Value: 15}, true},
		{"hex integer upper bound", rules.Condition{Field: "meter.hex", Operator: rules.OpLessThan, Value: 17}, true},
		{"binary expected", rules.Condition{Field: "site.bathrooms_count", Operator: rules.OpLessThan, Value: "0b101"}, true},
		{"Infinity", rules.Condition{Field: "meter.infinity", Operator: rules.OpGreaterThan, Value: 1e300}, true},
		{"-Infinity", rules.Condition{Field: "meter.neg_infinity", Operator: rules.OpLessThan, Value: 0}, true},
		{"digit separators are NaN", rules.Condition{Field: "meter.grouped", Operator: rules.OpGreaterThan, Value: 0}, false},
		{"hex float is NaN", rules.Condition{Field: "meter.hex_float", Operator: rules.OpGreaterThan, Value: 0}, false},
		{"overflow is infinite", rules.Condition{Field: "meter.huge", Operator: rules.OpGreaterThan, Value: 1e300}, true},

		// unknown operators
		{"unknown operator", rules.Condition{Field: "system.system_type", Operator: "gte", Value: "combi"}, false},
		{"operator case differs", rules.Condition{Field: "system.system_type", Operator: "Equals", Value: "combi"}, false},
		{"empty operator", rules.Condition{Field: "system.system_type", Operator: "", Value: "combi"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateCondition(tt.cond, ctx); got != tt.want {
				t.Errorf("EvaluateCondition(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestEqualsAndNotEqualsAreComplements(t *testing.T) {
	ctx := jobContext()
	fields := []string{"system.system_type", "system.pressurised", "site.bathrooms_count", "boiler.flags", "system", "nonexistent.path"}
	values := []any{"combi", true, false, 2, 2.0, "2", ""}

	for _, field := range fields {
		for _, value := range values {
			eq := EvaluateCondition(rules.Condition{Field: field, Operator: rules.OpEquals, Value: value}, ctx)
			ne := EvaluateCondition(rules.Condition{Field: field, Operator: rules.OpNotEquals, Value: value}, ctx)
			if eq == ne {
				t.Errorf("field %q value %#v: equals=%v not_equals=%v, want complements", field, value, eq, ne)
			}
		}
	}
}

func TestContainsFailsClosedOnNonSequence(t *testing.T) {
	ctx := jobContext()
	for _, field := range []string{"boiler.model", "site.bathrooms_count", "system", "nonexistent.path"} {
		for _, op := range []rules.Operator{rules.OpContains, rules.OpNotContains} {
			if EvaluateCondition(rules.Condition{Field: field, Operator: op, Value: "x"}, ctx) {
				t.Errorf("%s on non-sequence %q = true, want false", op, field)
			}
		}
	}
}

func TestUnknownOperatorAlwaysFalse(t *testing.T) {
	ctx := jobContext()
	for _, op := range []rules.Operator{"in", "gt", "NOT_EQUALS", "contains ", "between"} {
		for _, field := range []string{"system.system_type", "boiler.flags", "nonexistent.path"} {
			if EvaluateCondition(rules.Condition{Field: field, Operator: op, Value: "combi"}, ctx) {
				t.Errorf("operator %q on %q evaluated true", op, field)
			}
		}
	}
}

func TestEvaluateCondition_DecodedJSON(t *testing.T) {
	raw := `{"site": {"bathrooms_count": 3, "radiators": [1, 2, 3]}}`
	var ctx Context
	if err := json.Unmarshal([]byte(raw), &ctx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !EvaluateCondition(rules.Condition{Field: "site.bathrooms_count", Operator: rules.OpEquals, Value: 3}, ctx) {
		t.Error("decoded float64 3 should equal int 3")
	}
	if !EvaluateCondition(rules.Condition{Field: "site.radiators", Operator: rules.OpContains, Value: float64(2)}, ctx) {
		t.Error("decoded sequence should contain 2")
	}
}

func TestEvaluateCondition_JSONNumber(t *testing.T) {
	ctx := Context{"site": map[string]any{"flow": json.Number("21.5")}}
	if !EvaluateCondition(rules.Condition{Field: "site.flow", Operator: rules.OpGreaterThan, Value: 20}, ctx) {
		t.Error("json.Number 21.5 should be greater than 20")
	}
	if !EvaluateCondition(rules.Condition{Field: "site.flow", Operator: rules.OpEquals, Value: 21.5}, ctx) {
		t.Error("json.Number 21.5 should equal 21.5")
	}
}
