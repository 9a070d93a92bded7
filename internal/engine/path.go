package engine

import "strings"

// Kind classifies a context value for resolution and comparison.
type Kind int

const (
	KindAbsent Kind = iota
	KindMapping
	KindSequence
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	case KindScalar:
		return "scalar"
	default:
		return "absent"
	}
}

// KindOf classifies v. JSON null (nil) is absent.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindAbsent
	case map[string]any, Context:
		return KindMapping
	case []any, []string, []float64, []int, []bool:
		return KindSequence
	default:
		return KindScalar
	}
}

// Resolve walks a dot-delimited path ("site.cold_main_flow_lpm") through ctx.
// It returns (nil, false) as soon as a step is missing or the current value is
// not a mapping; absence is an ordinary outcome, not an error.
func Resolve(ctx Context, path string) (any, bool) {
	var current any = map[string]any(ctx)
	for _, key := range strings.Split(path, ".") {
		m, ok := asMapping(current)
		if !ok {
			return nil, false
		}
		next, ok := m[key]
		if !ok || next == nil {
			return nil, false
		}
		current = next
	}
	return current, true
}

func asMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, m != nil
	case Context:
		return map[string]any(m), m != nil
	default:
		return nil, false
	}
}
