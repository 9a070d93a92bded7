package engine

import (
	"github.com/TimurManjosov/packgenie/internal/rules"
	"github.com/TimurManjosov/packgenie/internal/store"
)

// EvaluatePack decides whether pack applies to the job described by ctx.
// A nil pack behaves like a pack without rules and is included.
//
// The call is pure: it never mutates pack or ctx, allocates a fresh Verdict,
// and is safe to run concurrently against shared inputs.
func EvaluatePack(pack *store.Pack, ctx Context) Verdict {
	if pack == nil {
		return EvaluateRules(rules.RuleSet{}, ctx)
	}
	return EvaluateRules(pack.Rules, ctx)
}

// EvaluateRules applies include_if and exclude_if clauses to ctx.
// All include conditions must pass (an empty list passes) and no exclude
// condition may pass.
func EvaluateRules(rs rules.RuleSet, ctx Context) Verdict {
	verdict := Verdict{
		IncludeResults: evaluateAll(rs.IncludeIf, ctx),
		ExcludeResults: evaluateAll(rs.ExcludeIf, ctx),
	}
	verdict.ShouldInclude = verdict.IncludePass() && !verdict.Excluded()
	return verdict
}

func evaluateAll(conditions []rules.Condition, ctx Context) []ConditionResult {
	results := make([]ConditionResult, 0, len(conditions))
	for _, condition := range conditions {
		results = append(results, ConditionResult{
			Condition: condition,
			Passed:    EvaluateCondition(condition, ctx),
		})
	}
	return results
}
