// internal/resolver/conflicts.go
package resolver

import (
	"github.com/jbandu/crew-pay/internal/rulegraph"
	"github.com/jbandu/crew-pay/internal/scenario"
	"github.com/jbandu/crew-pay/internal/types"
)

/*
 * Conflict resolution strategies.
 *
 * Each CONFLICTS_WITH edge names one strategy from a closed enum:
 *
 *   most_restrictive     smaller permitted value (Limit) wins
 *   most_recent          later effective date wins
 *   conditional_override MODIFIES edge decides, gated by its conditions
 *
 * A MODIFIES edge between the pair takes precedence over the declared
 * strategy, but only while its own activation conditions hold against the
 * duty facts. When the conditions do not hold, a conditional_override
 * conflict falls back to the target (the extension is rejected, never
 * applied by default); other strategies fall back to their own rule.
 *
 * When a strategy cannot be evaluated from the given facts or rule data
 * (missing Limit, unpopulated fact field in override conditions), the
 * conflict surfaces as ConflictUnresolvedError naming both rule codes.
 * The resolver never guesses.
 */

// resolveConflict returns the winning rule code for one conflict edge.
func resolveConflict(g *rulegraph.Graph, c rulegraph.ConflictsWith,
	a, b rulegraph.AppliedRule, facts types.DutyFacts) (types.RuleCode, error) {

	if m, ok := g.ModifiesBetween(c.A, c.B); ok {
		active, err := scenario.EvaluateStrict(m.Conditions, facts)
		if err != nil {
			return "", unresolved(c, missingField(m.Conditions, facts))
		}
		if active {
			return m.Modifier, nil
		}
		if c.Resolution == rulegraph.ConditionalOverride {
			// override conditions fail: the base rule stands
			return m.Target, nil
		}
		// inactive modifier defers to the declared strategy
	}

	switch c.Resolution {
	case rulegraph.MostRestrictive:
		return mostRestrictive(c, a, b)
	case rulegraph.MostRecent:
		return mostRecent(a, b), nil
	case rulegraph.ConditionalOverride:
		// no MODIFIES edge carries the override: fall back to priority
		if a.Priority != b.Priority {
			return higherPriority(a, b), nil
		}
		return "", unresolved(c, "priority")
	}
	return "", unresolved(c, "")
}

// mostRestrictive picks the rule with the smaller permitted value.
// Both rules must carry a Limit; equal limits fall back to priority.
func mostRestrictive(c rulegraph.ConflictsWith, a, b rulegraph.AppliedRule) (types.RuleCode, error) {
	if a.Rule.Limit == nil || b.Rule.Limit == nil {
		return "", unresolved(c, "limit")
	}
	switch a.Rule.Limit.Cmp(*b.Rule.Limit) {
	case -1:
		return a.Rule.Code, nil
	case 1:
		return b.Rule.Code, nil
	}
	return higherPriority(a, b), nil
}

// mostRecent picks the later effective date, falling back to priority and
// then code order so identical inputs always resolve identically.
func mostRecent(a, b rulegraph.AppliedRule) types.RuleCode {
	if a.Rule.EffectiveDate.After(b.Rule.EffectiveDate) {
		return a.Rule.Code
	}
	if b.Rule.EffectiveDate.After(a.Rule.EffectiveDate) {
		return b.Rule.Code
	}
	return higherPriority(a, b)
}

func higherPriority(a, b rulegraph.AppliedRule) types.RuleCode {
	if a.Priority != b.Priority {
		if a.Priority > b.Priority {
			return a.Rule.Code
		}
		return b.Rule.Code
	}
	if a.Rule.Code < b.Rule.Code {
		return a.Rule.Code
	}
	return b.Rule.Code
}

func unresolved(c rulegraph.ConflictsWith, missing string) error {
	return &types.ConflictUnresolvedError{
		RuleA:        c.A,
		RuleB:        c.B,
		Method:       string(c.Resolution),
		MissingField: missing,
	}
}

func missingField(p types.Predicate, facts types.DutyFacts) string {
	if fields := scenario.MissingFields(p, facts); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
