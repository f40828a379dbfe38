// internal/scenario/matcher.go
package scenario

import (
	"fmt"

	"github.com/jbandu/crew-pay/internal/rulegraph"
	"github.com/jbandu/crew-pay/internal/types"
)

/*
 * Scenario classification.
 *
 * Match evaluates each scenario's predicate against one DutyFacts value.
 * Predicates are DNF (OR of AND groups) with short-circuit on the first
 * matching group, in the order the rule set declared them.
 *
 * Multiple matches are expected and valid: a delayed red-eye matches both
 * delayed_flight_controllable and red_eye_flight. Zero matches is also
 * valid; unconditional components such as base flight pay still evaluate.
 * Only MatchStrict treats an empty result as an error.
 *
 * Missing-field policy: during matching, a condition on an unpopulated
 * fact field evaluates false (the scenario simply is not established).
 * EvaluateStrict instead surfaces the missing field; the resolver uses it
 * for conflict conditions, where guessing is forbidden.
 */

// Match returns the ids of every scenario whose predicate holds for the
// facts, in the graph's deterministic scenario order.
func Match(facts types.DutyFacts, g *rulegraph.Graph) []types.ScenarioID {
	var matched []types.ScenarioID
	for _, s := range g.Scenarios() {
		if Evaluate(s.Predicate, facts) {
			matched = append(matched, s.ID)
		}
	}
	return matched
}

// MatchStrict is Match for callers that require at least one scenario.
// Returns ErrNoApplicablePolicy when nothing matches.
func MatchStrict(facts types.DutyFacts, g *rulegraph.Graph) ([]types.ScenarioID, error) {
	matched := Match(facts, g)
	if len(matched) == 0 {
		return nil, types.ErrNoApplicablePolicy
	}
	return matched, nil
}

// Evaluate reports whether the predicate holds for the facts.
// Conditions on missing fields evaluate false. An empty predicate is true.
func Evaluate(p types.Predicate, facts types.DutyFacts) bool {
	if p.Empty() {
		return true
	}
	for _, group := range p.AnyOf {
		if evaluateGroup(group, facts) {
			return true
		}
	}
	return false
}

// EvaluateStrict is Evaluate but a condition referencing a missing fact
// field is an error naming the field instead of a silent non-match.
func EvaluateStrict(p types.Predicate, facts types.DutyFacts) (bool, error) {
	if p.Empty() {
		return true, nil
	}
	var firstErr error
	for _, group := range p.AnyOf {
		matched, err := evaluateGroupStrict(group, facts)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if matched {
			return true, nil
		}
	}
	if firstErr != nil {
		return false, firstErr
	}
	return false, nil
}

// evaluateGroup evaluates an AND group; short-circuits on first non-match.
func evaluateGroup(group types.AndGroup, facts types.DutyFacts) bool {
	for _, cond := range group.Conditions {
		value, ok := facts.Field(cond.Field)
		if !ok {
			return false
		}
		if !Compare(cond, value) {
			return false
		}
	}
	return true
}

func evaluateGroupStrict(group types.AndGroup, facts types.DutyFacts) (bool, error) {
	for _, cond := range group.Conditions {
		value, ok := facts.Field(cond.Field)
		if !ok {
			return false, fmt.Errorf("fact field %q not populated", cond.Field)
		}
		if !Compare(cond, value) {
			return false, nil
		}
	}
	return true, nil
}

// MissingFields returns the predicate fields not populated in the facts.
// Used by the resolver to name the field that blocked conflict resolution.
func MissingFields(p types.Predicate, facts types.DutyFacts) []string {
	var missing []string
	for _, f := range p.Fields() {
		if _, ok := facts.Field(f); !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
