// internal/resolver/resolver.go
package resolver

import (
	"sort"
	"time"

	"github.com/jbandu/crew-pay/internal/rulegraph"
	"github.com/jbandu/crew-pay/internal/scenario"
	"github.com/jbandu/crew-pay/internal/types"
)

/*
 * Rule resolution.
 *
 * Resolve turns matched scenarios into one ordered, non-conflicting rule
 * set for a crew position:
 *   1. Collect rules/terms reachable via APPLIES_TO from any matched
 *      scenario, filtered by crew position, effective window, edge
 *      conditions/exceptions, and the rule's own condition predicate
 *   2. Drop rules displaced by an effective SUPERSEDES successor
 *   3. Detect pairwise CONFLICTS_WITH inside the collected set and resolve
 *      each by its edge's strategy (conflicts.go)
 *   4. Order survivors by priority descending, code ascending on ties
 *
 * The resulting order is authoritative precedence for reporting and audit.
 * Component evaluation order is NOT taken from it; that comes from the
 * DEPENDS_ON topology. The order does decide which contract term's formula
 * wins when two terms define the same pay component (higher priority wins;
 * equal priority for the same scenario was rejected at graph load).
 *
 * A rule whose own condition references an unpopulated fact field is
 * treated as not applicable: conditions assert positive applicability, and
 * absence of evidence is absence of the rule. Conflict-resolution
 * conditions are the opposite: guessing a winner is forbidden, so a
 * missing field there surfaces as ConflictUnresolvedError.
 */

// ResolvedConflict records how one rule conflict was decided, for audit.
type ResolvedConflict struct {
	A      types.RuleCode
	B      types.RuleCode
	Method rulegraph.ResolutionMethod
	Winner types.RuleCode
}

// ResolvedRuleSet is the ordered, conflict-free output of Resolve.
// It retains the graph reference so downstream stages can query REQUIRES
// and DEPENDS_ON topology for the same snapshot the rules came from.
type ResolvedRuleSet struct {
	graph     *rulegraph.Graph
	AsOf      time.Time
	Position  types.CrewPosition
	Scenarios []types.ScenarioID
	Rules     []rulegraph.AppliedRule // priority desc, code asc
	Formulas  map[types.ComponentKind]*types.ContractTerm
	Conflicts []ResolvedConflict
}

// Graph returns the snapshot the rule set was resolved against.
func (rs *ResolvedRuleSet) Graph() *rulegraph.Graph { return rs.graph }

// Codes returns the surviving rule codes in precedence order.
func (rs *ResolvedRuleSet) Codes() []types.RuleCode {
	out := make([]types.RuleCode, len(rs.Rules))
	for i, ar := range rs.Rules {
		out[i] = ar.Rule.Code
	}
	return out
}

// FormulaFor returns the winning contract term for a pay component.
func (rs *ResolvedRuleSet) FormulaFor(kind types.ComponentKind) (*types.ContractTerm, bool) {
	t, ok := rs.Formulas[kind]
	return t, ok
}

// Resolve collects, de-conflicts, and orders the rules applying to the
// matched scenarios for one crew position at one instant.
func Resolve(g *rulegraph.Graph, scenarioIDs []types.ScenarioID, position types.CrewPosition,
	facts types.DutyFacts, asOf time.Time) (*ResolvedRuleSet, error) {

	collected := collect(g, scenarioIDs, position, facts, asOf)
	dropSuperseded(g, collected, asOf)

	set := make(map[types.RuleCode]bool, len(collected))
	for code := range collected {
		set[code] = true
	}

	var resolved []ResolvedConflict
	for _, c := range g.ConflictsAmong(set) {
		if !set[c.A] || !set[c.B] {
			// loser of an earlier conflict already removed
			continue
		}
		winner, err := resolveConflict(g, c, collected[c.A], collected[c.B], facts)
		if err != nil {
			return nil, err
		}
		loser := c.A
		if winner == c.A {
			loser = c.B
		}
		delete(collected, loser)
		delete(set, loser)
		resolved = append(resolved, ResolvedConflict{A: c.A, B: c.B, Method: c.Resolution, Winner: winner})
	}

	rules := make([]rulegraph.AppliedRule, 0, len(collected))
	for _, ar := range collected {
		rules = append(rules, ar)
	}
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].Rule.Code < rules[j].Rule.Code
	})

	rs := &ResolvedRuleSet{
		graph:     g,
		AsOf:      asOf,
		Position:  position,
		Scenarios: scenarioIDs,
		Rules:     rules,
		Formulas:  winningFormulas(rules),
		Conflicts: resolved,
	}
	return rs, nil
}

// collect gathers applicable rules, keeping the highest effective priority
// when a rule is reachable from several scenarios.
func collect(g *rulegraph.Graph, scenarioIDs []types.ScenarioID, position types.CrewPosition,
	facts types.DutyFacts, asOf time.Time) map[types.RuleCode]rulegraph.AppliedRule {

	collected := make(map[types.RuleCode]rulegraph.AppliedRule)
	for _, sid := range scenarioIDs {
		for _, ar := range g.RulesApplyingTo(sid) {
			if !ar.Rule.AppliesToPosition(position) {
				continue
			}
			if !ar.Rule.EffectiveAt(asOf) {
				continue
			}
			if !scenario.Evaluate(ar.Edge.Conditions, facts) {
				continue
			}
			if !ar.Edge.Exceptions.Empty() && scenario.Evaluate(ar.Edge.Exceptions, facts) {
				continue
			}
			if !scenario.Evaluate(ar.Rule.Condition, facts) {
				continue
			}
			if prev, ok := collected[ar.Rule.Code]; !ok || ar.Priority > prev.Priority {
				collected[ar.Rule.Code] = ar
			}
		}
	}
	return collected
}

// dropSuperseded removes rules whose SUPERSEDES successor is collected and
// effective. Superseded rules stay in the graph for historical
// recalculation; they just lose to their successor when both apply.
func dropSuperseded(g *rulegraph.Graph, collected map[types.RuleCode]rulegraph.AppliedRule, asOf time.Time) {
	for code := range collected {
		successor, ok := g.SupersededBy(code)
		if !ok {
			continue
		}
		if succ, inSet := collected[successor]; inSet && succ.Rule.EffectiveAt(asOf) {
			delete(collected, code)
		}
	}
}

// winningFormulas picks the highest-priority contract term per component.
// Rules arrive pre-sorted, so the first term seen for a kind wins.
func winningFormulas(rules []rulegraph.AppliedRule) map[types.ComponentKind]*types.ContractTerm {
	formulas := make(map[types.ComponentKind]*types.ContractTerm)
	for _, ar := range rules {
		if ar.Term == nil {
			continue
		}
		kind := ar.Term.Formula.Component()
		if _, taken := formulas[kind]; !taken {
			formulas[kind] = ar.Term
		}
	}
	return formulas
}
