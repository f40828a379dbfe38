// Package rulegraph holds the in-memory rule graph: regulatory rules,
// contract terms, scenarios, pay components, and the typed edges between
// them.
//
// The graph is an arena of nodes addressed by stable string keys with typed
// edge lists, not pointer-linked objects. A graph is built once per
// rule-set version by Load, validated up front, and never mutated after
// publication: rule changes produce a new instance, so in-flight
// calculations can share a graph by reference without locking.
package rulegraph

import (
	"sort"

	"github.com/jbandu/crew-pay/internal/types"
)

// DependencyType qualifies a DEPENDS_ON edge between pay components.
type DependencyType string

const (
	DepInput        DependencyType = "input"
	DepModifier     DependencyType = "modifier"
	DepPrerequisite DependencyType = "prerequisite"
)

// ResolutionMethod is the closed set of conflict resolution strategies.
type ResolutionMethod string

const (
	// MostRestrictive picks the rule yielding the smaller permitted value.
	MostRestrictive ResolutionMethod = "most_restrictive"

	// MostRecent picks the rule with the later effective date.
	MostRecent ResolutionMethod = "most_recent"

	// ConditionalOverride defers to a MODIFIES edge whose own conditions
	// must hold against the duty facts.
	ConditionalOverride ResolutionMethod = "conditional_override"
)

// ValidResolutionMethod reports whether m is a known strategy.
func ValidResolutionMethod(m ResolutionMethod) bool {
	switch m {
	case MostRestrictive, MostRecent, ConditionalOverride:
		return true
	}
	return false
}

// AppliesTo links a rule or contract term to a scenario it governs.
// Priority zero defers to the rule's own priority.
type AppliesTo struct {
	RuleCode   types.RuleCode
	ScenarioID types.ScenarioID
	Priority   int
	Conditions types.Predicate // must hold for the edge to activate
	Exceptions types.Predicate // if they hold, the edge is suppressed
}

// Requires links a scenario to a pay component it activates.
type Requires struct {
	ScenarioID types.ScenarioID
	Kind       types.ComponentKind
	Mandatory  bool
	Conditions types.Predicate // conditional activation, empty = always
}

// DependsOn orders pay component evaluation: Kind is evaluated after On.
type DependsOn struct {
	Kind    types.ComponentKind
	On      types.ComponentKind
	DepType DependencyType
}

// ConflictsWith declares two rules mutually exclusive and names the
// strategy that picks a winner.
type ConflictsWith struct {
	A          types.RuleCode
	B          types.RuleCode
	Resolution ResolutionMethod
}

// Supersedes declares that New replaces Old once New is effective.
type Supersedes struct {
	New types.RuleCode
	Old types.RuleCode
}

// Modifies declares a conditional override: Modifier displaces Target
// only while Conditions hold against the duty facts.
type Modifies struct {
	Modifier   types.RuleCode
	Target     types.RuleCode
	Conditions types.Predicate
}

// Edges bundles every edge list handed to Load.
type Edges struct {
	AppliesTo  []AppliesTo
	Requires   []Requires
	DependsOn  []DependsOn
	Conflicts  []ConflictsWith
	Supersedes []Supersedes
	Modifies   []Modifies
}

// AppliedRule is a rule or contract term reachable from a scenario via an
// APPLIES_TO edge. Term is nil for plain regulatory rules. Priority is the
// effective precedence (edge priority when set, else rule priority).
type AppliedRule struct {
	Rule     *types.Rule
	Term     *types.ContractTerm
	Priority int
	Edge     AppliesTo
}

// Graph is the immutable, validated rule graph snapshot.
type Graph struct {
	rules      map[types.RuleCode]*types.Rule
	terms      map[types.RuleCode]*types.ContractTerm
	scenarios  map[types.ScenarioID]*types.Scenario
	components map[types.ComponentKind]*types.PayComponent

	appliesTo  map[types.ScenarioID][]AppliesTo
	requires   map[types.ScenarioID][]Requires
	dependsOn  map[types.ComponentKind][]DependsOn
	conflicts  []ConflictsWith
	supersedes map[types.RuleCode]types.RuleCode // old -> new
	modifies   map[types.RuleCode][]Modifies     // target -> modifiers

	componentOrder []types.ComponentKind // DEPENDS_ON topological order
	scenarioOrder  []types.ScenarioID    // sorted, for deterministic iteration
}

// Rule returns the rule portion of the node with the given code, whether
// it is a plain rule or a contract term.
func (g *Graph) Rule(code types.RuleCode) (*types.Rule, bool) {
	if r, ok := g.rules[code]; ok {
		return r, true
	}
	if t, ok := g.terms[code]; ok {
		return &t.Rule, true
	}
	return nil, false
}

// Term returns the contract term with the given code.
func (g *Graph) Term(code types.RuleCode) (*types.ContractTerm, bool) {
	t, ok := g.terms[code]
	return t, ok
}

// Scenario returns the scenario with the given id.
func (g *Graph) Scenario(id types.ScenarioID) (*types.Scenario, bool) {
	s, ok := g.scenarios[id]
	return s, ok
}

// Scenarios returns every scenario in deterministic (id-sorted) order.
func (g *Graph) Scenarios() []*types.Scenario {
	out := make([]*types.Scenario, 0, len(g.scenarioOrder))
	for _, id := range g.scenarioOrder {
		out = append(out, g.scenarios[id])
	}
	return out
}

// RulesApplyingTo returns the rules and terms reachable from a scenario,
// ordered by effective priority descending, code ascending on ties.
func (g *Graph) RulesApplyingTo(id types.ScenarioID) []AppliedRule {
	edges := g.appliesTo[id]
	out := make([]AppliedRule, 0, len(edges))
	for _, e := range edges {
		ar := AppliedRule{Edge: e}
		if t, ok := g.terms[e.RuleCode]; ok {
			ar.Term = t
			ar.Rule = &t.Rule
		} else {
			ar.Rule = g.rules[e.RuleCode]
		}
		ar.Priority = e.Priority
		if ar.Priority == 0 {
			ar.Priority = ar.Rule.Priority
		}
		out = append(out, ar)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Rule.Code < out[j].Rule.Code
	})
	return out
}

// ComponentsRequiredBy returns the REQUIRES edges of a scenario.
func (g *Graph) ComponentsRequiredBy(id types.ScenarioID) []Requires {
	return g.requires[id]
}

// DependenciesOf returns the DEPENDS_ON edges leaving a component.
func (g *Graph) DependenciesOf(kind types.ComponentKind) []DependsOn {
	return g.dependsOn[kind]
}

// ComponentOrder returns the load-time topological order of pay
// components: every component appears after all of its dependencies.
func (g *Graph) ComponentOrder() []types.ComponentKind {
	out := make([]types.ComponentKind, len(g.componentOrder))
	copy(out, g.componentOrder)
	return out
}

// ConflictBetween returns the CONFLICTS_WITH edge touching the pair, in
// either direction.
func (g *Graph) ConflictBetween(a, b types.RuleCode) (ConflictsWith, bool) {
	for _, c := range g.conflicts {
		if (c.A == a && c.B == b) || (c.A == b && c.B == a) {
			return c, true
		}
	}
	return ConflictsWith{}, false
}

// ConflictsAmong returns every CONFLICTS_WITH edge whose both endpoints
// are in the given set.
func (g *Graph) ConflictsAmong(set map[types.RuleCode]bool) []ConflictsWith {
	var out []ConflictsWith
	for _, c := range g.conflicts {
		if set[c.A] && set[c.B] {
			out = append(out, c)
		}
	}
	return out
}

// ModifiersOf returns the MODIFIES edges targeting a rule.
func (g *Graph) ModifiersOf(target types.RuleCode) []Modifies {
	return g.modifies[target]
}

// ModifiesBetween returns the MODIFIES edge connecting the pair in either
// direction, if one exists.
func (g *Graph) ModifiesBetween(a, b types.RuleCode) (Modifies, bool) {
	for _, m := range g.modifies[b] {
		if m.Modifier == a {
			return m, true
		}
	}
	for _, m := range g.modifies[a] {
		if m.Modifier == b {
			return m, true
		}
	}
	return Modifies{}, false
}

// SupersededBy returns the rule that supersedes old, if any.
func (g *Graph) SupersededBy(old types.RuleCode) (types.RuleCode, bool) {
	n, ok := g.supersedes[old]
	return n, ok
}
