package rulegraph

import (
	"fmt"
	"sort"

	"github.com/jbandu/crew-pay/internal/types"
)

/*
 * Graph construction and validation.
 *
 * Load validates the whole graph before returning it:
 *   1. Node validity (codes present, formulas attached, kinds known)
 *   2. Code/id uniqueness across rules and contract terms
 *   3. Edge endpoints reference existing nodes
 *   4. DEPENDS_ON forms a DAG (Kahn topological sort, order retained)
 *   5. No two contract terms define the same pay component for the same
 *      scenario with equal effective priority
 *
 * Why load-time validation: a cycle or dangling reference is a
 * data-integrity error in the rule set, not a runtime condition. Rejecting
 * it here guarantees no calculation ever observes a malformed graph, which
 * is what lets evaluations share a graph without defensive checks.
 */

// Load builds and validates an immutable rule graph.
// Returns a SchemaError describing the first violation found.
func Load(rules []types.Rule, terms []types.ContractTerm, scenarios []types.Scenario,
	components []types.PayComponent, edges Edges) (*Graph, error) {

	g := &Graph{
		rules:      make(map[types.RuleCode]*types.Rule, len(rules)),
		terms:      make(map[types.RuleCode]*types.ContractTerm, len(terms)),
		scenarios:  make(map[types.ScenarioID]*types.Scenario, len(scenarios)),
		components: make(map[types.ComponentKind]*types.PayComponent, len(components)),
		appliesTo:  make(map[types.ScenarioID][]AppliesTo),
		requires:   make(map[types.ScenarioID][]Requires),
		dependsOn:  make(map[types.ComponentKind][]DependsOn),
		supersedes: make(map[types.RuleCode]types.RuleCode),
		modifies:   make(map[types.RuleCode][]Modifies),
	}

	if err := g.indexNodes(rules, terms, scenarios, components); err != nil {
		return nil, err
	}
	if err := g.indexEdges(edges); err != nil {
		return nil, err
	}
	if err := g.sortComponents(); err != nil {
		return nil, err
	}
	if err := g.checkFormulaAmbiguity(); err != nil {
		return nil, err
	}

	g.scenarioOrder = make([]types.ScenarioID, 0, len(g.scenarios))
	for id := range g.scenarios {
		g.scenarioOrder = append(g.scenarioOrder, id)
	}
	sort.Slice(g.scenarioOrder, func(i, j int) bool { return g.scenarioOrder[i] < g.scenarioOrder[j] })

	return g, nil
}

// indexNodes validates node identity and uniqueness and fills the arenas.
func (g *Graph) indexNodes(rules []types.Rule, terms []types.ContractTerm,
	scenarios []types.Scenario, components []types.PayComponent) error {

	for i := range rules {
		r := &rules[i]
		if r.Code == "" {
			return &types.SchemaError{Kind: types.SchemaInvalidNode, Detail: "rule with empty code"}
		}
		if _, dup := g.rules[r.Code]; dup {
			return &types.SchemaError{Kind: types.SchemaDuplicate, Ref: string(r.Code), Detail: "duplicate rule code"}
		}
		g.rules[r.Code] = r
	}

	for i := range terms {
		t := &terms[i]
		if t.Code == "" {
			return &types.SchemaError{Kind: types.SchemaInvalidNode, Detail: "contract term with empty code"}
		}
		if t.Formula == nil {
			return &types.SchemaError{Kind: types.SchemaInvalidNode, Ref: string(t.Code), Detail: "contract term without formula"}
		}
		if _, dup := g.rules[t.Code]; dup {
			return &types.SchemaError{Kind: types.SchemaDuplicate, Ref: string(t.Code), Detail: "code used by both rule and contract term"}
		}
		if _, dup := g.terms[t.Code]; dup {
			return &types.SchemaError{Kind: types.SchemaDuplicate, Ref: string(t.Code), Detail: "duplicate contract term code"}
		}
		g.terms[t.Code] = t
	}

	for i := range scenarios {
		s := &scenarios[i]
		if s.ID == "" {
			return &types.SchemaError{Kind: types.SchemaInvalidNode, Detail: "scenario with empty id"}
		}
		if _, dup := g.scenarios[s.ID]; dup {
			return &types.SchemaError{Kind: types.SchemaDuplicate, Ref: string(s.ID), Detail: "duplicate scenario id"}
		}
		g.scenarios[s.ID] = s
	}

	for i := range components {
		c := &components[i]
		if !types.ValidComponentKind(c.Kind) {
			return &types.SchemaError{Kind: types.SchemaInvalidNode, Ref: string(c.Kind), Detail: "unknown pay component kind"}
		}
		if _, dup := g.components[c.Kind]; dup {
			return &types.SchemaError{Kind: types.SchemaDuplicate, Ref: string(c.Kind), Detail: "duplicate pay component"}
		}
		g.components[c.Kind] = c
	}

	return nil
}

// indexEdges validates edge endpoints and fills adjacency lists.
func (g *Graph) indexEdges(edges Edges) error {
	ruleExists := func(code types.RuleCode) bool {
		_, r := g.rules[code]
		_, t := g.terms[code]
		return r || t
	}

	for _, e := range edges.AppliesTo {
		if !ruleExists(e.RuleCode) {
			return unknownRef("APPLIES_TO", string(e.RuleCode))
		}
		if _, ok := g.scenarios[e.ScenarioID]; !ok {
			return unknownRef("APPLIES_TO", string(e.ScenarioID))
		}
		g.appliesTo[e.ScenarioID] = append(g.appliesTo[e.ScenarioID], e)
	}

	for _, e := range edges.Requires {
		if _, ok := g.scenarios[e.ScenarioID]; !ok {
			return unknownRef("REQUIRES", string(e.ScenarioID))
		}
		if _, ok := g.components[e.Kind]; !ok {
			return unknownRef("REQUIRES", string(e.Kind))
		}
		g.requires[e.ScenarioID] = append(g.requires[e.ScenarioID], e)
	}

	for _, e := range edges.DependsOn {
		if _, ok := g.components[e.Kind]; !ok {
			return unknownRef("DEPENDS_ON", string(e.Kind))
		}
		if _, ok := g.components[e.On]; !ok {
			return unknownRef("DEPENDS_ON", string(e.On))
		}
		g.dependsOn[e.Kind] = append(g.dependsOn[e.Kind], e)
	}

	for _, e := range edges.Conflicts {
		if !ruleExists(e.A) {
			return unknownRef("CONFLICTS_WITH", string(e.A))
		}
		if !ruleExists(e.B) {
			return unknownRef("CONFLICTS_WITH", string(e.B))
		}
		if !ValidResolutionMethod(e.Resolution) {
			return &types.SchemaError{
				Kind: types.SchemaInvalidNode, Ref: string(e.A),
				Detail: fmt.Sprintf("unknown resolution method %q", e.Resolution),
			}
		}
		g.conflicts = append(g.conflicts, e)
	}

	for _, e := range edges.Supersedes {
		if !ruleExists(e.New) {
			return unknownRef("SUPERSEDES", string(e.New))
		}
		if !ruleExists(e.Old) {
			return unknownRef("SUPERSEDES", string(e.Old))
		}
		g.supersedes[e.Old] = e.New
	}

	for _, e := range edges.Modifies {
		if !ruleExists(e.Modifier) {
			return unknownRef("MODIFIES", string(e.Modifier))
		}
		if !ruleExists(e.Target) {
			return unknownRef("MODIFIES", string(e.Target))
		}
		g.modifies[e.Target] = append(g.modifies[e.Target], e)
	}

	return nil
}

func unknownRef(edge, ref string) error {
	return &types.SchemaError{
		Kind:   types.SchemaUnknownRef,
		Ref:    ref,
		Detail: fmt.Sprintf("%s edge references unknown node", edge),
	}
}

// sortComponents runs Kahn's algorithm over DEPENDS_ON and retains the
// topological order. A remaining node after the sort means a cycle.
// Ties break by component presentation priority, then kind, so the order
// is deterministic for identical inputs.
func (g *Graph) sortComponents() error {
	indegree := make(map[types.ComponentKind]int, len(g.components))
	dependents := make(map[types.ComponentKind][]types.ComponentKind)
	for kind := range g.components {
		indegree[kind] = 0
	}
	for kind, deps := range g.dependsOn {
		for _, d := range deps {
			indegree[kind]++
			dependents[d.On] = append(dependents[d.On], kind)
		}
	}

	ready := make([]types.ComponentKind, 0, len(g.components))
	for kind, deg := range indegree {
		if deg == 0 {
			ready = append(ready, kind)
		}
	}
	g.sortReady(ready)

	order := make([]types.ComponentKind, 0, len(g.components))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		var unlocked []types.ComponentKind
		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				unlocked = append(unlocked, dep)
			}
		}
		g.sortReady(unlocked)
		ready = append(ready, unlocked...)
	}

	if len(order) != len(g.components) {
		for kind, deg := range indegree {
			if deg > 0 {
				return &types.SchemaError{
					Kind: types.SchemaDependencyCycle, Ref: string(kind),
					Detail: "DEPENDS_ON edges form a cycle",
				}
			}
		}
	}

	g.componentOrder = order
	return nil
}

func (g *Graph) sortReady(kinds []types.ComponentKind) {
	sort.Slice(kinds, func(i, j int) bool {
		pi, pj := g.components[kinds[i]].Priority, g.components[kinds[j]].Priority
		if pi != pj {
			return pi < pj
		}
		return kinds[i] < kinds[j]
	})
}

// checkFormulaAmbiguity rejects graphs where two contract terms define the
// same pay component for the same scenario with equal effective priority.
// Runtime resolution would have to guess; such a rule set is simply
// wrong, so it is rejected here.
func (g *Graph) checkFormulaAmbiguity() error {
	for sid, edges := range g.appliesTo {
		// (component, priority) -> first term seen
		seen := make(map[string]types.RuleCode)
		for _, e := range edges {
			t, ok := g.terms[e.RuleCode]
			if !ok {
				continue
			}
			prio := e.Priority
			if prio == 0 {
				prio = t.Priority
			}
			key := fmt.Sprintf("%s|%d", t.Formula.Component(), prio)
			if prev, dup := seen[key]; dup && prev != t.Code {
				return &types.SchemaError{
					Kind: types.SchemaAmbiguousFormula,
					Ref:  string(t.Code),
					Detail: fmt.Sprintf("terms %s and %s both define %s for scenario %s at priority %d",
						prev, t.Code, t.Formula.Component(), sid, prio),
				}
			}
			seen[key] = t.Code
		}
	}
	return nil
}
