// internal/rulegraph/load_test.go
package rulegraph

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jbandu/crew-pay/internal/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

var jan1 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func validInputs() ([]types.Rule, []types.ContractTerm, []types.Scenario, []types.PayComponent, Edges) {
	rules := []types.Rule{
		{Code: "FAR-117.11", Category: "regulatory", Priority: 100, EffectiveDate: jan1},
	}
	terms := []types.ContractTerm{
		{
			Rule:    types.Rule{Code: "CBA-5.2", Category: "contract", Priority: 50, EffectiveDate: jan1},
			Formula: types.Overtime{ThresholdHours: dec("70"), Multiplier: dec("1.5")},
		},
	}
	scenarios := []types.Scenario{
		{ID: "high_time_month"},
	}
	components := []types.PayComponent{
		{Kind: types.KindFlightPay, Priority: 1},
		{Kind: types.KindOvertime, Priority: 2},
		{Kind: types.KindGuarantee, Priority: 3},
	}
	edges := Edges{
		AppliesTo: []AppliesTo{
			{RuleCode: "FAR-117.11", ScenarioID: "high_time_month"},
			{RuleCode: "CBA-5.2", ScenarioID: "high_time_month"},
		},
		Requires: []Requires{
			{ScenarioID: "high_time_month", Kind: types.KindOvertime, Mandatory: true},
		},
		DependsOn: []DependsOn{
			{Kind: types.KindOvertime, On: types.KindFlightPay, DepType: DepInput},
			{Kind: types.KindGuarantee, On: types.KindFlightPay, DepType: DepInput},
		},
	}
	return rules, terms, scenarios, components, edges
}

func TestLoad_Valid(t *testing.T) {
	rules, terms, scenarios, components, edges := validInputs()

	g, err := Load(rules, terms, scenarios, components, edges)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if _, ok := g.Rule("FAR-117.11"); !ok {
		t.Error("Rule(FAR-117.11) not found")
	}
	if _, ok := g.Rule("CBA-5.2"); !ok {
		t.Error("Rule(CBA-5.2) not found via unified lookup")
	}
	if _, ok := g.Term("CBA-5.2"); !ok {
		t.Error("Term(CBA-5.2) not found")
	}

	applied := g.RulesApplyingTo("high_time_month")
	if len(applied) != 2 {
		t.Fatalf("len(RulesApplyingTo) = %d, want 2", len(applied))
	}
	// priority 100 regulatory rule sorts first
	if applied[0].Rule.Code != "FAR-117.11" {
		t.Errorf("RulesApplyingTo[0] = %v, want FAR-117.11", applied[0].Rule.Code)
	}
}

func TestLoad_ComponentOrderRespectsDependencies(t *testing.T) {
	rules, terms, scenarios, components, edges := validInputs()

	g, err := Load(rules, terms, scenarios, components, edges)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	order := g.ComponentOrder()
	pos := make(map[types.ComponentKind]int, len(order))
	for i, k := range order {
		pos[k] = i
	}
	if pos[types.KindFlightPay] > pos[types.KindOvertime] {
		t.Errorf("flight_pay at %d after overtime at %d", pos[types.KindFlightPay], pos[types.KindOvertime])
	}
	if pos[types.KindFlightPay] > pos[types.KindGuarantee] {
		t.Errorf("flight_pay at %d after guarantee at %d", pos[types.KindFlightPay], pos[types.KindGuarantee])
	}
}

func TestLoad_DependencyCycle(t *testing.T) {
	rules, terms, scenarios, components, edges := validInputs()
	edges.DependsOn = append(edges.DependsOn,
		DependsOn{Kind: types.KindFlightPay, On: types.KindOvertime, DepType: DepInput})

	_, err := Load(rules, terms, scenarios, components, edges)
	var se *types.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("Load() error = %v, want SchemaError", err)
	}
	if se.Kind != types.SchemaDependencyCycle {
		t.Errorf("SchemaError.Kind = %v, want DEPENDENCY_CYCLE", se.Kind)
	}
}

func TestLoad_DuplicateCodeAcrossRuleAndTerm(t *testing.T) {
	rules, terms, scenarios, components, edges := validInputs()
	terms = append(terms, types.ContractTerm{
		Rule:    types.Rule{Code: "FAR-117.11", EffectiveDate: jan1},
		Formula: types.PerDiem{Rate: dec("2.5")},
	})

	_, err := Load(rules, terms, scenarios, components, edges)
	var se *types.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("Load() error = %v, want SchemaError", err)
	}
	if se.Kind != types.SchemaDuplicate {
		t.Errorf("SchemaError.Kind = %v, want DUPLICATE", se.Kind)
	}
}

func TestLoad_UnknownEdgeReference(t *testing.T) {
	rules, terms, scenarios, components, edges := validInputs()
	edges.AppliesTo = append(edges.AppliesTo,
		AppliesTo{RuleCode: "NO-SUCH-RULE", ScenarioID: "high_time_month"})

	_, err := Load(rules, terms, scenarios, components, edges)
	var se *types.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("Load() error = %v, want SchemaError", err)
	}
	if se.Kind != types.SchemaUnknownRef {
		t.Errorf("SchemaError.Kind = %v, want UNKNOWN_REF", se.Kind)
	}
	if se.Ref != "NO-SUCH-RULE" {
		t.Errorf("SchemaError.Ref = %v, want NO-SUCH-RULE", se.Ref)
	}
}

func TestLoad_TermWithoutFormula(t *testing.T) {
	rules, terms, scenarios, components, edges := validInputs()
	terms = append(terms, types.ContractTerm{
		Rule: types.Rule{Code: "CBA-9.9", EffectiveDate: jan1},
	})

	_, err := Load(rules, terms, scenarios, components, edges)
	var se *types.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("Load() error = %v, want SchemaError", err)
	}
	if se.Kind != types.SchemaInvalidNode {
		t.Errorf("SchemaError.Kind = %v, want INVALID_NODE", se.Kind)
	}
}

func TestLoad_InvalidResolutionMethod(t *testing.T) {
	rules, terms, scenarios, components, edges := validInputs()
	edges.Conflicts = []ConflictsWith{
		{A: "FAR-117.11", B: "CBA-5.2", Resolution: "coin_flip"},
	}

	_, err := Load(rules, terms, scenarios, components, edges)
	if !types.IsSchemaError(err) {
		t.Fatalf("Load() error = %v, want SchemaError", err)
	}
}

func TestLoad_AmbiguousFormula(t *testing.T) {
	rules, terms, scenarios, components, edges := validInputs()

	// Second overtime term for the same scenario at the same priority:
	// the winner would be a guess, so the rule set is rejected.
	terms = append(terms, types.ContractTerm{
		Rule:    types.Rule{Code: "CBA-5.3", Category: "contract", Priority: 50, EffectiveDate: jan1},
		Formula: types.Overtime{ThresholdHours: dec("75"), Multiplier: dec("2")},
	})
	edges.AppliesTo = append(edges.AppliesTo,
		AppliesTo{RuleCode: "CBA-5.3", ScenarioID: "high_time_month"})

	_, err := Load(rules, terms, scenarios, components, edges)
	var se *types.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("Load() error = %v, want SchemaError", err)
	}
	if se.Kind != types.SchemaAmbiguousFormula {
		t.Errorf("SchemaError.Kind = %v, want AMBIGUOUS_FORMULA", se.Kind)
	}
}

func TestLoad_SamePriorityDifferentScenariosAllowed(t *testing.T) {
	rules, terms, scenarios, components, edges := validInputs()

	scenarios = append(scenarios, types.Scenario{ID: "other_scenario"})
	terms = append(terms, types.ContractTerm{
		Rule:    types.Rule{Code: "CBA-5.3", Category: "contract", Priority: 50, EffectiveDate: jan1},
		Formula: types.Overtime{ThresholdHours: dec("75"), Multiplier: dec("2")},
	})
	edges.AppliesTo = append(edges.AppliesTo,
		AppliesTo{RuleCode: "CBA-5.3", ScenarioID: "other_scenario"})

	if _, err := Load(rules, terms, scenarios, components, edges); err != nil {
		t.Fatalf("Load() error = %v, want nil (ambiguity is per-scenario)", err)
	}
}

func TestGraph_EdgePriorityOverridesRulePriority(t *testing.T) {
	rules, terms, scenarios, components, edges := validInputs()
	// Edge priority 200 lifts the contract term above the regulatory rule.
	edges.AppliesTo[1].Priority = 200

	g, err := Load(rules, terms, scenarios, components, edges)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	applied := g.RulesApplyingTo("high_time_month")
	if applied[0].Rule.Code != "CBA-5.2" {
		t.Errorf("RulesApplyingTo[0] = %v, want CBA-5.2 (edge priority 200)", applied[0].Rule.Code)
	}
	if applied[0].Priority != 200 {
		t.Errorf("effective priority = %d, want 200", applied[0].Priority)
	}
}
