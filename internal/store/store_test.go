// internal/store/store_test.go
package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jbandu/crew-pay/internal/core/db"
	"github.com/jbandu/crew-pay/internal/rulegraph"
	"github.com/jbandu/crew-pay/internal/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

var (
	jan1 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jul1 = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
)

// openStore migrates a throwaway sqlite file and returns its query registry.
func openStore(t *testing.T) *db.Queries {
	t.Helper()

	conn, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("Open() error = %v, want nil", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.MigrateUp(conn); err != nil {
		t.Fatalf("MigrateUp() error = %v, want nil", err)
	}

	q, err := db.LoadQueries(conn)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v, want nil", err)
	}
	return q
}

func fixtureRuleSet() *RuleSet {
	fdpLimit := dec("13")
	oldLimit := dec("14")

	return &RuleSet{
		Rules: []types.Rule{
			{
				Code:          "FAR-117.11",
				Category:      "regulatory",
				Priority:      100,
				EffectiveDate: jul1,
				AppliesTo:     []types.CrewPosition{types.PositionCaptain, types.PositionFirstOfficer},
				Condition:     types.All(types.Condition{Field: types.FieldDutyHours, Op: types.OpGt, Value: 8}),
				Limit:         &fdpLimit,
			},
			{
				Code:          "FAR-117.OLD",
				Category:      "regulatory",
				Priority:      100,
				EffectiveDate: jan1,
				Limit:         &oldLimit,
			},
		},
		Terms: []types.ContractTerm{
			{
				Rule: types.Rule{
					Code:           "CBA-5.2",
					Category:       "contract",
					Priority:       50,
					EffectiveDate:  jan1,
					ExpirationDate: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
				},
				Formula: types.Overtime{ThresholdHours: dec("70"), Multiplier: dec("1.5")},
			},
		},
		Scenarios: []types.Scenario{
			{
				ID:         "high_time_month",
				Complexity: "moderate",
				Predicate: types.All(
					types.Condition{Field: types.FieldMonthToDate, Op: types.OpGte, Value: 60},
				),
			},
		},
		Components: []types.PayComponent{
			{Kind: types.KindFlightPay, Priority: 1},
			{Kind: types.KindOvertime, Priority: 2},
		},
		Edges: rulegraph.Edges{
			AppliesTo: []rulegraph.AppliesTo{
				{RuleCode: "FAR-117.11", ScenarioID: "high_time_month", Priority: 120},
				{RuleCode: "CBA-5.2", ScenarioID: "high_time_month"},
			},
			Requires: []rulegraph.Requires{
				{ScenarioID: "high_time_month", Kind: types.KindOvertime, Mandatory: true},
			},
			DependsOn: []rulegraph.DependsOn{
				{Kind: types.KindOvertime, On: types.KindFlightPay, DepType: rulegraph.DepInput},
			},
			Conflicts: []rulegraph.ConflictsWith{
				{A: "FAR-117.11", B: "FAR-117.OLD", Resolution: rulegraph.MostRestrictive},
			},
			Supersedes: []rulegraph.Supersedes{
				{New: "FAR-117.11", Old: "FAR-117.OLD"},
			},
			Modifies: []rulegraph.Modifies{
				{
					Modifier: "CBA-5.2",
					Target:   "FAR-117.11",
					Conditions: types.All(
						types.Condition{Field: types.FieldPICApproval, Op: types.OpEq, Value: true},
					),
				},
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	q := openStore(t)

	if err := Save(q, fixtureRuleSet()); err != nil {
		t.Fatalf("Save() error = %v, want nil", err)
	}

	got, err := LoadRuleSet(q)
	if err != nil {
		t.Fatalf("LoadRuleSet() error = %v, want nil", err)
	}

	if len(got.Rules) != 2 || len(got.Terms) != 1 {
		t.Fatalf("loaded %d rules / %d terms, want 2 / 1", len(got.Rules), len(got.Terms))
	}

	var fdp *types.Rule
	for i := range got.Rules {
		if got.Rules[i].Code == "FAR-117.11" {
			fdp = &got.Rules[i]
		}
	}
	if fdp == nil {
		t.Fatal("FAR-117.11 not loaded")
	}
	if fdp.Category != "regulatory" || fdp.Priority != 100 {
		t.Errorf("rule fields = %s/%d, want regulatory/100", fdp.Category, fdp.Priority)
	}
	if !fdp.EffectiveDate.Equal(jul1) {
		t.Errorf("EffectiveDate = %v, want %v", fdp.EffectiveDate, jul1)
	}
	if len(fdp.AppliesTo) != 2 || fdp.AppliesTo[0] != types.PositionCaptain {
		t.Errorf("AppliesTo = %v, want [CA FO]", fdp.AppliesTo)
	}
	if fdp.Limit == nil || !fdp.Limit.Equal(dec("13")) {
		t.Errorf("Limit = %v, want 13", fdp.Limit)
	}
	if len(fdp.Condition.AnyOf) != 1 || fdp.Condition.AnyOf[0].Conditions[0].Field != types.FieldDutyHours {
		t.Errorf("Condition = %+v, want duty_hours predicate", fdp.Condition)
	}

	term := got.Terms[0]
	if term.Code != "CBA-5.2" {
		t.Fatalf("term code = %v, want CBA-5.2", term.Code)
	}
	if term.ExpirationDate.IsZero() {
		t.Error("ExpirationDate lost in round trip")
	}
	ot, ok := term.Formula.(types.Overtime)
	if !ok {
		t.Fatalf("term formula = %T, want Overtime", term.Formula)
	}
	if !ot.ThresholdHours.Equal(dec("70")) || !ot.Multiplier.Equal(dec("1.5")) {
		t.Errorf("formula = %+v, want threshold 70 multiplier 1.5", ot)
	}

	if len(got.Scenarios) != 1 {
		t.Fatalf("loaded %d scenarios, want 1", len(got.Scenarios))
	}
	sc := got.Scenarios[0]
	if sc.ID != "high_time_month" || sc.Complexity != "moderate" {
		t.Errorf("scenario = %s/%s, want high_time_month/moderate", sc.ID, sc.Complexity)
	}
	if len(sc.Predicate.AnyOf) != 1 || sc.Predicate.AnyOf[0].Conditions[0].Op != types.OpGte {
		t.Errorf("predicate = %+v, want one gte condition", sc.Predicate)
	}

	if len(got.Components) != 2 {
		t.Errorf("loaded %d components, want 2", len(got.Components))
	}

	e := got.Edges
	if len(e.AppliesTo) != 2 || len(e.Requires) != 1 || len(e.DependsOn) != 1 ||
		len(e.Conflicts) != 1 || len(e.Supersedes) != 1 || len(e.Modifies) != 1 {
		t.Fatalf("edge counts = %d/%d/%d/%d/%d/%d, want 2/1/1/1/1/1",
			len(e.AppliesTo), len(e.Requires), len(e.DependsOn),
			len(e.Conflicts), len(e.Supersedes), len(e.Modifies))
	}
	for _, a := range e.AppliesTo {
		if a.RuleCode == "FAR-117.11" && a.Priority != 120 {
			t.Errorf("applies_to edge priority = %d, want 120", a.Priority)
		}
	}
	if !e.Requires[0].Mandatory {
		t.Error("requires edge lost Mandatory flag")
	}
	if e.DependsOn[0].DepType != rulegraph.DepInput {
		t.Errorf("depends_on DepType = %v, want input", e.DependsOn[0].DepType)
	}
	if e.Conflicts[0].Resolution != rulegraph.MostRestrictive {
		t.Errorf("conflict Resolution = %v, want most_restrictive", e.Conflicts[0].Resolution)
	}
	if e.Supersedes[0].New != "FAR-117.11" || e.Supersedes[0].Old != "FAR-117.OLD" {
		t.Errorf("supersedes edge = %+v, want FAR-117.11 -> FAR-117.OLD", e.Supersedes[0])
	}
	if len(e.Modifies[0].Conditions.AnyOf) != 1 {
		t.Errorf("modifies conditions = %+v, want one group", e.Modifies[0].Conditions)
	}
}

func TestLoad_BuildsValidatedGraph(t *testing.T) {
	q := openStore(t)
	if err := Save(q, fixtureRuleSet()); err != nil {
		t.Fatalf("Save() error = %v, want nil", err)
	}

	g, err := Load(q)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if _, ok := g.Rule("FAR-117.11"); !ok {
		t.Error("Rule(FAR-117.11) not in loaded graph")
	}
	if _, ok := g.Term("CBA-5.2"); !ok {
		t.Error("Term(CBA-5.2) not in loaded graph")
	}
	order := g.ComponentOrder()
	if len(order) != 2 || order[0] != types.KindFlightPay {
		t.Errorf("ComponentOrder = %v, want flight_pay first", order)
	}
}

func TestLoad_InvalidRuleSetRejected(t *testing.T) {
	q := openStore(t)

	rs := fixtureRuleSet()
	// introduce a dependency cycle; LoadRuleSet tolerates it, Load must not
	rs.Edges.DependsOn = append(rs.Edges.DependsOn,
		rulegraph.DependsOn{Kind: types.KindFlightPay, On: types.KindOvertime, DepType: rulegraph.DepInput})
	if err := Save(q, rs); err != nil {
		t.Fatalf("Save() error = %v, want nil", err)
	}

	if _, err := LoadRuleSet(q); err != nil {
		t.Fatalf("LoadRuleSet() error = %v, want nil (no validation)", err)
	}

	_, err := Load(q)
	var se *types.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("Load() error = %v, want SchemaError", err)
	}
	if se.Kind != types.SchemaDependencyCycle {
		t.Errorf("SchemaError.Kind = %v, want DEPENDENCY_CYCLE", se.Kind)
	}
}

func TestSave_ReplacesPreviousRuleSet(t *testing.T) {
	q := openStore(t)

	if err := Save(q, fixtureRuleSet()); err != nil {
		t.Fatalf("first Save() error = %v, want nil", err)
	}

	smaller := &RuleSet{
		Scenarios:  []types.Scenario{{ID: "only_scenario"}},
		Components: []types.PayComponent{{Kind: types.KindFlightPay, Priority: 1}},
	}
	if err := Save(q, smaller); err != nil {
		t.Fatalf("second Save() error = %v, want nil", err)
	}

	got, err := LoadRuleSet(q)
	if err != nil {
		t.Fatalf("LoadRuleSet() error = %v, want nil", err)
	}
	if len(got.Rules) != 0 || len(got.Terms) != 0 {
		t.Errorf("loaded %d rules / %d terms, want store replaced", len(got.Rules), len(got.Terms))
	}
	if len(got.Scenarios) != 1 || got.Scenarios[0].ID != "only_scenario" {
		t.Errorf("Scenarios = %+v, want [only_scenario]", got.Scenarios)
	}
	if len(got.Edges.AppliesTo) != 0 {
		t.Errorf("edges survived replacement: %+v", got.Edges.AppliesTo)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	conn, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("Open() error = %v, want nil", err)
	}
	defer conn.Close()

	if err := db.MigrateUp(conn); err != nil {
		t.Fatalf("MigrateUp() error = %v, want nil", err)
	}
	if err := db.MigrateUp(conn); err != nil {
		t.Fatalf("second MigrateUp() error = %v, want nil", err)
	}

	statuses, err := db.MigrateStatus(conn)
	if err != nil {
		t.Fatalf("MigrateStatus() error = %v, want nil", err)
	}
	if len(statuses) == 0 {
		t.Fatal("MigrateStatus() = empty, want at least the initial schema")
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Errorf("migration %s not applied", s.ID)
		}
	}
}
