// internal/scenario/matcher_test.go
package scenario

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

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

func testScenarios(t *testing.T) *rulegraph.Graph {
	t.Helper()

	scenarios := []types.Scenario{
		{
			ID: "delayed_flight",
			Predicate: types.All(
				types.Condition{Field: types.FieldDelayMinutes, Op: types.OpGt, Value: 30},
			),
		},
		{
			ID: "high_time_month",
			Predicate: types.All(
				types.Condition{Field: types.FieldMonthToDate, Op: types.OpGte, Value: 60},
			),
		},
		{
			ID: "red_eye_flight",
			Predicate: types.All(
				types.Condition{
					Field:  types.FieldDepartureHour,
					Op:     types.OpInWindow,
					Window: &types.HourWindow{From: dec("22"), To: dec("6")},
				},
			),
		},
	}

	g, err := rulegraph.Load(nil, nil, scenarios, nil, rulegraph.Edges{})
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	return g
}

func baseFacts() types.DutyFacts {
	return types.DutyFacts{
		CrewPosition: types.PositionCaptain,
		BlockHours:   dec("5.5"),
		DutyStart:    time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		DutyEnd:      time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC),
		Departure:    time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
		Arrival:      time.Date(2026, 3, 10, 20, 30, 0, 0, time.UTC),
		HourlyRate:   dec("120"),
	}
}

func TestMatch_DelayedFlight(t *testing.T) {
	g := testScenarios(t)

	facts := baseFacts()
	facts.DelayMinutes = 45
	facts.DelayCode = types.DelayMaintenance

	matched := Match(facts, g)
	if len(matched) != 1 || matched[0] != "delayed_flight" {
		t.Errorf("Match() = %v, want [delayed_flight]", matched)
	}
}

func TestMatch_DelayThresholdExclusive(t *testing.T) {
	g := testScenarios(t)

	facts := baseFacts()
	facts.DelayMinutes = 30

	if matched := Match(facts, g); len(matched) != 0 {
		t.Errorf("Match() with 30min delay = %v, want none (threshold is exclusive)", matched)
	}

	facts.DelayMinutes = 31
	if matched := Match(facts, g); len(matched) != 1 {
		t.Errorf("Match() with 31min delay = %v, want [delayed_flight]", matched)
	}
}

func TestMatch_RedEyeWindow(t *testing.T) {
	g := testScenarios(t)

	tests := []struct {
		name string
		hour int
		min  int
		want bool
	}{
		{"before window", 21, 59, false},
		{"window start inclusive", 22, 0, true},
		{"late evening", 23, 30, true},
		{"after midnight", 5, 0, true},
		{"window end exclusive", 6, 0, false},
		{"midday", 12, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := baseFacts()
			facts.Departure = time.Date(2026, 3, 10, tt.hour, tt.min, 0, 0, time.UTC)

			matched := Match(facts, g)
			got := false
			for _, id := range matched {
				if id == "red_eye_flight" {
					got = true
				}
			}
			if got != tt.want {
				t.Errorf("red_eye match at %02d:%02d = %v, want %v", tt.hour, tt.min, got, tt.want)
			}
		})
	}
}

func TestMatch_MultipleScenarios(t *testing.T) {
	g := testScenarios(t)

	// A delayed red-eye for a crew member deep into the month matches all
	// three, in deterministic id order.
	facts := baseFacts()
	facts.DelayMinutes = 50
	facts.Departure = time.Date(2026, 3, 10, 23, 15, 0, 0, time.UTC)
	facts.MonthToDateCreditHours = dec("65")

	matched := Match(facts, g)
	want := []types.ScenarioID{"delayed_flight", "high_time_month", "red_eye_flight"}
	if len(matched) != len(want) {
		t.Fatalf("Match() = %v, want %v", matched, want)
	}
	for i := range want {
		if matched[i] != want[i] {
			t.Errorf("Match()[%d] = %v, want %v", i, matched[i], want[i])
		}
	}
}

func TestMatchStrict_NoMatch(t *testing.T) {
	g := testScenarios(t)

	facts := baseFacts()
	if matched := Match(facts, g); len(matched) != 0 {
		t.Fatalf("Match() = %v, want none", matched)
	}

	_, err := MatchStrict(facts, g)
	if !errors.Is(err, types.ErrNoApplicablePolicy) {
		t.Errorf("MatchStrict() error = %v, want ErrNoApplicablePolicy", err)
	}
}

func TestEvaluate_MissingFieldIsFalse(t *testing.T) {
	p := types.All(types.Condition{Field: types.FieldDelayCode, Op: types.OpEq, Value: "MX"})

	facts := baseFacts() // no delay code populated
	if Evaluate(p, facts) {
		t.Error("Evaluate() with missing delay_code = true, want false")
	}
}

func TestEvaluateStrict_MissingFieldNamesField(t *testing.T) {
	p := types.All(types.Condition{Field: types.FieldDelayCode, Op: types.OpEq, Value: "MX"})

	_, err := EvaluateStrict(p, baseFacts())
	if err == nil {
		t.Fatal("EvaluateStrict() error = nil, want missing-field error")
	}
	if !strings.Contains(err.Error(), types.FieldDelayCode) {
		t.Errorf("EvaluateStrict() error = %v, want it to name %q", err, types.FieldDelayCode)
	}
}

func TestEvaluate_DNFSecondGroupMatches(t *testing.T) {
	p := types.Predicate{AnyOf: []types.AndGroup{
		{Conditions: []types.Condition{
			{Field: types.FieldDelayMinutes, Op: types.OpGt, Value: 120},
		}},
		{Conditions: []types.Condition{
			{Field: types.FieldBlockHours, Op: types.OpGte, Value: 5},
		}},
	}}

	if !Evaluate(p, baseFacts()) {
		t.Error("Evaluate() = false, want true via second OR group")
	}
}

func TestMissingFields(t *testing.T) {
	p := types.All(
		types.Condition{Field: types.FieldDelayCode, Op: types.OpEq, Value: "MX"},
		types.Condition{Field: types.FieldBlockHours, Op: types.OpGt, Value: 1},
	)

	missing := MissingFields(p, baseFacts())
	if len(missing) != 1 || missing[0] != types.FieldDelayCode {
		t.Errorf("MissingFields() = %v, want [delay_code]", missing)
	}
}
