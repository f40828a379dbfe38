package types

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Pay formulas attached to contract terms.
//
// Formulas form a closed tagged-variant set: each variant maps to exactly
// one ComponentKind and the calculator handles every variant in one
// exhaustive switch, so a new formula kind is a compile-time extension,
// not a runtime lookup failure.

// FormulaKind tags the formula variant.
type FormulaKind string

const (
	FormulaMonthlyGuarantee  FormulaKind = "monthly_guarantee"
	FormulaPremiumMultiplier FormulaKind = "premium_multiplier"
	FormulaRig               FormulaKind = "rig"
	FormulaPerDiem           FormulaKind = "per_diem"
	FormulaOvertime          FormulaKind = "overtime"
	FormulaDelayCompensation FormulaKind = "delay_compensation"
)

// Formula is the sealed interface over formula variants. Component reports
// which pay component the formula defines.
type Formula interface {
	Kind() FormulaKind
	Component() ComponentKind
}

// MonthlyGuarantee tops pay up to a guaranteed monthly credit.
type MonthlyGuarantee struct {
	Hours     decimal.Decimal `json:"hours"`
	Proration decimal.Decimal `json:"proration"` // 1 = full month
}

func (MonthlyGuarantee) Kind() FormulaKind        { return FormulaMonthlyGuarantee }
func (MonthlyGuarantee) Component() ComponentKind { return KindGuarantee }

// GuaranteeHours returns Hours scaled by Proration (unset proration = 1).
func (f MonthlyGuarantee) GuaranteeHours() decimal.Decimal {
	if f.Proration.IsZero() {
		return f.Hours
	}
	return f.Hours.Mul(f.Proration)
}

// PremiumMultiplier pays a rate uplift for hours flown inside a window.
// The uplift is (Multiplier - 1) on top of flight pay, never a second
// multiplication of the base.
type PremiumMultiplier struct {
	Multiplier decimal.Decimal `json:"multiplier"`
	Window     HourWindow      `json:"window"`
}

func (PremiumMultiplier) Kind() FormulaKind        { return FormulaPremiumMultiplier }
func (PremiumMultiplier) Component() ComponentKind { return KindPremium }

// Rig credits the greater of block time and duty time divided by Ratio.
type Rig struct {
	Ratio      decimal.Decimal `json:"ratio"`
	Comparison string          `json:"comparison"` // "greater" is the only defined mode
}

func (Rig) Kind() FormulaKind        { return FormulaRig }
func (Rig) Component() ComponentKind { return KindFlightPay }

// PerDiem pays a flat rate per duty hour.
type PerDiem struct {
	Rate decimal.Decimal `json:"rate"`
}

func (PerDiem) Kind() FormulaKind        { return FormulaPerDiem }
func (PerDiem) Component() ComponentKind { return KindPerDiem }

// Overtime pays a multiplier on credit hours beyond a monthly threshold.
type Overtime struct {
	ThresholdHours decimal.Decimal `json:"threshold_hours"`
	Multiplier     decimal.Decimal `json:"multiplier"`
}

func (Overtime) Kind() FormulaKind        { return FormulaOvertime }
func (Overtime) Component() ComponentKind { return KindOvertime }

// DelayCompensation pays per delayed hour once a delay exceeds the
// threshold (exclusive) and the cause code is eligible.
type DelayCompensation struct {
	ThresholdMinutes int             `json:"threshold_minutes"`
	Multiplier       decimal.Decimal `json:"multiplier"`
	EligibleCodes    []DelayCode     `json:"eligible_codes"`
}

func (DelayCompensation) Kind() FormulaKind        { return FormulaDelayCompensation }
func (DelayCompensation) Component() ComponentKind { return KindDelayPay }

// Eligible reports whether the delay code qualifies for compensation.
func (f DelayCompensation) Eligible(code DelayCode) bool {
	for _, c := range f.EligibleCodes {
		if c == code {
			return true
		}
	}
	return false
}

// formulaEnvelope is the wire form: kind tag plus variant parameters.
type formulaEnvelope struct {
	Kind   FormulaKind     `json:"kind"`
	Params json.RawMessage `json:"params"`
}

// MarshalFormula serializes a formula with its kind tag.
func MarshalFormula(f Formula) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("nil formula")
	}
	params, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return json.Marshal(formulaEnvelope{Kind: f.Kind(), Params: params})
}

// UnmarshalFormula parses a kind-tagged formula envelope.
func UnmarshalFormula(data []byte) (Formula, error) {
	var env formulaEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("formula envelope: %w", err)
	}

	var f Formula
	switch env.Kind {
	case FormulaMonthlyGuarantee:
		f = &MonthlyGuarantee{}
	case FormulaPremiumMultiplier:
		f = &PremiumMultiplier{}
	case FormulaRig:
		f = &Rig{}
	case FormulaPerDiem:
		f = &PerDiem{}
	case FormulaOvertime:
		f = &Overtime{}
	case FormulaDelayCompensation:
		f = &DelayCompensation{}
	default:
		return nil, fmt.Errorf("unknown formula kind %q", env.Kind)
	}

	if err := json.Unmarshal(env.Params, f); err != nil {
		return nil, fmt.Errorf("formula params for %s: %w", env.Kind, err)
	}
	return deref(f), nil
}

// deref returns the value form so loaded formulas compare equal to
// literal-constructed ones in tests.
func deref(f Formula) Formula {
	switch v := f.(type) {
	case *MonthlyGuarantee:
		return *v
	case *PremiumMultiplier:
		return *v
	case *Rig:
		return *v
	case *PerDiem:
		return *v
	case *Overtime:
		return *v
	case *DelayCompensation:
		return *v
	}
	return f
}
