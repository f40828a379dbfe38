// internal/calculator/calculator.go
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jbandu/crew-pay/internal/resolver"
	"github.com/jbandu/crew-pay/internal/scenario"
	"github.com/jbandu/crew-pay/internal/types"
)

/*
 * Pay component evaluation.
 *
 * Calculate walks the resolved rule set's pay components in dependency
 * order and applies each component's formula:
 *
 *   1. flight_pay evaluates first, unconditionally. Credit hours are
 *      max(block, duty/rig_ratio) when a rig contract term resolved,
 *      otherwise block hours.
 *   2. Remaining components evaluate in the graph's DEPENDS_ON topological
 *      order, restricted to components a matched scenario REQUIRES
 *      (mandatory edges always; conditional edges only when their
 *      conditions hold against the facts).
 *   3. The grand total is rounded to cents once, at the end. Component
 *      amounts stay unrounded so per-component audit math reproduces the
 *      total exactly.
 *
 * Every evaluated component emits a line with the contract term code and
 * a numeric derivation string, including zero-amount lines (an inactive
 * delay still shows why it did not pay). A required component with no
 * resolved formula emits nothing: the rule set funds components through
 * contract terms, and a term-less component has no defined amount.
 *
 * Missing DutyFacts fields surface as FormulaInputError naming the field;
 * the error aborts this record only, never a batch sibling.
 */

const roundingPlaces = 2

// Calculate evaluates the pay components funded by the resolved rule set.
// Pure function of its inputs: identity fields (EvaluationID, timestamps)
// are left zero for the caller to assign.
func Calculate(rs *resolver.ResolvedRuleSet, facts types.DutyFacts) (*types.PayCalculation, error) {
	if facts.HourlyRate.LessThanOrEqual(decimal.Zero) {
		return nil, &types.FormulaInputError{Component: types.KindFlightPay, Field: types.FieldHourlyRate}
	}

	credit, flightLine, err := flightPay(rs, facts)
	if err != nil {
		return nil, err
	}

	calc := &types.PayCalculation{
		CrewPosition: facts.CrewPosition,
		Scenarios:    rs.Scenarios,
		RuleCodes:    rs.Codes(),
		CreditHours:  credit,
		Lines:        []types.ComponentLine{flightLine},
	}

	required := requiredComponents(rs, facts)
	for _, kind := range rs.Graph().ComponentOrder() {
		if kind == types.KindFlightPay || !required[kind] {
			continue
		}
		term, ok := rs.FormulaFor(kind)
		if !ok {
			continue
		}
		line, err := evaluateComponent(kind, term, facts, credit)
		if err != nil {
			return nil, err
		}
		calc.Lines = append(calc.Lines, line)
	}

	if err := checkGuaranteeOvertimeExclusive(calc); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, l := range calc.Lines {
		total = total.Add(l.Amount)
	}
	calc.Total = total.Round(roundingPlaces)
	return calc, nil
}

// requiredComponents collects the components activated by the matched
// scenarios. Mandatory REQUIRES edges always activate; conditional edges
// activate only when their conditions hold.
func requiredComponents(rs *resolver.ResolvedRuleSet, facts types.DutyFacts) map[types.ComponentKind]bool {
	required := make(map[types.ComponentKind]bool)
	for _, sid := range rs.Scenarios {
		for _, req := range rs.Graph().ComponentsRequiredBy(sid) {
			if req.Mandatory || scenario.Evaluate(req.Conditions, facts) {
				required[req.Kind] = true
			}
		}
	}
	return required
}

// flightPay computes credit hours and the base flight pay line.
// Rig credit needs the duty window; block-only credit does not.
func flightPay(rs *resolver.ResolvedRuleSet, facts types.DutyFacts) (decimal.Decimal, types.ComponentLine, error) {
	credit := facts.BlockHours
	var code types.RuleCode
	detail := fmt.Sprintf("%s block h × %s", facts.BlockHours, facts.HourlyRate)

	if term, ok := rs.FormulaFor(types.KindFlightPay); ok {
		rig, isRig := term.Formula.(types.Rig)
		if isRig && rig.Ratio.GreaterThan(decimal.Zero) {
			if facts.DutyStart.IsZero() || facts.DutyEnd.IsZero() {
				return decimal.Zero, types.ComponentLine{},
					&types.FormulaInputError{Component: types.KindFlightPay, Field: "duty_start", Detail: "rig credit needs the duty window"}
			}
			rigCredit := facts.DutyHours().Div(rig.Ratio)
			code = term.Code
			if rigCredit.GreaterThan(credit) {
				credit = rigCredit
				detail = fmt.Sprintf("rig max(%s block, %s duty / %s) = %s h × %s",
					facts.BlockHours, facts.DutyHours(), rig.Ratio, credit, facts.HourlyRate)
			} else {
				detail = fmt.Sprintf("rig max(%s block, %s duty / %s) = %s block h × %s",
					facts.BlockHours, facts.DutyHours(), rig.Ratio, credit, facts.HourlyRate)
			}
		}
	}

	line := types.ComponentLine{
		Kind:     types.KindFlightPay,
		Amount:   credit.Mul(facts.HourlyRate),
		RuleCode: code,
		Detail:   detail,
	}
	return credit, line, nil
}

// evaluateComponent dispatches on the formula variant. The switch is
// exhaustive over the closed formula set; a new variant fails to compile
// until it is handled here.
func evaluateComponent(kind types.ComponentKind, term *types.ContractTerm,
	facts types.DutyFacts, credit decimal.Decimal) (types.ComponentLine, error) {

	line := types.ComponentLine{Kind: kind, RuleCode: term.Code}

	switch f := term.Formula.(type) {
	case types.Overtime:
		amount, detail := overtimePay(f, facts, credit)
		line.Amount, line.Detail = amount, detail
	case types.PerDiem:
		amount, detail, err := perDiemPay(f, facts)
		if err != nil {
			return line, err
		}
		line.Amount, line.Detail = amount, detail
	case types.PremiumMultiplier:
		amount, detail, err := premiumPay(f, facts)
		if err != nil {
			return line, err
		}
		line.Amount, line.Detail = amount, detail
	case types.DelayCompensation:
		amount, detail, err := delayPay(f, facts)
		if err != nil {
			return line, err
		}
		line.Amount, line.Detail = amount, detail
	case types.MonthlyGuarantee:
		amount, detail := guaranteeTopUp(f, facts, credit)
		line.Amount, line.Detail = amount, detail
	case types.Rig:
		// already folded into flight_pay credit hours
		line.Amount = decimal.Zero
		line.Detail = "rig applied to flight_pay credit"
	default:
		return line, &types.FormulaInputError{
			Component: kind, Field: "formula",
			Detail: fmt.Sprintf("unhandled formula kind %T", term.Formula),
		}
	}
	return line, nil
}

// checkGuaranteeOvertimeExclusive enforces the post-condition that at most
// one of guarantee top-up and overtime is non-zero in a period. Both
// positive means the rule set's thresholds contradict each other.
func checkGuaranteeOvertimeExclusive(calc *types.PayCalculation) error {
	ot := calc.Component(types.KindOvertime)
	topup := calc.Component(types.KindGuarantee)
	if ot.GreaterThan(decimal.Zero) && topup.GreaterThan(decimal.Zero) {
		return &types.FormulaInputError{
			Component: types.KindGuarantee,
			Field:     "guarantee_hours",
			Detail:    "guarantee top-up and overtime both non-zero; thresholds are inconsistent",
		}
	}
	return nil
}
