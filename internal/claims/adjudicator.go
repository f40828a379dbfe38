// internal/claims/adjudicator.go

// Package claims adjudicates crew pay claims by recomputing what the rule
// set says the claimant is owed and comparing it to the claimed amount.
//
// The adjudicator never trusts the claimed figure: it runs the full
// evaluation pipeline over the claim's duty facts and decides from the
// result. Every decision carries an ordered rationale naming the rule
// codes and the numeric derivation, so a human reviewer can reproduce the
// verdict line by line.
package claims

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jbandu/crew-pay/internal/types"
)

// PayEvaluator recomputes expected pay for a set of duty facts.
// Satisfied by the engine facade.
type PayEvaluator interface {
	EvaluatePay(facts types.DutyFacts) (*types.PayCalculation, error)
}

// Adjudicator decides claims against recomputed expected pay.
type Adjudicator struct {
	evaluator PayEvaluator

	// Epsilon is the tolerance for treating claimed and expected as equal.
	Epsilon decimal.Decimal

	// AutoApproveThreshold marks full approvals at or under this amount as
	// auto-approved, skipping human review. Zero disables auto-approval.
	AutoApproveThreshold decimal.Decimal
}

// NewAdjudicator wires an adjudicator to a pay evaluator.
func NewAdjudicator(evaluator PayEvaluator, epsilon, autoApproveThreshold decimal.Decimal) *Adjudicator {
	if epsilon.LessThanOrEqual(decimal.Zero) {
		epsilon = decimal.NewFromFloat(0.01)
	}
	return &Adjudicator{
		evaluator:            evaluator,
		Epsilon:              epsilon,
		AutoApproveThreshold: autoApproveThreshold,
	}
}

// Adjudicate recomputes expected pay for the claim's facts and compares.
//
//   - claimed within epsilon of expected: APPROVE the claimed amount
//   - claimed under expected: APPROVE the claimed amount (a claimant asking
//     for less than owed still gets what they asked)
//   - claimed over expected, expected positive: PARTIAL_APPROVE at the
//     recomputed amount
//   - expected zero or negative: DENY
//
// A structurally invalid claim is denied without touching the rule graph.
// Evaluation errors (missing facts, unresolved conflicts) propagate as
// errors: the claim cannot be decided, which is not the same as denied.
// DecidedAt is left zero for the caller to stamp.
func (a *Adjudicator) Adjudicate(claim types.ClaimFacts) (*types.ClaimDecision, error) {
	if err := claim.Validate(); err != nil {
		return a.deny(claim, decimal.Zero, fmt.Sprintf("claim rejected before evaluation: %v", err)), nil
	}

	calc, err := a.evaluator.EvaluatePay(claim.Facts)
	if err != nil {
		return nil, fmt.Errorf("recomputing pay for claim %s: %w", claim.ClaimID, err)
	}

	expected := calc.Total
	scope := "total pay"
	if claim.Component != "" {
		expected = calc.Component(claim.Component)
		scope = fmt.Sprintf("component %s", claim.Component)
	}

	rationale := derivation(calc, scope, expected, claim.ClaimedAmount)

	if expected.LessThanOrEqual(decimal.Zero) {
		d := a.deny(claim, expected, fmt.Sprintf("rule set yields no %s entitlement", scope))
		d.Rationale = append(rationale, d.Rationale...)
		return d, nil
	}

	decision := &types.ClaimDecision{
		ClaimID:       claim.ClaimID,
		ClaimedAmount: claim.ClaimedAmount,
		ExpectedTotal: expected,
		Rationale:     rationale,
	}

	switch {
	case claim.ClaimedAmount.Sub(expected).Abs().LessThanOrEqual(a.Epsilon):
		decision.Verdict = types.VerdictApprove
		decision.ApprovedAmount = claim.ClaimedAmount
		decision.Rationale = append(decision.Rationale, "claimed amount matches recomputed entitlement")
	case claim.ClaimedAmount.LessThan(expected):
		decision.Verdict = types.VerdictApprove
		decision.ApprovedAmount = claim.ClaimedAmount
		decision.Rationale = append(decision.Rationale,
			fmt.Sprintf("claimed %s is under the %s entitlement %s; approved as claimed",
				claim.ClaimedAmount, scope, expected))
	default:
		decision.Verdict = types.VerdictPartialApprove
		decision.ApprovedAmount = expected
		decision.Rationale = append(decision.Rationale,
			fmt.Sprintf("claimed %s exceeds the %s entitlement %s; approved at recomputed amount",
				claim.ClaimedAmount, scope, expected))
	}

	if decision.Verdict == types.VerdictApprove &&
		a.AutoApproveThreshold.GreaterThan(decimal.Zero) &&
		decision.ApprovedAmount.LessThanOrEqual(a.AutoApproveThreshold) {
		decision.AutoApproved = true
		decision.Rationale = append(decision.Rationale,
			fmt.Sprintf("auto-approved: amount within %s threshold", a.AutoApproveThreshold))
	}

	return decision, nil
}

func (a *Adjudicator) deny(claim types.ClaimFacts, expected decimal.Decimal, reason string) *types.ClaimDecision {
	return &types.ClaimDecision{
		ClaimID:        claim.ClaimID,
		Verdict:        types.VerdictDeny,
		ClaimedAmount:  claim.ClaimedAmount,
		ExpectedTotal:  expected,
		ApprovedAmount: decimal.Zero,
		Rationale:      []string{reason},
	}
}

// derivation renders the recomputation as ordered rationale lines.
func derivation(calc *types.PayCalculation, scope string, expected, claimed decimal.Decimal) []string {
	lines := []string{
		fmt.Sprintf("scenarios: %v", calc.Scenarios),
		fmt.Sprintf("rules applied: %v", calc.RuleCodes),
	}
	for _, l := range calc.Lines {
		code := string(l.RuleCode)
		if code == "" {
			code = "-"
		}
		lines = append(lines, fmt.Sprintf("%s [%s]: %s = %s", l.Kind, code, l.Detail, l.Amount))
	}
	lines = append(lines, fmt.Sprintf("recomputed %s %s vs claimed %s", scope, expected, claimed))
	return lines
}
