// Package types provides domain models shared across crew-pay components.
//
// Contains rule, contract-term, scenario, and pay-component node types plus
// the value objects the engine produces (PayCalculation, Discrepancy,
// ClaimDecision). Edge types and graph assembly live in internal/rulegraph;
// this package stays dependency-light so every engine package can import it.
//
// All monetary and hour values use shopspring/decimal. Floating point is
// never used for money; rounding happens once, on a calculation's grand
// total.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleCode identifies a Rule or ContractTerm. Unique across both kinds.
type RuleCode string

// ScenarioID identifies a Scenario classification.
type ScenarioID string

// CrewPosition tags which crew members a rule applies to.
type CrewPosition string

// Crew positions recognized by rule applicability sets.
const (
	PositionCaptain         CrewPosition = "CA"
	PositionFirstOfficer    CrewPosition = "FO"
	PositionFlightAttendant CrewPosition = "FA"
)

// ComponentKind enumerates the closed set of pay components.
// Adding a kind requires extending the calculator's exhaustive switch.
type ComponentKind string

const (
	KindFlightPay ComponentKind = "flight_pay"
	KindOvertime  ComponentKind = "overtime"
	KindPerDiem   ComponentKind = "per_diem"
	KindPremium   ComponentKind = "premium"
	KindDelayPay  ComponentKind = "delay_pay"
	KindGuarantee ComponentKind = "guarantee"
)

// ComponentKinds lists every known kind in presentation order.
func ComponentKinds() []ComponentKind {
	return []ComponentKind{
		KindFlightPay, KindOvertime, KindPerDiem,
		KindPremium, KindDelayPay, KindGuarantee,
	}
}

// ValidComponentKind reports whether k names a known pay component.
func ValidComponentKind(k ComponentKind) bool {
	switch k {
	case KindFlightPay, KindOvertime, KindPerDiem, KindPremium, KindDelayPay, KindGuarantee:
		return true
	}
	return false
}

// DelayCode classifies the cause of a departure delay.
type DelayCode string

// Delay cause codes. MX/OPS/CREW are carrier-controllable causes;
// WX/ATC are not and are typically outside delay-pay eligibility.
const (
	DelayMaintenance DelayCode = "MX"
	DelayOperations  DelayCode = "OPS"
	DelayCrew        DelayCode = "CREW"
	DelayWeather     DelayCode = "WX"
	DelayATC         DelayCode = "ATC"
)

// Rule is a regulatory rule with applicability conditions and precedence.
// Immutable once effective; superseded rules stay in the graph so historical
// pay periods can be recalculated against the rule set then in force.
type Rule struct {
	Code           RuleCode
	Category       string
	Priority       int // higher wins
	EffectiveDate  time.Time
	ExpirationDate time.Time // zero = open-ended
	AppliesTo      []CrewPosition
	Condition      Predicate // structured applicability predicate, may be empty

	// Limit is the permitted value a restrictive rule caps (e.g. an FDP
	// ceiling in hours). Required on both sides of a most_restrictive
	// conflict; nil otherwise.
	Limit *decimal.Decimal
}

// EffectiveAt reports whether the rule is in force at the given instant.
// Effective window is [EffectiveDate, ExpirationDate).
func (r *Rule) EffectiveAt(at time.Time) bool {
	if at.Before(r.EffectiveDate) {
		return false
	}
	if !r.ExpirationDate.IsZero() && !at.Before(r.ExpirationDate) {
		return false
	}
	return true
}

// AppliesToPosition reports whether the rule covers the given crew position.
// An empty AppliesTo set means the rule covers every position.
func (r *Rule) AppliesToPosition(p CrewPosition) bool {
	if len(r.AppliesTo) == 0 {
		return true
	}
	for _, pos := range r.AppliesTo {
		if pos == p {
			return true
		}
	}
	return false
}

// ContractTerm is a union contract term: a Rule plus a pay formula.
type ContractTerm struct {
	Rule
	Formula Formula
}

// Scenario classifies a duty/flight fact pattern. The matcher evaluates
// its predicate against DutyFacts; a fact set may match zero or more
// scenarios simultaneously.
type Scenario struct {
	ID         ScenarioID
	Complexity string // informational only
	Predicate  Predicate
}

// PayComponent is a node in the component dependency graph.
// Priority orders presentation only; evaluation order comes from the
// DEPENDS_ON topology.
type PayComponent struct {
	Kind     ComponentKind
	Priority int
}

// ComponentLine is one evaluated pay component inside a PayCalculation.
type ComponentLine struct {
	Kind     ComponentKind
	Amount   decimal.Decimal // unrounded
	RuleCode RuleCode        // contract term that supplied the formula, if any
	Detail   string          // numeric derivation for audit
}

// PayCalculation is the engine's output for one crew member and duty.
// Immutable once produced; re-running identical inputs yields an identical
// calculation apart from EvaluationID.
type PayCalculation struct {
	EvaluationID EvaluationID
	CrewPosition CrewPosition
	Scenarios    []ScenarioID
	RuleCodes    []RuleCode // resolved precedence order, for audit
	CreditHours  decimal.Decimal
	Lines        []ComponentLine
	Total        decimal.Decimal // rounded to cents, once
	CalculatedAt time.Time
}

// Component returns the unrounded amount for a kind, or zero if the
// component was not evaluated.
func (c *PayCalculation) Component(kind ComponentKind) decimal.Decimal {
	for _, l := range c.Lines {
		if l.Kind == kind {
			return l.Amount
		}
	}
	return decimal.Zero
}

// Severity classifies the magnitude of a pay discrepancy.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Discrepancy is the difference between an expected and a recorded payment.
// The engine only classifies; applying a fix is the caller's job.
type Discrepancy struct {
	EvaluationID EvaluationID
	Expected     decimal.Decimal
	Actual       decimal.Decimal
	Difference   decimal.Decimal // expected - actual, signed
	Severity     Severity
	AutoFixable  bool
	DetectedAt   time.Time
}

// ClaimVerdict is the outcome of adjudicating a crew claim.
type ClaimVerdict string

const (
	VerdictApprove        ClaimVerdict = "APPROVE"
	VerdictPartialApprove ClaimVerdict = "PARTIAL_APPROVE"
	VerdictDeny           ClaimVerdict = "DENY"
)

// ClaimDecision carries the verdict, approved amount, and an auditable
// rationale referencing rule codes and the numeric derivation.
type ClaimDecision struct {
	ClaimID        ClaimID
	Verdict        ClaimVerdict
	ClaimedAmount  decimal.Decimal
	ExpectedTotal  decimal.Decimal
	ApprovedAmount decimal.Decimal
	AutoApproved   bool
	Rationale      []string // ordered derivation lines, rule codes included
	DecidedAt      time.Time
}
