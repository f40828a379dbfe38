package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DutyFacts is the engine's runtime input: the flight/duty record for one
// crew member, assembled by the caller from crew/flight/assignment data.
// Ephemeral and supplied per invocation; the engine never stores it.
type DutyFacts struct {
	CrewPosition CrewPosition    `json:"crew_position"`
	BlockHours   decimal.Decimal `json:"block_hours"`
	DutyStart    time.Time       `json:"duty_start"`
	DutyEnd      time.Time       `json:"duty_end"`
	Departure    time.Time       `json:"departure"` // scheduled departure, local
	Arrival      time.Time       `json:"arrival"`   // actual arrival, local
	DelayMinutes int             `json:"delay_minutes"`
	DelayCode    DelayCode       `json:"delay_code,omitempty"`
	HourlyRate   decimal.Decimal `json:"hourly_rate"`

	// MonthToDateCreditHours is credit accumulated before this duty.
	MonthToDateCreditHours decimal.Decimal `json:"month_to_date_credit_hours"`

	// PICApproval and UnforeseenCircumstances gate conditional FDP
	// extension rules.
	PICApproval             bool `json:"pic_approval"`
	UnforeseenCircumstances bool `json:"unforeseen_circumstances"`
}

// Fact field names resolvable by predicates.
const (
	FieldCrewPosition    = "crew_position"
	FieldBlockHours      = "block_hours"
	FieldDutyHours       = "duty_hours"
	FieldDepartureHour   = "departure_hour"
	FieldArrivalHour     = "arrival_hour"
	FieldDelayMinutes    = "delay_minutes"
	FieldDelayCode       = "delay_code"
	FieldHourlyRate      = "hourly_rate"
	FieldMonthToDate     = "month_to_date_credit_hours"
	FieldPICApproval     = "pic_approval"
	FieldUnforeseenCircs = "unforeseen_circumstances"
)

// DutyHours returns checkout minus checkin as fractional hours, or zero
// when either end of the duty window is unset.
func (f DutyFacts) DutyHours() decimal.Decimal {
	if f.DutyStart.IsZero() || f.DutyEnd.IsZero() || !f.DutyEnd.After(f.DutyStart) {
		return decimal.Zero
	}
	mins := f.DutyEnd.Sub(f.DutyStart).Minutes()
	return decimal.NewFromFloat(mins).Div(decimal.NewFromInt(60))
}

// Field resolves a named fact for predicate evaluation. The second return
// is false when the field is unknown or not populated; predicates decide
// how to treat missing fields.
func (f DutyFacts) Field(name string) (any, bool) {
	switch name {
	case FieldCrewPosition:
		return string(f.CrewPosition), f.CrewPosition != ""
	case FieldBlockHours:
		return f.BlockHours, true
	case FieldDutyHours:
		d := f.DutyHours()
		return d, !f.DutyStart.IsZero() && !f.DutyEnd.IsZero()
	case FieldDepartureHour:
		if f.Departure.IsZero() {
			return nil, false
		}
		return localHour(f.Departure), true
	case FieldArrivalHour:
		if f.Arrival.IsZero() {
			return nil, false
		}
		return localHour(f.Arrival), true
	case FieldDelayMinutes:
		return decimal.NewFromInt(int64(f.DelayMinutes)), true
	case FieldDelayCode:
		return string(f.DelayCode), f.DelayCode != ""
	case FieldHourlyRate:
		return f.HourlyRate, !f.HourlyRate.IsZero()
	case FieldMonthToDate:
		return f.MonthToDateCreditHours, true
	case FieldPICApproval:
		return f.PICApproval, true
	case FieldUnforeseenCircs:
		return f.UnforeseenCircumstances, true
	}
	return nil, false
}

// localHour returns the fractional local hour of day, e.g. 23.5 for 23:30.
func localHour(t time.Time) decimal.Decimal {
	mins := t.Hour()*60 + t.Minute()
	return decimal.NewFromInt(int64(mins)).Div(decimal.NewFromInt(60))
}

// ClaimFacts is a claim plus the duty facts re-derived from the flights and
// assignments it references. When Component is set the claim concerns a
// single missing pay component and adjudication compares against that
// component's recomputed amount instead of the full total.
type ClaimFacts struct {
	ClaimID       ClaimID         `json:"claim_id"`
	Facts         DutyFacts       `json:"facts"`
	ClaimedAmount decimal.Decimal `json:"claimed_amount"`
	Component     ComponentKind   `json:"component,omitempty"` // empty = full recompute
	Description   string          `json:"description"`
}

// Validate checks claim structure before any recomputation. Mirrors the
// pre-screening the claims intake performs: a claim with no substance is
// denied without touching the rule graph.
func (c ClaimFacts) Validate() error {
	if c.ClaimedAmount.LessThanOrEqual(decimal.Zero) {
		return &FormulaInputError{Component: c.Component, Field: "claimed_amount", Detail: "must be positive"}
	}
	if strings.TrimSpace(c.Description) == "" {
		return &FormulaInputError{Component: c.Component, Field: "description", Detail: "must not be empty"}
	}
	if c.Component != "" && !ValidComponentKind(c.Component) {
		return &FormulaInputError{Component: c.Component, Field: "component", Detail: "unknown pay component"}
	}
	return nil
}
