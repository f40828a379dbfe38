// internal/payroll/validate.go

// Package payroll sanity-checks computed payroll records before disbursal.
//
// This is a downstream guard, independent of the rule engine: even a
// correctly resolved rule set can be fed bad hours or a bad rate, and a
// record that passed calculation can still be internally inconsistent.
// Validation recomputes gross and net from first principles and checks the
// record against statutory hour limits and pay-period shape.
package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PayFrequency is the pay-period cadence a record declares.
type PayFrequency string

const (
	FrequencyWeekly      PayFrequency = "weekly"
	FrequencyBiWeekly    PayFrequency = "bi_weekly"
	FrequencySemiMonthly PayFrequency = "semi_monthly"
	FrequencyMonthly     PayFrequency = "monthly"
)

// periodDays is the nominal period length per frequency; actual lengths may
// drift by up to two days around month boundaries.
var periodDays = map[PayFrequency]int{
	FrequencyWeekly:      7,
	FrequencyBiWeekly:    14,
	FrequencySemiMonthly: 15,
	FrequencyMonthly:     30,
}

// periodWeeks scales weekly hour limits to the period.
var periodWeeks = map[PayFrequency]int{
	FrequencyWeekly:      1,
	FrequencyBiWeekly:    2,
	FrequencySemiMonthly: 2,
	FrequencyMonthly:     4,
}

// Record is one payroll line awaiting disbursal.
type Record struct {
	EmployeeID     string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Frequency      PayFrequency
	RegularHours   decimal.Decimal
	OvertimeHours  decimal.Decimal
	HourlyRate     decimal.Decimal
	GrossPay       decimal.Decimal
	Deductions     decimal.Decimal
	NetPay         decimal.Decimal
}

// Status is the validation outcome for one record.
type Status string

const (
	StatusPassed         Status = "passed"
	StatusWarning        Status = "warning"
	StatusFailed         Status = "failed"
	StatusRequiresReview Status = "requires_review"
)

// Result is the outcome plus the individual findings that produced it.
type Result struct {
	EmployeeID string
	Status     Status
	Errors     []string
	Warnings   []string
}

// Validator holds the hour limits and arithmetic tolerance.
type Validator struct {
	MaxRegularHoursWeek  decimal.Decimal
	MaxOvertimeHoursWeek decimal.Decimal
	Tolerance            decimal.Decimal
}

// Defaults: 40 regular + 20 overtime hours per week, one cent tolerance.
func NewValidator() *Validator {
	return &Validator{
		MaxRegularHoursWeek:  decimal.NewFromInt(40),
		MaxOvertimeHoursWeek: decimal.NewFromInt(20),
		Tolerance:            decimal.NewFromFloat(0.01),
	}
}

var overtimeRate = decimal.NewFromFloat(1.5)
var warnFraction = decimal.NewFromFloat(0.9)

// Validate runs every check and folds the findings into one status:
// any error fails the record; an hours anomaly alone demands review;
// other warnings pass with a flag.
func (v *Validator) Validate(r Record) Result {
	res := Result{EmployeeID: r.EmployeeID}
	hoursExceeded := false

	res.Errors = append(res.Errors, v.checkCompleteness(r)...)
	if len(res.Errors) > 0 {
		res.Status = StatusFailed
		return res
	}

	errs, warns, exceeded := v.checkHours(r)
	res.Errors = append(res.Errors, errs...)
	res.Warnings = append(res.Warnings, warns...)
	hoursExceeded = exceeded

	res.Errors = append(res.Errors, v.checkArithmetic(r)...)
	res.Warnings = append(res.Warnings, v.checkPeriod(r)...)

	switch {
	case len(res.Errors) > 0:
		res.Status = StatusFailed
	case hoursExceeded:
		res.Status = StatusRequiresReview
	case len(res.Warnings) > 0:
		res.Status = StatusWarning
	default:
		res.Status = StatusPassed
	}
	return res
}

// ValidateBatch validates records independently; one bad record never
// blocks its siblings.
func (v *Validator) ValidateBatch(records []Record) []Result {
	out := make([]Result, len(records))
	for i, r := range records {
		out[i] = v.Validate(r)
	}
	return out
}

func (v *Validator) checkCompleteness(r Record) []string {
	var errs []string
	if r.EmployeeID == "" {
		errs = append(errs, "employee id missing")
	}
	if r.PeriodStart.IsZero() || r.PeriodEnd.IsZero() {
		errs = append(errs, "pay period boundaries missing")
	}
	if _, ok := periodDays[r.Frequency]; !ok {
		errs = append(errs, fmt.Sprintf("unknown pay frequency %q", r.Frequency))
	}
	if r.HourlyRate.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "hourly rate must be positive")
	}
	if r.RegularHours.IsNegative() || r.OvertimeHours.IsNegative() {
		errs = append(errs, "hours cannot be negative")
	}
	return errs
}

// checkHours compares against the weekly limits scaled to the period.
// Exceeding a limit is not automatically an error: overtime past the cap
// can be legitimate with approvals the record does not carry, so it
// demands review instead of failing outright.
func (v *Validator) checkHours(r Record) (errs, warns []string, exceeded bool) {
	weeks := decimal.NewFromInt(int64(periodWeeks[r.Frequency]))
	maxRegular := v.MaxRegularHoursWeek.Mul(weeks)
	maxOvertime := v.MaxOvertimeHoursWeek.Mul(weeks)

	if r.RegularHours.GreaterThan(maxRegular) {
		warns = append(warns, fmt.Sprintf("regular hours %s exceed period limit %s", r.RegularHours, maxRegular))
		exceeded = true
	} else if r.RegularHours.GreaterThan(maxRegular.Mul(warnFraction)) {
		warns = append(warns, fmt.Sprintf("regular hours %s within 10%% of period limit %s", r.RegularHours, maxRegular))
	}

	if r.OvertimeHours.GreaterThan(maxOvertime) {
		warns = append(warns, fmt.Sprintf("overtime hours %s exceed period limit %s", r.OvertimeHours, maxOvertime))
		exceeded = true
	} else if r.OvertimeHours.GreaterThan(maxOvertime.Mul(warnFraction)) {
		warns = append(warns, fmt.Sprintf("overtime hours %s within 10%% of period limit %s", r.OvertimeHours, maxOvertime))
	}
	return errs, warns, exceeded
}

// checkArithmetic recomputes gross and net. Overtime pays time and a half.
func (v *Validator) checkArithmetic(r Record) []string {
	var errs []string

	gross := r.RegularHours.Mul(r.HourlyRate).
		Add(r.OvertimeHours.Mul(r.HourlyRate).Mul(overtimeRate))
	if gross.Sub(r.GrossPay).Abs().GreaterThan(v.Tolerance) {
		errs = append(errs, fmt.Sprintf("gross pay %s does not match recomputed %s", r.GrossPay, gross.Round(2)))
	}

	net := r.GrossPay.Sub(r.Deductions)
	if net.Sub(r.NetPay).Abs().GreaterThan(v.Tolerance) {
		errs = append(errs, fmt.Sprintf("net pay %s does not match gross %s minus deductions %s", r.NetPay, r.GrossPay, r.Deductions))
	}
	if r.NetPay.IsNegative() {
		errs = append(errs, "net pay is negative")
	}
	return errs
}

// checkPeriod verifies the declared frequency matches the period length,
// allowing two days of drift for month-boundary periods.
func (v *Validator) checkPeriod(r Record) []string {
	nominal, ok := periodDays[r.Frequency]
	if !ok {
		return nil
	}
	days := int(r.PeriodEnd.Sub(r.PeriodStart).Hours()/24) + 1
	drift := days - nominal
	if drift < 0 {
		drift = -drift
	}
	if drift > 2 {
		return []string{fmt.Sprintf("period spans %d days, expected ~%d for %s", days, nominal, r.Frequency)}
	}
	return nil
}
