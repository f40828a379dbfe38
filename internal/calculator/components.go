// internal/calculator/components.go
package calculator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jbandu/crew-pay/internal/types"
)

var sixty = decimal.NewFromInt(60)

// overtimePay applies the overtime formula incrementally: only the credit
// this duty pushes past max(threshold, month-to-date) pays the multiplier.
// Credit already past the threshold before this duty was paid by an
// earlier evaluation.
func overtimePay(f types.Overtime, facts types.DutyFacts, credit decimal.Decimal) (decimal.Decimal, string) {
	before := facts.MonthToDateCreditHours
	after := before.Add(credit)
	base := f.ThresholdHours
	if before.GreaterThan(base) {
		base = before
	}
	hours := after.Sub(base)
	if hours.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Sprintf("%s h month-to-date under %s h threshold", after, f.ThresholdHours)
	}
	amount := hours.Mul(facts.HourlyRate).Mul(f.Multiplier)
	detail := fmt.Sprintf("%s h over %s h threshold × %s × %s", hours, f.ThresholdHours, facts.HourlyRate, f.Multiplier)
	return amount, detail
}

// perDiemPay pays the flat rate per duty hour.
func perDiemPay(f types.PerDiem, facts types.DutyFacts) (decimal.Decimal, string, error) {
	if facts.DutyStart.IsZero() || facts.DutyEnd.IsZero() {
		return decimal.Zero, "", &types.FormulaInputError{
			Component: types.KindPerDiem, Field: "duty_start", Detail: "per diem needs the duty window",
		}
	}
	duty := facts.DutyHours()
	return duty.Mul(f.Rate), fmt.Sprintf("%s duty h × %s", duty, f.Rate), nil
}

// premiumPay pays the rate uplift (multiplier − 1) for the flight hours
// falling inside the premium window. The base hour is already paid by
// flight_pay; paying the full multiplier again would double-count it.
func premiumPay(f types.PremiumMultiplier, facts types.DutyFacts) (decimal.Decimal, string, error) {
	if facts.Departure.IsZero() || facts.Arrival.IsZero() {
		return decimal.Zero, "", &types.FormulaInputError{
			Component: types.KindPremium, Field: "departure", Detail: "premium window needs departure and arrival times",
		}
	}
	overlap := windowOverlapHours(facts.Departure, facts.Arrival, f.Window)
	uplift := f.Multiplier.Sub(decimal.NewFromInt(1))
	amount := overlap.Mul(facts.HourlyRate).Mul(uplift)
	detail := fmt.Sprintf("%s h in window [%s, %s) × %s × (%s − 1)",
		overlap, f.Window.From, f.Window.To, facts.HourlyRate, f.Multiplier)
	return amount, detail, nil
}

// delayPay activates only past the threshold, exclusive: a delay equal to
// the threshold pays nothing. A positive delay with no cause code cannot
// be classified and is a data error, not a silent zero.
func delayPay(f types.DelayCompensation, facts types.DutyFacts) (decimal.Decimal, string, error) {
	if facts.DelayMinutes > 0 && facts.DelayCode == "" {
		return decimal.Zero, "", &types.FormulaInputError{
			Component: types.KindDelayPay, Field: types.FieldDelayCode,
			Detail: fmt.Sprintf("delay of %d min has no cause code", facts.DelayMinutes),
		}
	}
	if facts.DelayMinutes <= f.ThresholdMinutes {
		return decimal.Zero, fmt.Sprintf("%d min delay not over %d min threshold", facts.DelayMinutes, f.ThresholdMinutes), nil
	}
	if !f.Eligible(facts.DelayCode) {
		return decimal.Zero, fmt.Sprintf("delay code %s not eligible", facts.DelayCode), nil
	}
	hours := decimal.NewFromInt(int64(facts.DelayMinutes)).Div(sixty)
	amount := hours.Mul(facts.HourlyRate).Mul(f.Multiplier)
	detail := fmt.Sprintf("%d min delay (%s) = %s h × %s × %s",
		facts.DelayMinutes, facts.DelayCode, hours, facts.HourlyRate, f.Multiplier)
	return amount, detail, nil
}

// guaranteeTopUp pays the shortfall between guaranteed credit and actual
// credit including this duty. Never negative: flying past the guarantee
// pays through flight_pay and overtime, not here.
func guaranteeTopUp(f types.MonthlyGuarantee, facts types.DutyFacts, credit decimal.Decimal) (decimal.Decimal, string) {
	guaranteed := f.GuaranteeHours()
	actual := facts.MonthToDateCreditHours.Add(credit)
	shortfall := guaranteed.Sub(actual)
	if shortfall.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Sprintf("%s h credit meets %s h guarantee", actual, guaranteed)
	}
	amount := shortfall.Mul(facts.HourlyRate)
	detail := fmt.Sprintf("(%s h guarantee − %s h credit) × %s", guaranteed, actual, facts.HourlyRate)
	return amount, detail
}

// windowOverlapHours sums the minutes of [from, to) falling inside the
// daily hour window, as fractional hours. The window recurs every day and
// may cross midnight, so each calendar day touched by the flight
// contributes its own window instance.
func windowOverlapHours(from, to time.Time, w types.HourWindow) decimal.Decimal {
	if !to.After(from) || w.From.Equal(w.To) {
		return decimal.Zero
	}
	startMin := decimalHoursToMinutes(w.From)
	lengthMin := (decimalHoursToMinutes(w.To) - startMin + 24*60) % (24 * 60)

	total := 0
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location()).AddDate(0, 0, -1)
	for !day.After(to) {
		winStart := day.Add(time.Duration(startMin) * time.Minute)
		winEnd := winStart.Add(time.Duration(lengthMin) * time.Minute)
		total += overlapMinutes(from, to, winStart, winEnd)
		day = day.AddDate(0, 0, 1)
	}
	return decimal.NewFromInt(int64(total)).Div(sixty)
}

func overlapMinutes(aFrom, aTo, bFrom, bTo time.Time) int {
	start := aFrom
	if bFrom.After(start) {
		start = bFrom
	}
	end := aTo
	if bTo.Before(end) {
		end = bTo
	}
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start).Minutes())
}

func decimalHoursToMinutes(h decimal.Decimal) int {
	return int(h.Mul(sixty).IntPart())
}
