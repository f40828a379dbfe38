// internal/discrepancy/detector.go

// Package discrepancy compares expected pay against recorded payments and
// classifies the difference.
//
// The detector never alters pay: it reports whether a difference exists,
// how severe it is, and whether it sits inside the auto-fix band. Applying
// a correction is the payroll caller's job.
package discrepancy

import (
	"github.com/shopspring/decimal"

	"github.com/jbandu/crew-pay/internal/types"
)

// Severity thresholds on the absolute difference, in currency units.
// CRITICAL also triggers on relative magnitude so a large underpayment of
// a small paycheck is not filed as routine.
var (
	criticalAbs   = decimal.NewFromInt(500)
	criticalRatio = decimal.NewFromFloat(0.10)
	highAbs       = decimal.NewFromInt(100)
	mediumAbs     = decimal.NewFromInt(10)
)

// Detector classifies expected-vs-actual pay differences.
type Detector struct {
	// Epsilon is the comparison tolerance; differences at or below it are
	// rounding noise, not discrepancies. One cent by default.
	Epsilon decimal.Decimal

	// AutoFixCeiling bounds the absolute difference an auto-fix may touch.
	// Only LOW and MEDIUM findings strictly under the ceiling qualify.
	AutoFixCeiling decimal.Decimal
}

// NewDetector returns a detector with the given tolerance and auto-fix
// ceiling. Zero values fall back to one cent and fifty currency units.
func NewDetector(epsilon, autoFixCeiling decimal.Decimal) *Detector {
	if epsilon.LessThanOrEqual(decimal.Zero) {
		epsilon = decimal.NewFromFloat(0.01)
	}
	if autoFixCeiling.LessThanOrEqual(decimal.Zero) {
		autoFixCeiling = decimal.NewFromInt(50)
	}
	return &Detector{Epsilon: epsilon, AutoFixCeiling: autoFixCeiling}
}

// Detect compares an expected calculation against the recorded payment.
// Returns nil when the difference is within tolerance. The signed
// Difference is expected minus actual: positive means underpayment.
// DetectedAt is left zero for the caller to stamp.
func (d *Detector) Detect(expected *types.PayCalculation, actual decimal.Decimal) *types.Discrepancy {
	diff := expected.Total.Sub(actual)
	abs := diff.Abs()
	if abs.LessThanOrEqual(d.Epsilon) {
		return nil
	}

	severity := d.classify(abs, expected.Total)
	return &types.Discrepancy{
		EvaluationID: expected.EvaluationID,
		Expected:     expected.Total,
		Actual:       actual,
		Difference:   diff,
		Severity:     severity,
		AutoFixable:  d.autoFixable(severity, abs),
	}
}

// classify maps the absolute difference onto the severity ladder.
func (d *Detector) classify(abs, expected decimal.Decimal) types.Severity {
	if abs.GreaterThanOrEqual(criticalAbs) {
		return types.SeverityCritical
	}
	if expected.GreaterThan(decimal.Zero) && abs.Div(expected).GreaterThanOrEqual(criticalRatio) {
		return types.SeverityCritical
	}
	if abs.GreaterThanOrEqual(highAbs) {
		return types.SeverityHigh
	}
	if abs.GreaterThanOrEqual(mediumAbs) {
		return types.SeverityMedium
	}
	return types.SeverityLow
}

// autoFixable admits only the low end of the ladder, and only under the
// configured ceiling. HIGH and CRITICAL always go to a human.
func (d *Detector) autoFixable(severity types.Severity, abs decimal.Decimal) bool {
	if severity != types.SeverityLow && severity != types.SeverityMedium {
		return false
	}
	return abs.LessThan(d.AutoFixCeiling)
}
