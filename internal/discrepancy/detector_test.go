// internal/discrepancy/detector_test.go
package discrepancy

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jbandu/crew-pay/internal/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func calcWithTotal(total string) *types.PayCalculation {
	return &types.PayCalculation{
		EvaluationID: types.NewEvaluationID(),
		Total:        dec(total),
	}
}

func TestDetect_WithinEpsilon(t *testing.T) {
	d := NewDetector(decimal.Zero, decimal.Zero)

	tests := []struct {
		name   string
		actual string
	}{
		{"exact match", "1000"},
		{"one cent under", "999.99"},
		{"one cent over", "1000.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Detect(calcWithTotal("1000"), dec(tt.actual)); got != nil {
				t.Errorf("Detect() = %+v, want nil", got)
			}
		})
	}
}

func TestDetect_JustPastEpsilon(t *testing.T) {
	d := NewDetector(decimal.Zero, decimal.Zero)

	got := d.Detect(calcWithTotal("1000"), dec("999.98"))
	if got == nil {
		t.Fatal("Detect() = nil, want discrepancy (0.02 > 0.01 tolerance)")
	}
	if !got.Difference.Equal(dec("0.02")) {
		t.Errorf("Difference = %v, want 0.02", got.Difference)
	}
}

func TestDetect_SeverityLadder(t *testing.T) {
	d := NewDetector(decimal.Zero, decimal.Zero)

	tests := []struct {
		name     string
		expected string
		actual   string
		want     types.Severity
	}{
		{"low", "1000", "995", types.SeverityLow},
		{"medium at boundary", "1000", "990", types.SeverityMedium},
		{"medium", "1000", "910", types.SeverityMedium},
		{"high at boundary", "2000", "1900", types.SeverityHigh},
		{"critical absolute", "2000", "1500", types.SeverityCritical},
		{"critical by ratio", "200", "170", types.SeverityCritical}, // 30/200 = 15%
		{"overpayment classified the same", "2000", "2120", types.SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(calcWithTotal(tt.expected), dec(tt.actual))
			if got == nil {
				t.Fatal("Detect() = nil, want discrepancy")
			}
			if got.Severity != tt.want {
				t.Errorf("Severity = %v, want %v", got.Severity, tt.want)
			}
		})
	}
}

func TestDetect_DifferenceSign(t *testing.T) {
	d := NewDetector(decimal.Zero, decimal.Zero)

	under := d.Detect(calcWithTotal("1000"), dec("900"))
	if !under.Difference.Equal(dec("100")) {
		t.Errorf("underpayment Difference = %v, want +100", under.Difference)
	}

	over := d.Detect(calcWithTotal("1000"), dec("1100"))
	if !over.Difference.Equal(dec("-100")) {
		t.Errorf("overpayment Difference = %v, want -100", over.Difference)
	}
}

func TestDetect_AutoFixable(t *testing.T) {
	d := NewDetector(decimal.Zero, decimal.Zero) // ceiling defaults to 50

	tests := []struct {
		name     string
		expected string
		actual   string
		want     bool
	}{
		{"low under ceiling", "1000", "995", true},
		{"medium under ceiling", "1000", "960", true},
		{"medium at ceiling", "1000", "950", false}, // strict bound
		{"high never", "2000", "1880", false},
		{"critical never", "100", "50", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(calcWithTotal(tt.expected), dec(tt.actual))
			if got == nil {
				t.Fatal("Detect() = nil, want discrepancy")
			}
			if got.AutoFixable != tt.want {
				t.Errorf("AutoFixable = %v, want %v", got.AutoFixable, tt.want)
			}
		})
	}
}

func TestDetect_CarriesEvaluationID(t *testing.T) {
	d := NewDetector(decimal.Zero, decimal.Zero)
	calc := calcWithTotal("500")

	got := d.Detect(calc, dec("400"))
	if got.EvaluationID != calc.EvaluationID {
		t.Errorf("EvaluationID = %v, want %v", got.EvaluationID, calc.EvaluationID)
	}
	if !got.DetectedAt.IsZero() {
		t.Error("DetectedAt stamped by detector, want zero for caller to assign")
	}
}

func TestNewDetector_Defaults(t *testing.T) {
	d := NewDetector(decimal.Zero, decimal.Zero)
	if !d.Epsilon.Equal(dec("0.01")) {
		t.Errorf("default Epsilon = %v, want 0.01", d.Epsilon)
	}
	if !d.AutoFixCeiling.Equal(dec("50")) {
		t.Errorf("default AutoFixCeiling = %v, want 50", d.AutoFixCeiling)
	}
}
