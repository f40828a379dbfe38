// internal/scenario/operators.go
package scenario

import (
	"github.com/shopspring/decimal"

	"github.com/jbandu/crew-pay/internal/types"
)

/*
 * Operator comparison logic for duty-fact predicates.
 *
 * Fact values arrive as decimal.Decimal, string, or bool (see
 * types.DutyFacts.Field). Condition values come from rule-set JSON, so
 * numbers may surface as float64 or int; both sides are normalized to
 * decimal before any numeric comparison to keep money and hour math exact.
 *
 * Operators:
 *   - eq/neq: decimal comparison when both sides are numeric, otherwise
 *     string or bool equality
 *   - lt/lte/gt/gte: numeric only; non-numeric operands never match
 *   - in: string membership against the condition's value list
 *   - in_window: fractional hour-of-day against a half-open window that
 *     may cross midnight
 *
 * Why function-based: a switch over a closed operator enum is clearer than
 * eight single-method implementations with minimal behavior variation.
 */

// Compare applies the operator to a fact value and a condition.
func Compare(cond types.Condition, factValue any) bool {
	switch cond.Op {
	case types.OpEq:
		return compareEqual(factValue, cond.Value)
	case types.OpNeq:
		return !compareEqual(factValue, cond.Value)
	case types.OpLt:
		return compareNumeric(factValue, cond.Value) == -1
	case types.OpLte:
		c := compareNumeric(factValue, cond.Value)
		return c == -1 || c == 0
	case types.OpGt:
		return compareNumeric(factValue, cond.Value) == 1
	case types.OpGte:
		c := compareNumeric(factValue, cond.Value)
		return c == 1 || c == 0
	case types.OpIn:
		return compareIn(factValue, cond.Values)
	case types.OpInWindow:
		return compareInWindow(factValue, cond.Window)
	default:
		return false
	}
}

// compareEqual compares with numeric normalization, falling back to string
// and bool equality.
func compareEqual(a, b any) bool {
	if da, db, ok := asDecimals(a, b); ok {
		return da.Equal(db)
	}
	if sa, ok1 := asString(a); ok1 {
		if sb, ok2 := asString(b); ok2 {
			return sa == sb
		}
	}
	if ba, ok1 := a.(bool); ok1 {
		if bb, ok2 := b.(bool); ok2 {
			return ba == bb
		}
	}
	return false
}

// compareNumeric performs three-way decimal comparison.
// Returns -2 for incomparable operands so callers never match on them.
func compareNumeric(a, b any) int {
	da, db, ok := asDecimals(a, b)
	if !ok {
		return -2
	}
	return da.Cmp(db)
}

// compareIn tests string membership.
func compareIn(v any, set []string) bool {
	s, ok := asString(v)
	if !ok {
		return false
	}
	for _, elem := range set {
		if s == elem {
			return true
		}
	}
	return false
}

// compareInWindow tests a fractional hour against a local time window.
func compareInWindow(v any, w *types.HourWindow) bool {
	if w == nil {
		return false
	}
	d, ok := asDecimal(v)
	if !ok {
		return false
	}
	return w.Contains(d)
}

// asDecimals normalizes both operands for numeric comparison.
func asDecimals(a, b any) (decimal.Decimal, decimal.Decimal, bool) {
	da, oka := asDecimal(a)
	db, okb := asDecimal(b)
	return da, db, oka && okb
}

// asDecimal converts numeric types to decimal. Handles decimal.Decimal
// fact values and float64/int/int64 from JSON unmarshaling.
func asDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	}
	return decimal.Decimal{}, false
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
