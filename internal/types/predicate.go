package types

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Structured predicates over duty-fact fields.
//
// A Predicate is a DNF expression: OR of AND groups, each group a list of
// field/operator/value conditions. Predicates are side-effect-free and
// declarative; evaluation lives in internal/scenario. An empty predicate is
// vacuously true.

// Operator enumerates condition comparison operators.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpIn
	// OpInWindow tests a fractional hour-of-day against a half-open local
	// time window that may cross midnight, e.g. [22:00, 06:00).
	OpInWindow
)

var operatorNames = map[Operator]string{
	OpEq:       "eq",
	OpNeq:      "neq",
	OpLt:       "lt",
	OpLte:      "lte",
	OpGt:       "gt",
	OpGte:      "gte",
	OpIn:       "in",
	OpInWindow: "in_window",
}

// String returns the wire name of the operator.
func (op Operator) String() string {
	if s, ok := operatorNames[op]; ok {
		return s
	}
	return "unspecified"
}

// ParseOperator converts a wire name to an Operator.
func ParseOperator(s string) (Operator, error) {
	for op, name := range operatorNames {
		if name == s {
			return op, nil
		}
	}
	return OpUnspecified, fmt.Errorf("unknown operator %q", s)
}

// MarshalJSON serializes the operator by wire name.
func (op Operator) MarshalJSON() ([]byte, error) {
	return json.Marshal(op.String())
}

// UnmarshalJSON parses the operator from its wire name.
func (op *Operator) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOperator(s)
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// HourWindow is a half-open [From, To) window of fractional local hours.
// From > To means the window crosses midnight (a red-eye window).
type HourWindow struct {
	From decimal.Decimal `json:"from"`
	To   decimal.Decimal `json:"to"`
}

// Contains reports whether the fractional hour h falls inside the window.
func (w HourWindow) Contains(h decimal.Decimal) bool {
	if w.From.LessThanOrEqual(w.To) {
		return h.GreaterThanOrEqual(w.From) && h.LessThan(w.To)
	}
	// crosses midnight
	return h.GreaterThanOrEqual(w.From) || h.LessThan(w.To)
}

// Condition is a single comparison against one duty-fact field.
// Exactly one of Value / Values / Window is set, matching the operator.
type Condition struct {
	Field  string      `json:"field"`
	Op     Operator    `json:"op"`
	Value  any         `json:"value,omitempty"`  // scalar comparisons
	Values []string    `json:"values,omitempty"` // OpIn membership
	Window *HourWindow `json:"window,omitempty"` // OpInWindow
}

// AndGroup is an AND group: all conditions must hold.
type AndGroup struct {
	Conditions []Condition `json:"conditions"`
}

// Predicate is an OR of AND groups. Empty means always true.
type Predicate struct {
	AnyOf []AndGroup `json:"any_of,omitempty"`
}

// Empty reports whether the predicate has no conditions at all.
func (p Predicate) Empty() bool {
	for _, g := range p.AnyOf {
		if len(g.Conditions) > 0 {
			return false
		}
	}
	return true
}

// Fields returns the distinct fact fields the predicate references,
// in first-seen order. Used for diagnostics.
func (p Predicate) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, g := range p.AnyOf {
		for _, c := range g.Conditions {
			if !seen[c.Field] {
				seen[c.Field] = true
				fields = append(fields, c.Field)
			}
		}
	}
	return fields
}

// All builds a single-group predicate from conditions (pure AND).
func All(conds ...Condition) Predicate {
	return Predicate{AnyOf: []AndGroup{{Conditions: conds}}}
}
