package types

import (
	"errors"
	"fmt"
)

// Error taxonomy for one engine evaluation. Every error here is local to a
// single evaluation: a batch run reports the failing record and completes
// the rest.

// ErrNoApplicablePolicy indicates no scenario matched a fact set while the
// caller asserted at least one was required (strict mode).
var ErrNoApplicablePolicy = errors.New("no applicable scenario matched duty facts")

// SchemaErrorKind categorizes rule-graph integrity violations.
type SchemaErrorKind string

const (
	// SchemaUnknownRef indicates an edge references a node that does not exist.
	SchemaUnknownRef SchemaErrorKind = "UNKNOWN_REF"

	// SchemaDuplicate indicates a code/id uniqueness violation.
	SchemaDuplicate SchemaErrorKind = "DUPLICATE"

	// SchemaDependencyCycle indicates a DEPENDS_ON cycle between components.
	SchemaDependencyCycle SchemaErrorKind = "DEPENDENCY_CYCLE"

	// SchemaAmbiguousFormula indicates two contract terms define the same
	// pay component for the same scenario with equal priority.
	SchemaAmbiguousFormula SchemaErrorKind = "AMBIGUOUS_FORMULA"

	// SchemaInvalidNode indicates a node fails its own validity checks.
	SchemaInvalidNode SchemaErrorKind = "INVALID_NODE"
)

// SchemaError reports a malformed rule graph. Fatal at load time; a graph
// that loaded cleanly can never raise one mid-calculation.
type SchemaError struct {
	Kind   SchemaErrorKind
	Ref    string // offending code/id
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("rule graph schema error %s: %s (%s)", e.Kind, e.Detail, e.Ref)
	}
	return fmt.Sprintf("rule graph schema error %s: %s", e.Kind, e.Detail)
}

// IsSchemaError reports whether err is (or wraps) a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// ConflictUnresolvedError reports a rule conflict whose resolution method
// could not be evaluated. Surfaced to the caller, never silently guessed;
// always names both rule codes.
type ConflictUnresolvedError struct {
	RuleA        RuleCode
	RuleB        RuleCode
	Method       string
	MissingField string // fact or rule field that blocked resolution, if any
}

func (e *ConflictUnresolvedError) Error() string {
	if e.MissingField != "" {
		return fmt.Sprintf("unresolved conflict between %s and %s: %s resolution requires missing field %q",
			e.RuleA, e.RuleB, e.Method, e.MissingField)
	}
	return fmt.Sprintf("unresolved conflict between %s and %s via %s", e.RuleA, e.RuleB, e.Method)
}

// IsConflictUnresolved reports whether err is (or wraps) a ConflictUnresolvedError.
func IsConflictUnresolved(err error) bool {
	var ce *ConflictUnresolvedError
	return errors.As(err, &ce)
}

// FormulaInputError reports a missing or invalid DutyFacts field required by
// a component formula. Aborts the one record, not its batch siblings.
type FormulaInputError struct {
	Component ComponentKind
	Field     string
	Detail    string
}

func (e *FormulaInputError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s formula: missing or invalid field %q: %s", e.Component, e.Field, e.Detail)
	}
	return fmt.Sprintf("%s formula: missing or invalid field %q", e.Component, e.Field)
}

// IsFormulaInputError reports whether err is (or wraps) a FormulaInputError.
func IsFormulaInputError(err error) bool {
	var fe *FormulaInputError
	return errors.As(err, &fe)
}
