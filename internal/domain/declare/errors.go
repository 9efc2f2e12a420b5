package declare

import (
	"errors"
	"fmt"
)

// Configuration errors. They abort model compilation.
var (
	ErrUnsupportedTemplate = errors.New("unsupported template")
	ErrMissingActivity     = errors.New("missing target activity")
	ErrMissingCardinality  = errors.New("cardinality required but absent")
	ErrInvalidCardinality  = errors.New("invalid cardinality")
	ErrDuplicateConstraint = errors.New("duplicate constraint")
)

// ErrNotFound indicates a constraint was not found.
var ErrNotFound = errors.New("constraint not found")

// ConditionSyntaxError reports an expression that is not valid in the
// condition language, or that does not yield a boolean.
type ConditionSyntaxError struct {
	Expression string
	Err        error
}

func (e *ConditionSyntaxError) Error() string {
	return fmt.Sprintf("malformed condition %q: %v", e.Expression, e.Err)
}

func (e *ConditionSyntaxError) Unwrap() error { return e.Err }

// AttributeLookupError reports a reference to an attribute the bound event
// does not carry, or to a variable that is not bound at all.
type AttributeLookupError struct {
	Variable  string
	Attribute string
	Unbound   bool
}

func (e *AttributeLookupError) Error() string {
	if e.Unbound {
		return fmt.Sprintf("variable %s is not bound (looking up %q)", e.Variable, e.Attribute)
	}
	return fmt.Sprintf("attribute %q not found on %s", e.Attribute, e.Variable)
}

// IsConditionError reports whether err is a condition failure that the
// aggregator recovers from per constraint.
func IsConditionError(err error) bool {
	var syntaxErr *ConditionSyntaxError
	var lookupErr *AttributeLookupError
	return errors.As(err, &syntaxErr) || errors.As(err, &lookupErr)
}
