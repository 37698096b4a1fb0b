package condition

import (
	"errors"
	"fmt"
)

// Parse errors.
var (
	ErrUnsupportedType = errors.New("unsupported condition type")
	ErrUnknownKey      = errors.New("unknown condition key")
	ErrInvalidValue    = errors.New("invalid condition value")
)

// ErrPredicateFailed is wrapped by every PredicateError.
var ErrPredicateFailed = errors.New("predicate failed")

// PredicateError reports a function condition that returned an error or
// panicked.
type PredicateError struct {
	// Panic is the recovered value when the predicate panicked.
	Panic any
	// Err is the error returned by the predicate.
	Err error
}

// Error implements the error interface.
func (e *PredicateError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("predicate panicked: %v", e.Panic)
	}
	return fmt.Sprintf("predicate failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *PredicateError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrPredicateFailed, e.Err}
	}
	return []error{ErrPredicateFailed}
}
