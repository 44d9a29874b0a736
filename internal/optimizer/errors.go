package optimizer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProblem marks a malformed Problem or Constraints value.
	ErrInvalidProblem = errors.New("invalid problem")
	// ErrInfeasible means no configuration met the target under the constraints.
	ErrInfeasible = errors.New("no feasible solution")
	// ErrUnsupported means the chosen strategy cannot handle the problem shape.
	ErrUnsupported = errors.New("unsupported problem type")
)

// OptimizeError is returned by every solver. Kind is one of the sentinel
// errors above so callers can use errors.Is.
type OptimizeError struct {
	Kind   error
	Reason string
	Err    error
}

func (e *OptimizeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *OptimizeError) Is(target error) bool { return target == e.Kind }

func (e *OptimizeError) Unwrap() error { return e.Err }

func infeasible(format string, args ...any) error {
	return &OptimizeError{Kind: ErrInfeasible, Reason: fmt.Sprintf(format, args...)}
}

func unsupported(format string, args ...any) error {
	return &OptimizeError{Kind: ErrUnsupported, Reason: fmt.Sprintf(format, args...)}
}

func invalidProblem(err error) error {
	return &OptimizeError{Kind: ErrInvalidProblem, Reason: err.Error(), Err: err}
}

// ConstraintError describes an out-of-range constraint.
type ConstraintError struct {
	Field string
	Msg   string
}

func (e *ConstraintError) Error() string { return e.Msg }

// ProblemError describes a malformed problem. Err holds the underlying
// *ConstraintError when the constraints are at fault.
type ProblemError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ProblemError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ProblemError) Unwrap() error { return e.Err }
