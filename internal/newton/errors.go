package newton

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch indicates a point whose length differs from the
	// solver's variable count.
	ErrDimensionMismatch = errors.New("newton: dimension mismatch")

	// ErrInvalidConfig indicates a non-positive tolerance, iteration limit
	// or damping bound, or an empty system.
	ErrInvalidConfig = errors.New("newton: invalid configuration")

	// ErrNumericDivergence indicates a Newton step with an infinite or NaN
	// component.
	ErrNumericDivergence = errors.New("newton: step diverged (Inf or NaN component)")

	// ErrNoImprovingStep indicates that damping reached the critical
	// coefficient without an accepted step.
	ErrNoImprovingStep = errors.New("newton: damping reached the critical coefficient")

	// ErrMaxIterExceeded indicates the iteration limit was reached above
	// the target residual.
	ErrMaxIterExceeded = errors.New("newton: iteration limit exceeded")
)

// IterationError attaches the iteration and point at which a solve gave up
// to the underlying cause.
type IterationError struct {
	Iteration int
	Point     []float64
	Err       error
}

func (e *IterationError) Error() string {
	return fmt.Sprintf("iteration %d: %v", e.Iteration, e.Err)
}

func (e *IterationError) Unwrap() error {
	return e.Err
}
