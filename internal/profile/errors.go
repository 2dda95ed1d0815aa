package profile

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch indicates a non-square matrix or vectors whose
	// length does not match the matrix size.
	ErrDimensionMismatch = errors.New("profile: dimension mismatch")

	// ErrInvalidState indicates an operation attempted in the wrong
	// lifecycle state, e.g. factoring twice.
	ErrInvalidState = errors.New("profile: invalid matrix state")

	// ErrNotFactorable indicates a zero pivot met during factorization.
	ErrNotFactorable = errors.New("profile: zero pivot, matrix not factorable")

	// ErrNotFactored indicates a solve against a matrix that has not been
	// factored.
	ErrNotFactored = fmt.Errorf("%w: matrix is not factored", ErrInvalidState)
)

func opErrorf(op string, err error, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), err)
}
