package matching

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidTolerance = errors.New("invalid tolerance")
	ErrUnknownMode      = errors.New("unknown match mode")
)

// InvalidToleranceError reports a negative window half-width.
type InvalidToleranceError struct {
	Tolerance int
}

func (e *InvalidToleranceError) Error() string {
	return fmt.Sprintf("%s: %d frames (must be >= 0)", ErrInvalidTolerance, e.Tolerance)
}

// Unwrap exposes ErrInvalidTolerance to errors.Is.
func (e *InvalidToleranceError) Unwrap() error { return ErrInvalidTolerance }
