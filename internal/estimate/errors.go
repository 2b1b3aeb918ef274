package estimate

import (
	"errors"
	"fmt"
)

// ErrNonConvergence is the sentinel wrapped by NonConvergenceError.
var ErrNonConvergence = errors.New("estimate did not converge")

// NonConvergenceError reports that the trial ceiling was reached before the
// half-width target. The partial estimate is still returned in Result.
type NonConvergenceError struct {
	Trials    int
	P         float64
	HalfWidth float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("%s after %d trials (p=%.4f ±%.4f)", ErrNonConvergence, e.Trials, e.P, e.HalfWidth)
}

func (e *NonConvergenceError) Unwrap() error { return ErrNonConvergence }
