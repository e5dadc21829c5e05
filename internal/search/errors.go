package search

import (
	"fmt"

	"github.com/cwbudde/noisesweep/internal/model"
)

// FitError records a single trial that failed to fit or score. Failed
// trials are skipped during best-selection and reported alongside the
// outcome; they never abort the sweep.
type FitError struct {
	Index  int
	Params model.Params
	Err    error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("trial %d (%v): %v", e.Index, e.Params, e.Err)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *FitError) Is(target error) bool {
	_, ok := target.(*FitError)
	return ok
}
