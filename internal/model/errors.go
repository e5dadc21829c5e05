package model

import (
	"errors"
	"fmt"
)

// ErrNotFitted is returned when predictions are requested from an
// estimator whose Fit has not completed.
var ErrNotFitted = errors.New("estimator is not fitted")

// ConfigError indicates a hyperparameter name or value an estimator does
// not accept. It is returned by SetParams before any fitting happens.
type ConfigError struct {
	Key    string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid parameter %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("invalid parameter %q = %v: %s", e.Key, e.Value, e.Reason)
}

// Is implements errors.Is support.
func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}

// ShapeError indicates disagreeing data dimensions, such as a feature
// matrix with a different number of rows than its label slice.
type ShapeError struct {
	What string
	Got  int
	Want int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch: %s is %d, want %d", e.What, e.Got, e.Want)
}

// Is implements errors.Is support.
func (e *ShapeError) Is(target error) bool {
	_, ok := target.(*ShapeError)
	return ok
}
