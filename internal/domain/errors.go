package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the mitigation core. Callers match them with errors.Is.
var (
	// ErrInvalidParameter reports a bad noise/error-probability input or malformed count data.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidScaleFactor reports a scale factor below 1 or not finite.
	ErrInvalidScaleFactor = errors.New("invalid scale factor")
	// ErrEmptyDistribution reports a count distribution without usable shots.
	ErrEmptyDistribution = errors.New("empty distribution")
	// ErrExecutionFailed reports a backend failure or malformed backend output.
	ErrExecutionFailed = errors.New("execution failed")
	// ErrInsufficientData reports a fit with too few distinct scale factors or a singular design.
	ErrInsufficientData = errors.New("insufficient data")
)

// StageError identifies the stage and scale factor at which an extrapolation run failed.
// Kind is one of the sentinel errors above; Err is the underlying cause (may be nil).
type StageError struct {
	Stage       Stage
	ScaleFactor float64
	Kind        error
	Err         error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s at %s", e.Kind, e.Stage)
	if e.ScaleFactor > 0 {
		msg += fmt.Sprintf(" (scale factor %g)", e.ScaleFactor)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewStageError builds a StageError. Errors that already carry one of the sentinel kinds keep
// that kind; anything else is classified with the fallback kind.
func NewStageError(stage Stage, scaleFactor float64, fallback error, err error) *StageError {
	kind := fallback
	for _, k := range []error{ErrInvalidParameter, ErrInvalidScaleFactor, ErrEmptyDistribution, ErrInsufficientData, ErrExecutionFailed} {
		if errors.Is(err, k) {
			kind = k
			break
		}
	}
	return &StageError{Stage: stage, ScaleFactor: scaleFactor, Kind: kind, Err: err}
}
