package rolling

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks configuration errors. They are always reported
	// before any model is fitted.
	ErrInvalidConfig = errors.New("invalid evaluation configuration")
	// ErrUnsupportedMode is returned when the backend lacks the capability
	// the mode needs.
	ErrUnsupportedMode = fmt.Errorf("%w: mode not supported by backend", ErrInvalidConfig)
	// ErrOrderChanged is returned when a reestimated model reports a
	// different structural order than the original.
	ErrOrderChanged = errors.New("refit changed the model order")
	// ErrBadForecast is returned when a model returns a malformed batch.
	ErrBadForecast = errors.New("malformed forecast batch")
)

// FitError reports a failure at one origin. It aborts the whole evaluation.
type FitError struct {
	Origin    int // 1-based origin index
	WindowLen int // observations in the fitting window
	Err       error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("origin %d (window %d): %v", e.Origin, e.WindowLen, e.Err)
}

func (e *FitError) Unwrap() error {
	return e.Err
}
