package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// ErrInvalidArgument covers out-of-range alpha, df, ncp, target power,
	// sample sizes and malformed designs.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUpstreamFit covers a model fit that failed or produced a non-finite
	// chi-square. It is propagated unchanged and never retried.
	ErrUpstreamFit = errors.New("upstream fit failure")

	// Planning errors
	ErrTargetUnreachable = errors.New("target power not reached")
)

// Error constructors with context
func NewInvalidArgumentError(field string, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidArgument, field, fmt.Sprintf(format, args...))
}

func NewUpstreamFitError(model string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: model %s", ErrUpstreamFit, model)
	}
	return fmt.Errorf("%w: model %s: %v", ErrUpstreamFit, model, err)
}

// Error checking helpers
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsUpstreamFitFailure(err error) bool {
	return errors.Is(err, ErrUpstreamFit)
}
