package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Estimator errors
	ErrShapeMismatch      = errors.New("shape mismatch")
	ErrDegenerateDensity  = errors.New("degenerate density")
	ErrEmptyHistory       = errors.New("empty integration history")
	ErrInsufficientPoints = errors.New("insufficient points for variance estimate")
	ErrNonFiniteEstimate  = errors.New("non-finite estimate")

	// Configuration errors
	ErrInvalidConfig     = errors.New("invalid integrator configuration")
	ErrUnknownIntegrand  = errors.New("unknown integrand")
	ErrUnknownVariant    = errors.New("unknown integrator variant")
	ErrInvalidIntegrand  = fmt.Errorf("%w: parameters", ErrUnknownIntegrand)
	ErrUnsupportedMethod = errors.New("unsupported comparison method")

	// Run control errors
	ErrInterrupted = errors.New("integration interrupted")

	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

// Error constructors with context
func NewShapeMismatchError(what string, got, want int) error {
	return fmt.Errorf("%w: %s is %d, expected %d", ErrShapeMismatch, what, got, want)
}

func NewDegenerateDensityError(index int, density float64) error {
	return fmt.Errorf("%w: point %d has density %g", ErrDegenerateDensity, index, density)
}

func NewInvalidConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, reason)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsEstimatorError reports errors that mean the statistical estimate is invalid.
func IsEstimatorError(err error) bool {
	return errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrDegenerateDensity) ||
		errors.Is(err, ErrEmptyHistory) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrNonFiniteEstimate)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrUnknownIntegrand) ||
		errors.Is(err, ErrUnknownVariant) ||
		errors.Is(err, ErrUnsupportedMethod)
}
