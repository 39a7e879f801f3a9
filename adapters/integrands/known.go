package integrands

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"gozunis/domain/core"
	"gozunis/ports"
)

// Method selects how an estimate is compared with the true integral
type Method string

const (
	MethodRelative Method = "relative"
	MethodAbsolute Method = "absolute"
)

// CompareAbsolute is |I - estimate|
func CompareAbsolute(f ports.KnownIntegrand, estimate float64) float64 {
	return math.Abs(f.Integral() - estimate)
}

// CompareRelative is |I - estimate| divided by the mean magnitude of the two
func CompareRelative(f ports.KnownIntegrand, estimate float64) float64 {
	return CompareAbsolute(f, estimate) / (0.5 * (math.Abs(f.Integral()) + math.Abs(estimate)))
}

// Check reports whether estimate lies within tolerance of the true integral
func Check(f ports.KnownIntegrand, estimate, tolerance float64, method Method) (bool, error) {
	switch method {
	case MethodRelative:
		return CompareRelative(f, estimate) <= tolerance, nil
	case MethodAbsolute:
		return CompareAbsolute(f, estimate) <= tolerance, nil
	}
	return false, fmt.Errorf("%w: %q (use %q or %q)", core.ErrUnsupportedMethod, method, MethodRelative, MethodAbsolute)
}

// WithinSigma reports whether the true integral lies within sigmas reported errors
func WithinSigma(f ports.KnownIntegrand, value, stdErr, sigmas float64) bool {
	return CompareAbsolute(f, value) <= sigmas*stdErr
}

// SigmaForConfidence returns the two-sided normal quantile for a confidence level,
// e.g. 0.9973 gives about 3.
func SigmaForConfidence(confidence float64) float64 {
	return distuv.UnitNormal.Quantile(0.5 + confidence/2)
}
