package integration

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"gozunis/domain/core"
)

// Batch is one iteration's sample: points x, proposal density p(x) and integrand values f(x).
// Batches are produced fresh each iteration and never stored in the history.
type Batch struct {
	X       *mat.Dense
	Density []float64
	Values  []float64
}

// Len returns the number of points in the batch
func (b Batch) Len() int {
	if b.X == nil {
		return 0
	}
	r, _ := b.X.Dims()
	return r
}

// Validate checks that points, densities and values agree on the batch size
// and, when dims > 0, that points have dims columns.
func (b Batch) Validate(dims int) error {
	if b.X == nil {
		return core.NewShapeMismatchError("point rows", 0, len(b.Values))
	}
	rows, cols := b.X.Dims()
	if dims > 0 && cols != dims {
		return core.NewShapeMismatchError("point dimension", cols, dims)
	}
	if len(b.Density) != rows {
		return core.NewShapeMismatchError("density count", len(b.Density), rows)
	}
	if len(b.Values) != rows {
		return core.NewShapeMismatchError("value count", len(b.Values), rows)
	}
	return nil
}

// Estimate is the per-iteration importance sampling estimate
type Estimate struct {
	Integral float64 `json:"integral"`
	Variance float64 `json:"variance"`
	Error    float64 `json:"error"`
	NPoints  int     `json:"n_points"`
}

// Estimate computes mean(f/p), its unbiased sample variance and the standard
// error sqrt(var/n). Any density that is not strictly positive and finite makes
// the estimator undefined and is reported as ErrDegenerateDensity.
func (b Batch) Estimate() (Estimate, error) {
	if err := b.Validate(0); err != nil {
		return Estimate{}, err
	}
	n := b.Len()
	if n < 2 {
		return Estimate{}, core.ErrInsufficientPoints
	}

	ratios := make([]float64, n)
	for i, p := range b.Density {
		if !(p > 0) || math.IsInf(p, 0) {
			return Estimate{}, core.NewDegenerateDensityError(i, p)
		}
		ratios[i] = b.Values[i] / p
	}

	mean, variance := stat.MeanVariance(ratios, nil)
	if variance < 0 {
		variance = 0
	}

	return Estimate{
		Integral: mean,
		Variance: variance,
		Error:    math.Sqrt(variance / float64(n)),
		NPoints:  n,
	}, nil
}
