package ports

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"gozunis/domain/integration"
)

// Posterior is a sampling distribution over the unit hypercube with explicit density
type Posterior interface {
	Dims() int
	// Sample draws n points and returns them with their density
	Sample(ctx context.Context, exec integration.ExecContext, n int) (*mat.Dense, []float64, error)
}

// TrainablePosterior can be fit to a weighted batch of target-space points
type TrainablePosterior interface {
	Posterior
	Density(x *mat.Dense) ([]float64, error)
	Fit(ctx context.Context, x *mat.Dense, weights []float64) (*integration.TrainingRecord, error)
}
