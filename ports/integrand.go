package ports

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"gozunis/domain/integration"
)

// Integrand is a batched function on the unit hypercube.
// Evaluate must return one value per row of x and must not keep x.
type Integrand interface {
	Dims() int
	Evaluate(ctx context.Context, exec integration.ExecContext, x *mat.Dense) ([]float64, error)
}

// KnownIntegrand is an integrand whose exact integral is available, used for validation
type KnownIntegrand interface {
	Integrand
	Integral() float64
}
