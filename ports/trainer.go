package ports

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"gozunis/domain/integration"
)

// Trainer owns a trainable posterior and exposes the two operations the integrator needs
type Trainer interface {
	// SampleForward draws n points from the current posterior together with their
	// log-jacobian; the density of each point is exp(-logJac).
	SampleForward(ctx context.Context, exec integration.ExecContext, n int) (x *mat.Dense, logJac []float64, err error)

	// FitWeighted draws n points from posterior, evaluates f on them and fits the
	// trainer's own posterior toward |f|/p. It returns the batch it used.
	FitWeighted(ctx context.Context, exec integration.ExecContext, n int, f Integrand, posterior Posterior) (integration.Batch, *integration.TrainingRecord, error)
}
