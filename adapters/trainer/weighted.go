package trainer

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"gozunis/domain/core"
	"gozunis/domain/integration"
	"gozunis/internal"
	"gozunis/ports"
)

// WeightedDatasetTrainer fits a trainable posterior to weighted batches of
// target-space points, with weights |f(x)|/p(x).
type WeightedDatasetTrainer struct {
	posterior ports.TrainablePosterior
	logger    *internal.Logger
}

// NewWeightedDatasetTrainer wraps posterior; a nil logger uses the default one
func NewWeightedDatasetTrainer(posterior ports.TrainablePosterior, logger *internal.Logger) *WeightedDatasetTrainer {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &WeightedDatasetTrainer{posterior: posterior, logger: logger.With("trainer")}
}

// Posterior returns the model being trained
func (t *WeightedDatasetTrainer) Posterior() ports.TrainablePosterior { return t.posterior }

// SampleForward draws from the trained posterior and reports -log q(x)
func (t *WeightedDatasetTrainer) SampleForward(ctx context.Context, exec integration.ExecContext, n int) (*mat.Dense, []float64, error) {
	x, q, err := t.posterior.Sample(ctx, exec, n)
	if err != nil {
		return nil, nil, fmt.Errorf("sample posterior: %w", err)
	}
	logJac := make([]float64, len(q))
	for i, qi := range q {
		logJac[i] = -math.Log(qi)
	}
	return x, logJac, nil
}

// FitWeighted samples n points from sampler, evaluates f and trains on the batch
func (t *WeightedDatasetTrainer) FitWeighted(ctx context.Context, exec integration.ExecContext, n int, f ports.Integrand, sampler ports.Posterior) (integration.Batch, *integration.TrainingRecord, error) {
	if f.Dims() != sampler.Dims() {
		return integration.Batch{}, nil, core.NewShapeMismatchError("sampler dimension", sampler.Dims(), f.Dims())
	}

	x, p, err := sampler.Sample(ctx, exec, n)
	if err != nil {
		return integration.Batch{}, nil, fmt.Errorf("sample survey batch: %w", err)
	}
	values, err := f.Evaluate(ctx, exec, x)
	if err != nil {
		return integration.Batch{}, nil, fmt.Errorf("evaluate integrand: %w", err)
	}
	batch := integration.Batch{X: x, Density: p, Values: values}
	if err := batch.Validate(f.Dims()); err != nil {
		return integration.Batch{}, nil, err
	}

	weights := make([]float64, len(values))
	for i, pi := range p {
		if !(pi > 0) || math.IsInf(pi, 0) {
			return integration.Batch{}, nil, core.NewDegenerateDensityError(i, pi)
		}
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return integration.Batch{}, nil, fmt.Errorf("%w: integrand value %g at point %d", core.ErrNonFiniteEstimate, values[i], i)
		}
		weights[i] = math.Abs(values[i]) / pi
	}

	record, err := t.posterior.Fit(ctx, x, weights)
	if err != nil {
		return integration.Batch{}, nil, fmt.Errorf("fit posterior: %w", err)
	}
	t.logger.Debug("fit %d points, loss %.4e", len(weights), record.Loss)
	return batch, record, nil
}
