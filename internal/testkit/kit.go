package testkit

import (
	"context"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"gozunis/adapters/memory"
	"gozunis/adapters/posterior"
	"gozunis/adapters/rng"
	"gozunis/adapters/trainer"
	"gozunis/domain/integration"
	"gozunis/internal"
	"gozunis/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	repo   *memory.RunRepository
	rng    *rng.SeededAdapter
	logger *internal.Logger
}

// NewTestKit creates a test kit with an in-memory run repository and a quiet logger
func NewTestKit() *TestKit {
	return &TestKit{
		repo:   memory.NewRunRepository(),
		rng:    rng.NewSeededAdapter(),
		logger: internal.NewLogger(internal.LogLevelError),
	}
}

// Repository returns the shared in-memory run repository
func (t *TestKit) Repository() *memory.RunRepository { return t.repo }

// RNGAdapter returns a deterministic RNG port
func (t *TestKit) RNGAdapter() ports.RNGPort { return t.rng }

// Logger returns a logger that only prints errors
func (t *TestKit) Logger() *internal.Logger { return t.logger }

// HistogramTrainer builds a histogram posterior and a trainer around it, seeded
// deterministically.
func (t *TestKit) HistogramTrainer(d int, seed int64) (*posterior.Histogram, *trainer.WeightedDatasetTrainer) {
	h, err := posterior.NewHistogram(d, posterior.DefaultHistogramConfig(), rand.New(rand.NewSource(seed)))
	if err != nil {
		panic(err)
	}
	return h, trainer.NewWeightedDatasetTrainer(h, t.logger)
}

// ZeroDensityPosterior returns uniform points but reports density 0 for every
// point after the first Healthy rows.
type ZeroDensityPosterior struct {
	D       int
	Healthy int
}

func (z *ZeroDensityPosterior) Dims() int { return z.D }

func (z *ZeroDensityPosterior) Sample(ctx context.Context, exec integration.ExecContext, n int) (*mat.Dense, []float64, error) {
	x := mat.NewDense(n, z.D, nil)
	density := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < z.D; j++ {
			x.Set(i, j, 0.5)
		}
		if i < z.Healthy {
			density[i] = 1
		}
	}
	return x, density, nil
}

// ConstantBatch builds an n-point batch in d dimensions with the given value and density
func ConstantBatch(n, d int, value, density float64) integration.Batch {
	values := make([]float64, n)
	dens := make([]float64, n)
	for i := range values {
		values[i] = value
		dens[i] = density
	}
	return integration.Batch{X: mat.NewDense(n, d, nil), Density: dens, Values: values}
}
