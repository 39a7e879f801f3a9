package posterior

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"

	"gozunis/domain/core"
	"gozunis/domain/integration"
)

// Uniform samples the unit hypercube with density 1
type Uniform struct {
	d   int
	mu  sync.Mutex
	rng *rand.Rand
}

// NewUniform creates a uniform sampler drawing from rng
func NewUniform(d int, rng *rand.Rand) (*Uniform, error) {
	if d < 1 {
		return nil, core.NewInvalidConfigError("dims", "must be at least 1")
	}
	if rng == nil {
		return nil, fmt.Errorf("uniform posterior: nil random source")
	}
	return &Uniform{d: d, rng: rng}, nil
}

func (u *Uniform) Dims() int { return u.d }

func (u *Uniform) Sample(ctx context.Context, exec integration.ExecContext, n int) (*mat.Dense, []float64, error) {
	if n < 1 {
		return nil, nil, core.NewInvalidConfigError("n_points", "must be positive")
	}
	data := make([]float64, n*u.d)
	u.mu.Lock()
	for i := range data {
		data[i] = u.rng.Float64()
	}
	u.mu.Unlock()
	return mat.NewDense(n, u.d, data), ones(n), nil
}

// Density is 1 for every row
func (u *Uniform) Density(x *mat.Dense) ([]float64, error) {
	if err := checkPoints(x, u.d); err != nil {
		return nil, err
	}
	r, _ := x.Dims()
	return ones(r), nil
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func checkPoints(x *mat.Dense, d int) error {
	if x == nil {
		return core.NewShapeMismatchError("point rows", 0, 1)
	}
	if _, c := x.Dims(); c != d {
		return core.NewShapeMismatchError("point dimension", c, d)
	}
	return nil
}
