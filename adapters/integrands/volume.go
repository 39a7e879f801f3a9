package integrands

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"gozunis/domain/core"
	"gozunis/domain/integration"
)

// HyperrectangleVolume is 1 where x[splitDim] < frac and 0 elsewhere.
// Its integral is frac.
type HyperrectangleVolume struct {
	d        int
	splitDim int
	frac     float64
}

// NewHyperrectangleVolume cuts the unit hypercube along splitDim at frac
func NewHyperrectangleVolume(d, splitDim int, frac float64) (*HyperrectangleVolume, error) {
	if d < 1 {
		return nil, fmt.Errorf("%w: dims must be at least 1", core.ErrInvalidIntegrand)
	}
	if splitDim < 0 || splitDim >= d {
		return nil, fmt.Errorf("%w: split_dim %d outside [0, %d)", core.ErrInvalidIntegrand, splitDim, d)
	}
	if frac < 0 || frac > 1 {
		return nil, fmt.Errorf("%w: frac %g outside [0, 1]", core.ErrInvalidIntegrand, frac)
	}
	return &HyperrectangleVolume{d: d, splitDim: splitDim, frac: frac}, nil
}

func (h *HyperrectangleVolume) Dims() int { return h.d }

func (h *HyperrectangleVolume) Integral() float64 { return h.frac }

func (h *HyperrectangleVolume) Evaluate(ctx context.Context, exec integration.ExecContext, x *mat.Dense) ([]float64, error) {
	return EvaluateRows(ctx, exec, x, h.d, func(row []float64) float64 {
		if row[h.splitDim] < h.frac {
			return 1
		}
		return 0
	})
}

// HypersphereVolume is the characteristic function of a ball that fits fully
// inside the unit hypercube.
type HypersphereVolume struct {
	d int
	r float64
	c []float64
}

// NewHypersphereVolume builds a ball of radius r around c; c is a scalar
// (same coordinate on every axis) or a d-vector.
func NewHypersphereVolume(d int, r float64, c []float64) (*HypersphereVolume, error) {
	if d < 1 {
		return nil, fmt.Errorf("%w: dims must be at least 1", core.ErrInvalidIntegrand)
	}
	if !(r > 0) {
		return nil, fmt.Errorf("%w: radius must be positive", core.ErrInvalidIntegrand)
	}
	center, err := broadcast("center", c, d)
	if err != nil {
		return nil, err
	}
	for i, ci := range center {
		if ci-r <= 0 || ci+r >= 1 {
			return nil, fmt.Errorf("%w: ball does not fit in the unit hypercube along axis %d", core.ErrInvalidIntegrand, i)
		}
	}
	return &HypersphereVolume{d: d, r: r, c: center}, nil
}

func (h *HypersphereVolume) Dims() int { return h.d }

// Integral is r^d π^(d/2) / Γ(d/2 + 1)
func (h *HypersphereVolume) Integral() float64 {
	d := float64(h.d)
	return math.Pow(h.r, d) * math.Pow(math.Pi, d/2) / math.Gamma(d/2+1)
}

func (h *HypersphereVolume) Evaluate(ctx context.Context, exec integration.ExecContext, x *mat.Dense) ([]float64, error) {
	r2 := h.r * h.r
	return EvaluateRows(ctx, exec, x, h.d, func(row []float64) float64 {
		var sq float64
		for i, xi := range row {
			diff := xi - h.c[i]
			sq += diff * diff
		}
		if sq <= r2 {
			return 1
		}
		return 0
	})
}
