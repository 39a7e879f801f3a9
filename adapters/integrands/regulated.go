package integrands

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"gozunis/domain/core"
	"gozunis/domain/integration"
	"gozunis/ports"
)

// Regulated adds a small constant to a known integrand so that it is never zero
type Regulated struct {
	inner ports.KnownIntegrand
	reg   float64
}

// NewRegulated wraps inner; reg must be positive
func NewRegulated(inner ports.KnownIntegrand, reg float64) (*Regulated, error) {
	if !(reg > 0) {
		return nil, fmt.Errorf("%w: reg must be positive", core.ErrInvalidIntegrand)
	}
	return &Regulated{inner: inner, reg: reg}, nil
}

func (r *Regulated) Dims() int { return r.inner.Dims() }

func (r *Regulated) Evaluate(ctx context.Context, exec integration.ExecContext, x *mat.Dense) ([]float64, error) {
	values, err := r.inner.Evaluate(ctx, exec, x)
	if err != nil {
		return nil, err
	}
	for i := range values {
		values[i] += r.reg
	}
	return values, nil
}

// Integral adds reg times the unit volume
func (r *Regulated) Integral() float64 { return r.inner.Integral() + r.reg }

// Constant is f(x) = c, mostly useful as a sanity check
type Constant struct {
	d int
	c float64
}

func NewConstant(d int, c float64) (*Constant, error) {
	if d < 1 {
		return nil, fmt.Errorf("%w: dims must be at least 1", core.ErrInvalidIntegrand)
	}
	return &Constant{d: d, c: c}, nil
}

func (k *Constant) Dims() int { return k.d }

func (k *Constant) Integral() float64 { return k.c }

func (k *Constant) Evaluate(ctx context.Context, exec integration.ExecContext, x *mat.Dense) ([]float64, error) {
	return EvaluateRows(ctx, exec, x, k.d, func([]float64) float64 { return k.c })
}
