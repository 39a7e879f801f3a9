package integrands

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"gozunis/domain/core"
	"gozunis/domain/integration"
)

// RowFunc evaluates the integrand at a single point
type RowFunc func(row []float64) float64

// EvaluateRows applies fn to every row of x. Rows are split into chunks of
// exec.ChunkSize and evaluated by at most exec.Workers goroutines. The result
// keeps the row order of x.
func EvaluateRows(ctx context.Context, exec integration.ExecContext, x *mat.Dense, dims int, fn RowFunc) ([]float64, error) {
	if x == nil {
		return nil, core.NewShapeMismatchError("point rows", 0, 1)
	}
	rows, cols := x.Dims()
	if cols != dims {
		return nil, core.NewShapeMismatchError("point dimension", cols, dims)
	}

	exec = exec.Normalized()
	out := make([]float64, rows)

	if exec.Workers == 1 || rows <= exec.ChunkSize {
		for i := 0; i < rows; i++ {
			out[i] = fn(x.RawRowView(i))
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exec.Workers)
	for start := 0; start < rows; start += exec.ChunkSize {
		start, end := start, min(start+exec.ChunkSize, rows)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				out[i] = fn(x.RawRowView(i))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// broadcast expands a scalar parameter to d components, or checks a vector has d
func broadcast(name string, v []float64, d int) ([]float64, error) {
	switch len(v) {
	case 1:
		out := make([]float64, d)
		for i := range out {
			out[i] = v[0]
		}
		return out, nil
	case d:
		out := make([]float64, d)
		copy(out, v)
		return out, nil
	}
	return nil, core.NewShapeMismatchError(name+" components", len(v), d)
}
