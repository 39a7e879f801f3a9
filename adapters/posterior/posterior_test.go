package posterior

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"gozunis/domain/core"
	"gozunis/domain/integration"
)

func TestUniform_Sample(t *testing.T) {
	u, err := NewUniform(3, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	x, p, err := u.Sample(context.Background(), integration.ExecContext{}, 100)
	require.NoError(t, err)

	r, c := x.Dims()
	assert.Equal(t, 100, r)
	assert.Equal(t, 3, c)
	for i, v := range x.RawMatrix().Data {
		if v < 0 || v >= 1 {
			t.Fatalf("coordinate %d outside unit interval: %f", i, v)
		}
	}
	for _, d := range p {
		assert.Equal(t, 1.0, d)
	}

	_, _, err = u.Sample(context.Background(), integration.ExecContext{}, 0)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}

func TestHistogramConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultHistogramConfig().Validate())

	bad := []HistogramConfig{
		{Bins: 0, LearningRate: 0.5, Epochs: 1, Floor: 0.1},
		{Bins: 10, LearningRate: 0, Epochs: 1, Floor: 0.1},
		{Bins: 10, LearningRate: 1.5, Epochs: 1, Floor: 0.1},
		{Bins: 10, LearningRate: 0.5, Epochs: 0, Floor: 0.1},
		{Bins: 10, LearningRate: 0.5, Epochs: 1, Floor: 0},
	}
	for _, cfg := range bad {
		assert.True(t, errors.Is(cfg.Validate(), core.ErrInvalidConfig), "%+v", cfg)
	}
}

func TestHistogram_SampleDensityMatchesDensity(t *testing.T) {
	h, err := NewHistogram(2, HistogramConfig{Bins: 8, LearningRate: 1, Epochs: 1, Floor: 0.2}, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	// skew the histogram before comparing
	x := mat.NewDense(4, 2, []float64{0.1, 0.1, 0.15, 0.2, 0.9, 0.1, 0.12, 0.11})
	_, err = h.Fit(context.Background(), x, []float64{1, 2, 0.5, 3})
	require.NoError(t, err)

	samples, sampled, err := h.Sample(context.Background(), integration.ExecContext{}, 500)
	require.NoError(t, err)
	recomputed, err := h.Density(samples)
	require.NoError(t, err)

	for i := range sampled {
		assert.InDelta(t, recomputed[i], sampled[i], 1e-9)
	}
}

func TestHistogram_DensityNormalized(t *testing.T) {
	h, err := NewHistogram(1, HistogramConfig{Bins: 10, LearningRate: 0.7, Epochs: 3, Floor: 0.05}, rand.New(rand.NewSource(5)))
	require.NoError(t, err)

	x := mat.NewDense(3, 1, []float64{0.05, 0.55, 0.56})
	_, err = h.Fit(context.Background(), x, []float64{1, 4, 4})
	require.NoError(t, err)

	// integrate the piecewise constant density with bin midpoints
	mid := make([]float64, 10)
	for k := range mid {
		mid[k] = (float64(k) + 0.5) / 10
	}
	density, err := h.Density(mat.NewDense(10, 1, mid))
	require.NoError(t, err)

	var total float64
	for _, d := range density {
		total += d / 10
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestHistogram_FitConcentratesMass(t *testing.T) {
	cfg := HistogramConfig{Bins: 20, LearningRate: 0.5, Epochs: 2, Floor: 0.05}
	h, err := NewHistogram(2, cfg, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	ctx := context.Background()
	exec := integration.ExecContext{}
	centre := mat.NewDense(1, 2, []float64{0.5, 0.5})
	corner := mat.NewDense(1, 2, []float64{0.02, 0.02})

	before, err := h.Density(centre)
	require.NoError(t, err)

	var losses []float64
	for iter := 0; iter < 5; iter++ {
		x, p, err := h.Sample(ctx, exec, 2000)
		require.NoError(t, err)
		rows, _ := x.Dims()
		weights := make([]float64, rows)
		for r := 0; r < rows; r++ {
			row := x.RawRowView(r)
			f := math.Exp(-((row[0]-0.5)*(row[0]-0.5) + (row[1]-0.5)*(row[1]-0.5)) / 0.01)
			weights[r] = f / p[r]
		}
		rec, err := h.Fit(ctx, x, weights)
		require.NoError(t, err)
		assert.Len(t, rec.Losses, cfg.Epochs)
		assert.Equal(t, rows, rec.NSamples)
		losses = append(losses, rec.Loss)
	}

	after, err := h.Density(centre)
	require.NoError(t, err)
	assert.Greater(t, after[0], 4*before[0], "mass should move toward the peak")
	assert.Less(t, losses[len(losses)-1], losses[0])

	edge, err := h.Density(corner)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, edge[0], cfg.Floor*cfg.Floor, "floor keeps every region reachable")
}

func TestHistogram_FitValidatesInput(t *testing.T) {
	h, err := NewHistogram(2, DefaultHistogramConfig(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = h.Fit(ctx, mat.NewDense(2, 2, nil), []float64{1})
	assert.True(t, errors.Is(err, core.ErrShapeMismatch))

	_, err = h.Fit(ctx, mat.NewDense(2, 3, nil), []float64{1, 1})
	assert.True(t, errors.Is(err, core.ErrShapeMismatch))

	_, err = h.Fit(ctx, mat.NewDense(2, 2, nil), []float64{1, math.NaN()})
	assert.Error(t, err)

	before := h.Marginals()
	rec, err := h.Fit(ctx, mat.NewDense(2, 2, nil), []float64{0, 0})
	require.NoError(t, err)
	assert.Zero(t, rec.Loss)
	assert.Equal(t, before, h.Marginals(), "zero weights leave the histogram untouched")
}
