package trainer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"gozunis/adapters/integrands"
	"gozunis/adapters/posterior"
	"gozunis/domain/core"
	"gozunis/domain/integration"
	"gozunis/internal"
)

// mockPosterior records the weights it is fit with
type mockPosterior struct {
	mock.Mock
	d int
}

func (m *mockPosterior) Dims() int { return m.d }

func (m *mockPosterior) Sample(ctx context.Context, exec integration.ExecContext, n int) (*mat.Dense, []float64, error) {
	args := m.Called(n)
	return args.Get(0).(*mat.Dense), args.Get(1).([]float64), args.Error(2)
}

func (m *mockPosterior) Density(x *mat.Dense) ([]float64, error) {
	args := m.Called(x)
	return args.Get(0).([]float64), args.Error(1)
}

func (m *mockPosterior) Fit(ctx context.Context, x *mat.Dense, weights []float64) (*integration.TrainingRecord, error) {
	args := m.Called(x, weights)
	return args.Get(0).(*integration.TrainingRecord), args.Error(1)
}

func TestFitWeighted_WeightsAreAbsFOverP(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{0.25, 0.75})
	sampler := &mockPosterior{d: 1}
	sampler.On("Sample", 2).Return(x, []float64{0.5, 2.0}, nil)

	model := &mockPosterior{d: 1}
	model.On("Fit", x, []float64{6, 1.5}).Return(&integration.TrainingRecord{Loss: 0.3}, nil)

	f, err := integrands.NewConstant(1, -3)
	require.NoError(t, err)

	tr := NewWeightedDatasetTrainer(model, internal.NewLogger(internal.LogLevelError))
	batch, rec, err := tr.FitWeighted(context.Background(), integration.ExecContext{}, 2, f, sampler)
	require.NoError(t, err)

	assert.Equal(t, []float64{-3, -3}, batch.Values)
	assert.Equal(t, []float64{0.5, 2.0}, batch.Density)
	assert.Equal(t, 0.3, rec.Loss)
	model.AssertExpectations(t)
	sampler.AssertExpectations(t)
}

func TestFitWeighted_RejectsZeroDensity(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{0.25, 0.75})
	sampler := &mockPosterior{d: 1}
	sampler.On("Sample", 2).Return(x, []float64{0.5, 0}, nil)
	model := &mockPosterior{d: 1}

	f, err := integrands.NewConstant(1, 1)
	require.NoError(t, err)

	tr := NewWeightedDatasetTrainer(model, nil)
	_, _, err = tr.FitWeighted(context.Background(), integration.ExecContext{}, 2, f, sampler)
	assert.True(t, errors.Is(err, core.ErrDegenerateDensity))
	model.AssertNotCalled(t, "Fit", mock.Anything, mock.Anything)
}

func TestFitWeighted_DimensionMismatch(t *testing.T) {
	f, err := integrands.NewConstant(2, 1)
	require.NoError(t, err)
	tr := NewWeightedDatasetTrainer(&mockPosterior{d: 2}, nil)

	_, _, err = tr.FitWeighted(context.Background(), integration.ExecContext{}, 10, f, &mockPosterior{d: 3})
	assert.True(t, errors.Is(err, core.ErrShapeMismatch))
}

func TestSampleForward_LogJacobian(t *testing.T) {
	h, err := posterior.NewHistogram(2, posterior.DefaultHistogramConfig(), rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	tr := NewWeightedDatasetTrainer(h, nil)

	x, logJac, err := tr.SampleForward(context.Background(), integration.ExecContext{}, 50)
	require.NoError(t, err)
	q, err := h.Density(x)
	require.NoError(t, err)

	for i := range q {
		assert.InDelta(t, q[i], math.Exp(-logJac[i]), 1e-9)
	}
}
