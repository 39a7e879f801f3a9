package integrator

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"gozunis/adapters/integrands"
	"gozunis/domain/core"
	"gozunis/domain/integration"
	"gozunis/internal/testkit"
	"gozunis/ports"
)

var serial = integration.ExecContext{Workers: 1}

func newPosteriorSampler(t *testing.T, f ports.Integrand, cfg integration.Config, seed int64) *SurveySampler {
	t.Helper()
	kit := testkit.NewTestKit()
	h, tr := kit.HistogramTrainer(f.Dims(), seed)
	s, err := NewPosteriorSurveyIntegrator(f, tr, h, cfg, serial, kit.Logger())
	require.NoError(t, err)
	return s
}

func TestSurveySampler_FreshHistoryAndPersistentTraining(t *testing.T) {
	f, err := integrands.NewDiagonalGaussian(2, []float64{0.5}, []float64{0.1}, 1)
	require.NoError(t, err)
	cfg := integration.Config{Dims: 2, NIter: 3, NPoints: 5000}
	s := newPosteriorSampler(t, f, cfg, 1)

	first, err := s.Integrate(context.Background())
	require.NoError(t, err)
	second, err := s.Integrate(context.Background())
	require.NoError(t, err)

	assert.Len(t, first.History, 6)
	assert.Len(t, second.History, 6, "history must be cleared between runs")
	assert.Equal(t, 0, second.History[0].Step)
	assert.Equal(t, integration.PhaseSurvey, second.History[0].Phase)
	assert.NotNil(t, second.History[0].Training)
	assert.Nil(t, second.History[5].Training)

	assert.Less(t, second.History[0].Error, first.History[0].Error,
		"the trained posterior survives between runs")

	// the first result is a value, not a view on the integrator
	assert.Len(t, first.History, 6)
	assert.Equal(t, s.History(), second.History)
}

func TestSurveySampler_Acceptance(t *testing.T) {
	sphere, err := integrands.NewHypersphereVolume(3, 0.3, []float64{0.5})
	require.NoError(t, err)
	rect, err := integrands.NewHyperrectangleVolume(3, 1, 0.5)
	require.NoError(t, err)
	gauss, err := integrands.NewDiagonalGaussian(2, []float64{0.4, 0.6}, []float64{0.2, 0.15}, 1)
	require.NoError(t, err)

	cases := []struct {
		name string
		f    ports.KnownIntegrand
	}{
		{"hypersphere", sphere},
		{"hyperrectangle", rect},
		{"gaussian", gauss},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for seed := int64(1); seed <= 3; seed++ {
				cfg := integration.Config{Dims: tc.f.Dims(), NIter: 4, NPoints: 5000}
				res, err := newPosteriorSampler(t, tc.f, cfg, seed).Integrate(context.Background())
				require.NoError(t, err)

				assert.Greater(t, res.Error, 0.0)
				assert.True(t, integrands.WithinSigma(tc.f, res.Value, res.Error, 5),
					"seed %d: %.5f +/- %.5f, expected %.5f", seed, res.Value, res.Error, tc.f.Integral())
			}
		})
	}
}

func TestSurveySampler_FlatVariant(t *testing.T) {
	f, err := integrands.NewSymmetricCamel(2, 0.1, 1)
	require.NoError(t, err)
	kit := testkit.NewTestKit()
	h, tr := kit.HistogramTrainer(2, 3)

	s, err := NewFlatSurveyIntegrator(f, tr, rand.New(rand.NewSource(4)),
		integration.Config{Dims: 2, NIter: 4, NPoints: 5000, UseSurvey: true}, serial, kit.Logger())
	require.NoError(t, err)
	assert.Equal(t, integration.VariantFlat, s.Variant())

	res, err := s.Integrate(context.Background())
	require.NoError(t, err)
	assert.True(t, integrands.WithinSigma(f, res.Value, res.Error, 5))
	assert.Equal(t, 4, res.PhaseCount(integration.PhaseSurvey))
	assert.Equal(t, 4, res.PhaseCount(integration.PhaseRefine))
	assert.Len(t, res.PooledRecords(), 8)

	// flat survey batches still trained the histogram
	centre, err := h.Density(mat.NewDense(1, 2, []float64{0.25, 0.25}))
	require.NoError(t, err)
	assert.Greater(t, centre[0], 1.0)
	assert.Less(t, res.History[7].Error, res.History[0].Error)
}

func TestSurveySampler_UseSurveyFalse(t *testing.T) {
	f, err := integrands.NewConstant(2, 3)
	require.NoError(t, err)
	cfg := integration.Config{Dims: 2, NIterSurvey: integration.Int(2), NIterRefine: integration.Int(1), NPoints: 100}

	res, err := newPosteriorSampler(t, f, cfg, 1).Integrate(context.Background())
	require.NoError(t, err)

	pooled := res.PooledRecords()
	require.Len(t, pooled, 1)
	assert.Equal(t, integration.PhaseRefine, pooled[0].Phase)
	assert.InDelta(t, pooled[0].Integral, res.Value, 1e-12)
	assert.InDelta(t, 3.0, res.Value, 5*res.Error+1e-12)
}

func TestSurveySampler_NoRefineWithoutSurvey(t *testing.T) {
	f, err := integrands.NewConstant(1, 1)
	require.NoError(t, err)
	cfg := integration.Config{Dims: 1, NIter: 2, NIterRefine: integration.Int(0), NPoints: 50}

	_, err = newPosteriorSampler(t, f, cfg, 1).Integrate(context.Background())
	assert.True(t, errors.Is(err, core.ErrEmptyHistory))
}

func TestSurveySampler_ZeroDensitySurvey(t *testing.T) {
	f, err := integrands.NewConstant(2, 1)
	require.NoError(t, err)
	kit := testkit.NewTestKit()
	_, tr := kit.HistogramTrainer(2, 1)

	s, err := NewPosteriorSurveyIntegrator(f, tr, &testkit.ZeroDensityPosterior{D: 2, Healthy: 3},
		integration.Config{Dims: 2, NIter: 1, NPoints: 10}, serial, kit.Logger())
	require.NoError(t, err)

	_, err = s.Integrate(context.Background())
	assert.True(t, errors.Is(err, core.ErrDegenerateDensity))
}

// vanishingTrainer reports a log-jacobian of +Inf, i.e. density 0, when refining
type vanishingTrainer struct{ ports.Trainer }

func (v vanishingTrainer) SampleForward(ctx context.Context, exec integration.ExecContext, n int) (*mat.Dense, []float64, error) {
	logJac := make([]float64, n)
	for i := range logJac {
		logJac[i] = math.Inf(1)
	}
	return mat.NewDense(n, 1, nil), logJac, nil
}

func TestSurveySampler_ZeroDensityRefine(t *testing.T) {
	f, err := integrands.NewConstant(1, 1)
	require.NoError(t, err)
	kit := testkit.NewTestKit()
	h, tr := kit.HistogramTrainer(1, 1)

	s, err := NewPosteriorSurveyIntegrator(f, vanishingTrainer{tr}, h,
		integration.Config{Dims: 1, NIter: 1, NPoints: 10}, serial, kit.Logger())
	require.NoError(t, err)

	_, err = s.Integrate(context.Background())
	assert.True(t, errors.Is(err, core.ErrDegenerateDensity))
	assert.Contains(t, err.Error(), "refine iteration 0")
}

// blockingTrainer parks in FitWeighted until released
type blockingTrainer struct {
	ports.Trainer
	started chan struct{}
	release chan struct{}
}

func (b *blockingTrainer) FitWeighted(ctx context.Context, exec integration.ExecContext, n int, f ports.Integrand, p ports.Posterior) (integration.Batch, *integration.TrainingRecord, error) {
	close(b.started)
	<-b.release
	return b.Trainer.FitWeighted(ctx, exec, n, f, p)
}

func TestSurveySampler_RejectsConcurrentRuns(t *testing.T) {
	f, err := integrands.NewConstant(1, 1)
	require.NoError(t, err)
	kit := testkit.NewTestKit()
	h, tr := kit.HistogramTrainer(1, 1)
	bt := &blockingTrainer{Trainer: tr, started: make(chan struct{}), release: make(chan struct{})}

	s, err := NewPosteriorSurveyIntegrator(f, bt, h, integration.Config{Dims: 1, NIter: 1, NPoints: 10}, serial, kit.Logger())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.Integrate(context.Background())
		done <- err
	}()
	<-bt.started

	_, err = s.Integrate(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(bt.release)
	assert.NoError(t, <-done)
}

func TestSurveySampler_Construction(t *testing.T) {
	f, err := integrands.NewConstant(2, 1)
	require.NoError(t, err)
	kit := testkit.NewTestKit()
	h3, tr3 := kit.HistogramTrainer(3, 1)

	_, err = NewPosteriorSurveyIntegrator(f, tr3, h3, integration.Config{}, serial, nil)
	assert.True(t, errors.Is(err, core.ErrShapeMismatch))

	_, err = NewPosteriorSurveyIntegrator(f, tr3, h3, integration.Config{Dims: 3}, serial, nil)
	assert.True(t, errors.Is(err, core.ErrShapeMismatch))

	h2, tr2 := kit.HistogramTrainer(2, 1)
	_, err = NewPosteriorSurveyIntegrator(f, tr2, h2, integration.Config{NPoints: 1}, serial, nil)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))

	s, err := NewPosteriorSurveyIntegrator(f, tr2, h2, integration.Config{}, serial, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Config().Dims)
	assert.Equal(t, integration.DefaultNPoints, s.Config().Plan().NPointsRefine)
}

func TestSurveySampler_ObserverSwapAppliesToNextRun(t *testing.T) {
	f, err := integrands.NewConstant(1, 1)
	require.NoError(t, err)
	kit := testkit.NewTestKit()
	h, tr := kit.HistogramTrainer(1, 1)
	bt := &blockingTrainer{Trainer: tr, started: make(chan struct{}), release: make(chan struct{})}

	s, err := NewPosteriorSurveyIntegrator(f, bt, h, integration.Config{Dims: 1, NIter: 1, NPoints: 10}, serial, kit.Logger())
	require.NoError(t, err)

	var first, second atomic.Int32
	s.OnRecord(func(integration.Record) { first.Add(1) })

	done := make(chan error, 1)
	go func() {
		_, err := s.Integrate(context.Background())
		done <- err
	}()
	<-bt.started
	s.OnRecord(func(integration.Record) { second.Add(1) })
	close(bt.release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(2), first.Load())
	assert.Equal(t, int32(0), second.Load())

	s.trainer = tr
	_, err = s.Integrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), first.Load())
	assert.Equal(t, int32(2), second.Load())
}

// nanIntegrand returns NaN everywhere
type nanIntegrand struct{}

func (nanIntegrand) Dims() int { return 1 }

func (nanIntegrand) Evaluate(ctx context.Context, exec integration.ExecContext, x *mat.Dense) ([]float64, error) {
	n, _ := x.Dims()
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}
	return values, nil
}

func TestSurveySampler_NonFiniteValuesAreNotDensityErrors(t *testing.T) {
	kit := testkit.NewTestKit()
	_, tr := kit.HistogramTrainer(1, 1)
	s, err := NewFlatSurveyIntegrator(nanIntegrand{}, tr, rand.New(rand.NewSource(3)), integration.Config{Dims: 1, NIter: 1, NPoints: 50}, serial, kit.Logger())
	require.NoError(t, err)

	_, err = s.Integrate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNonFiniteEstimate)
	assert.NotErrorIs(t, err, core.ErrDegenerateDensity)
}
