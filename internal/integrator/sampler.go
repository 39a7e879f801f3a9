package integrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gozunis/adapters/posterior"
	"gozunis/domain/core"
	"gozunis/domain/integration"
	"gozunis/internal"
	"gozunis/ports"
)

// ErrAlreadyRunning is returned when Integrate is called on a busy integrator
var ErrAlreadyRunning = errors.New("integrator is already running")

// SurveySampler integrates f with a survey phase that samples a survey
// posterior while training, and a refine phase that samples the trained
// posterior of the trainer. The variant decides what the survey posterior is.
type SurveySampler struct {
	f       ports.Integrand
	trainer ports.Trainer
	survey  ports.Posterior
	variant integration.Variant
	cfg     integration.Config
	exec    integration.ExecContext
	logger  *internal.Logger

	mu       sync.Mutex
	running  bool
	history  *integration.History
	observer func(integration.Record)
	notify   func(integration.Record) // observer snapshot for the running call
}

// NewPosteriorSurveyIntegrator surveys with the trainer's own posterior, so the
// survey batches come from the model as it learns.
func NewPosteriorSurveyIntegrator(f ports.Integrand, trainer ports.Trainer, survey ports.Posterior, cfg integration.Config, exec integration.ExecContext, logger *internal.Logger) (*SurveySampler, error) {
	return newSurveySampler(integration.VariantPosterior, f, trainer, survey, cfg, exec, logger)
}

// NewFlatSurveyIntegrator surveys with uniform points drawn from rng. The
// trainer still learns from the flat batches.
func NewFlatSurveyIntegrator(f ports.Integrand, trainer ports.Trainer, rng *rand.Rand, cfg integration.Config, exec integration.ExecContext, logger *internal.Logger) (*SurveySampler, error) {
	uniform, err := posterior.NewUniform(f.Dims(), rng)
	if err != nil {
		return nil, err
	}
	return newSurveySampler(integration.VariantFlat, f, trainer, uniform, cfg, exec, logger)
}

func newSurveySampler(variant integration.Variant, f ports.Integrand, trainer ports.Trainer, survey ports.Posterior, cfg integration.Config, exec integration.ExecContext, logger *internal.Logger) (*SurveySampler, error) {
	if f == nil || trainer == nil || survey == nil {
		return nil, core.NewInvalidConfigError("integrator", "needs an integrand, a trainer and a survey posterior")
	}
	if cfg.Dims == 0 {
		cfg.Dims = f.Dims()
	}
	resolved, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	if resolved.Dims != f.Dims() {
		return nil, core.NewShapeMismatchError("integrand dimension", f.Dims(), resolved.Dims)
	}
	if survey.Dims() != f.Dims() {
		return nil, core.NewShapeMismatchError("survey posterior dimension", survey.Dims(), f.Dims())
	}
	if logger == nil {
		logger = internal.NewVerbosityLogger(resolved.Verbosity)
	}

	return &SurveySampler{
		f:       f,
		trainer: trainer,
		survey:  survey,
		variant: variant,
		cfg:     resolved,
		exec:    exec.Normalized(),
		logger:  logger.With(string(variant) + "-survey"),
		history: integration.NewHistory(),
	}, nil
}

// Variant reports which survey strategy this integrator uses
func (s *SurveySampler) Variant() integration.Variant { return s.variant }

// OnRecord registers fn to be called with every record after it is appended.
// fn runs on the integrating goroutine and must not block.
func (s *SurveySampler) OnRecord(fn func(integration.Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

// Config returns the resolved configuration
func (s *SurveySampler) Config() integration.Config { return s.cfg }

// History returns a copy of the records of the latest run
func (s *SurveySampler) History() []integration.Record { return s.history.Records() }

// Integrate runs with the configured plan
func (s *SurveySampler) Integrate(ctx context.Context) (*integration.Result, error) {
	return s.IntegrateWith(ctx, s.cfg.Plan())
}

// IntegrateWith runs with an explicit plan, overriding the configured one for this call only.
// An observer set with OnRecord during the call takes effect on the next call.
func (s *SurveySampler) IntegrateWith(ctx context.Context, plan integration.Plan) (*integration.Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.notify = s.observer
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	return Integrate(ctx, s, plan, s.logger)
}

func (s *SurveySampler) Begin(ctx context.Context) error {
	s.history.Clear()
	return nil
}

func (s *SurveySampler) BeginPhase(ctx context.Context, phase integration.Phase) error {
	s.logger.Debug("starting %s phase", phase)
	return nil
}

func (s *SurveySampler) EndPhase(ctx context.Context, phase integration.Phase) error {
	s.logger.Debug("finished %s phase after %d records", phase, s.history.Len())
	return nil
}

func (s *SurveySampler) Sample(ctx context.Context, phase integration.Phase, n int) (Sample, error) {
	if phase == integration.PhaseSurvey {
		batch, training, err := s.trainer.FitWeighted(ctx, s.exec, n, s.f, s.survey)
		if err != nil {
			return Sample{}, err
		}
		return Sample{Batch: batch, Training: training}, nil
	}

	x, logJac, err := s.trainer.SampleForward(ctx, s.exec, n)
	if err != nil {
		return Sample{}, err
	}
	density := make([]float64, len(logJac))
	for i, lj := range logJac {
		density[i] = math.Exp(-lj)
	}
	values, err := s.f.Evaluate(ctx, s.exec, x)
	if err != nil {
		return Sample{}, fmt.Errorf("evaluate integrand: %w", err)
	}
	return Sample{Batch: integration.Batch{X: x, Density: density, Values: values}}, nil
}

func (s *SurveySampler) Process(phase integration.Phase, sample Sample, estimate integration.Estimate) error {
	record := integration.Record{
		Step:     s.history.Len(),
		Phase:    phase,
		Integral: estimate.Integral,
		Error:    estimate.Error,
		NPoints:  estimate.NPoints,
		Training: sample.Training,
	}
	if err := s.history.Append(record); err != nil {
		return err
	}
	s.logger.Info("Integral: %.3e +/- %.3e", estimate.Integral, estimate.Error)
	if s.notify != nil {
		s.notify(record)
	}
	return nil
}

func (s *SurveySampler) Finalize(useSurvey bool) (*integration.Result, error) {
	value, stdErr, err := integration.Pool(s.history.Select(useSurvey))
	if err != nil {
		return nil, err
	}
	s.logger.Info("Final result: %.5e +/- %.5e", value, stdErr)
	return &integration.Result{
		Value:     value,
		Error:     stdErr,
		UseSurvey: useSurvey,
		History:   s.history.Records(),
	}, nil
}
