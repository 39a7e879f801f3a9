package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gozunis/adapters/posterior"
	"gozunis/adapters/trainer"
	"gozunis/domain/core"
	"gozunis/domain/integration"
	"gozunis/domain/run"
	"gozunis/internal"
	"gozunis/internal/integrator"
	"gozunis/internal/profiling"
	"gozunis/ports"
)

// CodeVersion is recorded in every manifest and fingerprint
const CodeVersion = "1.0.0"

// Defaults fill in the parts of a request the caller left empty
type Defaults struct {
	Config    integration.Config
	Posterior posterior.HistogramConfig
	Exec      integration.ExecContext
	Seed      int64
}

// BuiltinDefaults returns the built-in defaults used when no configuration is loaded
func BuiltinDefaults() Defaults {
	return Defaults{
		Posterior: posterior.DefaultHistogramConfig(),
		Exec:      integration.DefaultExecContext(),
		Seed:      1,
	}
}

// RunRequest describes one integration
type RunRequest struct {
	Integrand run.IntegrandSpec          `json:"integrand" yaml:"integrand"`
	Variant   string                     `json:"variant,omitempty" yaml:"variant,omitempty"`
	Config    *integration.Config        `json:"config,omitempty" yaml:"config,omitempty"`
	Posterior *posterior.HistogramConfig `json:"posterior,omitempty" yaml:"posterior,omitempty"`
	Exec      *integration.ExecContext   `json:"exec,omitempty" yaml:"exec,omitempty"`
	Seed      *int64                     `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// RunResponse is a stored run plus its diagnostics
type RunResponse struct {
	Run     *run.Run                  `json:"run"`
	Target  float64                   `json:"target"`
	Pull    *float64                  `json:"pull,omitempty"` // omitted when infinite
	Match   bool                      `json:"match"`
	Profile *profiling.HistoryProfile `json:"profile,omitempty"`
}

// IntegrationService runs adaptive integrations and records them in the run ledger
type IntegrationService struct {
	factory  *IntegrandFactory
	repo     ports.RunRepository
	rng      ports.RNGPort
	profiler *profiling.HistoryProfiler
	defaults Defaults
	logger   *internal.Logger
	progress ports.ProgressPublisher
}

// NewIntegrationService creates an integration service
func NewIntegrationService(factory *IntegrandFactory, repo ports.RunRepository, rng ports.RNGPort, defaults Defaults, logger *internal.Logger) *IntegrationService {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &IntegrationService{
		factory:  factory,
		repo:     repo,
		rng:      rng,
		profiler: profiling.NewHistoryProfiler(),
		defaults: defaults,
		logger:   logger.With("integration-service"),
	}
}

// SetProgressPublisher streams started, per-iteration and finished events of
// every subsequent run to p.
func (s *IntegrationService) SetProgressPublisher(p ports.ProgressPublisher) {
	s.progress = p
}

// Factory returns the integrand factory used by the service
func (s *IntegrationService) Factory() *IntegrandFactory { return s.factory }

// Run integrates the requested integrand and persists the run. An interrupted
// run is still stored; its response is returned together with the
// interruption error.
func (s *IntegrationService) Run(ctx context.Context, req RunRequest) (*RunResponse, error) {
	// Step 1: Resolve the request against the defaults
	variant, ok := integration.ParseVariant(req.Variant)
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownVariant, req.Variant)
	}
	f, err := s.factory.Build(req.Integrand)
	if err != nil {
		return nil, fmt.Errorf("integrand construction failed: %w", err)
	}

	cfg := s.defaults.Config
	if req.Config != nil {
		cfg = *req.Config
	}
	if cfg.Dims == 0 {
		cfg.Dims = req.Integrand.Dims
	}
	resolved, err := cfg.Resolve()
	if err != nil {
		return nil, fmt.Errorf("config resolution failed: %w", err)
	}

	hcfg := s.defaults.Posterior
	if req.Posterior != nil {
		hcfg = *req.Posterior
	}
	exec := s.defaults.Exec
	if req.Exec != nil {
		exec = *req.Exec
	}
	seed := s.defaults.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}

	// Step 2: Write the manifest before any sampling
	manifest := run.NewManifest(req.Integrand, variant, resolved, seed, CodeVersion)
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}

	// Step 3: Build posterior, trainer and integrator on fingerprint-keyed streams
	integ, err := s.buildIntegrator(ctx, manifest, f, hcfg, exec)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Run %s: %s d=%d variant=%s fingerprint=%s",
		manifest.RunID, req.Integrand.Name, req.Integrand.Dims, variant, manifest.Fingerprint.Fingerprint.Short())

	// Step 4: Integrate
	plan := resolved.Plan()
	planned := plan.NIterSurvey + plan.NIterRefine
	if s.progress != nil {
		s.publish(manifest, run.ProgressStarted, planned, nil, 0, 0)
	}
	integ.OnRecord(func(rec integration.Record) {
		observeIteration(rec)
		if s.progress != nil {
			s.publish(manifest, run.ProgressIteration, planned, &rec, 0, 0)
		}
	})
	started := time.Now()
	res, runErr := integ.Integrate(ctx)
	observeRun(variant, started, runErr)
	if res == nil {
		return nil, fmt.Errorf("integration failed: %w", runErr)
	}
	if s.progress != nil {
		s.publish(manifest, run.ProgressFinished, planned, nil, res.Value, res.Error)
	}

	// Step 5: Persist, including interrupted runs
	stored := run.NewRun(*manifest, res)
	if err := s.repo.SaveRun(ctx, stored); err != nil {
		return nil, fmt.Errorf("run persistence failed: %w", err)
	}

	// Step 6: Diagnostics
	resp := &RunResponse{Run: stored, Target: f.Integral()}
	if pull := run.Pull(res.Value, res.Error, resp.Target); !math.IsInf(pull, 0) {
		resp.Pull = &pull
	}
	resp.Match = resp.Pull != nil && *resp.Pull <= DefaultSigmaCutoff
	profile, err := s.profiler.Profile(res.History, res.UseSurvey)
	if err != nil {
		s.logger.Warn("Run %s: profile failed: %v", manifest.RunID, err)
	} else {
		resp.Profile = profile
	}

	if runErr != nil {
		s.logger.Warn("Run %s interrupted after %d iterations", manifest.RunID, len(res.History))
		return resp, runErr
	}
	return resp, nil
}

func (s *IntegrationService) buildIntegrator(ctx context.Context, m *run.Manifest, f ports.Integrand,
	hcfg posterior.HistogramConfig, exec integration.ExecContext) (*integrator.SurveySampler, error) {

	key := m.Fingerprint.Fingerprint.String()
	postRng, err := s.rng.Stream(ctx, key, "posterior", m.Seed)
	if err != nil {
		return nil, fmt.Errorf("rng stream failed: %w", err)
	}
	hist, err := posterior.NewHistogram(m.Config.Dims, hcfg, postRng)
	if err != nil {
		return nil, fmt.Errorf("posterior construction failed: %w", err)
	}
	tr := trainer.NewWeightedDatasetTrainer(hist, internal.NewVerbosityLogger(m.Config.Verbosity).With("trainer"))

	switch m.Variant {
	case integration.VariantFlat:
		flatRng, err := s.rng.Stream(ctx, key, "flat-survey", m.Seed)
		if err != nil {
			return nil, fmt.Errorf("rng stream failed: %w", err)
		}
		return integrator.NewFlatSurveyIntegrator(f, tr, flatRng, m.Config, exec, nil)
	case integration.VariantPosterior:
		return integrator.NewPosteriorSurveyIntegrator(f, tr, hist, m.Config, exec, nil)
	}
	return nil, core.ErrUnknownVariant
}

func (s *IntegrationService) publish(m *run.Manifest, kind run.ProgressKind, planned int, rec *integration.Record, value, stdErr float64) {
	s.progress.Publish(run.ProgressEvent{
		RunID:     m.RunID,
		Kind:      kind,
		Integrand: m.Integrand.Name,
		Planned:   planned,
		Record:    rec,
		Value:     value,
		Error:     stdErr,
		Timestamp: core.Now(),
	})
}

// GetRun loads a stored run
func (s *IntegrationService) GetRun(ctx context.Context, id core.RunID) (*run.Run, error) {
	return s.repo.GetRun(ctx, id)
}

// ListRuns lists stored runs, newest first
func (s *IntegrationService) ListRuns(ctx context.Context, limit, offset int) ([]*run.Run, error) {
	return s.repo.ListRuns(ctx, limit, offset)
}

// Profile profiles a stored run's history
func (s *IntegrationService) Profile(r *run.Run) (*profiling.HistoryProfile, error) {
	return s.profiler.Profile(r.History, r.Manifest.Config.UseSurvey)
}

// IsInterrupted reports whether err came from a cancelled or timed out run
func IsInterrupted(err error) bool {
	return errors.Is(err, core.ErrInterrupted)
}
