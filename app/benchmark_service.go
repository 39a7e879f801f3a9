package app

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"gozunis/adapters/posterior"
	"gozunis/domain/core"
	"gozunis/domain/integration"
	"gozunis/domain/run"
	"gozunis/internal"
	"gozunis/internal/profiling"
	"gozunis/ports"
)

// DefaultSigmaCutoff is the pull below which a result counts as a match
const DefaultSigmaCutoff = 3.0

// BenchmarkRequest selects the camel grid to compare against flat sampling
type BenchmarkRequest struct {
	Suite       string                     `json:"suite,omitempty" yaml:"suite,omitempty"`
	Dims        []int                      `json:"dims,omitempty" yaml:"dims,omitempty"`
	Widths      []float64                  `json:"widths,omitempty" yaml:"widths,omitempty"`
	Variant     string                     `json:"variant,omitempty" yaml:"variant,omitempty"`
	Config      *integration.Config        `json:"config,omitempty" yaml:"config,omitempty"`
	Posterior   *posterior.HistogramConfig `json:"posterior,omitempty" yaml:"posterior,omitempty"`
	Seed        *int64                     `json:"seed,omitempty" yaml:"seed,omitempty"`
	SigmaCutoff float64                    `json:"sigma_cutoff,omitempty" yaml:"sigma_cutoff,omitempty"`
}

// BenchmarkReport holds every row of a suite and its summary
type BenchmarkReport struct {
	Suite   string                     `json:"suite"`
	Rows    []run.BenchmarkRow         `json:"rows"`
	Summary profiling.BenchmarkSummary `json:"summary"`
}

// BenchmarkService compares adaptive runs with flat Monte Carlo at equal budget
type BenchmarkService struct {
	runs   *IntegrationService
	repo   ports.RunRepository
	rng    ports.RNGPort
	exec   integration.ExecContext
	logger *internal.Logger
}

// NewBenchmarkService creates a benchmark service on top of an integration service
func NewBenchmarkService(runs *IntegrationService, repo ports.RunRepository, rng ports.RNGPort, logger *internal.Logger) *BenchmarkService {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &BenchmarkService{
		runs:   runs,
		repo:   repo,
		rng:    rng,
		exec:   runs.defaults.Exec.Normalized(),
		logger: logger.With("benchmark"),
	}
}

// Camel benchmarks symmetric camel integrands over every (dims, width) pair.
// The flat baseline gets the same number of points as each pooled iteration.
func (s *BenchmarkService) Camel(ctx context.Context, req BenchmarkRequest) (*BenchmarkReport, error) {
	if req.Suite == "" {
		req.Suite = "camel"
	}
	if len(req.Dims) == 0 {
		req.Dims = []int{2, 4}
	}
	if len(req.Widths) == 0 {
		req.Widths = []float64{0.1, 0.3}
	}
	if req.SigmaCutoff == 0 {
		req.SigmaCutoff = DefaultSigmaCutoff
	}
	if req.SigmaCutoff < 0 {
		return nil, core.NewInvalidConfigError("sigma_cutoff", "must be positive")
	}

	var rows []run.BenchmarkRow
	for _, d := range req.Dims {
		for _, width := range req.Widths {
			row, err := s.compare(ctx, req, d, width)
			if err != nil {
				return nil, fmt.Errorf("benchmark d=%d s=%g failed: %w", d, width, err)
			}
			s.logger.Info("d=%d s=%g: %.5e +/- %.3e (flat %.5e +/- %.3e) pull=%.2f ratio=%.2f",
				d, width, row.Value, row.Error, row.FlatValue, row.FlatError, row.Pull, row.FlatVarianceRatio)
			benchmarkMatches.WithLabelValues(req.Suite, strconv.FormatBool(row.Match)).Inc()
			if !math.IsInf(row.Pull, 0) && !math.IsNaN(row.Pull) {
				benchmarkPull.WithLabelValues(req.Suite).Observe(row.Pull)
			}
			rows = append(rows, row)
		}
	}

	if err := s.repo.SaveBenchmark(ctx, rows); err != nil {
		return nil, fmt.Errorf("benchmark persistence failed: %w", err)
	}

	summary, err := profiling.SummarizeBenchmarks(rows)
	if err != nil {
		return nil, fmt.Errorf("benchmark summary failed: %w", err)
	}
	return &BenchmarkReport{Suite: req.Suite, Rows: rows, Summary: summary}, nil
}

func (s *BenchmarkService) compare(ctx context.Context, req BenchmarkRequest, d int, width float64) (run.BenchmarkRow, error) {
	spec := run.IntegrandSpec{Name: "camel", Dims: d, Params: map[string]float64{
		"s1": width, "s2": width, "norm1": 1, "norm2": 1,
	}}

	resp, err := s.runs.Run(ctx, RunRequest{
		Integrand: spec,
		Variant:   req.Variant,
		Config:    req.Config,
		Posterior: req.Posterior,
		Seed:      req.Seed,
	})
	if err != nil {
		return run.BenchmarkRow{}, err
	}
	stored := resp.Run

	f, err := s.runs.Factory().Build(spec)
	if err != nil {
		return run.BenchmarkRow{}, err
	}
	flatRng, err := s.rng.Stream(ctx, stored.Manifest.Fingerprint.Fingerprint.String(), "flat-baseline", stored.Manifest.Seed)
	if err != nil {
		return run.BenchmarkRow{}, err
	}
	flatValue, flatErr, err := s.flatBaseline(ctx, f, flatRng, stored.Result().PooledRecords())
	if err != nil {
		return run.BenchmarkRow{}, fmt.Errorf("flat baseline failed: %w", err)
	}

	pull := run.Pull(stored.Value, stored.Error, resp.Target)
	return run.BenchmarkRow{
		ID:                core.NewID(),
		Suite:             req.Suite,
		RunID:             stored.Manifest.RunID,
		Integrand:         spec.Name,
		Dims:              d,
		Params:            spec.Params,
		Target:            resp.Target,
		Value:             stored.Value,
		Error:             stored.Error,
		FlatValue:         flatValue,
		FlatError:         flatErr,
		Pull:              pull,
		SigmaCutoff:       req.SigmaCutoff,
		Match:             pull <= req.SigmaCutoff,
		FlatVarianceRatio: run.VarianceRatio(flatErr, stored.Error),
		CreatedAt:         core.Now(),
	}, nil
}

// flatBaseline repeats each pooled iteration with uniform points and pools
// the results the same way.
func (s *BenchmarkService) flatBaseline(ctx context.Context, f ports.Integrand, rng *rand.Rand, pooled []integration.Record) (float64, float64, error) {
	uniform, err := posterior.NewUniform(f.Dims(), rng)
	if err != nil {
		return 0, 0, err
	}

	records := make([]integration.Record, 0, len(pooled))
	for _, rec := range pooled {
		x, density, err := uniform.Sample(ctx, s.exec, rec.NPoints)
		if err != nil {
			return 0, 0, err
		}
		values, err := f.Evaluate(ctx, s.exec, x)
		if err != nil {
			return 0, 0, err
		}
		est, err := integration.Batch{X: x, Density: density, Values: values}.Estimate()
		if err != nil {
			return 0, 0, err
		}
		records = append(records, integration.Record{
			Phase: rec.Phase, Integral: est.Integral, Error: est.Error, NPoints: est.NPoints,
		})
	}
	return integration.Pool(records)
}

// List returns stored benchmark rows of suite, newest first; an empty suite lists all
func (s *BenchmarkService) List(ctx context.Context, suite string, limit int) ([]run.BenchmarkRow, error) {
	return s.repo.ListBenchmarks(ctx, suite, limit)
}
