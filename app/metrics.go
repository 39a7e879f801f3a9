package app

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gozunis/domain/core"
	"gozunis/domain/integration"
)

var (
	// runsTotal counts finished runs by variant and outcome
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zunis_runs_total",
		Help: "Total integration runs by variant and outcome",
	}, []string{"variant", "outcome"})

	// runDuration tracks wall time of a whole run, persistence excluded
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zunis_run_duration_seconds",
		Help:    "Integration run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	}, []string{"variant"})

	// iterationsTotal counts completed iterations by phase
	iterationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zunis_iterations_total",
		Help: "Total completed integration iterations by phase",
	}, []string{"phase"})

	// pointsTotal counts integrand evaluations by phase
	pointsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zunis_points_total",
		Help: "Total integrand evaluations by phase",
	}, []string{"phase"})

	// benchmarkPull tracks the pull of every benchmark row with a finite pull
	benchmarkPull = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zunis_benchmark_pull",
		Help:    "Benchmark pull |value - target| / error",
		Buckets: []float64{0.5, 1, 2, 3, 5, 10},
	}, []string{"suite"})

	// benchmarkMatches counts benchmark rows by match result
	benchmarkMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zunis_benchmark_rows_total",
		Help: "Total benchmark rows by match result",
	}, []string{"suite", "match"})
)

func observeRun(variant integration.Variant, started time.Time, err error) {
	runDuration.WithLabelValues(string(variant)).Observe(time.Since(started).Seconds())
	runsTotal.WithLabelValues(string(variant), outcome(err)).Inc()
}

func observeIteration(rec integration.Record) {
	iterationsTotal.WithLabelValues(string(rec.Phase)).Inc()
	pointsTotal.WithLabelValues(string(rec.Phase)).Add(float64(rec.NPoints))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, core.ErrInterrupted):
		return "interrupted"
	case core.IsEstimatorError(err):
		return "estimator_error"
	default:
		return "error"
	}
}
