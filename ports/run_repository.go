package ports

import (
	"context"

	"gozunis/domain/core"
	"gozunis/domain/run"
)

// RunRepository stores finished runs and benchmark rows
type RunRepository interface {
	SaveRun(ctx context.Context, r *run.Run) error
	GetRun(ctx context.Context, id core.RunID) (*run.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*run.Run, error)

	SaveBenchmark(ctx context.Context, rows []run.BenchmarkRow) error
	ListBenchmarks(ctx context.Context, suite string, limit int) ([]run.BenchmarkRow, error)
}
