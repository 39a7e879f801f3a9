package memory

import (
	"context"
	"sync"

	"gozunis/domain/core"
	"gozunis/domain/run"
	"gozunis/ports"
)

// RunRepository keeps runs and benchmark rows in process memory.
// Used by servers started without DATABASE_URL and by tests.
type RunRepository struct {
	mu         sync.RWMutex
	runs       map[core.RunID]*run.Run
	order      []core.RunID // insertion order
	benchmarks []run.BenchmarkRow
}

// NewRunRepository creates an empty in-memory repository
func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[core.RunID]*run.Run)}
}

var _ ports.RunRepository = (*RunRepository)(nil)

func (r *RunRepository) SaveRun(ctx context.Context, rn *run.Run) error {
	if err := rn.Manifest.Validate(); err != nil {
		return err
	}
	stored := clone(rn)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[rn.Manifest.RunID]; !exists {
		r.order = append(r.order, rn.Manifest.RunID)
	}
	r.runs[rn.Manifest.RunID] = stored
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, id core.RunID) (*run.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rn, ok := r.runs[id]
	if !ok {
		return nil, core.NewNotFoundError("run", id.String())
	}
	return clone(rn), nil
}

// ListRuns returns runs newest first
func (r *RunRepository) ListRuns(ctx context.Context, limit, offset int) ([]*run.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	out := make([]*run.Run, 0)
	for i := len(r.order) - 1 - offset; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, clone(r.runs[r.order[i]]))
	}
	return out, nil
}

func (r *RunRepository) SaveBenchmark(ctx context.Context, rows []run.BenchmarkRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		if row.ID.IsEmpty() {
			row.ID = core.NewID()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = core.Now()
		}
		r.benchmarks = append(r.benchmarks, row)
	}
	return nil
}

// ListBenchmarks returns the latest rows of a suite (all suites when empty), newest first
func (r *RunRepository) ListBenchmarks(ctx context.Context, suite string, limit int) ([]run.BenchmarkRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]run.BenchmarkRow, 0)
	for i := len(r.benchmarks) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if suite == "" || r.benchmarks[i].Suite == suite {
			out = append(out, r.benchmarks[i])
		}
	}
	return out, nil
}

func clone(rn *run.Run) *run.Run {
	cp := *rn
	cp.History = append(cp.History[:0:0], rn.History...)
	return &cp
}
