package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"time"

	"gozunis/domain/core"
	"gozunis/domain/integration"
	"gozunis/domain/run"
	apperrors "gozunis/internal/errors"
	"gozunis/ports"

	"github.com/jmoiron/sqlx"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// runRow mirrors integration_runs
type runRow struct {
	RunID       string    `db:"run_id"`
	Integrand   string    `db:"integrand"`
	Dims        int       `db:"dims"`
	Params      []byte    `db:"params"`
	Variant     string    `db:"variant"`
	Config      []byte    `db:"config"`
	Seed        int64     `db:"seed"`
	CodeVersion string    `db:"code_version"`
	Fingerprint string    `db:"fingerprint"`
	Value       float64   `db:"value"`
	Error       float64   `db:"error"`
	Interrupted bool      `db:"interrupted"`
	CreatedAt   time.Time `db:"created_at"`
}

// iterationRow mirrors integration_iterations
type iterationRow struct {
	RunID    string  `db:"run_id"`
	Step     int     `db:"step"`
	Phase    string  `db:"phase"`
	Integral float64 `db:"integral"`
	Error    float64 `db:"error"`
	NPoints  int     `db:"n_points"`
	Training []byte  `db:"training"`
}

// benchmarkRow mirrors benchmark_results; non-finite pulls and ratios are stored as NULL
type benchmarkRow struct {
	ID                string          `db:"id"`
	Suite             string          `db:"suite"`
	RunID             sql.NullString  `db:"run_id"`
	Integrand         string          `db:"integrand"`
	Dims              int             `db:"dims"`
	Params            []byte          `db:"params"`
	Target            float64         `db:"target"`
	Value             float64         `db:"value"`
	Error             float64         `db:"error"`
	FlatValue         float64         `db:"flat_value"`
	FlatError         float64         `db:"flat_error"`
	Pull              sql.NullFloat64 `db:"pull"`
	SigmaCutoff       float64         `db:"sigma_cutoff"`
	Match             bool            `db:"match"`
	FlatVarianceRatio sql.NullFloat64 `db:"flat_variance_ratio"`
	CreatedAt         time.Time       `db:"created_at"`
}

// SaveRun stores the manifest, result and every history record in one transaction
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, rn *run.Run) error {
	if err := rn.Manifest.Validate(); err != nil {
		return err
	}
	row, iterations, err := toRows(rn)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO integration_runs (run_id, integrand, dims, params, variant, config, seed, code_version, fingerprint, value, error, interrupted, created_at)
		VALUES (:run_id, :integrand, :dims, :params, :variant, :config, :seed, :code_version, :fingerprint, :value, :error, :interrupted, :created_at)
		ON CONFLICT (run_id) DO UPDATE SET value = EXCLUDED.value, error = EXCLUDED.error, interrupted = EXCLUDED.interrupted
	`, row)
	if err != nil {
		return apperrors.DatabaseError("failed to insert integration run", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM integration_iterations WHERE run_id = $1`, row.RunID); err != nil {
		return apperrors.DatabaseError("failed to clear integration iterations", err)
	}
	for _, it := range iterations {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO integration_iterations (run_id, step, phase, integral, error, n_points, training)
			VALUES (:run_id, :step, :phase, :integral, :error, :n_points, :training)
		`, it)
		if err != nil {
			return apperrors.DatabaseError("failed to insert integration iteration", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.DatabaseError("failed to commit integration run", err)
	}
	return nil
}

// GetRun loads a run and its history
func (r *RunRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*run.Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `
		SELECT run_id, integrand, dims, params, variant, config, seed, code_version, fingerprint, value, error, interrupted, created_at
		FROM integration_runs
		WHERE run_id = $1
	`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFoundError("run", id.String())
		}
		return nil, apperrors.DatabaseError("failed to load integration run", err)
	}

	var iterations []iterationRow
	err = r.db.SelectContext(ctx, &iterations, `
		SELECT run_id, step, phase, integral, error, n_points, training
		FROM integration_iterations
		WHERE run_id = $1
		ORDER BY step
	`, id.String())
	if err != nil {
		return nil, apperrors.DatabaseError("failed to load integration iterations", err)
	}

	return fromRows(row, iterations)
}

// ListRuns returns runs newest first, with their histories
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, limit, offset int) ([]*run.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT run_id FROM integration_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to list integration runs", err)
	}

	runs := make([]*run.Run, 0, len(ids))
	for _, id := range ids {
		rn, err := r.GetRun(ctx, core.RunID(id))
		if err != nil {
			return nil, err
		}
		runs = append(runs, rn)
	}
	return runs, nil
}

// SaveBenchmark appends benchmark rows
func (r *RunRepositoryImpl) SaveBenchmark(ctx context.Context, rows []run.BenchmarkRow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, b := range rows {
		row, err := toBenchmarkRow(b)
		if err != nil {
			return err
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO benchmark_results (id, suite, run_id, integrand, dims, params, target, value, error, flat_value, flat_error, pull, sigma_cutoff, match, flat_variance_ratio, created_at)
			VALUES (:id, :suite, :run_id, :integrand, :dims, :params, :target, :value, :error, :flat_value, :flat_error, :pull, :sigma_cutoff, :match, :flat_variance_ratio, :created_at)
		`, row)
		if err != nil {
			return apperrors.DatabaseError("failed to insert benchmark result", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.DatabaseError("failed to commit benchmark results", err)
	}
	return nil
}

// ListBenchmarks returns the latest rows of a suite (all suites when empty)
func (r *RunRepositoryImpl) ListBenchmarks(ctx context.Context, suite string, limit int) ([]run.BenchmarkRow, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []benchmarkRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, suite, run_id, integrand, dims, params, target, value, error, flat_value, flat_error, pull, sigma_cutoff, match, flat_variance_ratio, created_at
		FROM benchmark_results
		WHERE ($1 = '' OR suite = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, suite, limit)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to list benchmark results", err)
	}

	out := make([]run.BenchmarkRow, 0, len(rows))
	for _, row := range rows {
		b, err := fromBenchmarkRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func toRows(rn *run.Run) (runRow, []iterationRow, error) {
	m := rn.Manifest
	params, err := json.Marshal(m.Integrand.Params)
	if err != nil {
		return runRow{}, nil, err
	}
	config, err := json.Marshal(m.Config)
	if err != nil {
		return runRow{}, nil, err
	}

	row := runRow{
		RunID:       m.RunID.String(),
		Integrand:   m.Integrand.Name,
		Dims:        m.Integrand.Dims,
		Params:      params,
		Variant:     string(m.Variant),
		Config:      config,
		Seed:        m.Seed,
		CodeVersion: m.CodeVersion,
		Fingerprint: string(m.Fingerprint.Fingerprint),
		Value:       rn.Value,
		Error:       rn.Error,
		Interrupted: rn.Interrupted,
		CreatedAt:   m.CreatedAt.Time(),
	}

	iterations := make([]iterationRow, 0, len(rn.History))
	for _, rec := range rn.History {
		var training []byte
		if rec.Training != nil {
			if training, err = json.Marshal(rec.Training); err != nil {
				return runRow{}, nil, err
			}
		}
		iterations = append(iterations, iterationRow{
			RunID:    row.RunID,
			Step:     rec.Step,
			Phase:    string(rec.Phase),
			Integral: rec.Integral,
			Error:    rec.Error,
			NPoints:  rec.NPoints,
			Training: training,
		})
	}
	return row, iterations, nil
}

func fromRows(row runRow, iterations []iterationRow) (*run.Run, error) {
	spec := run.IntegrandSpec{Name: row.Integrand, Dims: row.Dims}
	if len(row.Params) > 0 {
		if err := json.Unmarshal(row.Params, &spec.Params); err != nil {
			return nil, err
		}
	}
	var cfg integration.Config
	if err := json.Unmarshal(row.Config, &cfg); err != nil {
		return nil, err
	}
	variant := integration.Variant(row.Variant)

	history := make([]integration.Record, 0, len(iterations))
	for _, it := range iterations {
		rec := integration.Record{
			Step:     it.Step,
			Phase:    integration.Phase(it.Phase),
			Integral: it.Integral,
			Error:    it.Error,
			NPoints:  it.NPoints,
		}
		if len(it.Training) > 0 && string(it.Training) != "null" {
			rec.Training = &integration.TrainingRecord{}
			if err := json.Unmarshal(it.Training, rec.Training); err != nil {
				return nil, err
			}
		}
		history = append(history, rec)
	}

	fp := run.NewRunFingerprint(spec, variant, cfg, row.Seed, row.CodeVersion)
	return &run.Run{
		Manifest: run.Manifest{
			RunID:       core.RunID(row.RunID),
			Integrand:   spec,
			Variant:     variant,
			Config:      cfg,
			Seed:        row.Seed,
			CodeVersion: row.CodeVersion,
			Fingerprint: fp,
			CreatedAt:   core.NewTimestamp(row.CreatedAt),
		},
		Value:       row.Value,
		Error:       row.Error,
		Interrupted: row.Interrupted,
		History:     history,
	}, nil
}

func toBenchmarkRow(b run.BenchmarkRow) (benchmarkRow, error) {
	if b.ID.IsEmpty() {
		b.ID = core.NewID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = core.Now()
	}
	params, err := json.Marshal(b.Params)
	if err != nil {
		return benchmarkRow{}, err
	}
	return benchmarkRow{
		ID:                b.ID.String(),
		Suite:             b.Suite,
		RunID:             sql.NullString{String: b.RunID.String(), Valid: b.RunID != ""},
		Integrand:         b.Integrand,
		Dims:              b.Dims,
		Params:            params,
		Target:            b.Target,
		Value:             b.Value,
		Error:             b.Error,
		FlatValue:         b.FlatValue,
		FlatError:         b.FlatError,
		Pull:              finite(b.Pull),
		SigmaCutoff:       b.SigmaCutoff,
		Match:             b.Match,
		FlatVarianceRatio: finite(b.FlatVarianceRatio),
		CreatedAt:         b.CreatedAt.Time(),
	}, nil
}

func fromBenchmarkRow(row benchmarkRow) (run.BenchmarkRow, error) {
	b := run.BenchmarkRow{
		ID:                core.ID(row.ID),
		Suite:             row.Suite,
		RunID:             core.RunID(row.RunID.String),
		Integrand:         row.Integrand,
		Dims:              row.Dims,
		Target:            row.Target,
		Value:             row.Value,
		Error:             row.Error,
		FlatValue:         row.FlatValue,
		FlatError:         row.FlatError,
		Pull:              orInf(row.Pull),
		SigmaCutoff:       row.SigmaCutoff,
		Match:             row.Match,
		FlatVarianceRatio: orInf(row.FlatVarianceRatio),
		CreatedAt:         core.NewTimestamp(row.CreatedAt),
	}
	if len(row.Params) > 0 {
		if err := json.Unmarshal(row.Params, &b.Params); err != nil {
			return run.BenchmarkRow{}, err
		}
	}
	return b, nil
}

func finite(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsInf(v, 0) && !math.IsNaN(v)}
}

func orInf(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.Inf(1)
	}
	return v.Float64
}
