package migration

import (
	"context"

	"gozunis/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createIntegrationRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create integration_runs table")
	}

	if err := r.createIntegrationIterationsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create integration_iterations table")
	}

	if err := r.createBenchmarkResultsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create benchmark_results table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createIntegrationRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS integration_runs (
			run_id UUID PRIMARY KEY,
			integrand VARCHAR(100) NOT NULL,
			dims INTEGER NOT NULL,
			params JSONB,
			variant VARCHAR(20) NOT NULL,
			config JSONB NOT NULL,
			seed BIGINT NOT NULL,
			code_version VARCHAR(50) NOT NULL,
			fingerprint CHAR(64) NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			error DOUBLE PRECISION NOT NULL,
			interrupted BOOLEAN DEFAULT false,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIntegrationIterationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS integration_iterations (
			run_id UUID NOT NULL REFERENCES integration_runs(run_id) ON DELETE CASCADE,
			step INTEGER NOT NULL,
			phase VARCHAR(10) NOT NULL CHECK (phase IN ('survey', 'refine')),
			integral DOUBLE PRECISION NOT NULL,
			error DOUBLE PRECISION NOT NULL CHECK (error >= 0),
			n_points INTEGER NOT NULL CHECK (n_points > 0),
			training JSONB,
			PRIMARY KEY (run_id, step)
		)
	`)
	return err
}

func (r *MigrationRunner) createBenchmarkResultsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS benchmark_results (
			id UUID PRIMARY KEY,
			suite VARCHAR(100) NOT NULL,
			run_id UUID,
			integrand VARCHAR(100) NOT NULL,
			dims INTEGER NOT NULL,
			params JSONB,
			target DOUBLE PRECISION NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			error DOUBLE PRECISION NOT NULL,
			flat_value DOUBLE PRECISION NOT NULL,
			flat_error DOUBLE PRECISION NOT NULL,
			pull DOUBLE PRECISION,
			sigma_cutoff DOUBLE PRECISION NOT NULL,
			match BOOLEAN NOT NULL,
			flat_variance_ratio DOUBLE PRECISION,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_created_at ON integration_runs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_runs_integrand ON integration_runs(integrand)",
		"CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON integration_runs(fingerprint)",
		"CREATE INDEX IF NOT EXISTS idx_benchmarks_suite_created ON benchmark_results(suite, created_at DESC)",
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}
