package container

import (
	"context"
	"fmt"
	"log"

	"gozunis/adapters/memory"
	"gozunis/adapters/postgres"
	"gozunis/adapters/rng"
	"gozunis/app"
	"gozunis/internal"
	"gozunis/internal/api"
	"gozunis/internal/config"
	"gozunis/internal/errors"
	"gozunis/internal/migration"
	"gozunis/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	RunRepo ports.RunRepository
	RNG     ports.RNGPort

	// Services
	Integrations *app.IntegrationService
	Benchmarks   *app.BenchmarkService
	ProgressHub  *api.ProgressHub
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return &Container{
		Config: cfg,
		Logger: internal.NewVerbosityLogger(cfg.Integrator.Verbosity),
		RNG:    rng.NewSeededAdapter(),
	}, nil
}

// Init connects storage and builds the services. Without DATABASE_URL the
// in-memory run repository is used.
func (c *Container) Init(ctx context.Context) error {
	if c.Config.Database.Enabled() {
		db, err := Connect(ctx, c.Config)
		if err != nil {
			return err
		}
		if err := c.InitWithDatabase(db); err != nil {
			return err
		}
	} else {
		c.Logger.Warn("DATABASE_URL not set, runs are kept in memory only")
		c.RunRepo = memory.NewRunRepository()
	}

	c.initServices()
	return nil
}

// InitWithDatabase uses db for the run repository
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db
	c.RunRepo = postgres.NewRunRepository(db)
	return nil
}

// Connect opens the database and applies the schema
func Connect(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to ping database", err)
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	log.Printf("Database schema at version %s", migrator.Version())

	return db, nil
}

// initServices wires the application services on top of the repositories
func (c *Container) initServices() {
	cfg := c.Config
	defaults := app.Defaults{
		Config:    cfg.IntegrationConfig(0),
		Posterior: cfg.Posterior,
		Exec:      cfg.ExecContext(),
		Seed:      cfg.Integrator.Seed,
	}

	c.Integrations = app.NewIntegrationService(app.NewIntegrandFactory(), c.RunRepo, c.RNG, defaults, c.Logger)
	c.Benchmarks = app.NewBenchmarkService(c.Integrations, c.RunRepo, c.RNG, c.Logger)
}

// EnableProgress starts the SSE progress hub; only servers need it
func (c *Container) EnableProgress() *api.ProgressHub {
	if c.ProgressHub == nil {
		c.ProgressHub = api.NewProgressHub()
	}
	return c.ProgressHub
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.ProgressHub != nil {
		c.ProgressHub.Close()
	}

	// Close database connection
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
