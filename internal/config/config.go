package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gozunis/adapters/posterior"
	"gozunis/domain/integration"
	"gozunis/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Integrator IntegratorConfig
	Posterior  posterior.HistogramConfig
	Profiling  ProfilingConfig
}

// DatabaseConfig holds database connection settings.
// An empty URL selects the in-memory run repository.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// IntegratorConfig holds the defaults applied to every integration request
type IntegratorConfig struct {
	NIter     int
	NPoints   int
	UseSurvey bool
	Workers   int
	ChunkSize int
	Timeout   time.Duration
	Seed      int64
	Verbosity string
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database:   *loadDatabaseConfig(),
		Server:     *loadServerConfig(),
		Integrator: *loadIntegratorConfig(),
		Posterior:  loadPosteriorConfig(),
		Profiling:  *loadProfilingConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:     os.Getenv("DATABASE_URL"),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadIntegratorConfig() *IntegratorConfig {
	exec := integration.DefaultExecContext()
	return &IntegratorConfig{
		NIter:     getEnvIntOrDefault("ZUNIS_N_ITER", integration.DefaultNIter),
		NPoints:   getEnvIntOrDefault("ZUNIS_N_POINTS", integration.DefaultNPoints),
		UseSurvey: getEnvBoolOrDefault("ZUNIS_USE_SURVEY", false),
		Workers:   getEnvIntOrDefault("ZUNIS_WORKERS", exec.Workers),
		ChunkSize: getEnvIntOrDefault("ZUNIS_CHUNK_SIZE", exec.ChunkSize),
		Timeout:   getEnvDurationOrDefault("ZUNIS_TIMEOUT", 0),
		Seed:      getEnvInt64OrDefault("ZUNIS_SEED", 1),
		Verbosity: getEnvOrDefault("LOG_LEVEL", integration.DefaultVerbosity),
	}
}

func loadPosteriorConfig() posterior.HistogramConfig {
	def := posterior.DefaultHistogramConfig()
	return posterior.HistogramConfig{
		Bins:         getEnvIntOrDefault("ZUNIS_BINS", def.Bins),
		LearningRate: getEnvFloatOrDefault("ZUNIS_LEARNING_RATE", def.LearningRate),
		Epochs:       getEnvIntOrDefault("ZUNIS_EPOCHS", def.Epochs),
		Floor:        getEnvFloatOrDefault("ZUNIS_FLOOR", def.Floor),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

func validateConfig(config *Config) error {
	in := config.Integrator
	if in.NIter < 0 {
		return errors.ConfigInvalid("ZUNIS_N_ITER must not be negative")
	}
	if in.NPoints < integration.MinPoints {
		return errors.ConfigInvalid(fmt.Sprintf("ZUNIS_N_POINTS must be at least %d", integration.MinPoints))
	}
	if in.Workers < 1 {
		return errors.ConfigInvalid("ZUNIS_WORKERS must be at least 1")
	}
	if in.Timeout < 0 {
		return errors.ConfigInvalid("ZUNIS_TIMEOUT must not be negative")
	}
	if err := config.Posterior.Validate(); err != nil {
		return errors.ConfigInvalid("invalid ZUNIS_* posterior settings: " + err.Error())
	}
	return nil
}

// IntegrationConfig returns an integrator configuration for dims using the
// environment defaults.
func (c *Config) IntegrationConfig(dims int) integration.Config {
	return integration.Config{
		Dims:      dims,
		NIter:     c.Integrator.NIter,
		NPoints:   c.Integrator.NPoints,
		UseSurvey: c.Integrator.UseSurvey,
		Verbosity: c.Integrator.Verbosity,
		Timeout:   c.Integrator.Timeout,
	}
}

// ExecContext returns the batch evaluation settings
func (c *Config) ExecContext() integration.ExecContext {
	return integration.ExecContext{Workers: c.Integrator.Workers, ChunkSize: c.Integrator.ChunkSize}.Normalized()
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
