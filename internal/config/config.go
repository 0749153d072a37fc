// Package config defines the global configuration structure for the soilcast
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format fails the process immediately
// on startup (fail fast).
package config

import (
	"time"

	"soilcast/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the soilcast service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"soilcast-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Database DatabaseConfig
	Sensor   SensorConfig
	Models   ModelConfig
	Metrics  MetricsConfig

	// Build Metadata (injected via ldflags, not env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	// CORS origins allowed to call the API ("*" for local development).
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds database connection and pool tuning parameters for the
// Postgres sensor store.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// SensorConfig selects and tunes the sensor-reading source.
type SensorConfig struct {
	// Source selects the backing store implementation. "postgres" reads
	// raw_sensor_readings directly via pgx; "supabase" goes through the
	// Supabase REST API (matching the original field deployment).
	Source string `envconfig:"SENSOR_SOURCE" default:"postgres" validate:"oneof=postgres supabase"`

	// SupabaseURL / SupabaseKey configure the REST source. Required only when
	// Source is "supabase"; the loader enforces this.
	SupabaseURL string       `envconfig:"SUPABASE_URL"`
	SupabaseKey SecretString `envconfig:"SUPABASE_KEY"`

	// FetchLimit is the row budget for a forecast run: must cover
	// window + horizon + slack.
	FetchLimit int `envconfig:"SENSOR_FETCH_LIMIT" default:"500" validate:"min=40"`
	// ReferenceLimit is the larger sample used for scaler fitting and
	// summary statistics.
	ReferenceLimit int `envconfig:"SENSOR_REFERENCE_LIMIT" default:"5000" validate:"min=40"`
	// HistoricalDefaultLimit is the default tail size for the charting
	// endpoint.
	HistoricalDefaultLimit int `envconfig:"SENSOR_HISTORICAL_LIMIT" default:"100" validate:"min=1"`
}

// ModelConfig holds model artifact loading configuration.
type ModelConfig struct {
	// Dir is the directory containing the per-parameter model artifacts.
	Dir string `envconfig:"MODELS_DIR" default:"models"`
}

// MetricsConfig selects the telemetry backend.
type MetricsConfig struct {
	// Backend is "none" (no-op) or "cloudwatch".
	Backend   string `envconfig:"METRICS_BACKEND" default:"none" validate:"oneof=none cloudwatch"`
	Namespace string `envconfig:"METRICS_NAMESPACE" default:"Soilcast"`
	AWSRegion string `envconfig:"AWS_REGION" default:"us-east-1"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not set.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into the Config struct.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
