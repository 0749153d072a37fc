// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Populate BuildInfo from linker-injected variables.
//  5. Validate the struct using go-playground/validator, plus cross-field
//     rules envconfig tags cannot express.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid
// debugging. It wraps a ConfigErrorType and an underlying error message.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads and validates the soilcast configuration.
func LoadConfig() (*Config, error) {
	// Step 1: Enforce UTC timezone to prevent drift bugs.
	time.Local = time.UTC

	// Step 2: Load .env file (non-fatal if absent). godotenv does NOT
	// override existing environment variables.
	_ = godotenv.Load()

	// Step 3: Process envconfig tags. The empty prefix means envconfig uses
	// the exact tag values (e.g., envconfig:"APP_ENV" reads APP_ENV directly).
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	// Step 4: Populate build metadata from linker-injected variables.
	cfg.Build = NewBuildInfo()

	// Step 5: Validate the populated struct.
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}
	if err := validateCrossFields(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateCrossFields enforces rules that depend on more than one field.
func validateCrossFields(cfg *Config) error {
	switch cfg.Sensor.Source {
	case "postgres":
		if cfg.Database.URL.Unmask() == "" {
			return &ConfigError{
				Type:    ErrMissingEnv,
				Message: "DATABASE_URL is required when SENSOR_SOURCE=postgres",
			}
		}
	case "supabase":
		if cfg.Sensor.SupabaseURL == "" || cfg.Sensor.SupabaseKey.Unmask() == "" {
			return &ConfigError{
				Type:    ErrMissingEnv,
				Message: "SUPABASE_URL and SUPABASE_KEY are required when SENSOR_SOURCE=supabase",
			}
		}
	}

	if cfg.Sensor.ReferenceLimit < cfg.Sensor.FetchLimit {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "SENSOR_REFERENCE_LIMIT must be >= SENSOR_FETCH_LIMIT",
		}
	}

	return nil
}
