// Package config loads tennismc settings from defaults, an optional YAML
// file and TENNISMC_ environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pable/go-tennis-mc/internal/model"
)

// Config holds every setting shared by the CLI commands and the HTTP server.
type Config struct {
	// LogLevel controls verbosity: trace, debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// Format is the default match format: tour or grand slam.
	Format string `koanf:"format"`

	// Estimator settings.
	Confidence   float64 `koanf:"confidence"`
	MaxHalfWidth float64 `koanf:"max_half_width"`
	MinTrials    int     `koanf:"min_trials"`
	MaxTrials    int     `koanf:"max_trials"`
	Workers      int     `koanf:"workers"`

	// Seed makes simulations reproducible. Zero seeds from the clock.
	Seed uint64 `koanf:"seed"`

	// MaxEvals caps the rows scored by evaluate. Zero means no cap.
	MaxEvals int `koanf:"max_evals"`

	// Addr is the listen address of serve.
	Addr string `koanf:"addr"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		DBPath:       filepath.Join(userHome(), ".tennismc", "tennis.db"),
		Format:       "tour",
		Confidence:   0.80,
		MaxHalfWidth: 0.05,
		MinTrials:    30,
		MaxTrials:    1_000_000,
		Workers:      1,
		Addr:         ":8080",
	}
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Validate checks every field and returns an ErrInvalidConfig-wrapped error
// naming the first bad one.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.MatchFormat(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch {
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case !(c.Confidence > 0 && c.Confidence < 1):
		return fmt.Errorf("%w: confidence %v must be in (0, 1)", ErrInvalidConfig, c.Confidence)
	case !(c.MaxHalfWidth > 0):
		return fmt.Errorf("%w: max_half_width %v must be positive", ErrInvalidConfig, c.MaxHalfWidth)
	case c.MinTrials < 0:
		return fmt.Errorf("%w: min_trials %d must not be negative", ErrInvalidConfig, c.MinTrials)
	case c.MaxTrials <= c.MinTrials:
		return fmt.Errorf("%w: max_trials %d must exceed min_trials %d", ErrInvalidConfig, c.MaxTrials, c.MinTrials)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers %d must be at least 1", ErrInvalidConfig, c.Workers)
	case c.MaxEvals < 0:
		return fmt.Errorf("%w: max_evals %d must not be negative", ErrInvalidConfig, c.MaxEvals)
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	return nil
}

// MatchFormat parses Format.
func (c *Config) MatchFormat() (model.Format, error) {
	return model.ParseFormat(c.Format)
}

// Level parses LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.NoLevel, &model.ConfigurationError{Field: "log_level", Value: c.LogLevel, Msg: "want trace, debug, info, warn or error"}
	}
	return lvl, nil
}
