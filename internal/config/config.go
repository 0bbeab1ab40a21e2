// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and environment variables.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"

	"github.com/okian/rallyeval/internal/domain/matching"
)

// Config contains process configuration shared by the server and the CLI.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Tolerance is the default half-width, in frames, of the matching window.
	Tolerance int `koanf:"tolerance"`

	// MatchMode is "any" (default) or "one_to_one".
	MatchMode string `koanf:"match_mode"`

	// PlotWidthIn and PlotHeightIn size rendered images, in inches.
	PlotWidthIn  float64 `koanf:"plot_width_in"`
	PlotHeightIn float64 `koanf:"plot_height_in"`

	// MaxBodyBytes caps HTTP request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		Addr:         ":9080",
		Tolerance:    5,
		MatchMode:    matching.ModeAny.String(),
		PlotWidthIn:  12,
		PlotHeightIn: 12,
		MaxBodyBytes: 32 << 20,
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Tolerance < 0:
		return fmt.Errorf("%w: tolerance must be >= 0, got %d", ErrInvalidConfig, c.Tolerance)
	case c.PlotWidthIn <= 0 || c.PlotHeightIn <= 0:
		return fmt.Errorf("%w: plot size must be positive", ErrInvalidConfig)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	}
	if _, err := matching.ParseMode(c.MatchMode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Mode returns the parsed match mode. Call after Validate.
func (c *Config) Mode() matching.Mode {
	m, _ := matching.ParseMode(c.MatchMode)
	return m
}
