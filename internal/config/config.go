// Package config defines segmentor configuration and loading hooks.
//
// Conventions:
// - New returns a Config with defaults; Load layers file and env on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/segmentor/internal/adapters/render"
	"github.com/okian/segmentor/internal/adapters/source"
	"github.com/okian/segmentor/internal/domain/tier"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Source selects where the warehouse snapshot comes from.
	Source source.Config `koanf:"source"`

	// Tiers is the ordered tier definition.
	Tiers tier.Definition `koanf:"tiers"`

	// Output controls rendering of the result.
	Output Output `koanf:"output"`

	// Metrics controls the Prometheus textfile export.
	Metrics Metrics `koanf:"metrics"`
}

// Output configures the renderer.
type Output struct {
	// Format is table, json or yaml.
	Format string `koanf:"format"`
	// Path is the output file; empty means stdout.
	Path string `koanf:"path"`
}

// Metrics configures metric export.
type Metrics struct {
	// Textfile, when set, receives the registry in text exposition format.
	Textfile string `koanf:"textfile"`
}

// New creates a Config with defaults: a file source and customer-value tiers.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Source: source.Config{
			Kind:   source.KindFile,
			Driver: "mysql",
			Path:   "snapshot.yaml",
		},
		Tiers: tier.CustomerValue(),
		Output: Output{
			Format: render.FormatTable,
		},
	}
}

// Validate checks the fields a run depends on.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case source.KindSQL:
		if strings.TrimSpace(c.Source.DSN) == "" {
			return fmt.Errorf("%w: source.dsn must not be empty for sql sources", ErrInvalidConfig)
		}
	case source.KindFile:
		if strings.TrimSpace(c.Source.Path) == "" {
			return fmt.Errorf("%w: source.path must not be empty for file sources", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source.kind %q", ErrInvalidConfig, c.Source.Kind)
	}

	if _, err := render.New(c.Output.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Tiers.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
