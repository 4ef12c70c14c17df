package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/segmentor/internal/domain/tier"
)

// Environment variable names.
const (
	EnvPrefix     = "SEGMENTOR_"
	EnvConfigFile = "SEGMENTOR_CONFIG"
	// EnvTiers holds a compact tier list, e.g. "High=0.8,Medium=0.5,Low=0".
	EnvTiers = "SEGMENTOR_TIERS"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SEGMENTOR_CONFIG or path is set
//  3. env (prefix SEGMENTOR_, "__" separates nested keys)
//  4. SEGMENTOR_TIERS, replacing tiers.levels
func Load(_ context.Context, path ...string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	cfgPath := os.Getenv(EnvConfigFile)
	if len(path) > 0 && path[0] != "" {
		cfgPath = path[0]
	}
	if cfgPath != "" {
		if err := k.Load(file.Provider(cfgPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, cfgPath, err)
		}
	}

	// SEGMENTOR_SOURCE__DSN -> source.dsn, SEGMENTOR_LOG_LEVEL -> log_level.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		if s == EnvConfigFile || s == EnvTiers {
			return ""
		}
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	// A configured list replaces the default tiers instead of merging into them.
	if k.Exists("tiers.levels") {
		cfg.Tiers.Tiers = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if list := os.Getenv(EnvTiers); list != "" {
		levels, err := tier.Parse(list)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvTiers, err)
		}
		cfg.Tiers.Tiers = levels
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
