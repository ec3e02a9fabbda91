// Package config loads the service configuration from an optional YAML file
// with environment overrides. Every knob has a default so a bare binary
// works against ~/.roster.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/example/roster/internal/core/compliance"
)

// Config is the full service configuration.
type Config struct {
	Database    DatabaseConfig    `koanf:"database"`
	Logging     LoggingConfig     `koanf:"logging"`
	Solver      SolverConfig      `koanf:"solver"`
	Compliance  ComplianceConfig  `koanf:"compliance"`
	Publish     PublishConfig     `koanf:"publish"`
	Idempotency IdempotencyConfig `koanf:"idempotency"`
	Recovery    RecoveryConfig    `koanf:"recovery"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `koanf:"path"` // empty falls back to ~/.roster/roster.db
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

// SolverConfig bounds a single solve attempt.
type SolverConfig struct {
	TimeoutSeconds int `koanf:"timeout_seconds"`
	DriverPoolSize int `koanf:"driver_pool_size"`
}

// ComplianceConfig carries the audit battery thresholds.
type ComplianceConfig struct {
	MinRestHours         int `koanf:"min_rest_hours"`
	MaxSpanHours         int `koanf:"max_span_hours"`
	SplitGapMinutes      int `koanf:"split_gap_minutes"`
	MaxSplitSpanHours    int `koanf:"max_split_span_hours"`
	FatigueTourThreshold int `koanf:"fatigue_tour_threshold"`
}

// PublishConfig controls the pre-publication freeze window.
type PublishConfig struct {
	FreezeWindowHours int `koanf:"freeze_window_hours"`
}

// IdempotencyConfig controls idempotency record retention.
type IdempotencyConfig struct {
	TTLHours int `koanf:"ttl_hours"`
}

// RecoveryConfig controls the crash-recovery sweep.
type RecoveryConfig struct {
	StaleSolveMinutes int `koanf:"stale_solve_minutes"`
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Solver: SolverConfig{
			TimeoutSeconds: 120,
			DriverPoolSize: 20,
		},
		Compliance: ComplianceConfig{
			MinRestHours:         11,
			MaxSpanHours:         14,
			SplitGapMinutes:      360,
			MaxSplitSpanHours:    16,
			FatigueTourThreshold: 3,
		},
		Publish:     PublishConfig{FreezeWindowHours: 12},
		Idempotency: IdempotencyConfig{TTLHours: 24},
		Recovery:    RecoveryConfig{StaleSolveMinutes: 30},
	}
}

// Load reads the configuration. A missing path keeps the defaults; a present
// file must parse. Environment variables prefixed ROSTER_ override file
// values, with __ as the section separator (ROSTER_SOLVER__TIMEOUT_SECONDS).
// A .env file in the working directory is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	if err := k.Load(env.Provider("ROSTER_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "roster_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects thresholds that would make the audit battery vacuous.
func (c *Config) Validate() error {
	if c.Compliance.MinRestHours <= 0 {
		return fmt.Errorf("compliance.min_rest_hours must be positive")
	}
	if c.Compliance.MaxSpanHours <= 0 {
		return fmt.Errorf("compliance.max_span_hours must be positive")
	}
	if c.Compliance.SplitGapMinutes <= 0 {
		return fmt.Errorf("compliance.split_gap_minutes must be positive")
	}
	if c.Solver.TimeoutSeconds <= 0 {
		return fmt.Errorf("solver.timeout_seconds must be positive")
	}
	if c.Solver.DriverPoolSize <= 0 {
		return fmt.Errorf("solver.driver_pool_size must be positive")
	}
	return nil
}

// CheckConfig maps the compliance section onto the core battery thresholds.
func (c *Config) CheckConfig() compliance.Config {
	return compliance.Config{
		MinRestHours:         c.Compliance.MinRestHours,
		MaxSpanHours:         c.Compliance.MaxSpanHours,
		SplitGapMinutes:      c.Compliance.SplitGapMinutes,
		MaxSplitSpanHours:    c.Compliance.MaxSplitSpanHours,
		FatigueTourThreshold: c.Compliance.FatigueTourThreshold,
	}
}
