package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Compliance.MinRestHours != 11 {
		t.Errorf("expected default rest 11h, got %d", cfg.Compliance.MinRestHours)
	}
	if cfg.Compliance.SplitGapMinutes != 360 {
		t.Errorf("expected default split gap 360, got %d", cfg.Compliance.SplitGapMinutes)
	}
	if cfg.Publish.FreezeWindowHours != 12 {
		t.Errorf("expected default freeze window 12h, got %d", cfg.Publish.FreezeWindowHours)
	}
	if cfg.Idempotency.TTLHours != 24 {
		t.Errorf("expected default TTL 24h, got %d", cfg.Idempotency.TTLHours)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	content := `
database:
  path: /var/lib/roster/roster.db
compliance:
  min_rest_hours: 10
solver:
  timeout_seconds: 30
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "/var/lib/roster/roster.db" {
		t.Errorf("unexpected database path: %s", cfg.Database.Path)
	}
	if cfg.Compliance.MinRestHours != 10 {
		t.Errorf("expected rest 10h from file, got %d", cfg.Compliance.MinRestHours)
	}
	if cfg.Solver.TimeoutSeconds != 30 {
		t.Errorf("expected timeout 30s from file, got %d", cfg.Solver.TimeoutSeconds)
	}
	// Untouched sections keep their defaults.
	if cfg.Compliance.MaxSpanHours != 14 {
		t.Errorf("expected default span 14h, got %d", cfg.Compliance.MaxSpanHours)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ROSTER_SOLVER__TIMEOUT_SECONDS", "45")
	t.Setenv("ROSTER_LOGGING__LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Solver.TimeoutSeconds != 45 {
		t.Errorf("expected timeout 45s from env, got %d", cfg.Solver.TimeoutSeconds)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level 'debug' from env, got '%s'", cfg.Logging.Level)
	}
}

func TestLoad_InvalidThreshold(t *testing.T) {
	t.Setenv("ROSTER_COMPLIANCE__MIN_REST_HOURS", "0")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected validation error for zero rest hours")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
