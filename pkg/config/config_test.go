package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/codeready-toolchain/agentcore/pkg/boundary"
)

func TestDefaultConfig_PassesValidation(t *testing.T) {
	if err := NewValidator(DefaultConfig()).ValidateAll(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestInitialize_MissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(context.Background(), dir)
	if err != nil {
		t.Fatalf("expected no error for missing agentcore.yaml, got %v", err)
	}
	if cfg.MaxConcurrentRequests != DefaultConfig().MaxConcurrentRequests {
		t.Fatalf("expected default MaxConcurrentRequests, got %d", cfg.MaxConcurrentRequests)
	}
}

func TestInitialize_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
max_concurrent_requests: 8
cacheable_temperature: 0.3
boundary:
  output_max_chars: 5000
  output_min_violation_mode: FAIL
`
	if err := os.WriteFile(filepath.Join(dir, "agentcore.yaml"), []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Initialize(context.Background(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxConcurrentRequests != 8 {
		t.Fatalf("expected overridden MaxConcurrentRequests=8, got %d", cfg.MaxConcurrentRequests)
	}
	if cfg.CacheableTemperature != 0.3 {
		t.Fatalf("expected overridden CacheableTemperature=0.3, got %v", cfg.CacheableTemperature)
	}
	if cfg.Boundary.OutputMaxChars != 5000 {
		t.Fatalf("expected overridden boundary.output_max_chars=5000, got %d", cfg.Boundary.OutputMaxChars)
	}
	// Untouched fields should keep their defaults.
	if cfg.MaxToolCalls != DefaultConfig().MaxToolCalls {
		t.Fatalf("expected default MaxToolCalls to survive merge, got %d", cfg.MaxToolCalls)
	}
}

func TestInitialize_InvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "agentcore.yaml"), []byte("max_concurrent_requests: [not a number"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Initialize(context.Background(), dir); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestInitialize_ValidationFailureSurfaces(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "agentcore.yaml"), []byte("max_concurrent_requests: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Initialize(context.Background(), dir); err == nil {
		t.Fatal("expected validation to fail for max_concurrent_requests: 0")
	}
}

func TestConfig_ReactConfig_MapsOverriddenFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrentRequests = 3
	cfg.SaturationPolicy = "queue"

	reactCfg := cfg.ReactConfig()
	if reactCfg.MaxConcurrentRequests != 3 {
		t.Fatalf("expected MaxConcurrentRequests=3, got %d", reactCfg.MaxConcurrentRequests)
	}
	if string(reactCfg.SaturationPolicy) != "queue" {
		t.Fatalf("expected saturation policy 'queue', got %q", reactCfg.SaturationPolicy)
	}
}

func TestConfig_BoundaryConfig_MapsViolationMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Boundary.OutputMinViolationMode = "RETRY_ONCE"
	cfg.Boundary.OutputMinChars = 50

	b := cfg.BoundaryConfig()
	if b.MinMode != boundary.ModeRetryOnce {
		t.Fatalf("expected ModeRetryOnce, got %v", b.MinMode)
	}
	if b.MinChars != 50 {
		t.Fatalf("expected MinChars=50, got %d", b.MinChars)
	}
}

func TestValidateAll_RejectsInvertedBoundaryBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Boundary.OutputMaxChars = 100
	cfg.Boundary.OutputMinChars = 200

	if err := NewValidator(cfg).ValidateAll(); err == nil {
		t.Fatal("expected validation error when min_chars exceeds max_chars")
	}
}

func TestValidateAll_RejectsFallbackEnabledWithNoModels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fallback = FallbackConfig{Enabled: true}

	if err := NewValidator(cfg).ValidateAll(); err == nil {
		t.Fatal("expected validation error when fallback is enabled with no models")
	}
}
