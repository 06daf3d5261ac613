package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Database.Path != DefaultDBPath {
		t.Errorf("expected db path %s, got %s", DefaultDBPath, cfg.Database.Path)
	}

	if cfg.Configurations.Pattern != DefaultPattern {
		t.Errorf("expected pattern %s, got %s", DefaultPattern, cfg.Configurations.Pattern)
	}

	if cfg.Execution.RunTimeout != DefaultRunTimeout {
		t.Errorf("expected run timeout %v, got %v", DefaultRunTimeout, cfg.Execution.RunTimeout)
	}

	if !cfg.Execution.RecordHistory {
		t.Error("expected history recording to be enabled by default")
	}

	if cfg.Metrics.Enabled {
		t.Error("expected metrics to be disabled by default")
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_MissingConfigurationsPath(t *testing.T) {
	cfg := Default()
	cfg.Configurations.Path = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing configurations path")
	}

	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	found := false
	for _, e := range errs {
		if e.Field == "configurations.path" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected error for configurations.path field")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "invalid"

	err := Validate(cfg)
	if err == nil {
		t.Error("expected validation error for invalid log level")
	}
}

func TestValidate_RateLimitWithoutBurst(t *testing.T) {
	cfg := Default()
	cfg.Handlers.HTTP.RateLimit = 2
	cfg.Handlers.HTTP.Burst = 0

	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for rate limit without burst")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Execution.RunTimeout = -time.Second
	cfg.Handlers.Query.Driver = ""
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(errs) != 3 {
		t.Errorf("expected 3 validation errors, got %d: %v", len(errs), errs)
	}
}

func TestValidate_MetricsPath(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "metrics"

	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for metrics path without leading slash")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "autoimport.yaml")

	content := `
configurations:
  path: "/srv/configs"
  watch: false
database:
  path: "test.db"
execution:
  run_timeout: 90s
handlers:
  http:
    rate_limit: 5
    burst: 2
logging:
  level: "debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Configurations.Path != "/srv/configs" {
		t.Errorf("expected configurations path /srv/configs, got %s", cfg.Configurations.Path)
	}

	if cfg.Configurations.Watch {
		t.Error("expected watch to be disabled")
	}

	if cfg.Configurations.Pattern != DefaultPattern {
		t.Errorf("expected default pattern, got %s", cfg.Configurations.Pattern)
	}

	if cfg.Database.Path != "test.db" {
		t.Errorf("expected db path test.db, got %s", cfg.Database.Path)
	}

	if cfg.Execution.RunTimeout != 90*time.Second {
		t.Errorf("expected run timeout 90s, got %v", cfg.Execution.RunTimeout)
	}

	if cfg.Handlers.HTTP.RateLimit != 5 || cfg.Handlers.HTTP.Burst != 2 {
		t.Errorf("expected rate limit 5/2, got %v/%d", cfg.Handlers.HTTP.RateLimit, cfg.Handlers.HTTP.Burst)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("AUTOIMPORT_DATABASE_PATH", "env-test.db")
	t.Setenv("AUTOIMPORT_LOGGING_LEVEL", "warn")

	cfg, err := LoadWithDefaults()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Path != "env-test.db" {
		t.Errorf("expected db path env-test.db from env, got %s", cfg.Database.Path)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn from env, got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "autoimport.yaml")

	if err := os.WriteFile(configPath, []byte("logging:\n  format: xml\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected error for invalid logging format")
	}
}
