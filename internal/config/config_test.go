package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeTempConfig(t, "token: abc123\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ShardCount != 1 {
		t.Errorf("ShardCount = %d, want 1", cfg.ShardCount)
	}
	if cfg.GatewayURL == "" {
		t.Error("GatewayURL should default to a non-empty value")
	}
	if cfg.Voice.SetupDeadline != DefaultVoiceSetupDeadline {
		t.Errorf("Voice.SetupDeadline = %v, want %v", cfg.Voice.SetupDeadline, DefaultVoiceSetupDeadline)
	}
	if cfg.Backoff.MaxInterval != DefaultBackoffMaxInterval {
		t.Errorf("Backoff.MaxInterval = %v, want %v", cfg.Backoff.MaxInterval, DefaultBackoffMaxInterval)
	}
	if cfg.Postgres.SSLMode != "disable" {
		t.Errorf("Postgres.SSLMode = %q, want disable", cfg.Postgres.SSLMode)
	}
}

func TestLoadRespectsExplicitValues(t *testing.T) {
	path := writeTempConfig(t, `
token: abc123
shard_count: 4
gateway_url: wss://example.invalid/
postgres:
  sslmode: require
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ShardCount != 4 {
		t.Errorf("ShardCount = %d, want 4", cfg.ShardCount)
	}
	if cfg.GatewayURL != "wss://example.invalid/" {
		t.Errorf("GatewayURL = %q, want the explicit value", cfg.GatewayURL)
	}
	if cfg.Postgres.SSLMode != "require" {
		t.Errorf("Postgres.SSLMode = %q, want require", cfg.Postgres.SSLMode)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
