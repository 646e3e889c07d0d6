package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "axochat.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}
	return path
}

func TestLoad_Minimal(t *testing.T) {
	path := writeConfig(t, `
net:
  address: "0.0.0.0:8080"
message:
  capacity: 5
  regen_time: 10s
  max_length: 256
moderation:
  file: bans.yaml
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Net.Path != DefaultWSPath {
		t.Errorf("expected default ws path, got %q", cfg.Net.Path)
	}
	if cfg.Auth != nil {
		t.Error("auth should be nil when omitted")
	}
	if cfg.Message.RegenTime.Duration().Seconds() != 10 {
		t.Errorf("expected regen_time 10s, got %v", cfg.Message.RegenTime.Duration())
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	path := writeConfig(t, `
message:
  capacity: 0
moderation:
  file: ""
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) < 3 {
		t.Errorf("expected multiple accumulated errors, got %d: %v", len(verrs), verrs)
	}
}

func TestLoad_AuthRequiresAlgorithm(t *testing.T) {
	path := writeConfig(t, `
net:
  address: "0.0.0.0:8080"
auth:
  key_file: key.bin
  algorithm: "none"
  valid_time: 1h
message:
  capacity: 5
  regen_time: 10s
  max_length: 256
moderation:
  file: bans.yaml
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for unsupported algorithm")
	}
}
