package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
service:
  name: iris-inference-service
  version: 2.1.0
http:
  port: 9090
  timeout: 10s
log:
  level: debug
model:
  type: rules
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Service.Version != "2.1.0" {
		t.Fatalf("version = %q", cfg.Service.Version)
	}
	if cfg.HTTP.Port != 9090 {
		t.Fatalf("port = %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.Timeout != 10*time.Second {
		t.Fatalf("timeout = %v", cfg.HTTP.Timeout)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
	if cfg.Model.Type != "rules" {
		t.Fatalf("model type = %q", cfg.Model.Type)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "{}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Fatalf("default port = %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Fatalf("default timeout = %v", cfg.HTTP.Timeout)
	}
	if cfg.Model.Type != "forest" {
		t.Fatalf("default model type = %q", cfg.Model.Type)
	}
	if cfg.Model.Trees != 100 || cfg.Model.MaxDepth != 5 || cfg.Model.Seed != 42 {
		t.Fatalf("unexpected model defaults: %+v", cfg.Model)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("default log level = %q", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
