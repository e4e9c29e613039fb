package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/waabox/autofixdeck/internal/config"
)

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[api]
url = "http://autofix.internal:8001/api/v1"
timeout_seconds = 10

[log]
level = "DEBUG"
file = "/tmp/autofix.log"

[project]
default = "group/app"
target_branch = "develop"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIURLOrDefault() != "http://autofix.internal:8001/api/v1" {
		t.Errorf("expected API URL from file, got '%s'", cfg.APIURLOrDefault())
	}
	if cfg.TimeoutOrDefault() != 10*time.Second {
		t.Errorf("expected timeout 10s, got %s", cfg.TimeoutOrDefault())
	}
	if cfg.LogLevelOrDefault() != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.LogLevelOrDefault())
	}
	if cfg.Log.File != "/tmp/autofix.log" {
		t.Errorf("expected log file '/tmp/autofix.log', got '%s'", cfg.Log.File)
	}
	if cfg.Project.Default != "group/app" {
		t.Errorf("expected default project 'group/app', got '%s'", cfg.Project.Default)
	}
	if cfg.TargetBranchOrDefault() != "develop" {
		t.Errorf("expected target branch 'develop', got '%s'", cfg.TargetBranchOrDefault())
	}
}

func TestLoad_EnvVarsTakePrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[api]
url = "http://fromfile/api/v1"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AUTOFIX_API_URL", "http://fromenv/api/v1")
	t.Setenv("AUTOFIX_LOG_LEVEL", "warn")
	t.Setenv("AUTOFIX_LOG_FILE", "/var/log/autofix.log")
	t.Setenv("AUTOFIX_PROJECT", "team/service")

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.URL != "http://fromenv/api/v1" {
		t.Errorf("expected env URL, got '%s'", cfg.API.URL)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected env log level 'warn', got '%s'", cfg.Log.Level)
	}
	if cfg.Log.File != "/var/log/autofix.log" {
		t.Errorf("expected env log file, got '%s'", cfg.Log.File)
	}
	if cfg.Project.Default != "team/service" {
		t.Errorf("expected env project, got '%s'", cfg.Project.Default)
	}
}

func TestLoad_MissingFileIsNotError(t *testing.T) {
	t.Setenv("AUTOFIX_API_URL", "http://onlyenv/api/v1")
	cfg, err := config.LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("missing file should not be an error, got: %v", err)
	}
	if cfg.API.URL != "http://onlyenv/api/v1" {
		t.Errorf("expected URL from env, got '%s'", cfg.API.URL)
	}
}

func TestLoad_InvalidFileIsError(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[api\nurl = "), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadFrom(configPath); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestDefaults(t *testing.T) {
	var cfg config.Config
	if cfg.APIURLOrDefault() != "http://localhost:8001/api/v1" {
		t.Errorf("unexpected default URL '%s'", cfg.APIURLOrDefault())
	}
	if cfg.TimeoutOrDefault() != 30*time.Second {
		t.Errorf("unexpected default timeout %s", cfg.TimeoutOrDefault())
	}
	if cfg.LogLevelOrDefault() != "info" {
		t.Errorf("unexpected default log level '%s'", cfg.LogLevelOrDefault())
	}
	if cfg.TargetBranchOrDefault() != "main" {
		t.Errorf("unexpected default target branch '%s'", cfg.TargetBranchOrDefault())
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	in := config.Config{
		API:     config.APIConfig{URL: "http://saved/api/v1", TimeoutSeconds: 5},
		Project: config.ProjectConfig{Default: "group/app"},
	}
	if err := config.Save(path, in); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	out, err := config.LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("expected %+v, got %+v", in, out)
	}
}

func TestLoadFile_IgnoresEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configPath, []byte("[api]\nurl = \"http://file:8001/api/v1\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AUTOFIX_API_URL", "http://env:8001/api/v1")

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.URL != "http://file:8001/api/v1" {
		t.Errorf("expected file URL without env override, got '%s'", cfg.API.URL)
	}
}
