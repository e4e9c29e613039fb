package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// APIConfig holds the backend connection settings.
type APIConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LogConfig holds logging settings. The dashboard owns the terminal, so logs
// go to File; one-shot commands log to stderr when File is empty.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// ProjectConfig holds project defaults.
type ProjectConfig struct {
	Default      string `toml:"default"`
	SourceBranch string `toml:"source_branch"`
	TargetBranch string `toml:"target_branch"`
}

// Config holds all autofixdeck configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Log     LogConfig     `toml:"log"`
	Project ProjectConfig `toml:"project"`
}

const (
	defaultAPIURL       = "http://localhost:8001/api/v1"
	defaultTimeout      = 30 * time.Second
	defaultLogLevel     = "info"
	defaultTargetBranch = "main"
)

// APIURLOrDefault returns API.URL if set, otherwise the local backend URL.
func (c Config) APIURLOrDefault() string {
	if c.API.URL != "" {
		return c.API.URL
	}
	return defaultAPIURL
}

// TimeoutOrDefault returns the request timeout.
func (c Config) TimeoutOrDefault() time.Duration {
	if c.API.TimeoutSeconds > 0 {
		return time.Duration(c.API.TimeoutSeconds) * time.Second
	}
	return defaultTimeout
}

// LogLevelOrDefault returns Log.Level if set, otherwise "info".
func (c Config) LogLevelOrDefault() string {
	if c.Log.Level != "" {
		return strings.ToLower(c.Log.Level)
	}
	return defaultLogLevel
}

// TargetBranchOrDefault returns Project.TargetBranch if set, otherwise "main".
func (c Config) TargetBranchOrDefault() string {
	if c.Project.TargetBranch != "" {
		return c.Project.TargetBranch
	}
	return defaultTargetBranch
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - AUTOFIX_API_URL   overrides api.url
//   - AUTOFIX_LOG_LEVEL overrides log.level
//   - AUTOFIX_LOG_FILE  overrides log.file
//   - AUTOFIX_PROJECT   overrides project.default
func LoadFrom(path string) (Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// LoadFile reads only the TOML file, without environment overrides.
// Use it before Save so overrides are not persisted.
func LoadFile(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	return cfg, nil
}

// DefaultConfigPath returns the default path for the autofixdeck config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "autofixdeck", "config.toml")
}

// DefaultLogPath returns the log file used by the dashboard when none is configured.
func DefaultLogPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "autofixdeck", "autofixdeck.log")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUTOFIX_API_URL"); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv("AUTOFIX_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("AUTOFIX_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("AUTOFIX_PROJECT"); v != "" {
		cfg.Project.Default = v
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
