// Package config provides configuration loading for the fileparse command and server.
//
// Values come from an optional YAML file, then FILEPARSE_* environment
// variables (optionally seeded from a .env file), then defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug  bool         `yaml:"debug" env:"FILEPARSE_DEBUG"`
	Parse  ParseConfig  `yaml:"parse"`
	Server ServerConfig `yaml:"server"`
	Watch  WatchConfig  `yaml:"watch"`
}

// ParseConfig holds defaults for parse calls made by the adapters.
type ParseConfig struct {
	Encoding  string `yaml:"encoding" env:"FILEPARSE_ENCODING"`
	Delimiter string `yaml:"delimiter" env:"FILEPARSE_DELIMITER"`
	Output    string `yaml:"output" env:"FILEPARSE_OUTPUT"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `yaml:"host" env:"FILEPARSE_HOST"`
	Port         int    `yaml:"port" env:"FILEPARSE_PORT"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" env:"FILEPARSE_MAX_BODY_BYTES"`
}

// WatchConfig holds file watch settings.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" env:"FILEPARSE_WATCH_DEBOUNCE"`
	// Files are watched when `fileparse watch` is given no paths.
	Files []string `yaml:"files"`
}

// Load reads the config file at path (skipped when path is empty), applies
// environment overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir := filepath.Dir(path)
		for i := range cfg.Watch.Files {
			cfg.Watch.Files[i] = expandPath(cfg.Watch.Files[i], configDir)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadDotEnv loads variables from the given .env files (".env" when none are
// given), overwriting variables already set. A missing file is not an error.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Overload(name); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, errors.New("watch.debounce must be non-negative"))
	}
	switch c.Parse.Output {
	case "", "jsonl", "json", "yaml", "table":
	default:
		errs = append(errs, fmt.Errorf("parse.output %q must be one of jsonl, json, yaml, table", c.Parse.Output))
	}
	return errors.Join(errs...)
}

// expandPath converts a path to absolute. Paths starting with "~/" are
// relative to the home directory; other relative paths to configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
		return path
	}
	return filepath.Join(configDir, path)
}
