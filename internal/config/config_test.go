package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
parse:
  encoding: latin-1
  delimiter: ";"
  output: table
watch:
  debounce: 1s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Parse.Encoding != "latin-1" || cfg.Parse.Delimiter != ";" || cfg.Parse.Output != "table" {
		t.Errorf("unexpected parse config: %+v", cfg.Parse)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("debounce = %s, want 1s", cfg.Watch.Debounce)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_noFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config") {
		t.Errorf("got %v", err)
	}
}

func TestLoad_badYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [1"))
	if err == nil || !strings.Contains(err.Error(), "failed to parse config") {
		t.Errorf("got %v", err)
	}
}

func TestLoad_envOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("FILEPARSE_PORT", "9100")
	t.Setenv("FILEPARSE_DEBUG", "true")
	t.Setenv("FILEPARSE_WATCH_DEBOUNCE", "250ms")
	t.Setenv("FILEPARSE_ENCODING", "cp1252")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100", cfg.Server.Port)
	}
	if !cfg.Debug {
		t.Error("debug should be true from env")
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("debounce = %s", cfg.Watch.Debounce)
	}
	if cfg.Parse.Encoding != "cp1252" {
		t.Errorf("encoding = %q", cfg.Parse.Encoding)
	}
}

func TestLoad_badEnv(t *testing.T) {
	t.Setenv("FILEPARSE_PORT", "eighty")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "FILEPARSE_PORT") {
		t.Errorf("got %v", err)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"port", "server:\n  port: 70000\n", "server.port"},
		{"output", "parse:\n  output: xml\n", "parse.output"},
		{"debounce", "watch:\n  debounce: -1s\n", "watch.debounce"},
		{"body", "server:\n  max_body_bytes: -5\n", "max_body_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("FILEPARSE_HOST=0.0.0.0\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FILEPARSE_HOST", "example")
	if err := LoadDotEnv(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want value from .env", cfg.Server.Host)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes != 32<<20 {
		t.Errorf("default max body: got %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.Watch.Debounce != 400*time.Millisecond {
		t.Errorf("default debounce: got %s", cfg.Watch.Debounce)
	}
	if cfg.Parse.Output != "" {
		t.Errorf("output should stay empty, got %q", cfg.Parse.Output)
	}
}

func TestLoad_watchFilesExpanded(t *testing.T) {
	path := writeConfig(t, "watch:\n  files:\n    - data/a.csv\n    - /abs/b.json\n    - ~/c.log\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := cfg.Watch.Files[0], filepath.Join(filepath.Dir(path), "data", "a.csv"); got != want {
		t.Errorf("relative file: got %s, want %s", got, want)
	}
	if cfg.Watch.Files[1] != "/abs/b.json" {
		t.Errorf("absolute file: got %s", cfg.Watch.Files[1])
	}
	home, err := os.UserHomeDir()
	if err == nil {
		if got, want := cfg.Watch.Files[2], filepath.Join(home, "c.log"); got != want {
			t.Errorf("home file: got %s, want %s", got, want)
		}
	}
}
