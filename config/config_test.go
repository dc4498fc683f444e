package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if time.Duration(cfg.Input.Timeout) != 15*time.Second {
		t.Errorf("expected 15s timeout, got %v", time.Duration(cfg.Input.Timeout))
	}
	if cfg.Input.MaxSecret != 512 {
		t.Errorf("expected max_secret 512, got %d", cfg.Input.MaxSecret)
	}
	if cfg.Backend.Type != "pam" || cfg.Backend.Service != "login" {
		t.Errorf("unexpected backend defaults: %+v", cfg.Backend)
	}
	if cfg.Diagnostics.Capacity != 1024 {
		t.Errorf("expected diagnostics capacity 1024, got %d", cfg.Diagnostics.Capacity)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
[input]
timeout = "3s"
max_secret = 128

[backend]
type = "passwd"
credential_backend = "/etc/lockauth/passwd"

[backend.options]
clock_skew = "0"

[log]
level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if time.Duration(cfg.Input.Timeout) != 3*time.Second {
		t.Errorf("expected 3s, got %v", time.Duration(cfg.Input.Timeout))
	}
	if cfg.Input.MaxSecret != 128 {
		t.Errorf("expected 128, got %d", cfg.Input.MaxSecret)
	}
	if cfg.Backend.Type != "passwd" {
		t.Errorf("expected passwd backend, got %q", cfg.Backend.Type)
	}
	// Not present in the file, so the default survives.
	if cfg.Backend.Service != "login" {
		t.Errorf("expected service login retained, got %q", cfg.Backend.Service)
	}
	if cfg.Backend.Options["clock_skew"] != "0" {
		t.Errorf("expected backend option, got %v", cfg.Backend.Options)
	}

	bc := cfg.Backend.Lockauth()
	if bc.CredentialBackend != "/etc/lockauth/passwd" {
		t.Errorf("unexpected credential backend %q", bc.CredentialBackend)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad duration":   "[input]\ntimeout = \"soon\"\n",
		"zero capacity":  "[input]\nmax_secret = 1\n",
		"huge timeout":   "[input]\ntimeout = \"1h\"\n",
		"bad log level":  "[log]\nlevel = \"chatty\"\n",
		"negative diag":  "[diagnostics]\ncapacity = -5\n",
		"not toml":       "this is = = not toml",
		"huge secret":    "[input]\nmax_secret = 1000000\n",
		"negative input": "[input]\ntimeout = \"-1s\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMergeConfig(t *testing.T) {
	base := Default()
	result := mergeConfig(base, Config{Input: InputConfig{MaxSecret: 64}})
	if result.Input.MaxSecret != 64 {
		t.Errorf("expected merged max_secret 64, got %d", result.Input.MaxSecret)
	}
	if result.Input.Timeout != base.Input.Timeout {
		t.Errorf("expected base timeout retained")
	}

	// Zero override should not overwrite base
	result = mergeConfig(base, Config{})
	if result.Backend.Type != "pam" {
		t.Errorf("expected base backend retained, got %q", result.Backend.Type)
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvPath, "")
	if Path() != DefaultPath {
		t.Errorf("expected %s, got %s", DefaultPath, Path())
	}
	t.Setenv(EnvPath, "/tmp/custom.toml")
	if Path() != "/tmp/custom.toml" {
		t.Errorf("expected override, got %s", Path())
	}
}

func TestNewLogger(t *testing.T) {
	var out bytes.Buffer

	off, err := LogConfig{Level: "off"}.NewLogger(&out)
	if err != nil {
		t.Fatal(err)
	}
	off.Error("dropped")
	if out.Len() != 0 {
		t.Errorf("expected no output when logging is off, got %q", out.String())
	}

	warn, err := LogConfig{Level: "warn"}.NewLogger(&out)
	if err != nil {
		t.Fatal(err)
	}
	warn.Info("dropped")
	warn.Warn("kept")
	if strings.Contains(out.String(), "dropped") || !strings.Contains(out.String(), "kept") {
		t.Errorf("unexpected log output %q", out.String())
	}
}
