// Package config loads the lockauth configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/infodancer/lockauth"
	"github.com/infodancer/lockauth/conversation"
	"github.com/infodancer/lockauth/secret"
)

// DefaultPath is read when LOCKAUTH_CONFIG is not set.
const DefaultPath = "/etc/lockauth/config.toml"

// EnvPath names the environment variable overriding DefaultPath.
const EnvPath = "LOCKAUTH_CONFIG"

// Limits enforced by Validate.
const (
	MaxTimeout          = 10 * time.Minute
	MaxSecretCapacity   = 64 * 1024
	MaxDiagnosticsBytes = 64 * 1024
)

// Config is the lockauth configuration structure.
type Config struct {
	Input       InputConfig       `toml:"input"`
	Backend     BackendConfig     `toml:"backend"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Log         LogConfig         `toml:"log"`
}

// InputConfig bounds secret acquisition.
type InputConfig struct {
	// Timeout is how long to wait for the secret to arrive.
	Timeout Duration `toml:"timeout"`

	// MaxSecret is the secret buffer capacity in bytes, terminator included.
	MaxSecret int `toml:"max_secret"`
}

// BackendConfig holds backend selection settings.
type BackendConfig struct {
	// Type is the backend type (e.g., "pam", "passwd").
	Type string `toml:"type"`

	// Service is the PAM service name.
	Service string `toml:"service"`

	// CredentialBackend is the path to credential storage for the passwd backend.
	CredentialBackend string `toml:"credential_backend"`

	// Options contains backend-specific settings.
	Options map[string]string `toml:"options"`
}

// DiagnosticsConfig sizes the capture buffer for backend messages.
type DiagnosticsConfig struct {
	Capacity int `toml:"capacity"`
}

// LogConfig controls operational logging.
type LogConfig struct {
	// Level is one of off, debug, info, warn or error.
	Level string `toml:"level"`
}

// Duration is a time.Duration written as a string such as "15s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Input: InputConfig{
			Timeout:   Duration(secret.DefaultTimeout),
			MaxSecret: secret.DefaultCapacity,
		},
		Backend: BackendConfig{
			Type:    "pam",
			Service: "login",
		},
		Diagnostics: DiagnosticsConfig{
			Capacity: conversation.DefaultDiagnosticsCapacity,
		},
		Log: LogConfig{Level: "off"},
	}
}

// Path returns the configuration path from the environment, or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// mergeConfig returns a new Config with base values overridden by non-zero
// values from override. Fields absent in override retain the base value.
func mergeConfig(base, override Config) Config {
	result := base
	if override.Input.Timeout != 0 {
		result.Input.Timeout = override.Input.Timeout
	}
	if override.Input.MaxSecret != 0 {
		result.Input.MaxSecret = override.Input.MaxSecret
	}
	if override.Backend.Type != "" {
		result.Backend.Type = override.Backend.Type
	}
	if override.Backend.Service != "" {
		result.Backend.Service = override.Backend.Service
	}
	if override.Backend.CredentialBackend != "" {
		result.Backend.CredentialBackend = override.Backend.CredentialBackend
	}
	if len(override.Backend.Options) > 0 {
		result.Backend.Options = override.Backend.Options
	}
	if override.Diagnostics.Capacity != 0 {
		result.Diagnostics.Capacity = override.Diagnostics.Capacity
	}
	if override.Log.Level != "" {
		result.Log.Level = override.Log.Level
	}
	return result
}

// Load reads the configuration file at path on top of Default. A missing
// file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var file Config
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg = mergeConfig(cfg, file)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every value is within its supported range.
func (c *Config) Validate() error {
	if t := time.Duration(c.Input.Timeout); t <= 0 || t > MaxTimeout {
		return fmt.Errorf("invalid config: input.timeout %v out of range (0, %v]", t, MaxTimeout)
	}
	if n := c.Input.MaxSecret; n < secret.MinCapacity || n > MaxSecretCapacity {
		return fmt.Errorf("invalid config: input.max_secret %d out of range [%d, %d]",
			n, secret.MinCapacity, MaxSecretCapacity)
	}
	if n := c.Diagnostics.Capacity; n < 0 || n > MaxDiagnosticsBytes {
		return fmt.Errorf("invalid config: diagnostics.capacity %d out of range [0, %d]",
			n, MaxDiagnosticsBytes)
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("invalid config: backend.type is empty")
	}
	if _, _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Lockauth converts the backend section to a lockauth.BackendConfig.
func (c BackendConfig) Lockauth() lockauth.BackendConfig {
	return lockauth.BackendConfig{
		Type:              c.Type,
		Service:           c.Service,
		CredentialBackend: c.CredentialBackend,
		Options:           c.Options,
	}
}

// NewLogger returns a text logger writing to w at the configured level, or a
// logger discarding everything when the level is "off" or empty.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, enabled, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return slog.New(slog.DiscardHandler), nil
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func parseLevel(s string) (level slog.Level, enabled bool, err error) {
	switch strings.ToLower(s) {
	case "", "off":
		return 0, false, nil
	case "debug":
		return slog.LevelDebug, true, nil
	case "info":
		return slog.LevelInfo, true, nil
	case "warn":
		return slog.LevelWarn, true, nil
	case "error":
		return slog.LevelError, true, nil
	}
	return 0, false, fmt.Errorf("invalid config: unknown log.level %q", s)
}
