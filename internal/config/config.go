// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for the connectivity
// broker CLI.
//
// Configuration comes from ~/.lumen/config.toml with environment
// variable overrides and built-in defaults. The persisted connectivity
// mode is NOT configuration; it lives in its own store (see modestore)
// and is changed through the broker, never by editing config.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lumenlabs/connectivity/internal/util"
)

// DefaultFileName is the config file name under the state directory.
const DefaultFileName = "config.toml"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete broker configuration.
type Config struct {
	// Store is the path to the persisted mode store. Empty uses the
	// default ~/.lumen/mode.toml.
	Store string `toml:"store"`

	// WatchStore enables the fsnotify watcher that picks up external
	// edits of the mode store while the broker runs.
	WatchStore bool `toml:"watch_store"`

	// Allowlist seeds the endpoint prefix allowlist at startup.
	Allowlist []string `toml:"allowlist"`

	// Audit configures the durable audit log.
	Audit AuditConfig `toml:"audit"`

	// Gateway configures the HTTP gateway.
	Gateway GatewayConfig `toml:"gateway"`

	// Dispatch configures dispatch throttling.
	Dispatch DispatchConfig `toml:"dispatch"`
}

// AuditConfig controls the JSON-lines audit log.
type AuditConfig struct {
	// Enabled turns the audit sink on. Default: true.
	Enabled bool `toml:"enabled"`
	// Path is the audit log path. Empty uses ~/.lumen/audit.log.
	Path string `toml:"path"`
	// MaxSizeMB is the rotation threshold in megabytes. Default: 10.
	MaxSizeMB int64 `toml:"max_size_mb"`
}

// GatewayConfig controls the HTTP gateway.
type GatewayConfig struct {
	// TimeoutSecs is the per-request timeout in seconds. Default: 60.
	TimeoutSecs int `toml:"timeout_secs"`
	// UserAgent overrides the default User-Agent header.
	UserAgent string `toml:"user_agent"`
}

// DispatchConfig controls dispatch throttling.
type DispatchConfig struct {
	// RatePerSec caps dispatches per second. 0 disables throttling.
	RatePerSec float64 `toml:"rate_per_sec"`
	// Burst is the limiter burst size when throttling is on.
	Burst int `toml:"burst"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		WatchStore: false,
		Audit: AuditConfig{
			Enabled:   true,
			MaxSizeMB: 10,
		},
		Gateway: GatewayConfig{
			TimeoutSecs: 60,
		},
		Dispatch: DispatchConfig{
			RatePerSec: 0,
			Burst:      1,
		},
	}
}

// DefaultPath returns ~/.lumen/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".lumen", DefaultFileName), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the config from the default path. A missing file yields
// the defaults; environment overrides apply either way.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the config from a specific file, falls back to
// defaults when the file is absent, applies env overrides, and
// validates.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults are fine; first run has no config file.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies LUMEN_* environment overrides.
//
// Supported variables:
//   - LUMEN_MODE_STORE: mode store path
//   - LUMEN_AUDIT_LOG: audit log path
//   - LUMEN_AUDIT_ENABLED: "true"/"false"
//   - LUMEN_GATEWAY_TIMEOUT_SECS: integer seconds
//   - LUMEN_DISPATCH_RATE: float dispatches per second
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("LUMEN_MODE_STORE"); v != "" {
		c.Store = v
	}
	if v := os.Getenv("LUMEN_AUDIT_LOG"); v != "" {
		c.Audit.Path = v
	}
	if v := os.Getenv("LUMEN_AUDIT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Audit.Enabled = b
		}
	}
	if v := os.Getenv("LUMEN_GATEWAY_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Gateway.TimeoutSecs = n
		}
	}
	if v := os.Getenv("LUMEN_DISPATCH_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.Dispatch.RatePerSec = f
		}
	}
}

// Validate checks value ranges, clamping where a safe bound exists.
func (c *Config) Validate() error {
	if c.Gateway.TimeoutSecs <= 0 {
		c.Gateway.TimeoutSecs = 60
	}
	if c.Audit.MaxSizeMB <= 0 {
		c.Audit.MaxSizeMB = 10
	}
	if c.Dispatch.RatePerSec < 0 {
		return fmt.Errorf("dispatch.rate_per_sec must not be negative")
	}
	if c.Dispatch.RatePerSec > 0 && c.Dispatch.Burst <= 0 {
		c.Dispatch.Burst = 1
	}
	return nil
}

// Save writes the config to path atomically.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// GatewayTimeout returns the gateway timeout as a duration.
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSecs) * time.Second
}
