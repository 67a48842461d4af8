// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/jeranaias/sessionguard/internal/session"
	"github.com/jeranaias/sessionguard/internal/util"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SESSIONGUARD_"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Duration is a time.Duration written as a Go duration string ("90s",
// "15m") in TOML and environment variables.
type Duration struct {
	time.Duration
}

// D wraps d.
func D(d time.Duration) Duration {
	return Duration{Duration: d}
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// Config represents the complete sessionguard configuration.
type Config struct {
	Session SessionConfig `toml:"session" envPrefix:"SESSION_"`
	Store   StoreConfig   `toml:"store" envPrefix:"STORE_"`
	Refresh RefreshConfig `toml:"refresh" envPrefix:"REFRESH_"`
	Log     LogConfig     `toml:"log" envPrefix:"LOG_"`
}

// SessionConfig contains session timing.
type SessionConfig struct {
	// MaxLifetime is the lifetime granted by a reset or renewal
	MaxLifetime Duration `toml:"max_lifetime" env:"MAX_LIFETIME"`
	// WarningBefore opens the expiry warning this long before expiry
	WarningBefore Duration `toml:"warning_before" env:"WARNING_BEFORE"`
	// InactivityTimeout is the idle time before the inactivity warning (0 = off)
	InactivityTimeout Duration `toml:"inactivity_timeout" env:"INACTIVITY_TIMEOUT"`
	// InactivityGrace is how long the inactivity warning waits before expiring
	InactivityGrace Duration `toml:"inactivity_grace" env:"INACTIVITY_GRACE"`
	// ExpiredRedirect auto-triggers login after expiry (0 = wait for the user)
	ExpiredRedirect Duration `toml:"expired_redirect" env:"EXPIRED_REDIRECT"`
	// ActivityThrottle is the minimum spacing between accepted activity signals
	ActivityThrottle Duration `toml:"activity_throttle" env:"ACTIVITY_THROTTLE"`
}

// StoreConfig selects where the session expiry is persisted.
type StoreConfig struct {
	// Backend is one of: file, sqlite, redis, memory
	Backend string `toml:"backend" env:"BACKEND"`
	// Path is the file or database path (empty = default under ConfigDir)
	Path string `toml:"path" env:"PATH"`
	// RedisURL is the connection URL for the redis backend
	RedisURL string `toml:"redis_url" env:"REDIS_URL"`
	// RedisPrefix namespaces keys in Redis
	RedisPrefix string `toml:"redis_prefix" env:"REDIS_PREFIX"`
	// Watch re-evaluates immediately when another process writes the store
	Watch bool `toml:"watch" env:"WATCH"`
}

// RefreshConfig contains the OAuth2 token endpoint used for renewal.
type RefreshConfig struct {
	TokenURL     string `toml:"token_url" env:"TOKEN_URL"`
	ClientID     string `toml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"CLIENT_SECRET"`
	// Scopes requested with the refresh grant
	Scopes []string `toml:"scopes" env:"SCOPES" envSeparator:","`
	// CredentialsPath is the stored token file (empty = default under ConfigDir)
	CredentialsPath string `toml:"credentials_path" env:"CREDENTIALS_PATH"`
	// Timeout bounds one refresh round trip
	Timeout Duration `toml:"timeout" env:"TIMEOUT"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is one of: trace, debug, info, warn, error
	Level string `toml:"level" env:"LEVEL"`
	// Path is the log file used while the TUI owns the terminal
	Path string `toml:"path" env:"PATH"`
	// Console writes human-readable logs instead of JSON
	Console bool `toml:"console" env:"CONSOLE"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			MaxLifetime:       D(30 * time.Minute),
			WarningBefore:     D(2 * time.Minute),
			InactivityTimeout: D(15 * time.Minute),
			InactivityGrace:   D(60 * time.Second),
			ExpiredRedirect:   D(10 * time.Second),
			ActivityThrottle:  D(time.Second),
		},
		Store: StoreConfig{
			Backend: "file",
			Watch:   true,
		},
		Refresh: RefreshConfig{
			Timeout: D(15 * time.Second),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ManagerConfig converts the session section into a session.Config.
func (c *Config) ManagerConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.MaxLifetime = c.Session.MaxLifetime.Duration
	cfg.WarningBefore = c.Session.WarningBefore.Duration
	cfg.InactivityTimeout = c.Session.InactivityTimeout.Duration
	cfg.InactivityGrace = c.Session.InactivityGrace.Duration
	cfg.ExpiredRedirect = c.Session.ExpiredRedirect.Duration
	cfg.ActivityThrottle = c.Session.ActivityThrottle.Duration
	return cfg
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the sessionguard configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".sessionguard"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files may hold a client secret, so they stay 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default TOML file, .env and the
// environment. A missing config file means defaults.
// CONFIG: Comprehensive validation ensures safe configuration
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path, then applies .env and
// environment overrides, fills defaults and validates.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, err
			}
		}
	}

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path over cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files, or ./.env when
// none are given. Missing files are skipped and variables already in the
// environment are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// SetDefaults fills in paths that depend on the home directory.
func (c *Config) SetDefaults() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = "file"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	needsDir := (c.Store.Path == "" && (c.Store.Backend == "file" || c.Store.Backend == "sqlite")) ||
		c.Refresh.CredentialsPath == "" || c.Log.Path == ""
	if !needsDir {
		return nil
	}

	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if c.Store.Path == "" {
		switch c.Store.Backend {
		case "file":
			c.Store.Path = filepath.Join(dir, "session.json")
		case "sqlite":
			c.Store.Path = filepath.Join(dir, "session.db")
		}
	}
	if c.Refresh.CredentialsPath == "" {
		c.Refresh.CredentialsPath = filepath.Join(dir, "credentials.json")
	}
	if c.Log.Path == "" {
		c.Log.Path = filepath.Join(dir, "sessionguard.log")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies SESSIONGUARD_* environment variables.
//
// Examples:
//   - SESSIONGUARD_SESSION_MAX_LIFETIME=45m
//   - SESSIONGUARD_SESSION_INACTIVITY_TIMEOUT=0s
//   - SESSIONGUARD_STORE_BACKEND=redis
//   - SESSIONGUARD_STORE_REDIS_URL=redis://localhost:6379/0
//   - SESSIONGUARD_REFRESH_TOKEN_URL=https://auth.example.com/oauth/token
//   - SESSIONGUARD_LOG_LEVEL=debug
func (c *Config) ApplyEnvOverrides() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# sessionguard configuration file\n")
	buf.WriteString("# Generated by sessionguard - edit with care\n")
	buf.WriteString("#\n")
	buf.WriteString("# Durations use Go syntax: 90s, 15m, 1h30m\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validBackends  = map[string]bool{"file": true, "sqlite": true, "redis": true, "memory": true}
	validLogLevels = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
)

// Validate validates the configuration and returns any errors as
// ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	s := c.Session
	if s.MaxLifetime.Duration < time.Second {
		add("session.max_lifetime", "must be at least 1s, got %s", s.MaxLifetime)
	}
	if s.WarningBefore.Duration < 0 {
		add("session.warning_before", "must not be negative, got %s", s.WarningBefore)
	} else if s.WarningBefore.Duration >= s.MaxLifetime.Duration {
		add("session.warning_before", "must be less than max_lifetime (%s), got %s", s.MaxLifetime, s.WarningBefore)
	}
	if s.InactivityTimeout.Duration < 0 {
		add("session.inactivity_timeout", "must not be negative, got %s", s.InactivityTimeout)
	}
	if s.InactivityGrace.Duration < 0 {
		add("session.inactivity_grace", "must not be negative, got %s", s.InactivityGrace)
	}
	if s.ExpiredRedirect.Duration < 0 {
		add("session.expired_redirect", "must not be negative, got %s", s.ExpiredRedirect)
	}
	if s.ActivityThrottle.Duration < 0 {
		add("session.activity_throttle", "must not be negative, got %s", s.ActivityThrottle)
	}

	backend := strings.ToLower(c.Store.Backend)
	if !validBackends[backend] {
		add("store.backend", "invalid backend '%s', must be one of: file, sqlite, redis, memory", c.Store.Backend)
	}
	if backend == "redis" && c.Store.RedisURL == "" {
		add("store.redis_url", "required when backend is redis")
	}

	if c.Refresh.TokenURL != "" {
		u, err := url.Parse(c.Refresh.TokenURL)
		if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
			add("refresh.token_url", "invalid URL '%s', must be an absolute http(s) URL", c.Refresh.TokenURL)
		}
	}
	if c.Refresh.Timeout.Duration < 0 {
		add("refresh.timeout", "must not be negative, got %s", c.Refresh.Timeout)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "invalid level '%s', must be one of: trace, debug, info, warn, error", c.Log.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// IsValidationError reports whether err carries ValidateErrors.
func IsValidationError(err error) bool {
	var ve ValidateErrors
	return errors.As(err, &ve)
}
