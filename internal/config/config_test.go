// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateHome points the home directory at a temp dir so Load never
// touches the real ~/.sessionguard.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

// TestLoad_DefaultsWithoutFile tests that Load fills home-relative
// defaults when no config file exists.
func TestLoad_DefaultsWithoutFile(t *testing.T) {
	home := isolateHome(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Session.MaxLifetime.Duration)
	assert.Equal(t, filepath.Join(home, ".sessionguard", "session.json"), cfg.Store.Path)
	assert.Equal(t, filepath.Join(home, ".sessionguard", "credentials.json"), cfg.Refresh.CredentialsPath)
}

func TestSetDefaults_NormalisesBackend(t *testing.T) {
	home := isolateHome(t)

	cfg := Default()
	cfg.Store.Backend = " SQLite "
	cfg.Store.Path = ""
	require.NoError(t, cfg.SetDefaults())

	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, filepath.Join(home, ".sessionguard", "session.db"), cfg.Store.Path)
	assert.NoError(t, cfg.Validate())
}

// TestConfig_Default tests that Default() returns a valid config.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg.Session.MaxLifetime.Duration != 30*time.Minute {
		t.Errorf("max_lifetime = %s, want 30m", cfg.Session.MaxLifetime)
	}
	if cfg.Session.WarningBefore.Duration != 2*time.Minute {
		t.Errorf("warning_before = %s, want 2m", cfg.Session.WarningBefore)
	}
	if cfg.Session.InactivityTimeout.Duration != 15*time.Minute {
		t.Errorf("inactivity_timeout = %s, want 15m", cfg.Session.InactivityTimeout)
	}
	if cfg.Session.ExpiredRedirect.Duration != 10*time.Second {
		t.Errorf("expired_redirect = %s, want 10s", cfg.Session.ExpiredRedirect)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("store.backend = %q, want file", cfg.Store.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		field   string
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, "", false},
		{"warning equals lifetime", func(c *Config) {
			c.Session.WarningBefore = c.Session.MaxLifetime
		}, "session.warning_before", true},
		{"lifetime too short", func(c *Config) {
			c.Session.MaxLifetime = D(500 * time.Millisecond)
			c.Session.WarningBefore = D(0)
		}, "session.max_lifetime", true},
		{"negative grace", func(c *Config) {
			c.Session.InactivityGrace = D(-time.Second)
		}, "session.inactivity_grace", true},
		{"inactivity disabled", func(c *Config) {
			c.Session.InactivityTimeout = D(0)
		}, "", false},
		{"redirect disabled", func(c *Config) {
			c.Session.ExpiredRedirect = D(0)
		}, "", false},
		{"unknown backend", func(c *Config) {
			c.Store.Backend = "etcd"
		}, "store.backend", true},
		{"redis without url", func(c *Config) {
			c.Store.Backend = "redis"
		}, "store.redis_url", true},
		{"redis with url", func(c *Config) {
			c.Store.Backend = "redis"
			c.Store.RedisURL = "redis://localhost:6379/0"
		}, "", false},
		{"relative token url", func(c *Config) {
			c.Refresh.TokenURL = "/oauth/token"
		}, "refresh.token_url", true},
		{"bad scheme token url", func(c *Config) {
			c.Refresh.TokenURL = "ftp://auth.example.com/token"
		}, "refresh.token_url", true},
		{"valid token url", func(c *Config) {
			c.Refresh.TokenURL = "https://auth.example.com/oauth/token"
		}, "", false},
		{"invalid log level", func(c *Config) {
			c.Log.Level = "verbose"
		}, "log.level", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			require.True(t, IsValidationError(err))
			var fields []string
			for _, ve := range err.(ValidateErrors) {
				fields = append(fields, ve.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	c := Default()
	c.Store.Backend = "etcd"
	c.Log.Level = "loud"
	c.Session.ActivityThrottle = D(-time.Second)

	err := c.Validate()
	require.Error(t, err)
	assert.Len(t, err.(ValidateErrors), 3)
	assert.Contains(t, err.Error(), "store.backend")
	assert.Contains(t, err.Error(), "; ")
}

// =============================================================================
// LOAD / SAVE TESTS
// =============================================================================

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	home := isolateHome(t)

	cfg, err := LoadFromPath(filepath.Join(home, "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Session, cfg.Session)
	assert.Equal(t, filepath.Join(home, ".sessionguard", "credentials.json"), cfg.Refresh.CredentialsPath)
	assert.Equal(t, filepath.Join(home, ".sessionguard", "sessionguard.log"), cfg.Log.Path)
}

func TestLoadFromPath_TOML(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "config.toml")
	data := `
[session]
max_lifetime = "45m"
warning_before = "5m"
inactivity_timeout = "0s"
expired_redirect = "0s"

[store]
backend = "sqlite"
watch = false

[refresh]
token_url = "https://auth.example.com/oauth/token"
client_id = "cli"
scopes = ["openid", "offline_access"]
timeout = "5s"

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, cfg.Session.MaxLifetime.Duration)
	assert.Equal(t, 5*time.Minute, cfg.Session.WarningBefore.Duration)
	assert.Zero(t, cfg.Session.InactivityTimeout.Duration)
	assert.Zero(t, cfg.Session.ExpiredRedirect.Duration)
	assert.Equal(t, 60*time.Second, cfg.Session.InactivityGrace.Duration, "unset keys keep defaults")
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.False(t, cfg.Store.Watch)
	assert.Equal(t, filepath.Join(home, ".sessionguard", "session.db"), cfg.Store.Path)
	assert.Equal(t, []string{"openid", "offline_access"}, cfg.Refresh.Scopes)
	assert.Equal(t, 5*time.Second, cfg.Refresh.Timeout.Duration)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFromPath_InvalidDuration(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[session]\nmax_lifetime = \"forever\"\n"), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forever")
}

func TestLoadFromPath_ValidationFails(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[session]\nwarning_before = \"1h\"\n"), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestLoadTOML_FixesPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0644))

	cfg := Default()
	require.NoError(t, LoadTOML(cfg, path))
	assert.Equal(t, "warn", cfg.Log.Level)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Session.MaxLifetime = D(90 * time.Minute)
	cfg.Session.InactivityGrace = D(90 * time.Second)
	cfg.Store.Backend = "memory"
	cfg.Refresh.TokenURL = "https://auth.example.com/oauth/token"
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# sessionguard configuration file")
	assert.Contains(t, string(data), `max_lifetime = "1h30m0s"`)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Session, loaded.Session)
	assert.Equal(t, "memory", loaded.Store.Backend)
	assert.Equal(t, cfg.Refresh.TokenURL, loaded.Refresh.TokenURL)
}

// =============================================================================
// ENVIRONMENT TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SESSIONGUARD_SESSION_MAX_LIFETIME", "1h")
	t.Setenv("SESSIONGUARD_SESSION_INACTIVITY_TIMEOUT", "0s")
	t.Setenv("SESSIONGUARD_STORE_BACKEND", "redis")
	t.Setenv("SESSIONGUARD_STORE_REDIS_URL", "redis://cache:6379/2")
	t.Setenv("SESSIONGUARD_STORE_WATCH", "false")
	t.Setenv("SESSIONGUARD_REFRESH_SCOPES", "openid,offline_access")
	t.Setenv("SESSIONGUARD_LOG_CONSOLE", "true")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnvOverrides())

	assert.Equal(t, time.Hour, cfg.Session.MaxLifetime.Duration)
	assert.Zero(t, cfg.Session.InactivityTimeout.Duration)
	assert.Equal(t, 2*time.Minute, cfg.Session.WarningBefore.Duration, "unset variables keep values")
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis://cache:6379/2", cfg.Store.RedisURL)
	assert.False(t, cfg.Store.Watch)
	assert.Equal(t, []string{"openid", "offline_access"}, cfg.Refresh.Scopes)
	assert.True(t, cfg.Log.Console)
}

func TestApplyEnvOverrides_Invalid(t *testing.T) {
	t.Setenv("SESSIONGUARD_SESSION_WARNING_BEFORE", "soon")

	err := Default().ApplyEnvOverrides()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment override")
}

func TestLoadFromPath_EnvBeatsFile(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0600))
	t.Setenv("SESSIONGUARD_LOG_LEVEL", "error")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "SESSIONGUARD_TEST_DOTENV_BACKEND"
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=sqlite\n"), 0600))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
	_, set := os.LookupEnv(key)
	assert.False(t, set, "missing files are skipped")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "sqlite", os.Getenv(key))
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	const key = "SESSIONGUARD_TEST_DOTENV_LEVEL"
	t.Setenv(key, "warn")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=debug\n"), 0600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "warn", os.Getenv(key))
}

func TestManagerConfig(t *testing.T) {
	cfg := Default()
	cfg.Session.MaxLifetime = D(time.Hour)
	cfg.Session.ExpiredRedirect = D(0)

	mc := cfg.ManagerConfig()
	assert.Equal(t, time.Hour, mc.MaxLifetime)
	assert.Equal(t, 2*time.Minute, mc.WarningBefore)
	assert.Equal(t, 15*time.Minute, mc.InactivityTimeout)
	assert.Equal(t, 60*time.Second, mc.InactivityGrace)
	assert.Zero(t, mc.ExpiredRedirect)
	assert.Equal(t, time.Second, mc.ActivityThrottle)
	assert.Equal(t, time.Second, mc.TickInterval)
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte(" 90s ")))
	assert.Equal(t, 90*time.Second, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("ninety")))
}
