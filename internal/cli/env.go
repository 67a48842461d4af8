// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/jeranaias/sessionguard/internal/config"
	"github.com/jeranaias/sessionguard/internal/logging"
	"github.com/jeranaias/sessionguard/internal/refresh"
	"github.com/jeranaias/sessionguard/internal/session"
	"github.com/jeranaias/sessionguard/internal/store"
)

// Env is the runtime a command works against.
type Env struct {
	Config    *config.Config
	Log       zerolog.Logger
	Store     store.Store
	Refresher *refresh.OAuth // nil when no token endpoint is configured

	Stdout io.Writer
	Stderr io.Writer

	logCloser io.Closer
}

// envOptions tune OpenEnv per command.
type envOptions struct {
	// logToFile sends logs to log.path instead of stderr. The monitor owns
	// the terminal, so it cannot log there.
	logToFile bool
}

// loadConfig reads the config file selected by the global flags.
func loadConfig(g *Globals) (*config.Config, error) {
	if g.ConfigFile != "" {
		return config.LoadFromPath(g.ConfigFile)
	}
	return config.Load()
}

// OpenEnv loads configuration and opens the logger, store and refresher.
// Callers must Close the returned Env.
func OpenEnv(ctx context.Context, g *Globals, opts envOptions) (*Env, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, &CommandError{Command: "config", Action: "load", Reason: "could not load configuration", Err: err}
	}

	env := &Env{
		Config: cfg,
		Stdout: g.stdout(),
		Stderr: g.stderr(),
	}

	logOpts := logging.Options{
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console || !opts.logToFile,
		Out:     env.Stderr,
	}
	if opts.logToFile {
		logOpts.Path = cfg.Log.Path
	}
	if g.Debug {
		logOpts.Level = "debug"
	}
	env.Log, env.logCloser, err = logging.Setup(logOpts)
	if err != nil {
		return nil, &CommandError{Command: "log", Action: "setup", Reason: "could not open log", Err: err}
	}

	env.Store, err = store.Open(ctx, store.Options{
		Backend:  cfg.Store.Backend,
		Path:     cfg.Store.Path,
		RedisURL: cfg.Store.RedisURL,
		Prefix:   cfg.Store.RedisPrefix,
	})
	if err != nil {
		_ = env.logCloser.Close()
		return nil, &CommandError{Command: "store", Action: "open", Reason: "could not open session store", Err: err}
	}

	if cfg.Refresh.TokenURL != "" {
		env.Refresher, err = refresh.NewOAuth(refresh.Options{
			TokenURL:        cfg.Refresh.TokenURL,
			ClientID:        cfg.Refresh.ClientID,
			ClientSecret:    cfg.Refresh.ClientSecret,
			Scopes:          cfg.Refresh.Scopes,
			CredentialsPath: cfg.Refresh.CredentialsPath,
			Timeout:         cfg.Refresh.Timeout.Duration,
			Logger:          env.Log,
		})
		if err != nil {
			_ = env.Close()
			return nil, &CommandError{Command: "refresh", Action: "setup", Reason: "invalid token endpoint", Err: err}
		}
	}

	env.Log.Debug().
		Str("backend", cfg.Store.Backend).
		Bool("refresh", env.Refresher != nil).
		Msg("environment ready")
	return env, nil
}

// Close releases the store and the log file.
func (e *Env) Close() error {
	return errors.Join(store.Close(e.Store), e.logCloser.Close())
}

// NewManager builds a session manager over the shared store.
func (e *Env) NewManager(cfg session.Config, opts ...session.Option) *session.Manager {
	base := []session.Option{session.WithLogger(e.Log)}
	if e.Refresher != nil {
		base = append(base, session.WithRefresher(e.Refresher))
	}
	return session.NewManager(e.Store, cfg, append(base, opts...)...)
}

// headlessManager returns a manager evaluated once for a one-shot command.
// One-shot commands have no input to track and no dialog to redirect from,
// so inactivity and the expired redirect are off.
func (e *Env) headlessManager(opts ...session.Option) *session.Manager {
	cfg := e.Config.ManagerConfig()
	cfg.InactivityTimeout = 0
	cfg.ExpiredRedirect = 0

	mgr := e.NewManager(cfg, opts...)
	mgr.Tick()
	return mgr
}

// Logout ends the session for every process sharing the store: the stored
// credentials, the persisted expiry and any retry bookkeeping are removed.
func (e *Env) Logout() error {
	var errs []error
	if e.Config.Refresh.CredentialsPath != "" {
		if err := refresh.RemoveCredentials(e.Config.Refresh.CredentialsPath); err != nil {
			errs = append(errs, fmt.Errorf("remove credentials: %w", err))
		}
	}
	if err := store.ClearExpiry(e.Store); err != nil {
		errs = append(errs, fmt.Errorf("clear expiry: %w", err))
	}
	if err := store.NewRetries(e.Store).Clear(); err != nil {
		errs = append(errs, fmt.Errorf("clear retries: %w", err))
	}

	err := errors.Join(errs...)
	e.Log.Info().Str("event", "LOGGED_OUT").Err(err).Msg("session ended")
	return err
}

// =============================================================================
// OUTPUT STREAMS
// =============================================================================

func (g *Globals) stdout() io.Writer {
	if g.Stdout != nil {
		return g.Stdout
	}
	return os.Stdout
}

func (g *Globals) stderr() io.Writer {
	if g.Stderr != nil {
		return g.Stderr
	}
	return os.Stderr
}
