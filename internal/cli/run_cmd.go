// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/sessionguard/internal/notify"
	"github.com/jeranaias/sessionguard/internal/session"
	"github.com/jeranaias/sessionguard/internal/store"
	"github.com/jeranaias/sessionguard/internal/ui/app"
	"github.com/jeranaias/sessionguard/internal/ui/components"
)

// RunCmd hosts the session monitor in the terminal.
type RunCmd struct {
	NoWatch bool `name:"no-watch" help:"Do not watch the store file for writes from other processes."`
}

func (c *RunCmd) Run(ctx context.Context, globals *Globals) error {
	if err := RequiresTTY("start the session monitor"); err != nil {
		return err
	}

	env, err := OpenEnv(ctx, globals, envOptions{logToFile: true})
	if err != nil {
		return err
	}
	defer env.Close()

	toasts := components.NewToastManager(nil)
	opts := []session.Option{
		session.WithNotifier(notify.Multi(toasts, notify.Log(env.Log))),
	}

	if env.Config.Store.Watch && !c.NoWatch {
		if w := watchStore(env); w != nil {
			defer w.Close()
			opts = append(opts, session.WithChanges(w.Changes()))
		}
	}

	// program is assigned before the manager starts, so the hook never
	// sees it nil.
	var program *tea.Program
	opts = append(opts, session.WithOnExpired(func(context.Context) (bool, error) {
		err := env.Logout()
		program.Send(app.LoggedOutMsg{})
		return err == nil, err
	}))

	mgr := env.NewManager(env.Config.ManagerConfig(), opts...)
	defer mgr.Stop()

	if _, err := store.ReadExpiry(env.Store); errors.Is(err, store.ErrNotFound) {
		// First run after login: nothing persisted yet.
		if err := mgr.ResetTimer(); err != nil {
			return &CommandError{Command: "run", Action: "start", Reason: "could not save session expiry", Err: err}
		}
	}

	model := app.New(ctx, mgr, app.Options{
		Backend: env.Config.Store.Backend,
		Toasts:  toasts,
	})
	program = tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	if err := mgr.Start(ctx); err != nil {
		return err
	}

	final, err := program.Run()
	mgr.Stop()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("session monitor: %w", err)
	}

	if m, ok := final.(app.Model); ok && m.Status().State == session.StateExpired {
		reason := m.Status().ExpiredReason
		if reason == "" {
			reason = session.ReasonCountdown
		}
		fmt.Fprintf(env.Stdout, "%s Session ended (%s)\n", RenderStatus("warning"), reason)
	}
	return nil
}

// watchStore starts the fsnotify watcher for file-backed stores. Backends
// without a file are polled by the tick loop only.
func watchStore(env *Env) *store.Watcher {
	if env.Config.Store.Path != "" {
		if err := os.MkdirAll(filepath.Dir(env.Config.Store.Path), 0700); err != nil {
			env.Log.Warn().Err(err).Msg("cannot create store directory, not watching")
			return nil
		}
	}

	w, err := store.Watch(env.Store, env.Log)
	switch {
	case err == nil:
		return w
	case errors.Is(err, store.ErrNotWatchable):
		env.Log.Debug().Str("backend", env.Config.Store.Backend).Msg("store is not watchable, polling only")
	default:
		env.Log.Warn().Err(err).Msg("failed to watch store, polling only")
	}
	return nil
}
