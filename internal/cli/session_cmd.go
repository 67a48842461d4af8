// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jeranaias/sessionguard/internal/notify"
	"github.com/jeranaias/sessionguard/internal/session"
	"github.com/jeranaias/sessionguard/internal/store"
)

// retryOperation is the failed-operation marker written by extend.
const retryOperation = "extend"

// =============================================================================
// RESET
// =============================================================================

// ResetCmd starts a fresh session, typically right after logging in.
type ResetCmd struct{}

func (c *ResetCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := OpenEnv(ctx, globals, envOptions{})
	if err != nil {
		return err
	}
	defer env.Close()

	mgr := env.headlessManager()
	defer mgr.Stop()

	if err := mgr.ResetTimer(); err != nil {
		return &CommandError{Command: "reset", Action: "persist", Reason: "could not save the new expiry", Err: err}
	}

	st := mgr.Status()
	fmt.Fprintf(env.Stdout, "%s Session reset, expires in %s (%s)\n",
		RenderStatus("ok"), st.FormattedRemaining(), st.Expiry.Local().Format("15:04:05"))
	return nil
}

// =============================================================================
// EXTEND
// =============================================================================

// ExtendCmd renews the session once through the token endpoint. Failed
// attempts are counted in the store so the user can see and abandon them
// with the retry command.
//
// A rejected renewal ends the shared session: the persisted expiry is set
// to now so every monitor sharing the store expires on its next tick.
// Credentials stay in place for a later retry. A transport failure leaves
// the expiry untouched.
type ExtendCmd struct {
	MaxAttempts int `name:"max-attempts" default:"0" help:"Refuse to run after this many consecutive failures (0 = no limit)."`
}

func (c *ExtendCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := OpenEnv(ctx, globals, envOptions{})
	if err != nil {
		return err
	}
	defer env.Close()

	if env.Refresher == nil {
		return &CommandError{
			Command: "extend",
			Action:  "renew",
			Reason:  "no token endpoint configured (set refresh.token_url)",
			Err:     session.ErrNoRefresher,
		}
	}

	retries := store.NewRetries(env.Store)
	attempts, err := retries.Attempts()
	if err != nil {
		return fmt.Errorf("read retry attempts: %w", err)
	}
	if c.MaxAttempts > 0 && attempts >= c.MaxAttempts {
		return &CommandError{
			Command: "extend",
			Action:  "renew",
			Reason:  fmt.Sprintf("%d consecutive failures; run `sessionguard retry clear` to try again", attempts),
		}
	}

	mgr := env.headlessManager(session.WithNotifier(notify.Multi(
		printNotifier(env.Stdout),
		notify.Log(env.Log),
	)))
	defer mgr.Stop()

	err = mgr.ExtendSession(ctx)
	switch {
	case err == nil:
		if err := retries.Clear(); err != nil {
			env.Log.Warn().Err(err).Msg("failed to clear retry bookkeeping")
		}
		st := mgr.Status()
		fmt.Fprintf(env.Stdout, "    %s\n", DimStyle.Render("Expires at "+st.Expiry.Local().Format("15:04:05")))
		return nil

	case errors.Is(err, session.ErrRenewalRejected), errors.Is(err, session.ErrRenewalFailed):
		n, rerr := retries.Increment()
		if rerr == nil {
			rerr = retries.MarkFailed(retryOperation)
		}
		if errors.Is(err, session.ErrRenewalRejected) {
			if xerr := store.WriteExpiry(env.Store, time.Now()); xerr != nil {
				rerr = errors.Join(rerr, fmt.Errorf("expire session: %w", xerr))
			} else {
				env.Log.Info().Str("event", "SESSION_EXPIRED").Str("reason", session.ReasonRenewal).
					Msg("shared session expired after rejected renewal")
			}
		}
		if rerr != nil {
			return errors.Join(err, fmt.Errorf("record retry: %w", rerr))
		}
		fmt.Fprintf(env.Stdout, "    %s\n", DimStyle.Render(fmt.Sprintf(
			"Attempt %d failed. Run `sessionguard extend` to retry or `sessionguard retry clear` to give up.", n)))
		return err

	case errors.Is(err, session.ErrExpired):
		return &CommandError{
			Command: "extend",
			Action:  "renew",
			Reason:  "session has expired; log in and run `sessionguard reset`",
			Err:     err,
		}

	default:
		return err
	}
}

// =============================================================================
// LOGOUT
// =============================================================================

// LogoutCmd ends the session for every process sharing the store.
type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := OpenEnv(ctx, globals, envOptions{})
	if err != nil {
		return err
	}
	defer env.Close()

	mgr := env.headlessManager(session.WithOnExpired(func(context.Context) (bool, error) {
		return true, env.Logout()
	}))
	defer mgr.Stop()

	if err := mgr.HandleExpiredLogin(ctx); err != nil {
		return &CommandError{Command: "logout", Action: "clear", Reason: "could not end the session", Err: err}
	}
	fmt.Fprintf(env.Stdout, "%s Logged out\n", RenderStatus("ok"))
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// printNotifier renders session notifications as indicator lines.
func printNotifier(w io.Writer) notify.Notifier {
	return notify.Func(func(title, description string, kind notify.Kind) {
		fmt.Fprintf(w, "%s %s\n", RenderStatus(kindStatus(kind)), title)
		if description != "" {
			fmt.Fprintf(w, "    %s\n", DimStyle.Render(description))
		}
	})
}
