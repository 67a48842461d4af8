// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/jeranaias/sessionguard/internal/store"
)

// StatusCmd prints the session state as seen from the shared store.
type StatusCmd struct {
	JSON bool `name:"json" help:"Print JSON instead of text."`
}

func (c *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := OpenEnv(ctx, globals, envOptions{})
	if err != nil {
		return err
	}
	defer env.Close()

	return OutputJSON(env.Stdout, c.JSON, "status", func() (any, error) {
		data, err := collectStatus(env)
		if err != nil {
			return nil, err
		}
		if !c.JSON {
			printStatus(env.Stdout, data)
		}
		return data, nil
	})
}

func collectStatus(env *Env) (*StatusData, error) {
	mgr := env.headlessManager()
	defer mgr.Stop()
	st := mgr.Status()

	retries := store.NewRetries(env.Store)
	attempts, err := retries.Attempts()
	if err != nil {
		return nil, fmt.Errorf("read retry attempts: %w", err)
	}
	failed, _, err := retries.FailedOperation()
	if err != nil {
		return nil, fmt.Errorf("read failed operation: %w", err)
	}

	data := &StatusData{
		State:            st.State.String(),
		RemainingSeconds: int64(st.Remaining.Seconds()),
		Remaining:        st.FormattedRemaining(),
		Reason:           st.ExpiredReason,
		Backend:          env.Config.Store.Backend,
		Refresh:          env.Refresher != nil,
		RetryAttempts:    attempts,
		FailedOperation:  failed,
		state:            st.State,
	}
	if !st.Expiry.IsZero() {
		expiry := st.Expiry.UTC()
		data.Expiry = &expiry
	}
	return data, nil
}

func printStatus(w io.Writer, data *StatusData) {
	fmt.Fprintln(w, TitleStyle.Render("Session Status"))

	fmt.Fprintln(w, RenderField("State", RenderState(data.state)))
	fmt.Fprintln(w, RenderField("Time left", data.Remaining))
	if data.Expiry != nil {
		fmt.Fprintln(w, RenderField("Expires at", data.Expiry.Local().Format("2006-01-02 15:04:05")))
	} else {
		fmt.Fprintln(w, RenderField("Expires at", DimStyle.Render("not set")))
	}
	if data.Reason != "" {
		fmt.Fprintln(w, RenderField("Reason", data.Reason))
	}
	fmt.Fprintln(w, RenderField("Store", data.Backend))
	if data.Refresh {
		fmt.Fprintln(w, RenderField("Renewal", "token endpoint configured"))
	} else {
		fmt.Fprintln(w, RenderField("Renewal", DimStyle.Render("not configured")))
	}
	if data.RetryAttempts > 0 {
		msg := strconv.Itoa(data.RetryAttempts) + " failed attempt(s)"
		if data.FailedOperation != "" {
			msg += " (" + data.FailedOperation + ")"
		}
		fmt.Fprintln(w, RenderField("Retries", WarningStyle.Render(msg)))
	}
}
