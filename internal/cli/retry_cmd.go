// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jeranaias/sessionguard/internal/store"
)

// RetryCmd groups the retry bookkeeping subcommands.
type RetryCmd struct {
	Show  RetryShowCmd  `cmd:"" default:"1" help:"Show consecutive failed renewal attempts."`
	Clear RetryClearCmd `cmd:"" help:"Forget failed attempts and give up retrying."`
}

// RetryShowCmd prints the retry counter and failed-operation marker.
type RetryShowCmd struct {
	JSON bool `name:"json" help:"Print JSON instead of text."`
}

func (c *RetryShowCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := OpenEnv(ctx, globals, envOptions{})
	if err != nil {
		return err
	}
	defer env.Close()

	return OutputJSON(env.Stdout, c.JSON, "retry show", func() (any, error) {
		retries := store.NewRetries(env.Store)
		attempts, err := retries.Attempts()
		if err != nil {
			return nil, err
		}
		op, _, err := retries.FailedOperation()
		if err != nil {
			return nil, err
		}

		data := &RetryData{Attempts: attempts, FailedOperation: op}
		if !c.JSON {
			if attempts == 0 && op == "" {
				fmt.Fprintf(env.Stdout, "%s No failed attempts\n", RenderStatus("ok"))
				return data, nil
			}
			fmt.Fprintln(env.Stdout, RenderField("Attempts", strconv.Itoa(attempts)))
			if op != "" {
				fmt.Fprintln(env.Stdout, RenderField("Failed operation", op))
			}
		}
		return data, nil
	})
}

// RetryClearCmd abandons retrying.
type RetryClearCmd struct{}

func (c *RetryClearCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := OpenEnv(ctx, globals, envOptions{})
	if err != nil {
		return err
	}
	defer env.Close()

	if err := store.NewRetries(env.Store).Clear(); err != nil {
		return &CommandError{Command: "retry", Action: "clear", Reason: "could not update the store", Err: err}
	}
	env.Log.Info().Str("event", "RETRY_ABANDONED").Msg("retry bookkeeping cleared")
	fmt.Fprintf(env.Stdout, "%s Retry state cleared\n", RenderStatus("ok"))
	return nil
}
