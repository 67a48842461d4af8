// sessionguard - Session lifecycle monitor for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/jeranaias/sessionguard/internal/cli"
)

// Version information (set at build time)
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var root cli.CLI
	kctx := kong.Parse(&root,
		kong.Name("sessionguard"),
		kong.Description("Keeps a login session alive, warns before it expires and logs out when it does."),
		kong.UsageOnError(),
		kong.Vars{
			"version": version + " (" + gitCommit + ")",
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	if err := kctx.Run(root.Globals(version)); err != nil {
		kctx.Errorf("%s", err)
		stop()
		os.Exit(cli.ExitCode(err))
	}
}
