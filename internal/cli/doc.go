// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the sessionguard command tree.
//
// Commands are kong structs with a Run(ctx, *Globals) method. Every command
// builds an Env (config, logger, store, refresher) from the global flags and
// drives a session.Manager over the shared store, so a headless command and
// a running monitor see the same expiry.
//
// # Commands
//
//   - run: terminal monitor with warning and expiry dialogs (default)
//   - status: remaining session time, optionally as JSON
//   - reset: start a fresh session after an external login
//   - extend: renew through the token endpoint with retry bookkeeping
//   - logout: end the session and remove stored credentials
//   - retry show|clear: inspect or abandon renewal retries
//   - config init|show: write or print the configuration
//
// # Usage
//
//	var root cli.CLI
//	kctx := kong.Parse(&root, kong.BindTo(ctx, (*context.Context)(nil)))
//	err := kctx.Run(root.Globals(version))
package cli
