// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"

	"github.com/alecthomas/kong"
)

// CLI is the root command tree parsed by kong.
type CLI struct {
	ConfigFile string           `name:"config-file" short:"c" type:"path" env:"SESSIONGUARD_CONFIG" help:"Path to config.toml (default ~/.sessionguard/config.toml)."`
	Debug      bool             `help:"Enable debug logging."`
	Version    kong.VersionFlag `help:"Print version and exit."`

	Run    RunCmd    `cmd:"" default:"1" help:"Monitor the session in a terminal UI."`
	Status StatusCmd `cmd:"" help:"Show the remaining session time."`
	Reset  ResetCmd  `cmd:"" help:"Start a fresh session after logging in."`
	Extend ExtendCmd `cmd:"" help:"Renew the session with the token endpoint. A rejected renewal ends the session for every monitor."`
	Logout LogoutCmd `cmd:"" help:"End the session and remove stored credentials."`
	Retry  RetryCmd  `cmd:"" help:"Inspect or abandon renewal retries."`
	Config ConfigCmd `cmd:"" help:"Manage the configuration file."`
}

// Globals carries flags shared by every command.
type Globals struct {
	ConfigFile string
	Debug      bool
	Version    string

	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Globals returns the shared flags for the parsed command line.
func (c *CLI) Globals(version string) *Globals {
	return &Globals{
		ConfigFile: c.ConfigFile,
		Debug:      c.Debug,
		Version:    version,
	}
}
