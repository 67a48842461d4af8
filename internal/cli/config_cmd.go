// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/sessionguard/internal/config"
)

// ConfigCmd groups the configuration subcommands.
type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write a default config file."`
	Show ConfigShowCmd `cmd:"" default:"1" help:"Print the effective configuration."`
}

// ConfigInitCmd writes the default configuration.
type ConfigInitCmd struct {
	Force bool `help:"Overwrite an existing file."`
}

func (c *ConfigInitCmd) Run(ctx context.Context, globals *Globals) error {
	path := globals.ConfigFile
	if path == "" {
		var err error
		if path, err = config.ConfigPathTOML(); err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !c.Force {
		return &CommandError{
			Command: "config",
			Action:  "init",
			Reason:  path + " already exists (use --force to overwrite)",
		}
	}

	if err := config.SaveTOML(config.Default(), path); err != nil {
		return &CommandError{Command: "config", Action: "init", Reason: "could not write file", Err: err}
	}
	fmt.Fprintf(globals.stdout(), "%s Wrote %s\n", RenderStatus("ok"), path)
	return nil
}

// ConfigShowCmd prints the configuration after file, .env and environment
// overrides are applied.
type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return &CommandError{Command: "config", Action: "load", Reason: "could not load configuration", Err: err}
	}

	shown := *cfg
	if shown.Refresh.ClientSecret != "" {
		shown.Refresh.ClientSecret = "********"
	}
	return toml.NewEncoder(globals.stdout()).Encode(&shown)
}
