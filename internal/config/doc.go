// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// sessionguard.
//
// Configuration is TOML with sensible defaults, .env support, environment
// variable overrides and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - SessionConfig: Lifetime, warning and inactivity timing
//   - StoreConfig: Where the shared session expiry lives
//   - RefreshConfig: OAuth2 token endpoint used for renewal
//   - Duration: time.Duration written as "15m" in TOML and env vars
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (SESSIONGUARD_*)
//   - .env in the working directory
//   - ~/.sessionguard/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Build a session manager from it:
//
//	mgr := session.NewManager(st, cfg.ManagerConfig())
package config
