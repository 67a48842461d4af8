// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across sessionguard.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - AtomicWriteFileWithDir: same, with explicit parent directory mode
//
// Display Width:
//   - TruncateWidth: cut a string to a column budget with an ellipsis
//   - WrapWidth: greedy word wrap by display columns
//
// # Usage
//
//	// Persist the session store without ever exposing a partial file
//	err := util.AtomicWriteFileWithDir(path, data, 0600, 0700)
//
//	// Fit a notification line into a 40 column toast
//	lines := util.WrapWidth(description, 40)
package util
