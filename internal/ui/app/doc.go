// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the Bubble Tea program for the interactive session
// monitor. Every key press and mouse event is reported to the session
// manager as activity; dialog actions are forwarded to the manager and the
// view is redrawn from the snapshots it publishes.
package app
