// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/sessionguard/internal/session"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// StatusMsg carries a snapshot from the session manager. Closed is set once
// the manager has stopped and will publish no more.
type StatusMsg struct {
	Status session.Status
	Closed bool
}

// ExtendResultMsg reports the outcome of an extend request.
type ExtendResultMsg struct {
	Err error
}

// LoginResultMsg reports the outcome of "log in again".
type LoginResultMsg struct {
	Err error
}

// ResetResultMsg reports the outcome of a timer reset.
type ResetResultMsg struct {
	Err error
}

// LoggedOutMsg is sent by the owner's expiry hook once the user has been
// logged out. The monitor exits on it.
type LoggedOutMsg struct{}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForStatus blocks until the manager publishes the next snapshot.
func waitForStatus(updates <-chan session.Status) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return StatusMsg{Closed: true}
		}
		return StatusMsg{Status: st}
	}
}
