// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/jeranaias/sessionguard/internal/countdown"
)

// State is the lifecycle state of the session as seen by this process.
type State int

const (
	// StateActive indicates the session is valid and no dialog is shown.
	StateActive State = iota
	// StateInactivityWarning indicates the user has been idle too long and
	// the inactivity grace countdown is running.
	StateInactivityWarning
	// StateSessionWarning indicates the absolute expiry is close.
	StateSessionWarning
	// StateExpired indicates the session is over. It is left only through
	// ResetTimer.
	StateExpired
)

// String returns a string representation of the State.
func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateInactivityWarning:
		return "INACTIVITY_WARNING"
	case StateSessionWarning:
		return "SESSION_WARNING"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// IsWarning returns true for either warning state.
func (s State) IsWarning() bool {
	return s == StateInactivityWarning || s == StateSessionWarning
}

// severity orders states for conflict resolution. Higher wins.
func (s State) severity() int {
	switch s {
	case StateExpired:
		return 3
	case StateSessionWarning:
		return 2
	case StateInactivityWarning:
		return 1
	default:
		return 0
	}
}

// Expiry reasons recorded in logs and in Status.
const (
	ReasonCountdown    = "countdown"
	ReasonInactivity   = "inactivity"
	ReasonRenewal      = "renewal_rejected"
	ReasonRenewalError = "renewal_error"
	ReasonLogin        = "login_requested"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is a point-in-time snapshot of the manager.
type Status struct {
	InstanceID string
	State      State

	// Remaining is the absolute session time left, zero once expired.
	Remaining time.Duration
	// Expiry is the persisted absolute expiry, zero when none is readable.
	Expiry time.Time
	// Idle is the time since the last accepted activity.
	Idle time.Duration

	// InactivityCountdown is the grace time left while in
	// StateInactivityWarning.
	InactivityCountdown time.Duration
	// ExpiredCountdown is the time left before the expired dialog triggers
	// login automatically. Zero when disabled or already handled.
	ExpiredCountdown time.Duration
	// ExpiredDialog reports whether the expired dialog is showing.
	ExpiredDialog bool
	// ExpiredReason is set once State is StateExpired.
	ExpiredReason string

	Renewing bool
}

// FormattedRemaining renders Remaining as m:ss.
func (s Status) FormattedRemaining() string {
	return countdown.Format(s.Remaining)
}

// DialogVisible reports whether any session dialog should be on screen.
func (s Status) DialogVisible() bool {
	return s.State.IsWarning() || (s.State == StateExpired && s.ExpiredDialog)
}
