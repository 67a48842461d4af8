// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sessionguard/internal/countdown"
	"github.com/jeranaias/sessionguard/internal/session"
	"github.com/jeranaias/sessionguard/internal/ui/styles"
)

// =============================================================================
// SESSION DIALOG
// =============================================================================

// SessionDialog renders the modal for the session warning, the inactivity
// warning and the expired notice. It is driven entirely by session.Status
// snapshots; actions are reported through key bindings, never by the
// dialog itself.
type SessionDialog struct {
	status session.Status
	theme  *styles.Theme
	keys   KeyMap

	width  int
	height int
}

// NewSessionDialog creates a dialog using theme.
func NewSessionDialog(theme *styles.Theme, keys KeyMap) SessionDialog {
	return SessionDialog{theme: theme, keys: keys}
}

// SetSize sets the area the dialog is centered in.
func (d *SessionDialog) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// SetStatus replaces the snapshot the dialog renders.
func (d *SessionDialog) SetStatus(st session.Status) {
	d.status = st
}

// IsVisible reports whether the current snapshot has a dialog open.
func (d SessionDialog) IsVisible() bool {
	return d.status.DialogVisible()
}

// View renders the dialog, or "" when none is open.
func (d SessionDialog) View() string {
	if !d.IsVisible() {
		return ""
	}

	var box string
	switch d.status.State {
	case session.StateSessionWarning:
		box = d.viewSessionWarning()
	case session.StateInactivityWarning:
		box = d.viewInactivity()
	default:
		box = d.viewExpired()
	}

	width, height := d.size()
	return lipgloss.Place(
		width, height,
		lipgloss.Center, lipgloss.Center,
		box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim),
	)
}

// =============================================================================
// RENDER METHODS
// =============================================================================

func (d SessionDialog) viewSessionWarning() string {
	title := d.theme.DialogTitle.Foreground(styles.Amber).
		Render(styles.StatusIndicators.Warning + " Session Expiring")

	timeStyle := lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
	body := "Your session will expire in " + timeStyle.Render(countdown.Format(d.status.Remaining)) + "."

	hint := d.hint(d.keys.Extend, d.keys.Dismiss)
	if d.status.Renewing {
		hint = d.theme.DialogHint.Render("Extending session...")
	}

	return d.box(d.theme.DialogWarning, title, body, hint)
}

func (d SessionDialog) viewInactivity() string {
	title := d.theme.DialogTitle.Foreground(styles.Amber).
		Render(styles.StatusIndicators.Warning + " Are you still there?")

	body := "You have been inactive for " + formatIdle(d.status.Idle) + "."
	if d.status.InactivityCountdown > 0 {
		timeStyle := lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
		body += "\nYou will be logged out in " + timeStyle.Render(countdown.Format(d.status.InactivityCountdown)) + "."
	}

	return d.box(d.theme.DialogWarning, title, body, d.hint(d.keys.Resume, d.keys.Dismiss))
}

func (d SessionDialog) viewExpired() string {
	title := d.theme.DialogTitle.Foreground(styles.Rose).
		Render(styles.StatusIndicators.Error + " Session Expired")

	body := expiredMessage(d.status.ExpiredReason)
	if d.status.ExpiredCountdown > 0 {
		body += "\nRedirecting to login in " + countdown.Format(d.status.ExpiredCountdown) + "."
	}

	return d.box(d.theme.DialogExpired, title, body, d.hint(d.keys.Login))
}

func (d SessionDialog) box(frame lipgloss.Style, title, body, hint string) string {
	maxWidth := d.maxWidth()

	content := lipgloss.JoinVertical(lipgloss.Center,
		title,
		"",
		d.theme.DialogBody.Width(maxWidth-8).Render(body),
		"",
		hint,
	)
	return frame.Width(maxWidth).Render(content)
}

func (d SessionDialog) hint(bindings ...key.Binding) string {
	return d.theme.DialogHint.Render(renderBindings(d.theme, bindings...))
}

func (d SessionDialog) size() (int, int) {
	width, height := d.width, d.height
	if width == 0 {
		width = 60
	}
	if height == 0 {
		height = 24
	}
	return width, height
}

func (d SessionDialog) maxWidth() int {
	width, _ := d.size()
	maxWidth := width - 8
	if maxWidth < 40 {
		maxWidth = 40
	}
	if maxWidth > 60 {
		maxWidth = 60
	}
	return maxWidth
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func expiredMessage(reason string) string {
	switch reason {
	case session.ReasonInactivity:
		return "You were logged out due to inactivity."
	case session.ReasonRenewal, session.ReasonRenewalError:
		return "Your session could not be extended."
	case session.ReasonLogin:
		return "You have been logged out."
	default:
		return "Your session has expired."
	}
}

// formatIdle renders an idle duration in whole minutes once past one.
func formatIdle(d time.Duration) string {
	if d < time.Minute {
		return countdown.Format(d)
	}
	mins := int(d / time.Minute)
	if mins == 1 {
		return "1 minute"
	}
	return toStr(mins) + " minutes"
}
