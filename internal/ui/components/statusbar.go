// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sessionguard/internal/session"
	"github.com/jeranaias/sessionguard/internal/ui/styles"
)

// =============================================================================
// STATE PRESENTATION
// =============================================================================

// StateColor returns the accent color for state.
func StateColor(state session.State) lipgloss.AdaptiveColor {
	switch state {
	case session.StateActive:
		return styles.Emerald
	case session.StateInactivityWarning, session.StateSessionWarning:
		return styles.Amber
	default:
		return styles.Rose
	}
}

// StateIcon returns the shape indicator for state.
// ACCESSIBILITY: Uses distinct shapes alongside colors for colorblind users
func StateIcon(state session.State) string {
	switch state {
	case session.StateActive:
		return styles.StatusIndicators.Active
	case session.StateInactivityWarning, session.StateSessionWarning:
		return styles.StatusIndicators.Warning
	default:
		return styles.StatusIndicators.Error
	}
}

// StateLabel returns a short human-readable label for state.
func StateLabel(state session.State) string {
	switch state {
	case session.StateActive:
		return "Active"
	case session.StateInactivityWarning:
		return "Idle"
	case session.StateSessionWarning:
		return "Expiring"
	case session.StateExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusBar is the bottom bar: session state, countdown and key hints.
type StatusBar struct {
	Status  session.Status
	Backend string
	Hints   string
	Width   int
	theme   *styles.Theme
}

// NewStatusBar creates a StatusBar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Width: 80, theme: theme}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// View renders the status bar.
func (s *StatusBar) View() string {
	stateStyle := lipgloss.NewStyle().Foreground(StateColor(s.Status.State)).Bold(true)

	left := stateStyle.Render(StateIcon(s.Status.State) + " " + StateLabel(s.Status.State))
	left += "  " + s.theme.Countdown.Render(s.Status.FormattedRemaining())
	if s.Status.Renewing {
		left += "  " + lipgloss.NewStyle().Foreground(styles.Cyan).Render(styles.StatusIndicators.Pending+" renewing")
	}

	var parts []string
	parts = append(parts, left)
	if s.Width >= 60 {
		if s.Backend != "" {
			parts = append(parts, lipgloss.NewStyle().Foreground(styles.TextMuted).Render("store: "+s.Backend))
		}
		if s.Hints != "" {
			parts = append(parts, s.Hints)
		}
	}

	separator := lipgloss.NewStyle().Foreground(styles.Overlay).Render(" | ")
	line := strings.Join(parts, separator)

	return s.theme.StatusBar.
		Width(s.Width).
		MaxWidth(s.Width).
		MaxHeight(1).
		Render(line)
}
