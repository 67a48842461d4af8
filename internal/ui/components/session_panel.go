// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sessionguard/internal/countdown"
	"github.com/jeranaias/sessionguard/internal/session"
	"github.com/jeranaias/sessionguard/internal/ui/styles"
)

// RenderSessionPanel renders the main session summary: state, time left,
// expiry and idle time. Narrow layouts drop the border and the instance id.
func RenderSessionPanel(theme *styles.Theme, st session.Status) string {
	badge := theme.StateBadge.Background(StateColor(st.State)).Render(st.State.String())

	expiry := "unknown"
	if !st.Expiry.IsZero() {
		expiry = st.Expiry.Local().Format("15:04:05")
	}

	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, theme.Label.Render(label), theme.Value.Render(value))
	}

	remaining := theme.Countdown.Foreground(StateColor(st.State)).Render(st.FormattedRemaining())

	rows := []string{
		badge,
		"",
		row("Time left", remaining),
		row("Expires at", expiry),
		row("Idle", countdown.Format(st.Idle)),
	}
	narrow := theme.GetLayoutMode() == styles.LayoutNarrow
	if !narrow {
		rows = append(rows, row("Instance", shortID(st.InstanceID)))
	}
	if st.State == session.StateExpired && st.ExpiredReason != "" {
		rows = append(rows, row("Reason", st.ExpiredReason))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, rows...)
	if narrow {
		return body
	}
	return theme.Panel.Render(body)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
