// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sessionguard/internal/ui/components"
)

// View renders the monitor.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width, height := m.width, m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	header := m.header.View()

	m.statusBar.Hints = m.help.View(m.keys.ForState(m.status.State))
	if m.status.Renewing {
		m.statusBar.Hints = m.spinner.View() + " " + m.statusBar.Hints
	}
	footer := m.statusBar.View()

	bodyHeight := height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var body string
	if m.dialog.IsVisible() {
		dialog := m.dialog
		dialog.SetSize(width, bodyHeight)
		body = dialog.View()
	} else {
		body = lipgloss.Place(width, bodyHeight, lipgloss.Center, lipgloss.Center,
			components.RenderSessionPanel(m.theme, m.status))
	}

	if len(m.visible) > 0 {
		stack := components.RenderToastStack(m.visible, width)
		body = overlayBottomRight(body, stack, width, bodyHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// overlayBottomRight places the toast stack over the lower right of body
// by replacing whole lines. Toasts take precedence over what is beneath.
func overlayBottomRight(body, stack string, width, height int) string {
	placed := lipgloss.Place(width, height, lipgloss.Right, lipgloss.Bottom, stack)

	bodyLines := strings.Split(body, "\n")
	placedLines := strings.Split(placed, "\n")
	stackHeight := lipgloss.Height(stack)

	for i := len(placedLines) - stackHeight; i >= 0 && i < len(placedLines) && i < len(bodyLines); i++ {
		bodyLines[i] = placedLines[i]
	}
	return strings.Join(bodyLines, "\n")
}
