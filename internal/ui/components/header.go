// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sessionguard/internal/ui/styles"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the title bar: brand on the left, instance on the right.
type Header struct {
	Title      string
	InstanceID string
	Width      int
	theme      *styles.Theme
}

// NewHeader creates a Header.
func NewHeader(theme *styles.Theme, instanceID string) *Header {
	return &Header{
		Title:      "sessionguard",
		InstanceID: instanceID,
		Width:      80,
		theme:      theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// View renders the header.
func (h *Header) View() string {
	brand := h.theme.HeaderBrand.Render(h.Title)

	right := ""
	if h.InstanceID != "" && h.Width >= 40 {
		right = lipgloss.NewStyle().Foreground(styles.TextMuted).Render("instance " + shortID(h.InstanceID))
	}

	gap := h.Width - lipgloss.Width(brand) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return h.theme.Header.
		Width(h.Width).
		MaxWidth(h.Width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, brand, spacer, right))
}
