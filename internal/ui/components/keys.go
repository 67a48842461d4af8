// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/jeranaias/sessionguard/internal/session"
	"github.com/jeranaias/sessionguard/internal/ui/styles"
)

// =============================================================================
// KEY BINDINGS
// =============================================================================

// KeyMap holds the session monitor's key bindings.
type KeyMap struct {
	Extend  key.Binding
	Resume  key.Binding
	Dismiss key.Binding
	Login   key.Binding
	Reset   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Extend: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "extend session"),
		),
		Resume: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "continue session"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d", "esc"),
			key.WithHelp("d/esc", "dismiss"),
		),
		Login: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "log in again"),
		),
		Reset: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reset timer"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ForState enables only the bindings that act in state. Help and Quit
// stay enabled.
func (k KeyMap) ForState(state session.State) KeyMap {
	k.Extend.SetEnabled(state == session.StateActive || state.IsWarning())
	k.Resume.SetEnabled(state == session.StateInactivityWarning)
	k.Dismiss.SetEnabled(state.IsWarning())
	k.Login.SetEnabled(state == session.StateExpired)
	k.Reset.SetEnabled(true)
	return k
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Extend, k.Resume, k.Dismiss, k.Login, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Extend, k.Resume, k.Dismiss},
		{k.Login, k.Reset},
		{k.Help, k.Quit},
	}
}

// renderBindings renders enabled bindings as "[key] desc" pairs.
func renderBindings(theme *styles.Theme, bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, theme.ShortcutKey.Render("["+h.Key+"]")+" "+theme.ShortcutDesc.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}
