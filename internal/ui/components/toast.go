// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file implements non-blocking toasts for session notifications.
// Toasts appear in the bottom-right corner and auto-dismiss, so the user
// keeps interacting with the monitor while they are displayed.

package components

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"

	"github.com/jeranaias/sessionguard/internal/notify"
	"github.com/jeranaias/sessionguard/internal/ui/styles"
	"github.com/jeranaias/sessionguard/internal/util"
)

// DefaultToastDuration is the auto-dismiss duration for info and success toasts.
const DefaultToastDuration = 4 * time.Second

// ErrorToastDuration is the auto-dismiss duration for error toasts (longer to read).
const ErrorToastDuration = 8 * time.Second

// WarningToastDuration is the auto-dismiss duration for warning toasts.
const WarningToastDuration = 6 * time.Second

// ToastTickInterval is how often visible toasts are re-rendered.
const ToastTickInterval = 250 * time.Millisecond

// =============================================================================
// TOAST
// =============================================================================

// Toast is one notification on screen.
type Toast struct {
	ID        int
	Title     string
	Message   string
	Kind      notify.Kind
	CreatedAt time.Time
	Duration  time.Duration
}

func durationFor(kind notify.Kind) time.Duration {
	switch kind {
	case notify.KindError:
		return ErrorToastDuration
	case notify.KindWarning:
		return WarningToastDuration
	default:
		return DefaultToastDuration
	}
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager holds the visible toasts. It implements notify.Notifier, so
// the session manager can post to it from any goroutine.
type ToastManager struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	toasts    []Toast
	nextID    int
	maxToasts int
}

var _ notify.Notifier = (*ToastManager)(nil)

// NewToastManager creates a toast manager. A nil clock uses the real clock.
func NewToastManager(clock clockwork.Clock) *ToastManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ToastManager{
		clock:     clock,
		nextID:    1,
		maxToasts: 4,
	}
}

// Notify adds a toast. Newest first; the oldest beyond the limit is dropped.
func (m *ToastManager) Notify(title, description string, kind notify.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	toast := Toast{
		ID:        m.nextID,
		Title:     title,
		Message:   description,
		Kind:      kind,
		CreatedAt: m.clock.Now(),
		Duration:  durationFor(kind),
	}
	m.nextID++

	m.toasts = append([]Toast{toast}, m.toasts...)
	if len(m.toasts) > m.maxToasts {
		m.toasts = m.toasts[:m.maxToasts]
	}
}

// Dismiss removes a toast by ID.
func (m *ToastManager) Dismiss(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, toast := range m.toasts {
		if toast.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// Tick drops expired toasts and returns a copy of the rest.
func (m *ToastManager) Tick() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	active := m.toasts[:0]
	for _, toast := range m.toasts {
		if now.Sub(toast.CreatedAt) < toast.Duration {
			active = append(active, toast)
		}
	}
	m.toasts = active

	result := make([]Toast, len(m.toasts))
	copy(result, m.toasts)
	return result
}

// =============================================================================
// TOAST MESSAGES
// =============================================================================

// ToastTickMsg is sent periodically while toasts are visible.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd schedules the next toast tick.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(ToastTickInterval, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// TOAST RENDERING
// =============================================================================

// RenderToast renders a single toast.
func RenderToast(toast Toast, width int) string {
	maxWidth := 50
	if width > 0 && width-8 < maxWidth {
		maxWidth = width - 8
	}
	if maxWidth < 24 {
		maxWidth = 24
	}

	var color lipgloss.AdaptiveColor
	var icon string
	switch toast.Kind {
	case notify.KindError:
		color, icon = styles.Rose, styles.StatusIndicators.Error
	case notify.KindWarning:
		color, icon = styles.Amber, styles.StatusIndicators.Warning
	case notify.KindSuccess:
		color, icon = styles.Emerald, styles.StatusIndicators.Success
	default:
		color, icon = styles.Cyan, styles.StatusIndicators.Info
	}

	titleStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	messageStyle := lipgloss.NewStyle().Foreground(styles.TextPrimary)

	lines := []string{titleStyle.Render(util.TruncateWidth(icon+" "+toast.Title, maxWidth-4))}
	for _, line := range util.WrapWidth(toast.Message, maxWidth-4) {
		lines = append(lines, messageStyle.Render(line))
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// RenderToastStack renders toasts stacked vertically, newest on top.
func RenderToastStack(toasts []Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}

	rendered := make([]string, 0, len(toasts))
	for _, toast := range toasts {
		rendered = append(rendered, RenderToast(toast, width))
	}
	return lipgloss.JoinVertical(lipgloss.Right, rendered...)
}
