// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/sessionguard/internal/activity"
	"github.com/jeranaias/sessionguard/internal/notify"
	"github.com/jeranaias/sessionguard/internal/session"
	"github.com/jeranaias/sessionguard/internal/ui/components"
	"github.com/jeranaias/sessionguard/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the session monitor.
type Model struct {
	ctx context.Context
	mgr *session.Manager

	// Styling
	theme   *styles.Theme
	keys    components.KeyMap
	help    help.Model
	spinner spinner.Model

	// Components
	header    *components.Header
	statusBar *components.StatusBar
	dialog    components.SessionDialog
	toasts    *components.ToastManager

	// State
	status   session.Status
	visible  []components.Toast
	width    int
	height   int
	quitting bool
}

// Options configures New.
type Options struct {
	// Backend is shown in the status bar.
	Backend string
	// Toasts receives session notifications. The manager must have been
	// created with it as (part of) its notifier.
	Toasts *components.ToastManager
	// Theme overrides terminal detection.
	Theme *styles.Theme
}

// New creates the monitor model for mgr.
func New(ctx context.Context, mgr *session.Manager, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	toasts := opts.Toasts
	if toasts == nil {
		toasts = components.NewToastManager(nil)
	}
	keys := components.DefaultKeyMap()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Cyan)

	statusBar := components.NewStatusBar(theme)
	statusBar.Backend = opts.Backend

	status := mgr.Status()
	dialog := components.NewSessionDialog(theme, keys)
	dialog.SetStatus(status)

	return Model{
		ctx:       ctx,
		mgr:       mgr,
		theme:     theme,
		keys:      keys,
		help:      help.New(),
		spinner:   s,
		header:    components.NewHeader(theme, mgr.InstanceID()),
		statusBar: statusBar,
		dialog:    dialog,
		toasts:    toasts,
		status:    status,
	}
}

// Status returns the last snapshot the model rendered.
func (m Model) Status() session.Status {
	return m.status
}

// Init starts listening for session updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForStatus(m.mgr.Updates()),
		m.spinner.Tick,
		components.ToastTickCmd(),
	)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		m.mgr.Observe(activity.SignalKey)
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.mgr.Observe(mouseSignal(msg))
		return m, nil

	case StatusMsg:
		if msg.Closed {
			m.quitting = true
			return m, tea.Quit
		}
		m.setStatus(msg.Status)
		return m, waitForStatus(m.mgr.Updates())

	case ExtendResultMsg:
		m.handleActionError("Session extension", msg.Err)
		return m, nil

	case LoginResultMsg:
		m.handleActionError("Log in", msg.Err)
		return m, nil

	case ResetResultMsg:
		if msg.Err != nil {
			m.handleActionError("Session reset", msg.Err)
		} else {
			m.toasts.Notify("Session reset", "A new session has started.", notify.KindInfo)
		}
		return m, nil

	case LoggedOutMsg:
		m.quitting = true
		return m, tea.Quit

	case components.ToastTickMsg:
		m.visible = m.toasts.Tick()
		return m, components.ToastTickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.header.SetWidth(msg.Width)
	m.statusBar.SetWidth(msg.Width)
	m.help.Width = msg.Width
	m.dialog.SetSize(msg.Width, msg.Height-2)
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keys.ForState(m.status.State)

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, keys.Extend):
		if m.status.Renewing {
			return m, nil
		}
		return m, m.extendCmd()

	case key.Matches(msg, keys.Resume):
		m.mgr.ResumeSession()
		return m, nil

	case key.Matches(msg, keys.Dismiss):
		m.mgr.DismissWarning()
		return m, nil

	case key.Matches(msg, keys.Login):
		return m, m.loginCmd()

	case key.Matches(msg, keys.Reset):
		return m, m.resetCmd()
	}
	return m, nil
}

func (m *Model) setStatus(st session.Status) {
	m.status = st
	m.dialog.SetStatus(st)
	m.statusBar.Status = st
}

// handleActionError surfaces errors the manager has not already reported.
// Rejections and failures have sent their own notification.
func (m *Model) handleActionError(action string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, session.ErrRenewalRejected),
		errors.Is(err, session.ErrRenewalFailed),
		errors.Is(err, session.ErrRenewalInFlight),
		errors.Is(err, session.ErrStopped):
	case errors.Is(err, session.ErrExpired):
		m.toasts.Notify(action+" unavailable", "The session has already expired.", notify.KindWarning)
	case errors.Is(err, session.ErrNoRefresher):
		m.toasts.Notify(action+" unavailable", "No token endpoint is configured.", notify.KindWarning)
	default:
		m.toasts.Notify(action+" failed", err.Error(), notify.KindError)
	}
}

func (m Model) extendCmd() tea.Cmd {
	mgr, ctx := m.mgr, m.ctx
	return func() tea.Msg {
		return ExtendResultMsg{Err: mgr.ExtendSession(ctx)}
	}
}

func (m Model) loginCmd() tea.Cmd {
	mgr, ctx := m.mgr, m.ctx
	return func() tea.Msg {
		return LoginResultMsg{Err: mgr.HandleExpiredLogin(ctx)}
	}
}

func (m Model) resetCmd() tea.Cmd {
	mgr := m.mgr
	return func() tea.Msg {
		return ResetResultMsg{Err: mgr.ResetTimer()}
	}
}

// mouseSignal maps a mouse event to an activity signal.
func mouseSignal(msg tea.MouseMsg) activity.Signal {
	switch msg.Type {
	case tea.MouseWheelUp, tea.MouseWheelDown:
		return activity.SignalScroll
	case tea.MouseMotion:
		return activity.SignalPointer
	default:
		return activity.SignalClick
	}
}
