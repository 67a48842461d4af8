// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify defines the fire-and-forget notification sink used to tell
// the user about session renewals and failures.
package notify

import "github.com/rs/zerolog"

// Kind classifies a notification for presentation.
type Kind int

const (
	// KindInfo is an informational notification.
	KindInfo Kind = iota
	// KindSuccess reports a completed action.
	KindSuccess
	// KindWarning reports something that needs attention soon.
	KindWarning
	// KindError reports a failure.
	KindError
)

// String returns a string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindInfo:
		return "info"
	case KindSuccess:
		return "success"
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Notifier presents a notification. Implementations must not block.
type Notifier interface {
	Notify(title, description string, kind Kind)
}

// Func adapts a plain function to Notifier.
type Func func(title, description string, kind Kind)

// Notify calls f.
func (f Func) Notify(title, description string, kind Kind) {
	f(title, description, kind)
}

// Discard drops every notification.
var Discard Notifier = Func(func(string, string, Kind) {})

// =============================================================================
// SINKS
// =============================================================================

type logNotifier struct {
	log zerolog.Logger
}

// Log returns a Notifier that writes notifications to log, at warn level
// for warnings and error level for errors.
func Log(log zerolog.Logger) Notifier {
	return logNotifier{log: log}
}

func (n logNotifier) Notify(title, description string, kind Kind) {
	var ev *zerolog.Event
	switch kind {
	case KindError:
		ev = n.log.Error()
	case KindWarning:
		ev = n.log.Warn()
	default:
		ev = n.log.Info()
	}
	ev.Str("kind", kind.String()).Str("description", description).Msg(title)
}

type multi []Notifier

// Multi fans a notification out to every non-nil notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	out := make(multi, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (m multi) Notify(title, description string, kind Kind) {
	for _, n := range m {
		n.Notify(title, description, kind)
	}
}
