// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package activity observes user interaction signals and reports them as
// activity to a sink, typically the session manager's inactivity clock.
package activity

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Signal identifies the kind of interaction observed.
type Signal int

const (
	// SignalKey is a key press.
	SignalKey Signal = iota
	// SignalPointer is pointer movement.
	SignalPointer
	// SignalClick is a pointer button press.
	SignalClick
	// SignalScroll is a scroll wheel or scroll gesture.
	SignalScroll
)

// String returns a string representation of the Signal.
func (s Signal) String() string {
	switch s {
	case SignalKey:
		return "key"
	case SignalPointer:
		return "pointer"
	case SignalClick:
		return "click"
	case SignalScroll:
		return "scroll"
	default:
		return "unknown"
	}
}

// Sink receives accepted activity with the time it was observed.
type Sink func(at time.Time)

// Tracker gates and throttles interaction signals before they reach a Sink.
//
// While disabled (a warning dialog is visible) every signal is dropped, so
// incidental input cannot silently close a warning. After Close the sink is
// detached and Observe is a no-op.
type Tracker struct {
	mu      sync.Mutex
	sink    Sink
	clock   clockwork.Clock
	limiter *rate.Limiter
	enabled bool
	closed  bool
}

// NewTracker creates an enabled tracker. A throttle of zero forwards every
// signal; otherwise at most one signal per throttle window reaches sink.
func NewTracker(sink Sink, clock clockwork.Clock, throttle time.Duration) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	limit := rate.Inf
	if throttle > 0 {
		limit = rate.Every(throttle)
	}

	return &Tracker{
		sink:    sink,
		clock:   clock,
		limiter: rate.NewLimiter(limit, 1),
		enabled: true,
	}
}

// SetEnabled opens or closes the gate.
func (t *Tracker) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// Enabled reports whether signals are currently forwarded.
func (t *Tracker) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && !t.closed
}

// Observe handles one signal. It returns true when the signal was forwarded.
func (t *Tracker) Observe(sig Signal) bool {
	t.mu.Lock()
	if t.closed || !t.enabled || t.sink == nil {
		t.mu.Unlock()
		return false
	}
	now := t.clock.Now()
	if !t.limiter.AllowN(now, 1) {
		t.mu.Unlock()
		return false
	}
	sink := t.sink
	t.mu.Unlock()

	sink(now)
	return true
}

// Close detaches the sink. A signal already being delivered may still
// reach it; none start after Close returns. Safe to call more than once.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.sink = nil
}
