// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package countdown computes the time left in a session from the absolute
// expiry instant held in the shared store.
//
// Remaining time is never derived from counting ticks. Every read goes back
// to the store, so suspended processes, restarts and other processes that
// renew the session are all reflected on the next read.
package countdown

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/jeranaias/sessionguard/internal/store"
)

// Engine reads the persisted expiry and derives remaining time from it.
type Engine struct {
	store       store.Store
	clock       clockwork.Clock
	maxLifetime time.Duration
	log         zerolog.Logger
}

// New creates an engine over s. maxLifetime is both the lifetime granted by
// Reset and the value reported when no valid expiry is persisted.
func New(s store.Store, clock clockwork.Clock, maxLifetime time.Duration, log zerolog.Logger) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{
		store:       s,
		clock:       clock,
		maxLifetime: maxLifetime.Truncate(time.Second),
		log:         log,
	}
}

// MaxLifetime returns the configured session lifetime.
func (e *Engine) MaxLifetime() time.Duration {
	return e.maxLifetime
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Remaining returns max(0, expiry - now) in whole seconds.
//
// A missing or unreadable expiry reports the maximum lifetime instead of
// zero: an uninitialised store must not look like an expired session. The
// server stays the authority on whether the session is actually valid.
func (e *Engine) Remaining() time.Duration {
	expiry, err := store.ReadExpiry(e.store)
	if err != nil {
		e.log.Debug().Err(err).Msg("session expiry unavailable, assuming full lifetime")
		return e.maxLifetime
	}
	return e.remainingUntil(expiry)
}

// Expiry returns the persisted expiry. ok is false when none is readable.
func (e *Engine) Expiry() (expiry time.Time, ok bool) {
	expiry, err := store.ReadExpiry(e.store)
	if err != nil {
		return time.Time{}, false
	}
	return expiry, true
}

// Reset persists now + max lifetime and returns the new expiry.
func (e *Engine) Reset() (time.Time, error) {
	expiry := e.clock.Now().Add(e.maxLifetime)
	if err := e.Persist(expiry); err != nil {
		return time.Time{}, err
	}
	return expiry.Truncate(time.Second), nil
}

// Persist stores expiry as the absolute session expiry.
func (e *Engine) Persist(expiry time.Time) error {
	if err := store.WriteExpiry(e.store, expiry); err != nil {
		return fmt.Errorf("failed to persist session expiry: %w", err)
	}
	return nil
}

// Clear removes the persisted expiry.
func (e *Engine) Clear() error {
	return store.ClearExpiry(e.store)
}

func (e *Engine) remainingUntil(expiry time.Time) time.Duration {
	secs := expiry.Unix() - e.clock.Now().Unix()
	if secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// =============================================================================
// FORMATTING
// =============================================================================

// Format renders d as m:ss. Minutes are not bounded, so 90 minutes renders
// as "90:00". Negative durations render as "0:00".
func Format(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}

	totalSecs := int64(d / time.Second)
	mins := totalSecs / 60
	secs := totalSecs % 60

	return fmt.Sprintf("%d:%02d", mins, secs)
}
