// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the durable key-value persistence used by the
// session manager to remember the absolute session expiry and the retry
// bookkeeping shared with features that retry renewals.
//
// Every backend implements the same small synchronous contract: Get, Set
// and Remove over string keys and string values. Absent keys are reported
// through the boolean result of Get, never through an error.
package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// KEYS
// =============================================================================

// Keys shared by every process of the same user. The session manager and
// the retry bookkeeping must never spell these inline.
const (
	// KeySessionExpiry holds the absolute session expiry as Unix seconds.
	KeySessionExpiry = "sessionExpiry"

	// KeyRetryAttempts holds the count of consecutive retry attempts.
	KeyRetryAttempts = "retryAttempts"

	// KeyFailedOperation names the operation whose last attempt failed.
	KeyFailedOperation = "failedOperation"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned by typed readers when a key is absent.
	ErrNotFound = errors.New("store: key not found")

	// ErrCorrupt is returned by typed readers when a value cannot be parsed.
	ErrCorrupt = errors.New("store: corrupt value")

	// ErrClosed is returned when a backend is used after Close.
	ErrClosed = errors.New("store: closed")

	// ErrEmptyKey is returned when a caller passes an empty key.
	ErrEmptyKey = errors.New("store: empty key")
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is a durable, synchronous, string-keyed store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}

// Closer is implemented by backends holding files, connections or handles.
type Closer interface {
	Close() error
}

// Close releases s if it holds resources.
func Close(s Store) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}

// =============================================================================
// EXPIRY CODEC
// =============================================================================

// ReadExpiry returns the persisted absolute session expiry.
// It returns ErrNotFound when nothing is persisted and ErrCorrupt when the
// value is not a positive integer count of Unix seconds.
func ReadExpiry(s Store) (time.Time, error) {
	raw, ok, err := s.Get(KeySessionExpiry)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, ErrNotFound
	}

	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s=%q", ErrCorrupt, KeySessionExpiry, raw)
	}
	if secs <= 0 {
		return time.Time{}, fmt.Errorf("%w: %s=%d is not positive", ErrCorrupt, KeySessionExpiry, secs)
	}

	return time.Unix(secs, 0), nil
}

// WriteExpiry persists t as the absolute session expiry, truncated to seconds.
func WriteExpiry(s Store, t time.Time) error {
	secs := t.Unix()
	if secs <= 0 {
		return fmt.Errorf("%w: expiry %v is not after the epoch", ErrCorrupt, t)
	}
	return s.Set(KeySessionExpiry, strconv.FormatInt(secs, 10))
}

// ClearExpiry removes the persisted session expiry.
func ClearExpiry(s Store) error {
	return s.Remove(KeySessionExpiry)
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
