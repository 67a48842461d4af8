// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"strconv"
	"strings"
)

// Retries keeps the retry-attempt counter and the failed-operation marker.
// It is owned by the feature that retries (for example a CLI renewal
// command), not by the session timer, but shares the same Store.
type Retries struct {
	store Store
}

// NewRetries returns retry bookkeeping over s.
func NewRetries(s Store) *Retries {
	return &Retries{store: s}
}

// Attempts returns the number of consecutive attempts recorded.
// Missing or corrupt counters read as zero.
func (r *Retries) Attempts() (int, error) {
	raw, ok, err := r.store.Get(KeyRetryAttempts)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

// Increment records one more attempt and returns the new count.
func (r *Retries) Increment() (int, error) {
	n, err := r.Attempts()
	if err != nil {
		return 0, err
	}
	n++
	if err := r.store.Set(KeyRetryAttempts, strconv.Itoa(n)); err != nil {
		return 0, err
	}
	return n, nil
}

// MarkFailed records op as the operation whose last attempt failed.
func (r *Retries) MarkFailed(op string) error {
	return r.store.Set(KeyFailedOperation, op)
}

// FailedOperation returns the operation recorded by MarkFailed, if any.
func (r *Retries) FailedOperation() (string, bool, error) {
	op, ok, err := r.store.Get(KeyFailedOperation)
	if err != nil || !ok || op == "" {
		return "", false, err
	}
	return op, true, nil
}

// Clear forgets both the attempt counter and the failed-operation marker.
// Used on success or when the user abandons retrying.
func (r *Retries) Clear() error {
	return errors.Join(
		r.store.Remove(KeyRetryAttempts),
		r.store.Remove(KeyFailedOperation),
	)
}
