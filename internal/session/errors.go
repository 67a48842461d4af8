// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "errors"

var (
	// ErrRenewalInFlight is returned by ExtendSession while another renewal
	// is still outstanding.
	ErrRenewalInFlight = errors.New("session: renewal already in progress")

	// ErrRenewalRejected is returned when the refresher reports failure or
	// issues an expiry that is already in the past.
	ErrRenewalRejected = errors.New("session: renewal rejected")

	// ErrRenewalFailed wraps an error returned by the refresher.
	ErrRenewalFailed = errors.New("session: renewal failed")

	// ErrExpired is returned by operations that are not allowed once the
	// session has expired.
	ErrExpired = errors.New("session: expired")

	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("session: manager stopped")

	// ErrNoRefresher is returned by ExtendSession when no refresher is set.
	ErrNoRefresher = errors.New("session: no refresher configured")
)
