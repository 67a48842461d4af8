// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives the client-side lifecycle of an authenticated
// session: absolute expiry, inactivity detection, warnings, renewal and
// expiry handling.
//
// # Key Types
//
//   - Manager: the state machine plus its tick loop
//   - State: ACTIVE, INACTIVITY_WARNING, SESSION_WARNING or EXPIRED
//   - Status: immutable snapshot published on every change
//   - Refresher: the renewal hook, usually an OAuth2 token refresh
//
// # Usage
//
//	mgr := session.NewManager(st, session.DefaultConfig(),
//	    session.WithRefresher(refresher),
//	    session.WithOnExpired(logout),
//	)
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
//
//	for status := range mgr.Updates() {
//	    render(status)
//	}
//
// The absolute expiry lives in the shared store as Unix seconds, so several
// processes using the same store converge on the same countdown. Remaining
// time is recomputed from that value on every tick.
package session
