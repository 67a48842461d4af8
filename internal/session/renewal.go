// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/sessionguard/internal/notify"
)

// Refresher renews the session with the authority. ok is false when the
// authority declined; a non-nil error means the attempt itself failed.
type Refresher interface {
	Refresh(ctx context.Context) (ok bool, err error)
}

// RefreshFunc adapts a plain function to Refresher.
type RefreshFunc func(ctx context.Context) (bool, error)

// Refresh calls f.
func (f RefreshFunc) Refresh(ctx context.Context) (bool, error) {
	return f(ctx)
}

// ExpiryIssuer is implemented by refreshers that learn the expiry of the
// credential they obtained. The session expiry granted by a renewal never
// outlives it.
type ExpiryIssuer interface {
	IssuedExpiry() (time.Time, bool)
}

// Notification text shown for renewal outcomes.
const (
	titleExtended       = "Session extended"
	descExtended        = "Your session has been extended."
	titleExtendFailed   = "Session extension failed"
	descExtendRejected  = "Unable to extend your session. You will be logged out."
	descExtendErrored   = "An unexpected error occurred while extending your session. You will be logged out."
	descExtendNotSaved  = "Your session was renewed but the new expiry could not be saved."
	titleExtendNotSaved = "Session expiry not saved"
)

// errExpiryNotExtended marks a renewal whose issued credential expires
// before the time it was granted.
var errExpiryNotExtended = errors.New("issued credential already expired")

// =============================================================================
// RENEWAL COORDINATOR
// =============================================================================

// ExtendSession renews the session through the configured Refresher.
//
// Only one renewal runs at a time; a second call while one is outstanding
// returns ErrRenewalInFlight without contacting the refresher. On success
// the expiry becomes now + MaxLifetime, capped by the credential's own
// expiry when the refresher reports one, and the session returns to ACTIVE.
// On rejection or error the user is notified, the session is expired and
// the owner's expiry hook runs. Results arriving after Stop are discarded.
func (m *Manager) ExtendSession(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.stopped:
		m.mu.Unlock()
		return ErrStopped
	case m.state == StateExpired:
		m.mu.Unlock()
		return ErrExpired
	case m.renewing:
		m.mu.Unlock()
		return ErrRenewalInFlight
	case m.refresher == nil:
		m.mu.Unlock()
		return ErrNoRefresher
	}

	m.renewing = true
	refresher := m.refresher
	previous, hadPrevious := m.engine.Expiry()
	m.event(zerolog.InfoLevel, "RENEWAL_STARTED").
		Str("state", m.state.String()).
		Msg("extending session")
	m.publishLocked(m.statusLocked(m.engine.Remaining()))
	m.mu.Unlock()

	ok, refreshErr := refresher.Refresh(ctx)

	m.mu.Lock()
	m.renewing = false
	if m.stopped {
		m.mu.Unlock()
		m.log.Debug().Bool("ok", ok).Err(refreshErr).Msg("renewal resolved after stop, ignoring")
		return ErrStopped
	}

	if refreshErr != nil {
		m.event(zerolog.ErrorLevel, "RENEWAL_ERROR").Err(refreshErr).Msg("session renewal failed")
		return m.failRenewal(ctx, ReasonRenewalError, descExtendErrored,
			fmt.Errorf("%w: %w", ErrRenewalFailed, refreshErr))
	}
	if !ok {
		m.event(zerolog.WarnLevel, "RENEWAL_REJECTED").Msg("session renewal rejected")
		return m.failRenewal(ctx, ReasonRenewal, descExtendRejected, ErrRenewalRejected)
	}

	if m.state == StateExpired {
		// Expired while the renewal was outstanding. Only ResetTimer
		// leaves EXPIRED.
		m.mu.Unlock()
		m.log.Warn().Msg("renewal succeeded after session expired, ignoring")
		return ErrExpired
	}

	now := m.clock.Now()
	expiry := now.Add(m.cfg.MaxLifetime)
	if issuer, isIssuer := refresher.(ExpiryIssuer); isIssuer {
		if issued, known := issuer.IssuedExpiry(); known && issued.Before(expiry) {
			expiry = issued
		}
	}
	if expiry.Unix() <= now.Unix() {
		m.event(zerolog.WarnLevel, "RENEWAL_REJECTED").
			Time("issued_expiry", expiry).
			Msg("renewed credential is already expired")
		return m.failRenewal(ctx, ReasonRenewal, descExtendRejected,
			fmt.Errorf("%w: %w", ErrRenewalRejected, errExpiryNotExtended))
	}
	if hadPrevious && !expiry.After(previous) {
		m.log.Warn().
			Time("previous", previous).
			Time("expiry", expiry).
			Msg("renewal did not move session expiry forward")
	}

	if err := m.engine.Persist(expiry); err != nil {
		m.publishLocked(m.statusLocked(m.engine.Remaining()))
		m.mu.Unlock()
		m.log.Error().Err(err).Msg("failed to persist renewed expiry")
		m.notifier.Notify(titleExtendNotSaved, descExtendNotSaved, notify.KindWarning)
		return err
	}

	m.refreshLocked(now)
	remaining := m.engine.Remaining()
	m.event(zerolog.InfoLevel, "RENEWAL_SUCCEEDED").
		Time("expiry", expiry).
		Dur("remaining", remaining).
		Msg("session extended")
	m.publishLocked(m.statusLocked(remaining))
	m.mu.Unlock()

	m.notifier.Notify(titleExtended, descExtended, notify.KindSuccess)
	return nil
}

// failRenewal expires the session after a failed renewal and runs the
// owner's expiry hook. It must be called with m.mu held and releases it.
func (m *Manager) failRenewal(ctx context.Context, reason, description string, cause error) error {
	m.expireLocked(m.clock.Now(), reason)
	alreadyRun := m.expiredCallbackRun
	m.expiredCallbackRun = true
	hook := m.onExpired
	m.publishLocked(m.statusLocked(0))
	m.mu.Unlock()

	m.notifier.Notify(titleExtendFailed, description, notify.KindError)

	if alreadyRun {
		return cause
	}
	if err := m.runOnExpired(ctx, hook); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
