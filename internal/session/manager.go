// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/jeranaias/sessionguard/internal/activity"
	"github.com/jeranaias/sessionguard/internal/countdown"
	"github.com/jeranaias/sessionguard/internal/notify"
	"github.com/jeranaias/sessionguard/internal/store"
)

// Default timings.
const (
	DefaultMaxLifetime       = 30 * time.Minute
	DefaultWarningBefore     = 2 * time.Minute
	DefaultInactivityTimeout = 15 * time.Minute
	DefaultInactivityGrace   = 60 * time.Second
	DefaultExpiredRedirect   = 10 * time.Second
	DefaultActivityThrottle  = time.Second
	DefaultTickInterval      = time.Second
)

// Config holds configuration for the session manager.
type Config struct {
	// MaxLifetime is the lifetime granted by a reset or renewal.
	MaxLifetime time.Duration

	// WarningBefore opens the session warning once remaining time drops
	// below it.
	WarningBefore time.Duration

	// InactivityTimeout is the idle time that opens the inactivity warning.
	// Zero disables inactivity detection.
	InactivityTimeout time.Duration

	// InactivityGrace is how long the inactivity warning stays open before
	// the session is expired. Zero keeps it open until the user answers.
	InactivityGrace time.Duration

	// ExpiredRedirect triggers HandleExpiredLogin automatically this long
	// after the expired dialog opens. Zero disables it.
	ExpiredRedirect time.Duration

	// ActivityThrottle is the minimum spacing between accepted activity
	// signals.
	ActivityThrottle time.Duration

	// TickInterval is the evaluation period (default: 1 second).
	TickInterval time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		MaxLifetime:       DefaultMaxLifetime,
		WarningBefore:     DefaultWarningBefore,
		InactivityTimeout: DefaultInactivityTimeout,
		InactivityGrace:   DefaultInactivityGrace,
		ExpiredRedirect:   DefaultExpiredRedirect,
		ActivityThrottle:  DefaultActivityThrottle,
		TickInterval:      DefaultTickInterval,
	}
}

// OnExpiredFunc is the owner's expiry hook. It is called at most once per
// expiry, typically to log out and send the user to sign in again.
type OnExpiredFunc func(ctx context.Context) (bool, error)

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock. Tests pass a clockwork fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithNotifier sets where renewal outcomes are reported.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithRefresher sets the renewal hook used by ExtendSession.
func WithRefresher(r Refresher) Option {
	return func(m *Manager) { m.refresher = r }
}

// WithOnExpired sets the owner's expiry hook.
func WithOnExpired(fn OnExpiredFunc) Option {
	return func(m *Manager) { m.onExpired = fn }
}

// WithChanges adds an external change source, such as a store watcher.
// Each receive triggers an extra evaluation.
func WithChanges(changes <-chan struct{}) Option {
	return func(m *Manager) { m.changes = changes }
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager owns the session state machine for one process.
//
// Lock order is Manager then Tracker. Callbacks (notifier, refresher, owner
// hook) are always invoked without the manager lock held.
type Manager struct {
	mu sync.Mutex

	id        string
	cfg       Config
	clock     clockwork.Clock
	engine    *countdown.Engine
	tracker   *activity.Tracker
	refresher Refresher
	notifier  notify.Notifier
	onExpired OnExpiredFunc
	changes   <-chan struct{}
	log       zerolog.Logger

	state        State
	lastActivity time.Time

	sessionWarningDismissed bool
	inactivityDismissed     bool
	inactivityOpenedAt      time.Time
	inactivityCountdown     time.Duration

	expiredReason      string
	expiredDialog      bool
	expiredOpenedAt    time.Time
	expiredCountdown   time.Duration
	expiredCallbackRun bool

	renewing bool

	// redirects tracks automatic HandleExpiredLogin calls so Stop can wait
	// for the owner hook to return.
	redirects sync.WaitGroup

	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
	updates chan Status
}

// NewManager creates a session manager over s. The manager does nothing
// until Start is called.
func NewManager(s store.Store, cfg Config, opts ...Option) *Manager {
	defaults := DefaultConfig()
	if cfg.MaxLifetime <= 0 {
		cfg.MaxLifetime = defaults.MaxLifetime
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaults.TickInterval
	}

	m := &Manager{
		id:       uuid.NewString(),
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		notifier: notify.Discard,
		log:      zerolog.Nop(),
		state:    StateActive,
		updates:  make(chan Status, 1),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.log = m.log.With().Str("component", "session").Str("instance", m.id).Logger()
	m.engine = countdown.New(s, m.clock, cfg.MaxLifetime, m.log)
	m.tracker = activity.NewTracker(m.recordActivity, m.clock, cfg.ActivityThrottle)
	m.lastActivity = m.clock.Now()

	return m
}

// InstanceID returns the random id identifying this manager in logs.
func (m *Manager) InstanceID() string {
	return m.id
}

// Config returns the manager configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Tracker returns the activity tracker feeding the inactivity clock.
func (m *Manager) Tracker() *activity.Tracker {
	return m.tracker
}

// Observe forwards one interaction signal to the activity tracker.
func (m *Manager) Observe(sig activity.Signal) bool {
	return m.tracker.Observe(sig)
}

// Updates delivers a Status after every change. Only the latest snapshot is
// buffered, so a slow reader skips intermediate ones. The channel is closed
// by Stop.
func (m *Manager) Updates() <-chan Status {
	return m.updates
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start evaluates the session immediately and then once per tick until ctx
// is done or Stop is called. Calling Start twice is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true

	now := m.clock.Now()
	m.lastActivity = now
	remaining, fx := m.evaluateLocked(now)
	m.event(zerolog.InfoLevel, "SESSION_STARTED").
		Dur("remaining", remaining).
		Str("state", m.state.String()).
		Msg("session monitoring started")
	m.publishLocked(m.statusLocked(remaining))

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	ticker := m.clock.NewTicker(m.cfg.TickInterval)
	m.mu.Unlock()

	go m.run(loopCtx, ticker)
	m.apply(fx)
	return nil
}

func (m *Manager) run(ctx context.Context, ticker clockwork.Ticker) {
	defer close(m.done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.Tick()
		case _, ok := <-m.changes:
			if !ok {
				m.changes = nil
				continue
			}
			m.Tick()
		}
	}
}

// Stop cancels the tick loop, waits for an automatic login redirect that is
// already running, detaches the activity tracker and closes the Updates
// channel. Results of renewals still in flight are discarded. Stop is safe
// to call more than once, but not from inside the owner hook.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	m.redirects.Wait()
	m.tracker.Close()

	m.mu.Lock()
	close(m.updates)
	m.mu.Unlock()

	m.event(zerolog.InfoLevel, "SESSION_STOPPED").Msg("session monitoring stopped")
}

// =============================================================================
// EVALUATION
// =============================================================================

// effects are actions decided under the lock and run after it is released.
type effects struct {
	autoLogin bool
}

// apply runs fx. The redirect counter was taken under the lock by
// evaluateLocked, so Stop cannot miss a redirect started here.
func (m *Manager) apply(fx effects) {
	if fx.autoLogin {
		go func() {
			defer m.redirects.Done()
			if err := m.HandleExpiredLogin(context.Background()); err != nil && err != ErrStopped {
				m.log.Warn().Err(err).Msg("automatic login redirect failed")
			}
		}()
	}
}

// Tick evaluates the session once. The tick loop calls it every
// TickInterval; it is exported so callers can force a re-evaluation.
func (m *Manager) Tick() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	remaining, fx := m.evaluateLocked(m.clock.Now())
	m.publishLocked(m.statusLocked(remaining))
	m.mu.Unlock()

	m.apply(fx)
}

// evaluateLocked advances the state machine and returns the remaining time
// it based its decision on.
func (m *Manager) evaluateLocked(now time.Time) (time.Duration, effects) {
	var fx effects

	if m.state == StateExpired {
		if m.expiredDialog && m.cfg.ExpiredRedirect > 0 {
			left := m.cfg.ExpiredRedirect - now.Sub(m.expiredOpenedAt)
			if left <= 0 {
				m.expiredDialog = false
				m.expiredCountdown = 0
				fx.autoLogin = true
				m.redirects.Add(1)
			} else {
				m.expiredCountdown = ceilSecond(left)
			}
		}
		return 0, fx
	}

	remaining := m.engine.Remaining()
	if remaining <= 0 {
		m.expireLocked(now, ReasonCountdown)
		return 0, fx
	}

	if m.state == StateInactivityWarning && m.cfg.InactivityGrace > 0 {
		left := m.cfg.InactivityGrace - now.Sub(m.inactivityOpenedAt)
		if left <= 0 {
			m.expireLocked(now, ReasonInactivity)
			return 0, fx
		}
		m.inactivityCountdown = ceilSecond(left)
	}

	if m.state == StateSessionWarning && remaining >= m.cfg.WarningBefore {
		// Renewed by another process sharing the store.
		m.setStateLocked(StateActive)
		m.event(zerolog.InfoLevel, "SESSION_RENEWED_ELSEWHERE").
			Dur("remaining", remaining).
			Msg("session expiry moved by another instance")
	}

	// The session warning opens only while no dialog is showing. An open
	// inactivity warning keeps its grace countdown; the session warning
	// follows on the first tick after the user resumes.
	if remaining >= m.cfg.WarningBefore {
		m.sessionWarningDismissed = false
	} else if m.state == StateActive && !m.sessionWarningDismissed && m.escalateLocked(StateSessionWarning) {
		m.event(zerolog.InfoLevel, "SESSION_WARNING").
			Dur("remaining", remaining).
			Msg("session expiring soon")
		return remaining, fx
	}

	if m.state != StateActive {
		return remaining, fx
	}

	if m.cfg.InactivityTimeout > 0 && !m.inactivityDismissed {
		idle := now.Sub(m.lastActivity)
		if idle >= m.cfg.InactivityTimeout {
			m.inactivityOpenedAt = now
			m.inactivityCountdown = m.cfg.InactivityGrace
			m.escalateLocked(StateInactivityWarning)
			m.event(zerolog.InfoLevel, "INACTIVITY_WARNING").
				Dur("idle", idle).
				Dur("remaining", remaining).
				Msg("user inactive")
		}
	}

	return remaining, fx
}

// escalateLocked moves to next only if it is more severe than the current
// state.
func (m *Manager) escalateLocked(next State) bool {
	if next.severity() <= m.state.severity() {
		return false
	}
	m.setStateLocked(next)
	return true
}

func (m *Manager) setStateLocked(next State) {
	m.state = next
	if next != StateInactivityWarning {
		m.inactivityCountdown = 0
	}
	// Activity only counts while no dialog is visible.
	m.tracker.SetEnabled(next == StateActive)
}

func (m *Manager) expireLocked(now time.Time, reason string) {
	if m.state == StateExpired {
		return
	}
	m.setStateLocked(StateExpired)
	m.expiredReason = reason
	m.expiredDialog = true
	m.expiredOpenedAt = now
	m.expiredCountdown = m.cfg.ExpiredRedirect

	m.event(zerolog.WarnLevel, "SESSION_EXPIRED").
		Str("reason", reason).
		Msg("session expired")
}

// =============================================================================
// ACTIVITY
// =============================================================================

// recordActivity is the tracker sink. Activity is ignored unless the
// session is ACTIVE, even if a signal slipped past the tracker gate.
func (m *Manager) recordActivity(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped || m.state != StateActive {
		return
	}
	m.lastActivity = at
	m.inactivityDismissed = false
}

// =============================================================================
// USER ACTIONS
// =============================================================================

// ResetTimer starts a fresh session: it persists now + MaxLifetime, clears
// every warning and expiry flag and returns to ACTIVE from any state.
func (m *Manager) ResetTimer() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrStopped
	}

	expiry, err := m.engine.Reset()
	if err != nil {
		m.log.Error().Err(err).Msg("failed to reset session expiry")
		return err
	}

	m.refreshLocked(m.clock.Now())
	m.event(zerolog.InfoLevel, "SESSION_RESET").
		Time("expiry", expiry).
		Msg("session timer reset")
	m.publishLocked(m.statusLocked(m.engine.Remaining()))
	return nil
}

// refreshLocked returns to a clean ACTIVE state after a reset or renewal.
func (m *Manager) refreshLocked(now time.Time) {
	m.sessionWarningDismissed = false
	m.inactivityDismissed = false
	m.inactivityCountdown = 0
	m.expiredReason = ""
	m.expiredDialog = false
	m.expiredCountdown = 0
	m.expiredCallbackRun = false
	m.lastActivity = now
	m.setStateLocked(StateActive)
}

// ResumeSession answers the inactivity warning: it counts as activity and
// returns to ACTIVE. The absolute countdown is not touched. It has no effect
// once the session has expired.
func (m *Manager) ResumeSession() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped || m.state == StateExpired {
		return
	}

	now := m.clock.Now()
	m.lastActivity = now
	m.inactivityDismissed = false
	if m.state == StateInactivityWarning {
		m.setStateLocked(StateActive)
		m.event(zerolog.InfoLevel, "SESSION_RESUMED").Msg("user resumed session")
	}
	m.publishLocked(m.statusLocked(m.engine.Remaining()))
}

// DismissWarning closes whichever warning is showing without counting as
// activity. The dismissed warning does not reopen on the next tick; the
// session warning comes back only after the expiry moves out of the warning
// window, and the inactivity warning only after new activity.
func (m *Manager) DismissWarning() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}

	dismissed := m.state
	switch dismissed {
	case StateSessionWarning:
		m.sessionWarningDismissed = true
	case StateInactivityWarning:
		m.inactivityDismissed = true
	default:
		return
	}
	m.setStateLocked(StateActive)

	m.event(zerolog.InfoLevel, "WARNING_DISMISSED").
		Str("warning", dismissed.String()).
		Msg("warning dismissed")
	m.publishLocked(m.statusLocked(m.engine.Remaining()))
}

// HandleExpiredLogin closes the expired dialog and hands control to the
// owner's expiry hook. If the session has not expired yet it is expired
// first. The hook runs at most once per expiry.
func (m *Manager) HandleExpiredLogin(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}

	if m.state != StateExpired {
		m.expireLocked(m.clock.Now(), ReasonLogin)
	}
	m.expiredDialog = false
	m.expiredCountdown = 0

	alreadyRun := m.expiredCallbackRun
	m.expiredCallbackRun = true
	hook := m.onExpired
	m.event(zerolog.InfoLevel, "EXPIRED_LOGIN").
		Bool("duplicate", alreadyRun).
		Msg("login requested after expiry")
	m.publishLocked(m.statusLocked(0))
	m.mu.Unlock()

	if alreadyRun {
		return nil
	}
	return m.runOnExpired(ctx, hook)
}

func (m *Manager) runOnExpired(ctx context.Context, hook OnExpiredFunc) error {
	if hook == nil {
		return nil
	}
	ok, err := hook(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("expiry hook failed")
		return fmt.Errorf("expiry hook: %w", err)
	}
	m.log.Debug().Bool("ok", ok).Msg("expiry hook completed")
	return nil
}

// =============================================================================
// STATUS
// =============================================================================

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Remaining returns the absolute session time left, read from the store.
func (m *Manager) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateExpired {
		return 0
	}
	return m.engine.Remaining()
}

// FormattedRemaining returns Remaining as m:ss.
func (m *Manager) FormattedRemaining() string {
	return countdown.Format(m.Remaining())
}

// Status returns a snapshot of the manager.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	remaining := time.Duration(0)
	if m.state != StateExpired {
		remaining = m.engine.Remaining()
	}
	return m.statusLocked(remaining)
}

func (m *Manager) statusLocked(remaining time.Duration) Status {
	if m.state == StateExpired {
		remaining = 0
	}
	expiry, _ := m.engine.Expiry()
	return Status{
		InstanceID:          m.id,
		State:               m.state,
		Remaining:           remaining,
		Expiry:              expiry,
		Idle:                m.clock.Since(m.lastActivity),
		InactivityCountdown: m.inactivityCountdown,
		ExpiredCountdown:    m.expiredCountdown,
		ExpiredDialog:       m.state == StateExpired && m.expiredDialog,
		ExpiredReason:       m.expiredReason,
		Renewing:            m.renewing,
	}
}

// publishLocked replaces any unread snapshot with st.
func (m *Manager) publishLocked(st Status) {
	if m.stopped {
		return
	}
	select {
	case m.updates <- st:
		return
	default:
	}
	select {
	case <-m.updates:
	default:
	}
	select {
	case m.updates <- st:
	default:
	}
}

func (m *Manager) event(level zerolog.Level, name string) *zerolog.Event {
	return m.log.WithLevel(level).Str("event", name)
}

// ceilSecond rounds d up to a whole second so a countdown never shows 0
// while time is still left.
func ceilSecond(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return (d + time.Second - 1).Truncate(time.Second)
}
