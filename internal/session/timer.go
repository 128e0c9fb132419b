// Package session schedules the redirect that ends a viewing session.
//
// A Timer starts in AwaitingStage. The first staged signal moves it to
// Viewing and schedules a one-shot redirect; when that fires the Timer
// becomes Redirected and never schedules again. A session whose asset never
// stages stays in AwaitingStage and never redirects.
package session

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Delay returns how long to stay in Viewing after a load that took
// elapsedLoad: whatever remains of viewDelay, but never less than
// minimumView.
func Delay(viewDelay, minimumView, elapsedLoad time.Duration) time.Duration {
	d := viewDelay - elapsedLoad
	if d < minimumView {
		return minimumView
	}
	return d
}

// Timer is the session state machine. It is safe for concurrent use; the
// redirect callback runs on the clock's goroutine without the lock held.
type Timer struct {
	clk         clock.Clock
	viewDelay   time.Duration
	minimumView time.Duration
	onRedirect  func()
	log         *zap.Logger

	mu           sync.Mutex
	state        State
	sessionStart time.Time
	startedAt    time.Time
	deadline     time.Time
	pending      *clock.Timer
	closed       bool
}

// Option configures a Timer.
type Option func(*Timer)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(t *Timer) {
		t.log = log
	}
}

// WithSessionStart backdates the session start, for hosts that construct
// the timer after the load began.
func WithSessionStart(start time.Time) Option {
	return func(t *Timer) {
		t.sessionStart = start
	}
}

// NewTimer creates a timer in AwaitingStage. The session starts now on clk.
// A nil clk uses the wall clock.
func NewTimer(clk clock.Clock, viewDelay, minimumView time.Duration, onRedirect func(), opts ...Option) *Timer {
	if clk == nil {
		clk = clock.New()
	}
	t := &Timer{
		clk:          clk,
		viewDelay:    viewDelay,
		minimumView:  minimumView,
		onRedirect:   onRedirect,
		log:          zap.NewNop(),
		state:        AwaitingStage,
		sessionStart: clk.Now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// transition must be called with mu held.
func (t *Timer) transition(to State) error {
	if !isAllowedTransition(t.state, to) {
		return &TransitionError{From: t.state, To: to}
	}
	t.log.Info("session state",
		zap.Stringer("from", t.state),
		zap.Stringer("to", to))
	t.state = to
	return nil
}

// Staged records the staged signal. Only the first call schedules the
// redirect; later calls return an error wrapping ErrInvalidTransition.
func (t *Timer) Staged() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if err := t.transition(Viewing); err != nil {
		t.log.Debug("staged signal ignored", zap.Error(err))
		return err
	}

	now := t.clk.Now()
	elapsed := now.Sub(t.sessionStart)
	delay := Delay(t.viewDelay, t.minimumView, elapsed)
	t.startedAt = now
	t.deadline = now.Add(delay)
	t.pending = t.clk.AfterFunc(delay, t.fire)

	t.log.Info("redirect scheduled",
		zap.Duration("elapsed_load", elapsed),
		zap.Duration("delay", delay))
	return nil
}

func (t *Timer) fire() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if err := t.transition(Redirected); err != nil {
		t.mu.Unlock()
		t.log.Debug("redirect ignored", zap.Error(err))
		return
	}
	t.pending = nil
	cb := t.onRedirect
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// State returns the current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Window returns when Viewing began and when the redirect is due. Both are
// zero before the staged signal.
func (t *Timer) Window() (startedAt, deadline time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt, t.deadline
}

// SessionStart returns when the session began.
func (t *Timer) SessionStart() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionStart
}

// Close cancels a pending redirect. The timer accepts no further signals.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}
