// Package boundary contains unexpected faults in the staging and render
// path so they never reach the host loop.
//
// Expected failures (load errors) are handled by the fallback placeholder;
// the boundary only sees panics and errors nothing else handled. Once
// tripped it stays tripped and the host shows Notice instead of the scene.
package boundary

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// DefaultNotice is the user-visible message shown after a fault.
const DefaultNotice = "Failed to load 3D model"

// ErrTripped is returned by Guard once a fault has been captured.
var ErrTripped = errors.New("error boundary tripped")

// Fault is a captured failure.
type Fault struct {
	Op    string
	Err   error
	Stack []byte // set for panics
}

func (f *Fault) Error() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Boundary captures the first fault raised through Guard.
type Boundary struct {
	notice  string
	log     *zap.Logger
	onFault func(*Fault)

	mu    sync.Mutex
	fault *Fault
}

// Option configures a Boundary.
type Option func(*Boundary)

// WithNotice replaces the user-visible notice.
func WithNotice(notice string) Option {
	return func(b *Boundary) {
		b.notice = notice
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(b *Boundary) {
		b.log = log
	}
}

// WithOnFault registers a callback run once when the boundary trips.
func WithOnFault(fn func(*Fault)) Option {
	return func(b *Boundary) {
		b.onFault = fn
	}
}

// New creates an untripped boundary.
func New(opts ...Option) *Boundary {
	b := &Boundary{
		notice: DefaultNotice,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Guard runs fn unless the boundary has tripped. A panic or returned error
// trips the boundary and comes back as a *Fault; neither propagates further.
func (b *Boundary) Guard(op string, fn func() error) (err error) {
	if b.Faulted() {
		return ErrTripped
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = b.trip(&Fault{
				Op:    op,
				Err:   fmt.Errorf("panic: %v", recovered),
				Stack: debug.Stack(),
			})
		}
	}()

	if ferr := fn(); ferr != nil {
		return b.trip(&Fault{Op: op, Err: ferr})
	}
	return nil
}

func (b *Boundary) trip(f *Fault) error {
	b.mu.Lock()
	first := b.fault == nil
	if first {
		b.fault = f
	}
	b.mu.Unlock()

	if first {
		b.log.Error("fault captured",
			zap.String("op", f.Op),
			zap.Error(f.Err),
			zap.ByteString("stack", f.Stack))
		if b.onFault != nil {
			b.onFault(f)
		}
	}
	return f
}

// Faulted reports whether a fault has been captured.
func (b *Boundary) Faulted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fault != nil
}

// Fault returns the captured fault, or nil.
func (b *Boundary) Fault() *Fault {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fault
}

// Notice returns the message to show in place of the scene, or "" while
// untripped.
func (b *Boundary) Notice() string {
	if !b.Faulted() {
		return ""
	}
	return b.notice
}

// Reset clears the captured fault. Only the host should call it, when it
// rebuilds the guarded subtree.
func (b *Boundary) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fault = nil
}
