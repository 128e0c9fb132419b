// Package stage drives one viewing session's asset from load to screen.
//
// The Pipeline is polled from the render loop. Loading runs in the
// background; every Tick checks for a finished load, and on success
// normalizes the asset, binds its animations and fires the staged
// callbacks in the same step, so a partially prepared asset is never
// returned for drawing. Until then, and after any load error, Tick returns
// the fallback pose.
package stage

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Faultbox/arviewer/internal/animation"
	"github.com/Faultbox/arviewer/internal/asset"
	"github.com/Faultbox/arviewer/internal/boundary"
	"github.com/Faultbox/arviewer/internal/device"
	"github.com/Faultbox/arviewer/internal/fallback"
	"github.com/Faultbox/arviewer/internal/normalize"
)

const scopeName = "github.com/Faultbox/arviewer/internal/stage"

var tracer = otel.Tracer(scopeName)

// Frame is what the renderer should draw this tick. Exactly one of Asset,
// Fallback and Notice is set, except after Close when all are empty.
type Frame struct {
	Asset     *asset.Asset
	Transform normalize.Transform

	Fallback *fallback.Pose
	Err      error // last load error, shown alongside the fallback

	Notice string // the boundary tripped
}

// Pipeline is not safe for concurrent use; call it from the render loop.
type Pipeline struct {
	id       uuid.UUID
	loader   *asset.Loader
	profile  device.Profile
	clk      clock.Clock
	log      *zap.Logger
	guard    *boundary.Boundary
	anim     *animation.Controller
	onStaged []func()

	started time.Time

	generation int
	stagedGen  int
	pending    *asset.Pending
	span       trace.Span
	current    *asset.Asset
	transform  normalize.Transform
	lastErr    error
	closed     bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock driving the fallback motion.
func WithClock(clk clock.Clock) Option {
	return func(p *Pipeline) {
		p.clk = clk
	}
}

// WithLogger sets the logger. The session id is attached to every entry.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithBoundary sets the boundary guarding staging and animation.
func WithBoundary(b *boundary.Boundary) Option {
	return func(p *Pipeline) {
		p.guard = b
	}
}

// New creates an idle pipeline for one session.
func New(loader *asset.Loader, profile device.Profile, opts ...Option) *Pipeline {
	p := &Pipeline{
		id:      uuid.New(),
		loader:  loader,
		profile: profile,
		clk:     clock.New(),
		log:     zap.NewNop(),
		anim:    animation.NewController(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.guard == nil {
		p.guard = boundary.New(boundary.WithLogger(p.log))
	}
	p.log = p.log.With(zap.String("session", p.id.String()))
	p.started = p.clk.Now()
	return p
}

// ID returns the session id.
func (p *Pipeline) ID() string {
	return p.id.String()
}

// Profile returns the device profile the pipeline normalizes for.
func (p *Pipeline) Profile() device.Profile {
	return p.profile
}

// Boundary returns the pipeline's fault boundary.
func (p *Pipeline) Boundary() *boundary.Boundary {
	return p.guard
}

// OnStaged registers fn to run when a load is staged. Callbacks run at most
// once per Load, on the render loop.
func (p *Pipeline) OnStaged(fn func()) {
	p.onStaged = append(p.onStaged, fn)
}

// Load starts a new load generation. Any in-flight load is cancelled and
// the current asset is released; the fallback shows until the new load
// stages.
func (p *Pipeline) Load(ctx context.Context, path string) {
	if p.closed {
		return
	}
	p.supersede()
	p.generation++

	ctx, p.span = tracer.Start(ctx, "stage asset", trace.WithAttributes(
		attribute.String("session.id", p.id.String()),
		attribute.String("asset.path", path),
		attribute.Int("stage.generation", p.generation),
		attribute.String("device.class", p.profile.Class()),
	))
	p.pending = p.loader.Load(ctx, path)
	p.log.Info("loading asset",
		zap.String("path", path),
		zap.Int("generation", p.generation))
}

// supersede drops the pending load and the current asset.
func (p *Pipeline) supersede() {
	if p.pending != nil {
		p.pending.Cancel()
		p.pending = nil
	}
	p.endSpan(nil)
	p.anim.Dispose()
	if p.current != nil {
		p.current.Dispose()
		p.current = nil
	}
	p.transform = normalize.Transform{}
	p.lastErr = nil
}

func (p *Pipeline) endSpan(err error) {
	if p.span == nil {
		return
	}
	if err != nil {
		p.span.RecordError(err)
		p.span.SetStatus(codes.Error, err.Error())
	}
	p.span.End()
	p.span = nil
}

// Tick advances animation by dt seconds of frame time and reports what to
// draw.
func (p *Pipeline) Tick(dt float32) Frame {
	if p.closed {
		return Frame{}
	}

	p.guard.Guard("tick", func() error {
		p.poll()
		if p.current != nil {
			p.anim.Advance(dt)
			p.current.UpdateWorld()
		}
		return nil
	})

	if p.guard.Faulted() {
		return Frame{Notice: p.guard.Notice()}
	}
	if p.current != nil {
		return Frame{Asset: p.current, Transform: p.transform}
	}
	pose := fallback.PoseAt(p.clk.Since(p.started))
	return Frame{Fallback: &pose, Err: p.lastErr}
}

func (p *Pipeline) poll() {
	if p.pending == nil {
		return
	}
	r, ok := p.pending.Poll()
	if !ok {
		return
	}
	path := p.pending.Path
	p.pending = nil

	if r.Err != nil {
		if asset.IsCanceled(r.Err) {
			p.endSpan(nil)
			return
		}
		kind, _ := asset.KindOf(r.Err)
		p.log.Warn("asset load failed, showing fallback",
			zap.String("path", path),
			zap.Stringer("kind", kind),
			zap.Error(r.Err))
		p.lastErr = r.Err
		p.endSpan(r.Err)
		return
	}

	p.stage(r.Asset)
}

// stage normalizes, binds and publishes a as one step. If anything before
// publication panics, a is released and never becomes current.
func (p *Pipeline) stage(a *asset.Asset) {
	published := false
	defer func() {
		if !published {
			p.anim.Dispose()
			a.Dispose()
		}
	}()

	tr, err := normalize.Compute(a.Bounds(), p.profile)
	if err != nil {
		p.log.Warn("normalization skipped scaling", zap.String("path", a.Path), zap.Error(err))
	}
	tr.Apply(a.Root)
	p.anim.Bind(a)
	a.UpdateWorld()
	p.current = a
	p.transform = tr
	published = true

	p.log.Info("asset staged",
		zap.String("path", a.Path),
		zap.Float32("scale", tr.Scale),
		zap.Int("clips", len(a.Clips)))
	if p.span != nil {
		p.span.SetAttributes(attribute.Float64("normalize.scale", float64(tr.Scale)))
	}
	p.endSpan(nil)

	if p.stagedGen == p.generation {
		return
	}
	p.stagedGen = p.generation
	for _, fn := range p.onStaged {
		fn()
	}
}

// Render runs draw for f under the pipeline's boundary. If the draw
// faults, or the boundary has already tripped, draw is handed the notice
// frame instead and that frame is returned.
func (p *Pipeline) Render(f Frame, draw func(Frame)) Frame {
	if f.Notice == "" {
		err := p.guard.Guard("render", func() error {
			draw(f)
			return nil
		})
		if err == nil {
			return f
		}
	}
	notice := Frame{Notice: p.guard.Notice()}
	draw(notice)
	return notice
}

// Close cancels any pending load and releases the current asset.
func (p *Pipeline) Close() {
	if p.closed {
		return
	}
	p.supersede()
	p.closed = true
	p.log.Info("pipeline closed")
}
