// Package viewer runs one viewing session in an SDL window: it stages the
// configured asset, lets the user orbit it and hands off to the thank-you
// screen when the session timer fires.
package viewer

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/arviewer/internal/asset"
	"github.com/Faultbox/arviewer/internal/boundary"
	"github.com/Faultbox/arviewer/internal/config"
	"github.com/Faultbox/arviewer/internal/device"
	"github.com/Faultbox/arviewer/internal/engine/camera"
	"github.com/Faultbox/arviewer/internal/engine/debug"
	"github.com/Faultbox/arviewer/internal/engine/input"
	"github.com/Faultbox/arviewer/internal/engine/renderer"
	"github.com/Faultbox/arviewer/internal/engine/window"
	"github.com/Faultbox/arviewer/internal/logger"
	"github.com/Faultbox/arviewer/internal/session"
	"github.com/Faultbox/arviewer/internal/stage"
)

const title = "AR Viewer"

// Viewer is the viewing session host.
type Viewer struct {
	cfg      *config.Config
	log      *zap.Logger
	running  bool
	profile  device.Profile
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.Orbit
	pipeline *stage.Pipeline
	timer    *session.Timer

	redirect    chan struct{}
	redirected  bool
	lastNotice  string
	captureNext bool
}

// screenshotDir receives F12 captures.
const screenshotDir = "screenshots"

// New opens the window and prepares the session. Loading starts in Run.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		cfg:      cfg,
		log:      logger.Named("viewer"),
		redirect: make(chan struct{}, 1),
	}

	var err error
	v.window, err = window.New(window.Config{
		Title:      title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The profile is chosen once; resizing later does not switch it.
	v.profile = cfg.SelectProfile(v.window.Characteristics())
	v.log.Info("device profile selected",
		zap.String("class", v.profile.Class()),
		zap.Float32("target_size", v.profile.TargetSize),
		zap.Duration("view_delay", v.profile.ViewDelay))

	dw, dh := v.window.DrawableSize()
	v.renderer, err = renderer.New(renderer.Config{
		Width:      dw,
		Height:     dh,
		ClearColor: cfg.Scene.ClearColor,
	}, cfg.Scene.Rig())
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	w, h := v.window.GetSize()
	v.input = input.New(w, h)
	v.camera = camera.NewOrbit(v.profile, cfg.Scene.Near, cfg.Scene.Far, cfg.Scene.DampingFactor)

	loader := asset.NewLoader(
		asset.WithTimeout(cfg.Viewer.LoadTimeout),
		asset.WithDecoderLocation(cfg.Viewer.DecoderLocation),
		asset.WithLogger(logger.Named("asset")),
	)
	guard := boundary.New(boundary.WithLogger(logger.Named("boundary")))
	v.pipeline = stage.New(loader, v.profile,
		stage.WithLogger(logger.Named("stage")),
		stage.WithBoundary(guard))

	clk := clock.New()
	v.timer = session.NewTimer(clk, v.profile.ViewDelay, cfg.Session.MinimumViewTime, v.onRedirect,
		session.WithLogger(logger.Named("session")))
	v.pipeline.OnStaged(func() {
		if err := v.timer.Staged(); err != nil {
			v.log.Debug("staged signal ignored", zap.Error(err))
		}
	})

	return v, nil
}

// onRedirect runs on the timer's goroutine.
func (v *Viewer) onRedirect() {
	select {
	case v.redirect <- struct{}{}:
	default:
	}
}

// Run loads the configured asset and runs the render loop until the window
// closes.
func (v *Viewer) Run(ctx context.Context) error {
	v.running = true
	v.pipeline.Load(ctx, v.cfg.Viewer.AssetPath)

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting render loop", zap.String("session", v.pipeline.ID()))

	for v.running {
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if ctx.Err() != nil || v.input.Update() {
			break
		}
		v.handleEvents(ctx)

		select {
		case <-v.redirect:
			v.handOff()
		default:
		}

		var frame stage.Frame
		if !v.redirected {
			frame = v.pipeline.Tick(dt)
		}
		v.camera.Update()
		frame = v.pipeline.Render(frame, func(f stage.Frame) {
			v.renderer.Draw(f, v.camera)
		})
		v.showNotice(frame.Notice)
		if v.captureNext {
			v.captureNext = false
			v.capture()
		}
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps", zap.Int("count", frameCount), zap.Float32("dt_ms", dt*1000))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handleEvents(ctx context.Context) {
	_, h := v.window.GetSize()
	for _, e := range v.input.Events() {
		switch e.Type {
		case input.EventWindowResize:
			dw, dh := v.window.DrawableSize()
			v.renderer.Resize(dw, dh)
		case input.EventDrag:
			v.camera.Rotate(e.DX, e.DY, float32(h))
		case input.EventZoom:
			v.camera.Zoom(e.Zoom)
		case input.EventKeyDown:
			switch e.Key {
			case sdl.SCANCODE_ESCAPE:
				v.running = false
			case sdl.SCANCODE_R:
				v.reload(ctx)
			case sdl.SCANCODE_B:
				v.log.Debug("bounds overlay", zap.Bool("enabled", v.renderer.ToggleBounds()))
			case sdl.SCANCODE_F12:
				v.captureNext = true
			}
		}
	}
}

func (v *Viewer) capture() {
	pixels, w, h := v.renderer.ReadPixels()
	path, err := debug.Capture(screenshotDir, "arviewer", pixels, w, h, time.Now())
	if err != nil {
		v.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("path", path))
}

// reload clears a tripped boundary and loads the asset again. The session
// timer keeps its first staging.
func (v *Viewer) reload(ctx context.Context) {
	if v.redirected {
		return
	}
	v.log.Info("reloading asset")
	v.pipeline.Boundary().Reset()
	v.pipeline.Load(ctx, v.cfg.Viewer.AssetPath)
}

func (v *Viewer) showNotice(notice string) {
	if notice == v.lastNotice || v.redirected {
		return
	}
	v.lastNotice = notice
	if notice == "" {
		v.window.SetTitle(title)
		return
	}
	v.window.SetTitle(title + ": " + notice)
}

// handOff tears down the session and shows the thank-you screen.
func (v *Viewer) handOff() {
	if v.redirected {
		return
	}
	v.redirected = true
	v.pipeline.Close()
	v.log.Info("session complete, redirecting",
		zap.String("target", v.cfg.Viewer.RedirectTarget),
		zap.Duration("elapsed", time.Since(v.timer.SessionStart())))
	v.window.SetTitle(title + ": Thank you (" + v.cfg.Viewer.RedirectTarget + ")")
}

// Close releases the session and the window.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.timer != nil {
		v.timer.Close()
	}
	if v.pipeline != nil {
		v.pipeline.Close()
	}
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}
