// Package animation plays an asset's clips against its scene graph.
package animation

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/arviewer/internal/asset"
	"github.com/Faultbox/arviewer/pkg/math"
)

// Action is one clip bound to a controller. Clips loop.
type Action struct {
	Clip *asset.Clip
	Time float32 // seconds into the clip

	running bool
}

// Running reports whether the action still belongs to a controller.
func (a *Action) Running() bool {
	return a.running
}

// Controller owns the actions of at most one asset at a time.
type Controller struct {
	target  *asset.Asset
	actions []*Action
	clock   float32
}

// NewController creates an empty controller.
func NewController() *Controller {
	return &Controller{}
}

// Bind stops every action of the previous asset and starts each clip of a
// from time zero. An asset without clips leaves the controller idle.
func (c *Controller) Bind(a *asset.Asset) {
	c.Dispose()
	if a == nil || len(a.Clips) == 0 {
		return
	}

	c.target = a
	for i := range a.Clips {
		act := &Action{Clip: &a.Clips[i], running: true}
		c.actions = append(c.actions, act)
		apply(act)
	}
}

// Advance moves every bound action forward by dt seconds of frame time and
// writes the sampled values onto the target nodes.
func (c *Controller) Advance(dt float32) {
	if len(c.actions) == 0 || dt <= 0 || math32.IsNaN(dt) || math32.IsInf(dt, 0) {
		return
	}
	c.clock += dt
	for _, act := range c.actions {
		act.Time += dt
		if d := act.Clip.Duration; d > 0 {
			act.Time = math32.Mod(act.Time, d)
		} else {
			act.Time = 0
		}
		apply(act)
	}
}

// Actions returns the bound actions.
func (c *Controller) Actions() []*Action {
	out := make([]*Action, len(c.actions))
	copy(out, c.actions)
	return out
}

// Clock returns the total frame time advanced since the last Bind.
func (c *Controller) Clock() float32 {
	return c.clock
}

// Target returns the bound asset, or nil.
func (c *Controller) Target() *asset.Asset {
	return c.target
}

// Dispose stops every action and releases the bound asset.
func (c *Controller) Dispose() {
	for _, act := range c.actions {
		act.running = false
	}
	c.actions = nil
	c.target = nil
	c.clock = 0
}

func apply(act *Action) {
	for i := range act.Clip.Channels {
		ch := &act.Clip.Channels[i]
		v := Sample(ch, act.Time)
		switch ch.Path {
		case asset.PathTranslation:
			ch.Target.Translation = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
		case asset.PathScale:
			ch.Target.Scale = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
		case asset.PathRotation:
			ch.Target.Rotation = math.Q4(v)
		}
	}
}

// Sample evaluates a channel at time t, clamping outside the key range.
func Sample(ch *asset.Channel, t float32) [4]float32 {
	keys := ch.Times
	if len(keys) == 0 {
		return [4]float32{}
	}
	if len(keys) == 1 || t <= keys[0] {
		return ch.Values[0]
	}

	// Find surrounding keyframes
	var prev, next int
	for i := range keys {
		if keys[i] > t {
			next = i
			break
		}
		prev = i
		next = i
	}

	// At or past the last key
	if prev == next {
		return ch.Values[prev]
	}
	if ch.Interpolation == asset.InterpStep {
		return ch.Values[prev]
	}

	f := float32(0)
	if span := keys[next] - keys[prev]; span > 0 {
		f = (t - keys[prev]) / span
	}

	v0, v1 := ch.Values[prev], ch.Values[next]
	if ch.Path == asset.PathRotation {
		q0 := math.Q4(v0)
		q1 := math.Q4(v1)
		q := q0.Slerp(q1, f)
		return q.Array()
	}
	return [4]float32{
		v0[0] + (v1[0]-v0[0])*f,
		v0[1] + (v1[1]-v0[1])*f,
		v0[2] + (v1[2]-v0[2])*f,
		0,
	}
}
