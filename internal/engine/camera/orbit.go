// Package camera provides the orbit camera the viewer uses to inspect an
// asset.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/arviewer/internal/device"
	"github.com/Faultbox/arviewer/pkg/math"
)

// zoomStep is the distance factor for one wheel step.
const zoomStep = 0.95

// Orbit orbits a target point. Rotation is damped: input accumulates
// velocity that Update bleeds off each frame. Panning is not supported.
type Orbit struct {
	Target math.Vec3

	// Spherical coordinates
	Distance float32
	Yaw      float32 // around Y, radians
	Pitch    float32 // elevation, radians

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	RotateSpeed float32
	Damping     float32 // fraction of pending rotation applied per Update; 0 applies all at once

	// Projection
	FOV  float32 // vertical, degrees
	Near float32
	Far  float32

	yawDelta, pitchDelta float32
}

// NewOrbit creates a camera at the profile's starting distance looking down
// -Z at the origin.
func NewOrbit(p device.Profile, near, far, damping float32) *Orbit {
	return &Orbit{
		Distance:    p.CameraDistance,
		MinDistance: p.MinDistance,
		MaxDistance: p.MaxDistance,
		MinPitch:    -math32.Pi/2 + 0.01,
		MaxPitch:    math32.Pi/2 - 0.01,
		RotateSpeed: p.RotateSpeed,
		Damping:     damping,
		FOV:         p.CameraFOV,
		Near:        near,
		Far:         far,
	}
}

// Rotate queues a drag of dx, dy pixels in a viewport viewportHeight pixels
// tall. A drag across the full height turns a full circle at speed 1.
func (c *Orbit) Rotate(dx, dy, viewportHeight float32) {
	if viewportHeight <= 0 {
		return
	}
	k := 2 * math32.Pi * c.RotateSpeed / viewportHeight
	c.yawDelta -= dx * k
	c.pitchDelta += dy * k
}

// Zoom moves the camera by steps wheel notches; positive moves closer.
func (c *Orbit) Zoom(steps float32) {
	c.Distance *= math32.Pow(zoomStep, steps)
	c.clampDistance()
}

func (c *Orbit) clampDistance() {
	if c.Distance < c.MinDistance {
		c.Distance = c.MinDistance
	}
	if c.Distance > c.MaxDistance {
		c.Distance = c.MaxDistance
	}
}

// Update applies pending rotation. Call once per frame.
func (c *Orbit) Update() {
	f := c.Damping
	if f <= 0 || f > 1 {
		f = 1
	}
	c.Yaw += c.yawDelta * f
	c.Pitch += c.pitchDelta * f
	c.yawDelta *= 1 - f
	c.pitchDelta *= 1 - f

	if c.Pitch < c.MinPitch {
		c.Pitch = c.MinPitch
	}
	if c.Pitch > c.MaxPitch {
		c.Pitch = c.MaxPitch
	}
	c.clampDistance()
}

// Position returns the camera position in world space.
func (c *Orbit) Position() math.Vec3 {
	sp, cp := math32.Sincos(c.Pitch)
	sy, cy := math32.Sincos(c.Yaw)
	return c.Target.Add(math.Vec3{
		X: c.Distance * cp * sy,
		Y: c.Distance * sp,
		Z: c.Distance * cp * cy,
	})
}

// ViewMatrix returns the view matrix for this camera.
func (c *Orbit) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Target, math.Vec3{Y: 1})
}

// ProjectionMatrix returns the perspective projection for aspect.
func (c *Orbit) ProjectionMatrix(aspect float32) math.Mat4 {
	return math.Perspective(c.FOV*math32.Pi/180, aspect, c.Near, c.Far)
}
