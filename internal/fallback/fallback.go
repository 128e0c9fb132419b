// Package fallback describes the placeholder shown while no asset is staged:
// a cube spinning about Y and bobbing on a sine wave. The motion depends only
// on elapsed time.
package fallback

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/Faultbox/arviewer/internal/asset"
	"github.com/Faultbox/arviewer/pkg/math"
)

// Appearance and motion constants.
const (
	RotationRate = 0.6 // rad/s about Y
	BobAmplitude = 0.1
	BobRate      = 1 // rad/s
)

var (
	// Color is #1f8ad1.
	Color = [4]float32{0x1f / 255.0, 0x8a / 255.0, 0xd1 / 255.0, 1}

	// Base is where the cube sits when the bob is at zero.
	Base = math.Vec3{Z: -2}
)

// Pose is the cube's placement at one instant.
type Pose struct {
	Rotation float32 // radians about Y, in [0, 2π)
	Position math.Vec3
}

// PoseAt returns the pose after elapsed time on the fallback clock.
func PoseAt(elapsed time.Duration) Pose {
	s := float32(elapsed.Seconds())
	return Pose{
		Rotation: math32.Mod(s*RotationRate, 2*math32.Pi),
		Position: Base.Add(math.Vec3{Y: BobAmplitude * math32.Sin(s*BobRate)}),
	}
}

// Matrix returns the model matrix for the pose.
func (p Pose) Matrix() math.Mat4 {
	return math.Translate(p.Position.X, p.Position.Y, p.Position.Z).Mul(math.RotateY(p.Rotation))
}

// CubeMesh returns the unit cube with a single material slot.
func CubeMesh() *asset.Mesh {
	m := asset.CubeMesh()
	for i := range m.Primitives {
		m.Primitives[i].Material = 0
	}
	return m
}

// Material returns the cube's material.
func Material() asset.Material {
	return asset.Material{
		Name:         "fallback",
		BaseColor:    Color,
		Roughness:    0.5,
		Metalness:    0.5,
		EnvIntensity: 1,
	}
}
