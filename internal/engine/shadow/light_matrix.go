package shadow

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/arviewer/internal/asset"
	"github.com/Faultbox/arviewer/pkg/math"
)

// LightMatrix computes the view-projection of a directional light covering
// bounds. lightDir is the normalized direction towards the light.
func LightMatrix(lightDir math.Vec3, bounds asset.BoundingBox) math.Mat4 {
	if bounds.IsEmpty() {
		bounds = asset.BoundingBox{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	}
	center := bounds.Center()
	radius := bounds.Size().Length() / 2
	if radius <= 0 {
		radius = 1
	}

	// Far enough out that the whole box sits in front of the light
	distance := radius * 2
	eye := center.Add(lightDir.Scale(distance))

	up := math.Vec3{Y: 1}
	if math32.Abs(lightDir.Y) > 0.99 {
		up = math.Vec3{Z: 1}
	}
	view := math.LookAt(eye, center, up)

	// Padding avoids clipping at the edges of the map
	half := radius * 1.1
	proj := math.Ortho(-half, half, -half, half, 0.1, distance+half)

	return proj.Mul(view)
}
