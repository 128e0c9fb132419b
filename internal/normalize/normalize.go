// Package normalize fits an asset's bounding box into the viewing volume of
// a device profile.
package normalize

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/arviewer/internal/asset"
	"github.com/Faultbox/arviewer/internal/device"
	"github.com/Faultbox/arviewer/pkg/math"
)

// ErrDegenerateBounds is returned alongside an identity-scale transform when
// the box has no usable extent.
var ErrDegenerateBounds = errors.New("degenerate bounding box")

// Transform is the scale and recentring applied to an asset root. It is
// computed once per load and never changes afterwards.
type Transform struct {
	Scale       float32
	Translation math.Vec3 // -center*Scale

	DepthOffset    float32
	VerticalOffset float32
}

// Compute returns the transform that scales b so its largest extent equals
// p.TargetSize and moves its centre to the origin.
//
// For a zero or non-finite largest extent the scale is 1, the translation
// still recentres the box when the centre is finite, and the error wraps
// ErrDegenerateBounds. The transform is usable either way.
func Compute(b asset.BoundingBox, p device.Profile) (Transform, error) {
	t := Transform{
		Scale:          1,
		DepthOffset:    p.DepthOffset,
		VerticalOffset: p.VerticalOffset,
	}

	if b.IsEmpty() {
		return t, fmt.Errorf("%w: empty", ErrDegenerateBounds)
	}

	center := b.Center()
	maxDim := b.MaxDimension()
	if maxDim <= 0 || math32.IsInf(maxDim, 0) || math32.IsNaN(maxDim) || p.TargetSize <= 0 {
		if center.IsFinite() {
			t.Translation = center.Scale(-1)
		}
		return t, fmt.Errorf("%w: max dimension %v", ErrDegenerateBounds, maxDim)
	}

	t.Scale = p.TargetSize / maxDim
	t.Translation = center.Scale(-t.Scale)
	return t, nil
}

// Position is the final root position: the recentring translation plus the
// profile's vertical and depth anchors.
func (t Transform) Position() math.Vec3 {
	return t.Translation.Add(math.Vec3{Y: t.VerticalOffset, Z: t.DepthOffset})
}

// Matrix returns the root transform as a matrix.
func (t Transform) Matrix() math.Mat4 {
	p := t.Position()
	return math.Translate(p.X, p.Y, p.Z).Mul(math.Scale(t.Scale, t.Scale, t.Scale))
}

// Apply writes the transform onto n, replacing its TRS.
func (t Transform) Apply(n *asset.Node) {
	n.ResetTransform()
	n.Scale = math.Vec3{X: t.Scale, Y: t.Scale, Z: t.Scale}
	n.Translation = t.Position()
}

// Bounds returns b after the transform, without the anchor offsets.
func (t Transform) Bounds(b asset.BoundingBox) asset.BoundingBox {
	m := math.Translate(t.Translation.X, t.Translation.Y, t.Translation.Z).
		Mul(math.Scale(t.Scale, t.Scale, t.Scale))
	return b.Transform(m)
}
