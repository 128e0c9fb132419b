package shadow

import (
	"testing"

	"github.com/Faultbox/arviewer/internal/asset"
	"github.com/Faultbox/arviewer/pkg/math"
)

func inClip(p math.Vec3) bool {
	return p.X >= -1 && p.X <= 1 && p.Y >= -1 && p.Y <= 1 && p.Z >= -1 && p.Z <= 1
}

func TestLightMatrixCoversBounds(t *testing.T) {
	bounds := asset.BoundingBox{
		Min: math.Vec3{X: -0.5, Y: -1.9, Z: -2.3},
		Max: math.Vec3{X: 0.5, Y: 0.1, Z: -1.7},
	}
	dirs := []math.Vec3{
		math.Vec3{X: 1, Y: 1, Z: 1}.Normalize(),
		math.Vec3{X: -1, Y: 1, Z: -1}.Normalize(),
		{Y: -1},
		{Y: 1},
	}
	for _, dir := range dirs {
		m := LightMatrix(dir, bounds)
		for i := 0; i < 8; i++ {
			corner := bounds.Min
			if i&1 != 0 {
				corner.X = bounds.Max.X
			}
			if i&2 != 0 {
				corner.Y = bounds.Max.Y
			}
			if i&4 != 0 {
				corner.Z = bounds.Max.Z
			}
			if p := m.TransformPoint(corner); !inClip(p) {
				t.Errorf("LightMatrix(%v) maps corner %v to %v, outside clip space", dir, corner, p)
			}
		}
	}
}

func TestLightMatrixEmptyBounds(t *testing.T) {
	m := LightMatrix(math.Vec3{Y: 1}, asset.EmptyBox())
	if p := m.TransformPoint(math.Vec3{}); !inClip(p) {
		t.Errorf("origin maps to %v, outside clip space", p)
	}
}
