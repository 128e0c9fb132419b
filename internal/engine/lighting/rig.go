// Package lighting describes the scene lights the viewer renders with.
package lighting

import "github.com/Faultbox/arviewer/pkg/math"

// MaxDirectional is the number of directional lights the shader accepts.
const MaxDirectional = 4

// Directional is a light infinitely far away along Direction.
type Directional struct {
	Direction math.Vec3 // normalized, pointing towards the light
	Color     math.Vec3
	Intensity float32
}

// Rig is an ambient term plus a small set of directional lights.
type Rig struct {
	Ambient float32
	Lights  []Directional
}

// NewRig builds a rig from light positions. Each position is taken as a
// direction from the origin; zero-length or unlit entries are skipped and
// anything past MaxDirectional is dropped.
func NewRig(ambient float32, lights ...Directional) Rig {
	r := Rig{Ambient: ambient}
	for _, l := range lights {
		if l.Intensity <= 0 || l.Direction.Length() == 0 || !l.Direction.IsFinite() {
			continue
		}
		if len(r.Lights) == MaxDirectional {
			break
		}
		l.Direction = l.Direction.Normalize()
		if l.Color == (math.Vec3{}) {
			l.Color = math.Vec3{X: 1, Y: 1, Z: 1}
		}
		r.Lights = append(r.Lights, l)
	}
	return r
}

// Key returns the brightest light, which casts the shadow.
func (r Rig) Key() (Directional, bool) {
	if len(r.Lights) == 0 {
		return Directional{}, false
	}
	key := r.Lights[0]
	for _, l := range r.Lights[1:] {
		if l.Intensity > key.Intensity {
			key = l
		}
	}
	return key, true
}

// Directions returns directions as a flat slice for uniform upload.
// Format: [x0, y0, z0, x1, y1, z1, ...], padded to MaxDirectional.
func (r Rig) Directions() []float32 {
	out := make([]float32, MaxDirectional*3)
	for i, l := range r.Lights {
		out[i*3+0] = l.Direction.X
		out[i*3+1] = l.Direction.Y
		out[i*3+2] = l.Direction.Z
	}
	return out
}

// Radiance returns color times intensity per light, flat like Directions.
func (r Rig) Radiance() []float32 {
	out := make([]float32, MaxDirectional*3)
	for i, l := range r.Lights {
		c := l.Color.Scale(l.Intensity)
		out[i*3+0] = c.X
		out[i*3+1] = c.Y
		out[i*3+2] = c.Z
	}
	return out
}
