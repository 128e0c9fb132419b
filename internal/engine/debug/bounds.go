// Package debug provides viewer diagnostics: a bounds wireframe and frame
// capture.
package debug

import "github.com/Faultbox/arviewer/internal/asset"

// BoundsVertexCount is the number of vertices in a bounds wireframe
// (12 edges, 2 endpoints each).
const BoundsVertexCount = 24

// boxEdges pairs corner indices as returned by BoundingBox.Corners.
var boxEdges = [12][2]int{
	{0, 1}, {1, 5}, {5, 4}, {4, 0}, // bottom
	{2, 3}, {3, 7}, {7, 6}, {6, 2}, // top
	{0, 2}, {1, 3}, {5, 7}, {4, 6}, // vertical
}

// BoundsLines returns line-list vertices [x, y, z] outlining b grown by
// padding on every side. An empty box yields nil.
func BoundsLines(b asset.BoundingBox, padding float32) []float32 {
	if b.IsEmpty() {
		return nil
	}
	b.Min.X -= padding
	b.Min.Y -= padding
	b.Min.Z -= padding
	b.Max.X += padding
	b.Max.Y += padding
	b.Max.Z += padding

	corners := b.Corners()
	out := make([]float32, 0, BoundsVertexCount*3)
	for _, e := range boxEdges {
		for _, i := range e {
			out = append(out, corners[i].X, corners[i].Y, corners[i].Z)
		}
	}
	return out
}
