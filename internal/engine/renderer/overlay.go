package renderer

import (
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/arviewer/internal/asset"
	"github.com/Faultbox/arviewer/internal/engine/debug"
	"github.com/Faultbox/arviewer/pkg/math"
)

var boundsColor = [4]float32{1, 0.8, 0.1, 1}

// overlay draws the bounds wireframe of whatever is on screen.
type overlay struct {
	vao, vbo uint32
	enabled  bool
}

func newOverlay() overlay {
	var o overlay
	gl.GenVertexArrays(1, &o.vao)
	gl.BindVertexArray(o.vao)
	gl.GenBuffers(1, &o.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, o.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, debug.BoundsVertexCount*3*4, nil, gl.DYNAMIC_DRAW)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)
	return o
}

func (o *overlay) delete() {
	if o.vbo != 0 {
		gl.DeleteBuffers(1, &o.vbo)
	}
	if o.vao != 0 {
		gl.DeleteVertexArrays(1, &o.vao)
	}
	*o = overlay{}
}

// ToggleBounds shows or hides the bounds wireframe.
func (r *Renderer) ToggleBounds() bool {
	r.overlay.enabled = !r.overlay.enabled
	return r.overlay.enabled
}

func (r *Renderer) drawBounds(b asset.BoundingBox, viewProj math.Mat4) {
	verts := debug.BoundsLines(b, 0.01)
	if !r.overlay.enabled || verts == nil || r.line == nil {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, r.overlay.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(verts)*4, unsafe.Pointer(&verts[0]))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	r.line.Use()
	r.line.SetMat4("uViewProj", viewProj)
	r.line.SetVec4("uColor", boundsColor)
	gl.BindVertexArray(r.overlay.vao)
	gl.DrawArrays(gl.LINES, 0, debug.BoundsVertexCount)
	gl.BindVertexArray(0)
}

// ReadPixels returns the back buffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	if len(pixels) == 0 {
		return pixels, w, h
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
	return pixels, w, h
}
