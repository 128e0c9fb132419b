// Package shadow renders the key light's depth map so the staged asset
// casts and receives shadows.
package shadow

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// DefaultResolution is the shadow map edge length in texels.
const DefaultResolution = 2048

// Map is a depth-only framebuffer sampled with sampler2DShadow.
type Map struct {
	FBO          uint32
	DepthTexture uint32
	Resolution   int32

	prevViewport [4]int32
}

// NewMap allocates a square shadow map. A resolution <= 0 uses
// DefaultResolution.
func NewMap(resolution int32) (*Map, error) {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	m := &Map{Resolution: resolution}

	gl.GenFramebuffers(1, &m.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, m.FBO)

	gl.GenTextures(1, &m.DepthTexture)
	gl.BindTexture(gl.TEXTURE_2D, m.DepthTexture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, resolution, resolution, 0,
		gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	// Outside the light frustum counts as lit
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	border := []float32{1, 1, 1, 1}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &border[0])

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_FUNC, gl.LEQUAL)

	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, m.DepthTexture, 0)
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		m.Destroy()
		return nil, fmt.Errorf("shadow framebuffer incomplete: 0x%x", status)
	}
	return m, nil
}

// Bind starts the depth pass. The caller's viewport is restored by Unbind.
func (m *Map) Bind() {
	gl.GetIntegerv(gl.VIEWPORT, &m.prevViewport[0])

	gl.BindFramebuffer(gl.FRAMEBUFFER, m.FBO)
	gl.Viewport(0, 0, m.Resolution, m.Resolution)
	gl.Clear(gl.DEPTH_BUFFER_BIT)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	// Front faces into the map reduce acne. Double-sided materials turn
	// culling off per draw.
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.FRONT)
}

// Unbind ends the depth pass.
func (m *Map) Unbind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(m.prevViewport[0], m.prevViewport[1], m.prevViewport[2], m.prevViewport[3])
	gl.CullFace(gl.BACK)
}

// BindTexture binds the depth texture to unit (gl.TEXTURE0 + n).
func (m *Map) BindTexture(unit uint32) {
	gl.ActiveTexture(unit)
	gl.BindTexture(gl.TEXTURE_2D, m.DepthTexture)
}

// Destroy releases the GPU objects.
func (m *Map) Destroy() {
	if m.FBO != 0 {
		gl.DeleteFramebuffers(1, &m.FBO)
		m.FBO = 0
	}
	if m.DepthTexture != 0 {
		gl.DeleteTextures(1, &m.DepthTexture)
		m.DepthTexture = 0
	}
}
