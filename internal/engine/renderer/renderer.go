// Package renderer draws staged frames with OpenGL: the normalized asset or
// the fallback cube, lit by the scene rig with a shadow from the key light.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/arviewer/internal/asset"
	"github.com/Faultbox/arviewer/internal/engine/camera"
	"github.com/Faultbox/arviewer/internal/engine/lighting"
	"github.com/Faultbox/arviewer/internal/engine/shader"
	"github.com/Faultbox/arviewer/internal/engine/shadow"
	"github.com/Faultbox/arviewer/internal/fallback"
	"github.com/Faultbox/arviewer/internal/logger"
	"github.com/Faultbox/arviewer/internal/stage"
	"github.com/Faultbox/arviewer/pkg/math"
)

// noticeColor tints the clear color while the fault notice is up.
var noticeColor = [4]float32{0.25, 0.05, 0.05, 1}

// Config holds renderer configuration.
type Config struct {
	Width            int
	Height           int
	ClearColor       [4]float32
	ShadowResolution int32
}

// Renderer draws frames. It must be created and used on the thread that
// owns the GL context.
type Renderer struct {
	config Config
	log    *zap.Logger
	rig    lighting.Rig

	lit   *shader.Program
	depth *shader.Program
	line  *shader.Program
	sm    *shadow.Map

	overlay overlay

	cube     gpuPrimitive
	uploaded map[*asset.Asset]*gpuAsset
}

// New initializes OpenGL and compiles the shaders.
// IMPORTANT: Must be called AFTER the OpenGL context is created!
func New(cfg Config, rig lighting.Rig) (*Renderer, error) {
	r := &Renderer{
		config:   cfg,
		log:      logger.Named("renderer"),
		rig:      rig,
		uploaded: make(map[*asset.Asset]*gpuAsset),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.MULTISAMPLE)

	var err error
	if r.lit, err = shader.Compile(litVertex, litFragment); err != nil {
		return nil, fmt.Errorf("lit shader: %w", err)
	}
	if r.depth, err = shader.Compile(depthVertex, depthFragment); err != nil {
		r.Close()
		return nil, fmt.Errorf("depth shader: %w", err)
	}
	if r.line, err = shader.Compile(lineVertex, lineFragment); err != nil {
		r.Close()
		return nil, fmt.Errorf("line shader: %w", err)
	}
	r.overlay = newOverlay()
	if r.sm, err = shadow.NewMap(cfg.ShadowResolution); err != nil {
		// Shadows are optional; draw without them.
		r.log.Warn("shadows disabled", zap.Error(err))
	}

	r.cube = uploadPrimitive(fallback.CubeMesh().Primitives[0])
	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// Close releases every GPU resource the renderer still holds.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	for a, g := range r.uploaded {
		g.delete()
		delete(r.uploaded, a)
	}
	r.cube.delete()
	r.overlay.delete()
	if r.sm != nil {
		r.sm.Destroy()
	}
	if r.line != nil {
		r.line.Delete()
	}
	if r.depth != nil {
		r.depth.Delete()
	}
	if r.lit != nil {
		r.lit.Delete()
	}
}

// Resize handles drawable resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Aspect returns the drawable aspect ratio.
func (r *Renderer) Aspect() float32 {
	if r.config.Height == 0 {
		return 1
	}
	return float32(r.config.Width) / float32(r.config.Height)
}

// Uploaded returns how many assets currently have GPU buffers.
func (r *Renderer) Uploaded() int {
	return len(r.uploaded)
}

// drawable is one draw call for both passes.
type drawable struct {
	prim     *gpuPrimitive
	model    math.Mat4
	material asset.Material
}

// Draw renders f from cam.
func (r *Renderer) Draw(f stage.Frame, cam *camera.Orbit) {
	if f.Notice != "" {
		c := noticeColor
		gl.ClearColor(c[0], c[1], c[2], c[3])
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		return
	}

	items, bounds := r.collect(f)

	lightSpace := math.Identity()
	key, hasKey := r.rig.Key()
	if hasKey && r.sm != nil && len(items) > 0 {
		lightSpace = shadow.LightMatrix(key.Direction, bounds)
		r.shadowPass(items, lightSpace)
	}

	c := r.config.ClearColor
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	viewProj := cam.ProjectionMatrix(r.Aspect()).Mul(cam.ViewMatrix())
	r.lit.Use()
	r.lit.SetMat4("uViewProj", viewProj)
	r.lit.SetMat4("uLightSpace", lightSpace)
	r.lit.SetVec3("uCameraPos", cam.Position().Array())
	r.lit.SetFloat("uAmbient", r.rig.Ambient)
	r.lit.SetInt("uLightCount", int32(len(r.rig.Lights)))
	dirs, rad := r.rig.Directions(), r.rig.Radiance()
	gl.Uniform3fv(r.lit.Uniform("uLightDir"), lighting.MaxDirectional, &dirs[0])
	gl.Uniform3fv(r.lit.Uniform("uLightRadiance"), lighting.MaxDirectional, &rad[0])
	r.lit.SetInt("uKeyLight", r.keyIndex(key, hasKey))

	shadows := r.sm != nil && hasKey
	if r.sm != nil {
		r.sm.BindTexture(gl.TEXTURE0)
		r.lit.SetInt("uShadowMap", 0)
	}

	for _, it := range items {
		m := it.material
		r.setCulling(m.DoubleSided)
		r.lit.SetMat4("uModel", it.model)
		r.lit.SetVec4("uBaseColor", m.BaseColor)
		r.lit.SetFloat("uRoughness", m.Roughness)
		r.lit.SetFloat("uMetalness", m.Metalness)
		r.lit.SetFloat("uEnvIntensity", m.EnvIntensity)
		receive := int32(0)
		if shadows && it.prim.receiveShadow {
			receive = 1
		}
		r.lit.SetInt("uReceiveShadow", receive)
		it.prim.draw()
	}
	gl.BindVertexArray(0)

	r.drawBounds(bounds, viewProj)
}

func (r *Renderer) keyIndex(key lighting.Directional, ok bool) int32 {
	if !ok {
		return -1
	}
	for i, l := range r.rig.Lights {
		if l == key {
			return int32(i)
		}
	}
	return -1
}

func (r *Renderer) setCulling(doubleSided bool) {
	if doubleSided {
		gl.Disable(gl.CULL_FACE)
		return
	}
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
}

// collect lists the draws for f and the world bounds they cover.
func (r *Renderer) collect(f stage.Frame) ([]drawable, asset.BoundingBox) {
	bounds := asset.EmptyBox()

	if f.Fallback != nil {
		cube := fallback.CubeMesh().Primitives[0]
		model := f.Fallback.Matrix()
		bounds = cube.Bounds.Transform(model)
		return []drawable{{prim: &r.cube, model: model, material: fallback.Material()}}, bounds
	}
	if f.Asset == nil || f.Asset.Disposed() {
		return nil, bounds
	}

	g := r.upload(f.Asset)
	var items []drawable
	f.Asset.Visit(func(n *asset.Node) {
		prims := g.meshes[n.Mesh]
		for i := range prims {
			src := n.Mesh.Primitives[i]
			items = append(items, drawable{
				prim:     &prims[i],
				model:    n.World,
				material: materialOf(f.Asset, src.Material),
			})
			bounds = bounds.Union(src.Bounds.Transform(n.World))
		}
	})
	return items, bounds
}

// upload returns a's GPU buffers, creating them on first use. They are
// released when a is disposed.
func (r *Renderer) upload(a *asset.Asset) *gpuAsset {
	if g, ok := r.uploaded[a]; ok {
		return g
	}
	g := uploadAsset(a)
	r.uploaded[a] = g
	a.OnDispose(func() {
		g.delete()
		delete(r.uploaded, a)
	})
	r.log.Debug("asset uploaded", zap.String("path", a.Path), zap.Int("meshes", len(g.meshes)))
	return g
}

func materialOf(a *asset.Asset, i int) asset.Material {
	if i < 0 || i >= len(a.Materials) {
		return asset.Material{BaseColor: [4]float32{1, 1, 1, 1}, Roughness: 0.5, Metalness: 0.5, EnvIntensity: 1.5, DoubleSided: true}
	}
	return a.Materials[i]
}

func (r *Renderer) shadowPass(items []drawable, lightSpace math.Mat4) {
	r.sm.Bind()
	r.depth.Use()
	r.depth.SetMat4("uLightSpace", lightSpace)
	for _, it := range items {
		if !it.prim.castShadow {
			continue
		}
		if it.material.DoubleSided {
			gl.Disable(gl.CULL_FACE)
		} else {
			gl.Enable(gl.CULL_FACE)
		}
		r.depth.SetMat4("uModel", it.model)
		it.prim.draw()
	}
	gl.BindVertexArray(0)
	r.sm.Unbind()
}
