package renderer

import (
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/arviewer/internal/asset"
)

// gpuPrimitive is one primitive uploaded to the GPU.
type gpuPrimitive struct {
	vao, vbo, ebo uint32
	count         int32
	material      int
	castShadow    bool
	receiveShadow bool
}

func uploadPrimitive(p asset.Primitive) gpuPrimitive {
	g := gpuPrimitive{
		count:         int32(len(p.Indices)),
		material:      p.Material,
		castShadow:    p.CastShadow,
		receiveShadow: p.ReceiveShadow,
	}
	if len(p.Positions) == 0 || len(p.Indices) == 0 {
		g.count = 0
		return g
	}

	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)

	gl.GenBuffers(1, &g.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(p.Positions)*3*4, unsafe.Pointer(&p.Positions[0]), gl.STATIC_DRAW)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	gl.EnableVertexAttribArray(0)

	gl.GenBuffers(1, &g.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(p.Indices)*4, unsafe.Pointer(&p.Indices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	return g
}

func (g *gpuPrimitive) draw() {
	if g.count == 0 {
		return
	}
	gl.BindVertexArray(g.vao)
	gl.DrawElements(gl.TRIANGLES, g.count, gl.UNSIGNED_INT, nil)
}

func (g *gpuPrimitive) delete() {
	if g.ebo != 0 {
		gl.DeleteBuffers(1, &g.ebo)
	}
	if g.vbo != 0 {
		gl.DeleteBuffers(1, &g.vbo)
	}
	if g.vao != 0 {
		gl.DeleteVertexArrays(1, &g.vao)
	}
	*g = gpuPrimitive{}
}

// gpuAsset holds the uploaded primitives of one asset, by mesh.
type gpuAsset struct {
	meshes map[*asset.Mesh][]gpuPrimitive
}

func uploadAsset(a *asset.Asset) *gpuAsset {
	g := &gpuAsset{meshes: make(map[*asset.Mesh][]gpuPrimitive, len(a.Meshes))}
	for _, m := range a.Meshes {
		prims := make([]gpuPrimitive, len(m.Primitives))
		for i, p := range m.Primitives {
			prims[i] = uploadPrimitive(p)
		}
		g.meshes[m] = prims
	}
	return g
}

func (g *gpuAsset) delete() {
	for _, prims := range g.meshes {
		for i := range prims {
			prims[i].delete()
		}
	}
	g.meshes = nil
}
