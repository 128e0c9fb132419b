package asset

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"

	"github.com/chewxy/math32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/arviewer/pkg/math"
)

// ExtDraco is the glTF extension for compressed mesh geometry.
const ExtDraco = "KHR_draco_mesh_compression"

// DecoderSource lazily supplies the compressed-geometry decoder. It is only
// called for payloads that use compressed geometry.
type DecoderSource func() (GeometryDecoder, error)

// Decode parses a glTF or GLB payload. fsys resolves external buffers of
// .gltf files and may be nil. On error nothing is retained.
//
// Every material is prepared for all-angle viewing (double-sided, fixed
// roughness/metalness) and the root transform is reset before bounds are
// measured. No accessor may decode to more than DefaultMaxBytes.
func Decode(path string, data []byte, fsys fs.FS, decoders DecoderSource) (*Asset, error) {
	return decode(path, data, fsys, decoders, DefaultMaxBytes)
}

func decode(path string, data []byte, fsys fs.FS, decoders DecoderSource, limit int64) (*Asset, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoderFS(bytes.NewReader(data), fsys).Decode(doc); err != nil {
		return nil, decodeErr(path, err)
	}

	b := &builder{doc: doc, limit: limit}
	if usesExtension(doc, ExtDraco) {
		if decoders == nil {
			return nil, decodeErr(path, ErrMissingDecoder)
		}
		dec, err := decoders()
		if err != nil {
			return nil, decodeErr(path, fmt.Errorf("%w: %v", ErrMissingDecoder, err))
		}
		if dec == nil {
			return nil, decodeErr(path, ErrMissingDecoder)
		}
		b.dec = dec
	}

	a, err := b.build(path)
	if err != nil {
		return nil, decodeErr(path, err)
	}
	return a, nil
}

func usesExtension(doc *gltf.Document, name string) bool {
	for _, ext := range doc.ExtensionsRequired {
		if ext == name {
			return true
		}
	}
	for _, m := range doc.Meshes {
		for _, p := range m.Primitives {
			if _, ok := p.Extensions[name]; ok {
				return true
			}
		}
	}
	return false
}

type builder struct {
	doc   *gltf.Document
	dec   GeometryDecoder
	limit int64 // bytes a single accessor may decode to
}

func (b *builder) build(path string) (*Asset, error) {
	a := &Asset{Path: path, Root: newNode("root")}
	a.Materials = b.materials()

	var err error
	if a.Meshes, err = b.meshes(); err != nil {
		return nil, err
	}
	if a.Nodes, err = b.nodes(a.Meshes); err != nil {
		return nil, err
	}
	roots, err := b.roots(a.Nodes)
	if err != nil {
		return nil, err
	}
	for _, r := range roots {
		a.Root.addChild(a.Nodes[r])
	}
	if a.Clips, err = b.clips(a.Nodes); err != nil {
		return nil, err
	}

	a.Root.ResetTransform()
	a.bounds = a.measure()
	return a, nil
}

func (b *builder) materials() []Material {
	out := make([]Material, 0, len(b.doc.Materials))
	for _, m := range b.doc.Materials {
		mat := Material{
			Name:         m.Name,
			BaseColor:    [4]float32{1, 1, 1, 1},
			Roughness:    0.5,
			Metalness:    0.5,
			EnvIntensity: 1.5,
			DoubleSided:  true,
		}
		if pbr := m.PBRMetallicRoughness; pbr != nil {
			c := pbr.BaseColorFactorOrDefault()
			mat.BaseColor = [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
		}
		out = append(out, mat)
	}
	return out
}

func (b *builder) meshes() ([]*Mesh, error) {
	out := make([]*Mesh, len(b.doc.Meshes))
	for i, m := range b.doc.Meshes {
		mesh := &Mesh{Name: m.Name}
		for j, p := range m.Primitives {
			prim, err := b.primitive(p)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", i, j, err)
			}
			mesh.Primitives = append(mesh.Primitives, prim)
		}
		out[i] = mesh
	}
	return out, nil
}

func (b *builder) primitive(p *gltf.Primitive) (Primitive, error) {
	var (
		prim Primitive
		err  error
	)
	if _, ok := p.Extensions[ExtDraco]; ok {
		prim, err = b.dec.DecodePrimitive(b.doc, p)
		if err != nil {
			return Primitive{}, err
		}
		prim.Compressed = true
	} else {
		prim, err = b.plainPrimitive(p)
		if err != nil {
			return Primitive{}, err
		}
	}

	prim.Material = -1
	if p.Material != nil {
		if *p.Material < 0 || *p.Material >= len(b.doc.Materials) {
			return Primitive{}, fmt.Errorf("material index %d out of range", *p.Material)
		}
		prim.Material = *p.Material
	}
	prim.CastShadow = true
	prim.ReceiveShadow = true
	return prim, nil
}

func (b *builder) plainPrimitive(p *gltf.Primitive) (Primitive, error) {
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return Primitive{}, errors.New("primitive has no POSITION attribute")
	}
	acc, err := b.accessor(posIdx)
	if err != nil {
		return Primitive{}, err
	}
	positions, err := modeler.ReadPosition(b.doc, acc, nil)
	if err != nil {
		return Primitive{}, fmt.Errorf("reading positions: %w", err)
	}

	prim := Primitive{Positions: positions}
	if box, ok := accessorBounds(acc); ok {
		prim.Bounds = box
	} else {
		prim.Bounds = pointBounds(positions)
	}

	if p.Mode != gltf.PrimitiveTriangles {
		// Kept for bounds only; the renderer draws triangle lists.
		return prim, nil
	}

	if p.Indices != nil {
		idxAcc, err := b.accessor(*p.Indices)
		if err != nil {
			return Primitive{}, err
		}
		if prim.Indices, err = modeler.ReadIndices(b.doc, idxAcc, nil); err != nil {
			return Primitive{}, fmt.Errorf("reading indices: %w", err)
		}
		for _, ix := range prim.Indices {
			if int(ix) >= len(positions) {
				return Primitive{}, fmt.Errorf("index %d out of range (%d vertices)", ix, len(positions))
			}
		}
	} else {
		prim.Indices = make([]uint32, len(positions))
		for i := range prim.Indices {
			prim.Indices[i] = uint32(i)
		}
	}
	return prim, nil
}

// accessor returns accessor i once its declared extent is known to fit the
// data behind it.
func (b *builder) accessor(i int) (*gltf.Accessor, error) {
	if i < 0 || i >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", i)
	}
	acc := b.doc.Accessors[i]
	if err := checkAccessor(b.doc, acc, b.limit); err != nil {
		return nil, fmt.Errorf("accessor %d: %w", i, err)
	}
	return acc, nil
}

func checkAccessor(doc *gltf.Document, acc *gltf.Accessor, limit int64) error {
	elem := int64(gltf.SizeOfElement(acc.ComponentType, acc.Type))
	if elem <= 0 {
		return fmt.Errorf("unsupported element type %d of component %d", acc.Type, acc.ComponentType)
	}
	if acc.Count < 0 || int64(acc.Count) > limit/elem {
		return fmt.Errorf("count %d exceeds %d bytes", acc.Count, limit)
	}
	if acc.BufferView != nil {
		if err := checkView(doc, *acc.BufferView, acc.ByteOffset, acc.Count, elem); err != nil {
			return err
		}
	}

	if sp := acc.Sparse; sp != nil {
		if sp.Count < 0 || sp.Count > acc.Count {
			return fmt.Errorf("sparse count %d out of range", sp.Count)
		}
		idx := int64(gltf.SizeOfElement(sp.Indices.ComponentType, gltf.AccessorScalar))
		if idx <= 0 {
			return fmt.Errorf("unsupported sparse index component %d", sp.Indices.ComponentType)
		}
		if err := checkView(doc, sp.Indices.BufferView, sp.Indices.ByteOffset, sp.Count, idx); err != nil {
			return fmt.Errorf("sparse indices: %w", err)
		}
		if err := checkView(doc, sp.Values.BufferView, sp.Values.ByteOffset, sp.Count, elem); err != nil {
			return fmt.Errorf("sparse values: %w", err)
		}
	}
	return nil
}

// checkView reports whether count elements of elem bytes starting at offset
// lie inside buffer view v and its buffer.
func checkView(doc *gltf.Document, v, offset, count int, elem int64) error {
	if v < 0 || v >= len(doc.BufferViews) {
		return fmt.Errorf("buffer view index %d out of range", v)
	}
	view := doc.BufferViews[v]
	if view.Buffer < 0 || view.Buffer >= len(doc.Buffers) {
		return fmt.Errorf("buffer index %d out of range", view.Buffer)
	}
	size := len(doc.Buffers[view.Buffer].Data)
	if view.ByteOffset < 0 || view.ByteLength < 0 || view.ByteOffset > size || view.ByteLength > size-view.ByteOffset {
		return fmt.Errorf("buffer view %d exceeds its buffer", v)
	}
	if offset < 0 || offset > view.ByteLength {
		return fmt.Errorf("byte offset %d outside buffer view %d", offset, v)
	}
	if count == 0 {
		return nil
	}
	stride := int64(view.ByteStride)
	if stride == 0 {
		stride = elem
	}
	if stride < elem || (count > 1 && stride > int64(view.ByteLength)) {
		return fmt.Errorf("byte stride %d invalid for buffer view %d", stride, v)
	}
	end := int64(offset) + int64(count-1)*stride + elem
	if end > int64(view.ByteLength) {
		return fmt.Errorf("%d elements at offset %d exceed buffer view %d (%d bytes)", count, offset, v, view.ByteLength)
	}
	return nil
}

func accessorBounds(acc *gltf.Accessor) (BoundingBox, bool) {
	if len(acc.Min) != 3 || len(acc.Max) != 3 {
		return BoundingBox{}, false
	}
	return BoundingBox{
		Min: math.Vec3{X: float32(acc.Min[0]), Y: float32(acc.Min[1]), Z: float32(acc.Min[2])},
		Max: math.Vec3{X: float32(acc.Max[0]), Y: float32(acc.Max[1]), Z: float32(acc.Max[2])},
	}, true
}

func pointBounds(points [][3]float32) BoundingBox {
	box := EmptyBox()
	for _, p := range points {
		box = box.ExpandByPoint(math.V3(p))
	}
	return box
}

var identity16 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func (b *builder) nodes(meshes []*Mesh) ([]*Node, error) {
	out := make([]*Node, len(b.doc.Nodes))
	for i, n := range b.doc.Nodes {
		node := newNode(n.Name)

		if n.Matrix != identity16 && n.Matrix != [16]float64{} {
			var m math.Mat4
			for k, v := range n.Matrix {
				m[k] = float32(v)
			}
			node.Static = &m
		} else {
			t, r, s := n.TranslationOrDefault(), n.RotationOrDefault(), n.ScaleOrDefault()
			node.Translation = math.Vec3{X: float32(t[0]), Y: float32(t[1]), Z: float32(t[2])}
			node.Rotation = math.Q4([4]float32{float32(r[0]), float32(r[1]), float32(r[2]), float32(r[3])})
			node.Scale = math.Vec3{X: float32(s[0]), Y: float32(s[1]), Z: float32(s[2])}
		}

		if n.Mesh != nil {
			if *n.Mesh < 0 || *n.Mesh >= len(meshes) {
				return nil, fmt.Errorf("node %d: mesh index %d out of range", i, *n.Mesh)
			}
			node.Mesh = meshes[*n.Mesh]
		}
		out[i] = node
	}

	for i, n := range b.doc.Nodes {
		for _, c := range n.Children {
			if c < 0 || c >= len(out) {
				return nil, fmt.Errorf("node %d: child index %d out of range", i, c)
			}
			if out[c].Parent != nil || c == i {
				return nil, fmt.Errorf("node %d: child %d already has a parent", i, c)
			}
			out[i].addChild(out[c])
		}
	}
	return out, nil
}

// roots returns the top-level node indices of the default scene, or every
// parentless node when the document declares no scene.
func (b *builder) roots(nodes []*Node) ([]int, error) {
	if len(b.doc.Scenes) == 0 {
		var roots []int
		for i, n := range nodes {
			if n.Parent == nil {
				roots = append(roots, i)
			}
		}
		return roots, nil
	}

	scene := 0
	if b.doc.Scene != nil && *b.doc.Scene >= 0 && *b.doc.Scene < len(b.doc.Scenes) {
		scene = *b.doc.Scene
	}
	roots := b.doc.Scenes[scene].Nodes
	for _, r := range roots {
		if r < 0 || r >= len(nodes) {
			return nil, fmt.Errorf("scene node index %d out of range", r)
		}
		if nodes[r].Parent != nil {
			return nil, fmt.Errorf("scene root %d is also a child", r)
		}
	}
	return roots, nil
}

func (b *builder) clips(nodes []*Node) ([]Clip, error) {
	var out []Clip
	for i, an := range b.doc.Animations {
		clip := Clip{Name: an.Name}
		if clip.Name == "" {
			clip.Name = fmt.Sprintf("animation_%d", i)
		}

		for j, ch := range an.Channels {
			if ch.Target.Node == nil {
				continue
			}
			var path Path
			switch ch.Target.Path {
			case gltf.TRSTranslation:
				path = PathTranslation
			case gltf.TRSRotation:
				path = PathRotation
			case gltf.TRSScale:
				path = PathScale
			default:
				// Morph target weights are not supported.
				continue
			}

			node := *ch.Target.Node
			if node < 0 || node >= len(nodes) {
				return nil, fmt.Errorf("animation %d channel %d: node %d out of range", i, j, node)
			}
			if ch.Sampler < 0 || ch.Sampler >= len(an.Samplers) {
				return nil, fmt.Errorf("animation %d channel %d: sampler %d out of range", i, j, ch.Sampler)
			}
			s := an.Samplers[ch.Sampler]

			times, err := b.readScalars(s.Input)
			if err != nil {
				return nil, fmt.Errorf("animation %d channel %d input: %w", i, j, err)
			}
			values, err := b.readVectors(s.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %d channel %d output: %w", i, j, err)
			}

			interp := InterpLinear
			switch s.Interpolation {
			case gltf.InterpolationStep:
				interp = InterpStep
			case gltf.InterpolationCubicSpline:
				// Keep the value of each (in-tangent, value, out-tangent) triple.
				if len(values) != 3*len(times) {
					return nil, fmt.Errorf("animation %d channel %d: cubic spline output count %d for %d keys", i, j, len(values), len(times))
				}
				flat := make([][4]float32, len(times))
				for k := range flat {
					flat[k] = values[3*k+1]
				}
				values = flat
			}

			if len(times) == 0 || len(values) != len(times) {
				return nil, fmt.Errorf("animation %d channel %d: %d keys but %d values", i, j, len(times), len(values))
			}

			clip.Channels = append(clip.Channels, Channel{
				Target:        nodes[node],
				Path:          path,
				Interpolation: interp,
				Times:         times,
				Values:        values,
			})
			clip.Duration = math32.Max(clip.Duration, times[len(times)-1])
		}
		out = append(out, clip)
	}
	return out, nil
}

func (b *builder) readScalars(i int) ([]float32, error) {
	acc, err := b.accessor(i)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(b.doc, acc, nil)
	if err != nil {
		return nil, err
	}
	v, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("expected float scalars, got %T", data)
	}
	return v, nil
}

func (b *builder) readVectors(i int) ([][4]float32, error) {
	acc, err := b.accessor(i)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(b.doc, acc, nil)
	if err != nil {
		return nil, err
	}

	switch v := data.(type) {
	case [][3]float32:
		out := make([][4]float32, len(v))
		for k, e := range v {
			out[k] = [4]float32{e[0], e[1], e[2], 0}
		}
		return out, nil
	case [][4]float32:
		return v, nil
	case [][4]int8:
		return normalizeRotations(v, 127), nil
	case [][4]uint8:
		return normalizeRotations(v, 255), nil
	case [][4]int16:
		return normalizeRotations(v, 32767), nil
	case [][4]uint16:
		return normalizeRotations(v, 65535), nil
	default:
		return nil, fmt.Errorf("unsupported keyframe value type %T", data)
	}
}

func normalizeRotations[T int8 | uint8 | int16 | uint16](v [][4]T, max float32) [][4]float32 {
	out := make([][4]float32, len(v))
	for k, e := range v {
		for c := 0; c < 4; c++ {
			out[k][c] = math32.Max(float32(e[c])/max, -1)
		}
	}
	return out
}
