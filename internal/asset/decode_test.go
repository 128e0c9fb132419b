package asset

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Faultbox/arviewer/internal/asset/assettest"
	"github.com/Faultbox/arviewer/pkg/math"
)

func TestDecodeBox(t *testing.T) {
	a, err := Decode("box.gltf", assettest.Box().GLTF(), nil, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	b := a.Bounds()
	want := BoundingBox{Min: math.Vec3{X: -1, Y: -2, Z: -3}, Max: math.Vec3{X: 1, Y: 2, Z: 3}}
	if b != want {
		t.Errorf("Bounds() = %+v, want %+v", b, want)
	}
	if got := b.MaxDimension(); got != 6 {
		t.Errorf("MaxDimension() = %v, want 6", got)
	}
	if len(a.Meshes) != 1 || len(a.Meshes[0].Primitives) != 1 {
		t.Fatalf("meshes = %d, want 1 with 1 primitive", len(a.Meshes))
	}
	prim := a.Meshes[0].Primitives[0]
	if len(prim.Positions) != 8 || len(prim.Indices) != 36 {
		t.Errorf("primitive has %d positions %d indices, want 8 and 36", len(prim.Positions), len(prim.Indices))
	}
	if !prim.CastShadow || !prim.ReceiveShadow {
		t.Error("primitive shadows not enabled")
	}
	if len(a.Clips) != 0 {
		t.Errorf("Clips = %d, want 0", len(a.Clips))
	}
}

func TestDecodePreparesMaterials(t *testing.T) {
	a, err := Decode("box.gltf", assettest.Box().GLTF(), nil, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(a.Materials) != 1 {
		t.Fatalf("Materials = %d, want 1", len(a.Materials))
	}
	m := a.Materials[0]
	if m.Roughness != 0.5 || m.Metalness != 0.5 || m.EnvIntensity != 1.5 || !m.DoubleSided {
		t.Errorf("material = %+v, want roughness 0.5 metalness 0.5 env 1.5 double-sided", m)
	}
	if m.BaseColor != [4]float32{0.2, 0.4, 0.6, 1} {
		t.Errorf("BaseColor = %v, want authored factor", m.BaseColor)
	}
}

func TestDecodeKeepsAuthoredTransforms(t *testing.T) {
	m := assettest.Box()
	m.Translation = &[3]float32{10, 20, 30}
	m.Scale = &[3]float32{5, 5, 5}

	a, err := Decode("moved.gltf", m.GLTF(), nil, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if a.Root.Local() != math.Identity() {
		t.Errorf("Root.Local() = %v, want identity", a.Root.Local())
	}

	b := a.Bounds()
	if got := b.MaxDimension(); got != 30 {
		t.Errorf("MaxDimension() = %v, want 30", got)
	}
	if got := b.Center(); got != (math.Vec3{X: 10, Y: 20, Z: 30}) {
		t.Errorf("Center() = %v, want (10,20,30)", got)
	}
}

func TestDecodeAnimation(t *testing.T) {
	a, err := Decode("anim.gltf", assettest.Animated().GLTF(), nil, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(a.Clips) != 1 {
		t.Fatalf("Clips = %d, want 1", len(a.Clips))
	}
	c := a.Clips[0]
	if c.Name != "bob" || c.Duration != 1 {
		t.Errorf("clip = %q %v, want bob 1", c.Name, c.Duration)
	}
	if len(c.Channels) != 1 || c.Channels[0].Path != PathTranslation {
		t.Fatalf("channels = %+v, want one translation channel", c.Channels)
	}
	if c.Channels[0].Target != a.Nodes[1] {
		t.Error("channel does not target the mesh node")
	}
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode("junk.glb", []byte("not a model"), nil, nil)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Decode() error = %v, want ErrDecode", err)
	}
}

func TestDecodeIndexOutOfRange(t *testing.T) {
	m := assettest.Model{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Indices:   []uint32{0, 1, 7},
	}
	_, err := Decode("bad.gltf", m.GLTF(), nil, nil)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Decode() error = %v, want ErrDecode", err)
	}
}

func TestDecodeCompressedWithoutDecoder(t *testing.T) {
	m := assettest.Box()
	m.Compressed = true

	_, err := Decode("draco.gltf", m.GLTF(), nil, nil)
	if !errors.Is(err, ErrDecode) || !errors.Is(err, ErrMissingDecoder) {
		t.Errorf("Decode() error = %v, want ErrDecode wrapping ErrMissingDecoder", err)
	}
}

var tetra = [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

type fakeDraco struct {
	positions [][3]float32
	faces     []uint32
}

func (f fakeDraco) Faces() []uint32 { return f.faces }

func (f fakeDraco) Positions(id uint32) ([][3]float32, error) {
	if id != 0 {
		return nil, fmt.Errorf("attribute %d not found", id)
	}
	return f.positions, nil
}

// tetraDecoder decodes every compressed primitive to a tetrahedron.
func tetraDecoder() GeometryDecoder {
	return &dracoDecoder{decode: func([]byte) (dracoGeometry, error) {
		return fakeDraco{positions: tetra, faces: []uint32{0, 2, 1, 0, 1, 3, 0, 3, 2, 1, 2, 3}}, nil
	}}
}

func compressedTetra() assettest.Model {
	return assettest.Model{Positions: tetra, Compressed: true}
}

func TestDecodeCompressed(t *testing.T) {
	calls := 0
	a, err := Decode("draco.gltf", compressedTetra().GLTF(), nil, func() (GeometryDecoder, error) {
		calls++
		return tetraDecoder(), nil
	})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("decoder requested %d times, want 1", calls)
	}
	prim := a.Meshes[0].Primitives[0]
	if !prim.Compressed {
		t.Error("primitive not marked compressed")
	}
	if len(prim.Positions) != 4 || len(prim.Indices) != 12 {
		t.Errorf("primitive has %d positions %d indices, want 4 and 12", len(prim.Positions), len(prim.Indices))
	}
	want := BoundingBox{Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	if got := a.Bounds(); got != want {
		t.Errorf("Bounds() = %+v, want %+v", got, want)
	}
}

func TestDecodeCompressedBadFaces(t *testing.T) {
	dec := &dracoDecoder{decode: func([]byte) (dracoGeometry, error) {
		return fakeDraco{positions: tetra, faces: []uint32{0, 1, 9}}, nil
	}}
	_, err := Decode("draco.gltf", compressedTetra().GLTF(), nil, func() (GeometryDecoder, error) {
		return dec, nil
	})
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Decode() error = %v, want ErrDecode", err)
	}
}

func TestDecodeCorruptDracoStream(t *testing.T) {
	_, err := Decode("draco.gltf", compressedTetra().GLTF(), nil, func() (GeometryDecoder, error) {
		return NewDracoDecoder(), nil
	})
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Decode() error = %v, want ErrDecode", err)
	}
}

func TestDecodeRejectsOversizedAccessor(t *testing.T) {
	doc := `{"asset":{"version":"2.0"},` +
		`"accessors":[{"componentType":5126,"count":2000000000,"type":"VEC3"}],` +
		`"meshes":[{"primitives":[{"attributes":{"POSITION":0}}]}],` +
		`"nodes":[{"mesh":0}],"scenes":[{"nodes":[0]}],"scene":0}`
	_, err := Decode("huge.gltf", []byte(doc), nil, nil)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Decode() error = %v, want ErrDecode", err)
	}
}

func TestDecodeRejectsAccessorPastBufferView(t *testing.T) {
	tests := []struct {
		name     string
		accessor string
	}{
		{"count", `{"bufferView":0,"componentType":5126,"count":100,"type":"VEC3"}`},
		{"offset", `{"bufferView":0,"byteOffset":4096,"componentType":5126,"count":1,"type":"VEC3"}`},
		{"view index", `{"bufferView":7,"componentType":5126,"count":1,"type":"VEC3"}`},
		{"sparse count", `{"componentType":5126,"count":1,"type":"VEC3","sparse":{"count":5,` +
			`"indices":{"bufferView":0,"componentType":5125},"values":{"bufferView":0}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"asset":{"version":"2.0"},` +
				`"buffers":[{"byteLength":36,"uri":"data:application/octet-stream;base64,` +
				`AAAAAAAAAAAAAAAAAACAPwAAAAAAAAAAAAAAAAAAgD8AAAAA"}],` +
				`"bufferViews":[{"buffer":0,"byteLength":36}],` +
				`"accessors":[` + tt.accessor + `],` +
				`"meshes":[{"primitives":[{"attributes":{"POSITION":0}}]}],` +
				`"nodes":[{"mesh":0}]}`
			_, err := Decode("bad.gltf", []byte(doc), nil, nil)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("Decode() error = %v, want ErrDecode", err)
			}
		})
	}
}

func TestDecodeDoesNotRequestDecoderForPlainGeometry(t *testing.T) {
	_, err := Decode("box.gltf", assettest.Box().GLTF(), nil, func() (GeometryDecoder, error) {
		t.Error("decoder requested for plain geometry")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
}

func TestAssetDispose(t *testing.T) {
	a, err := Decode("box.gltf", assettest.Box().GLTF(), nil, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	var order []int
	a.OnDispose(func() { order = append(order, 1) })
	a.OnDispose(func() { order = append(order, 2) })
	a.Dispose()
	a.Dispose()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("dispose order = %v, want [2 1]", order)
	}
	if !a.Disposed() {
		t.Error("Disposed() = false")
	}
	if a.Meshes[0].Primitives != nil {
		t.Error("geometry retained after Dispose")
	}

	ran := false
	a.OnDispose(func() { ran = true })
	if !ran {
		t.Error("OnDispose after Dispose did not run immediately")
	}
}

func TestBoundingBox(t *testing.T) {
	b := EmptyBox()
	if !b.IsEmpty() {
		t.Error("EmptyBox().IsEmpty() = false")
	}
	if b.Size() != (math.Vec3{}) {
		t.Errorf("empty Size() = %v, want zero", b.Size())
	}

	b = b.ExpandByPoint(math.Vec3{X: 1, Y: 2, Z: 3})
	b = b.ExpandByPoint(math.Vec3{X: -1, Y: 0, Z: 1})
	if got := b.Center(); got != (math.Vec3{X: 0, Y: 1, Z: 2}) {
		t.Errorf("Center() = %v, want (0,1,2)", got)
	}

	moved := b.Transform(math.Translate(10, 0, 0))
	if moved.Min.X != 9 || moved.Max.X != 11 {
		t.Errorf("Transform() x range = [%v,%v], want [9,11]", moved.Min.X, moved.Max.X)
	}

	u := b.Union(EmptyBox())
	if u != b {
		t.Errorf("Union(empty) = %+v, want %+v", u, b)
	}
}

func TestCubeMeshFacesOutward(t *testing.T) {
	prim := CubeMesh().Primitives[0]
	for i := 0; i+2 < len(prim.Indices); i += 3 {
		a := math.V3(prim.Positions[prim.Indices[i]])
		b := math.V3(prim.Positions[prim.Indices[i+1]])
		c := math.V3(prim.Positions[prim.Indices[i+2]])
		n := b.Sub(a).Cross(c.Sub(a))
		centroid := a.Add(b).Add(c).Scale(1.0 / 3)
		if n.Dot(centroid) <= 0 {
			t.Errorf("triangle %d winds inward", i/3)
		}
	}
}
