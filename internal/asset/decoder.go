package asset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/arviewer/pkg/math"
)

// GeometryDecoder decodes one compressed primitive. Implementations must be
// safe for concurrent use; a loader shares one decoder across loads.
type GeometryDecoder interface {
	DecodePrimitive(doc *gltf.Document, p *gltf.Primitive) (Primitive, error)
}

// DecoderFactory initializes a decoder from its configured location. The
// loader calls it at most once, on the first payload that needs it.
type DecoderFactory func(ctx context.Context, location string) (GeometryDecoder, error)

// DecoderModule is the file fetched from a directory-style decoder location.
const DecoderModule = "draco_decoder.wasm"

// decoderURL resolves the module file for a location. Locations ending in
// "/" name a directory.
func decoderURL(location string) string {
	if strings.HasSuffix(location, "/") {
		return location + DecoderModule
	}
	return location
}

// extDraco is the KHR_draco_mesh_compression primitive extension.
type extDraco struct {
	BufferView int               `json:"bufferView"`
	Attributes map[string]uint32 `json:"attributes"`
}

// dracoGeometry is one decoded Draco mesh.
type dracoGeometry interface {
	// Faces returns the flattened triangle list.
	Faces() []uint32
	// Positions returns the float VEC3 attribute with the given unique id.
	Positions(id uint32) ([][3]float32, error)
}

// dracoDecoder decodes KHR_draco_mesh_compression primitives.
type dracoDecoder struct {
	decode func(data []byte) (dracoGeometry, error)
}

// NewDracoDecoder returns the native Draco geometry decoder.
func NewDracoDecoder() GeometryDecoder {
	return &dracoDecoder{decode: decodeDraco}
}

func (d *dracoDecoder) DecodePrimitive(doc *gltf.Document, p *gltf.Primitive) (Primitive, error) {
	ext, err := primitiveExtension(p)
	if err != nil {
		return Primitive{}, err
	}
	id, ok := ext.Attributes[gltf.POSITION]
	if !ok {
		return Primitive{}, errors.New("compressed primitive has no POSITION attribute")
	}
	if ext.BufferView < 0 || ext.BufferView >= len(doc.BufferViews) {
		return Primitive{}, fmt.Errorf("buffer view index %d out of range", ext.BufferView)
	}
	data, err := modeler.ReadBufferView(doc, doc.BufferViews[ext.BufferView])
	if err != nil {
		return Primitive{}, fmt.Errorf("reading compressed buffer: %w", err)
	}

	geom, err := d.decode(data)
	if err != nil {
		return Primitive{}, fmt.Errorf("draco: %w", err)
	}
	positions, err := geom.Positions(id)
	if err != nil {
		return Primitive{}, fmt.Errorf("draco POSITION: %w", err)
	}
	if len(positions) == 0 {
		return Primitive{}, errors.New("draco mesh has no vertices")
	}
	indices := geom.Faces()
	if len(indices)%3 != 0 {
		return Primitive{}, fmt.Errorf("draco face list has %d indices", len(indices))
	}
	for _, ix := range indices {
		if int(ix) >= len(positions) {
			return Primitive{}, fmt.Errorf("index %d out of range (%d vertices)", ix, len(positions))
		}
	}

	prim := Primitive{Positions: positions, Indices: indices, Bounds: pointBounds(positions)}
	if posIdx, ok := p.Attributes[gltf.POSITION]; ok && posIdx >= 0 && posIdx < len(doc.Accessors) {
		if box, ok := accessorBounds(doc.Accessors[posIdx]); ok {
			prim.Bounds = box
		}
	}
	return prim, nil
}

func primitiveExtension(p *gltf.Primitive) (extDraco, error) {
	var ext extDraco
	switch v := p.Extensions[ExtDraco].(type) {
	case json.RawMessage:
		if err := json.Unmarshal(v, &ext); err != nil {
			return ext, fmt.Errorf("parsing %s: %w", ExtDraco, err)
		}
	case *extDraco:
		ext = *v
	default:
		return ext, fmt.Errorf("unexpected %s value %T", ExtDraco, v)
	}
	return ext, nil
}

// boxIndices wind counter-clockwise seen from outside.
var boxIndices = []uint32{
	0, 3, 1, 0, 2, 3, // -z
	4, 7, 6, 4, 5, 7, // +z
	0, 5, 4, 0, 1, 5, // -y
	2, 7, 3, 2, 6, 7, // +y
	0, 6, 2, 0, 4, 6, // -x
	1, 7, 5, 1, 3, 7, // +x
}

func boxPrimitive(box BoundingBox) Primitive {
	corners := box.Corners()
	positions := make([][3]float32, len(corners))
	for i, c := range corners {
		positions[i] = c.Array()
	}
	indices := make([]uint32, len(boxIndices))
	copy(indices, boxIndices)
	return Primitive{Positions: positions, Indices: indices, Bounds: box}
}

// CubeMesh returns a unit cube centred at the origin.
func CubeMesh() *Mesh {
	half := math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}
	box := BoundingBox{Min: half.Scale(-1), Max: half}
	return &Mesh{Name: "cube", Primitives: []Primitive{boxPrimitive(box)}}
}

// wasmMagic opens every WebAssembly module.
var wasmMagic = []byte("\x00asm")

// RemoteDecoderFactory fetches the decoder module from location through the
// loader's transport and checks it is a WebAssembly module before enabling
// the native Draco decoder. An unreachable or wrong location leaves
// compressed geometry disabled until a later load retries.
func (l *Loader) RemoteDecoderFactory(ctx context.Context, location string) (GeometryDecoder, error) {
	if location == "" {
		return nil, ErrMissingDecoder
	}
	u := decoderURL(location)
	data, err := l.fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetching decoder: %w", err)
	}
	if !bytes.HasPrefix(data, wasmMagic) {
		return nil, fmt.Errorf("decoder module %s is not WebAssembly", u)
	}
	l.log.Debug("decoder module fetched", zap.String("url", u), zap.Int("bytes", len(data)))
	return NewDracoDecoder(), nil
}
