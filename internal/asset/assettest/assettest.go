// Package assettest builds small glTF payloads for tests.
package assettest

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Model describes a single-mesh glTF document.
type Model struct {
	// Positions default to a box from (-1,-2,-3) to (1,2,3).
	Positions [][3]float32
	Indices   []uint32

	// Root node transform, written as TRS.
	Translation *[3]float32
	Scale       *[3]float32

	// Translation keyframes on the mesh node; empty means no animation.
	KeyTimes  []float32
	KeyValues [][3]float32

	// Compressed marks the primitive as compressed geometry. Its POSITION
	// accessor then carries only min/max.
	Compressed bool
}

// Box returns the default model, an axis-aligned box of size 2x4x6 centred
// at the origin.
func Box() Model {
	return Model{}
}

// Animated returns the default box with a one-second translation clip.
func Animated() Model {
	return Model{
		KeyTimes:  []float32{0, 1},
		KeyValues: [][3]float32{{0, 0, 0}, {0, 1, 0}},
	}
}

func (m Model) positions() [][3]float32 {
	if len(m.Positions) > 0 {
		return m.Positions
	}
	return [][3]float32{
		{-1, -2, -3}, {1, -2, -3}, {-1, 2, -3}, {1, 2, -3},
		{-1, -2, 3}, {1, -2, 3}, {-1, 2, 3}, {1, 2, 3},
	}
}

func (m Model) indices() []uint32 {
	if len(m.Indices) > 0 || len(m.Positions) > 0 {
		return m.Indices
	}
	return []uint32{
		0, 1, 3, 0, 3, 2, 4, 6, 7, 4, 7, 5,
		0, 4, 5, 0, 5, 1, 2, 3, 7, 2, 7, 6,
		0, 2, 6, 0, 6, 4, 1, 5, 7, 1, 7, 3,
	}
}

// GLTF encodes the model as a .gltf JSON document with an embedded buffer.
func (m Model) GLTF() []byte {
	var buf bytes.Buffer
	var views, accessors []map[string]any

	view := func(data any) int {
		start := buf.Len()
		binary.Write(&buf, binary.LittleEndian, data)
		views = append(views, map[string]any{
			"buffer":     0,
			"byteOffset": start,
			"byteLength": buf.Len() - start,
		})
		return len(views) - 1
	}
	accessor := func(a map[string]any) int {
		accessors = append(accessors, a)
		return len(accessors) - 1
	}

	pos := m.positions()
	lo, hi := pos[0], pos[0]
	for _, p := range pos {
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], p[i])
			hi[i] = max(hi[i], p[i])
		}
	}

	prim := map[string]any{}
	posAcc := map[string]any{
		"componentType": 5126,
		"count":         len(pos),
		"type":          "VEC3",
		"min":           lo[:],
		"max":           hi[:],
	}
	if m.Compressed {
		prim["attributes"] = map[string]int{"POSITION": accessor(posAcc)}
		prim["extensions"] = map[string]any{
			"KHR_draco_mesh_compression": map[string]any{
				"bufferView": view([]byte{0, 0, 0, 0}),
				"attributes": map[string]int{"POSITION": 0},
			},
		}
	} else {
		posAcc["bufferView"] = view(pos)
		prim["attributes"] = map[string]int{"POSITION": accessor(posAcc)}
		if idx := m.indices(); len(idx) > 0 {
			prim["indices"] = accessor(map[string]any{
				"bufferView":    view(idx),
				"componentType": 5125,
				"count":         len(idx),
				"type":          "SCALAR",
			})
		}
	}

	root := map[string]any{"name": "root", "children": []int{1}}
	if m.Translation != nil {
		root["translation"] = m.Translation[:]
	}
	if m.Scale != nil {
		root["scale"] = m.Scale[:]
	}
	doc := map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"nodes": []int{0}}},
		"nodes": []any{
			root,
			map[string]any{"name": "body", "mesh": 0},
		},
		"meshes": []any{map[string]any{
			"name":       "body",
			"primitives": []any{prim},
		}},
		"materials": []any{map[string]any{
			"name": "paint",
			"pbrMetallicRoughness": map[string]any{
				"baseColorFactor": []float32{0.2, 0.4, 0.6, 1},
			},
		}},
	}
	prim["material"] = 0

	if len(m.KeyTimes) > 0 {
		in := accessor(map[string]any{
			"bufferView":    view(m.KeyTimes),
			"componentType": 5126,
			"count":         len(m.KeyTimes),
			"type":          "SCALAR",
			"min":           []float32{m.KeyTimes[0]},
			"max":           []float32{m.KeyTimes[len(m.KeyTimes)-1]},
		})
		out := accessor(map[string]any{
			"bufferView":    view(m.KeyValues),
			"componentType": 5126,
			"count":         len(m.KeyValues),
			"type":          "VEC3",
		})
		doc["animations"] = []any{map[string]any{
			"name":     "bob",
			"samplers": []any{map[string]any{"input": in, "output": out}},
			"channels": []any{map[string]any{
				"sampler": 0,
				"target":  map[string]any{"node": 1, "path": "translation"},
			}},
		}}
	}

	if m.Compressed {
		doc["extensionsUsed"] = []string{"KHR_draco_mesh_compression"}
		doc["extensionsRequired"] = []string{"KHR_draco_mesh_compression"}
	}

	doc["bufferViews"] = views
	doc["accessors"] = accessors
	doc["buffers"] = []any{map[string]any{
		"byteLength": buf.Len(),
		"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}}

	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return data
}

// Split encodes the model as a .gltf document whose buffer lives in a
// separate file named bin, and returns both files.
func (m Model) Split(bin string) (doc, buffer []byte) {
	var raw map[string]any
	if err := json.Unmarshal(m.GLTF(), &raw); err != nil {
		panic(err)
	}
	buf := raw["buffers"].([]any)[0].(map[string]any)
	uri := buf["uri"].(string)
	buffer, err := base64.StdEncoding.DecodeString(uri[strings.Index(uri, ",")+1:])
	if err != nil {
		panic(err)
	}
	buf["uri"] = bin

	doc, err = json.Marshal(raw)
	if err != nil {
		panic(err)
	}
	return doc, buffer
}

// WriteFile writes the model into dir and returns its path.
func (m Model) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, m.GLTF(), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}
