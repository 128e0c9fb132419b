package asset

import (
	"errors"
	"fmt"

	"github.com/qmuntal/draco-go/draco"
)

type dracoMesh struct {
	m *draco.Mesh
}

func decodeDraco(data []byte) (dracoGeometry, error) {
	m := draco.NewMesh()
	if err := draco.NewDecoder().Decode(m, data); err != nil {
		return nil, err
	}
	return dracoMesh{m: m}, nil
}

func (d dracoMesh) Faces() []uint32 {
	return d.m.Faces(nil)
}

func (d dracoMesh) Positions(id uint32) ([][3]float32, error) {
	attr := d.m.AttrByUniqueID(id)
	if attr == nil {
		return nil, fmt.Errorf("attribute %d not found", id)
	}
	data, ok := d.m.AttrData(attr, make([][3]float32, d.m.NumPoints()))
	if !ok {
		return nil, fmt.Errorf("attribute %d is not float VEC3", id)
	}
	switch v := data.(type) {
	case [][3]float32:
		return v, nil
	case []float32:
		if len(v)%3 != 0 {
			return nil, fmt.Errorf("attribute %d has %d floats", id, len(v))
		}
		out := make([][3]float32, len(v)/3)
		for i := range out {
			out[i] = [3]float32{v[3*i], v[3*i+1], v[3*i+2]}
		}
		return out, nil
	}
	return nil, errors.New("unexpected attribute layout")
}
