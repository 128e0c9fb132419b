// Package asset loads glTF/GLB models into a minimal scene graph with
// animation clips and an intrinsic bounding box.
package asset

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/arviewer/pkg/math"
)

// BoundingBox is an axis-aligned box in asset-local space.
type BoundingBox struct {
	Min math.Vec3
	Max math.Vec3
}

// EmptyBox returns a box that contains nothing; expanding it by a point
// yields a zero-size box at that point.
func EmptyBox() BoundingBox {
	inf := math32.Inf(1)
	return BoundingBox{
		Min: math.Vec3{X: inf, Y: inf, Z: inf},
		Max: math.Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

// IsEmpty reports whether no point has been added.
func (b BoundingBox) IsEmpty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// ExpandByPoint returns the box grown to include p.
func (b BoundingBox) ExpandByPoint(p math.Vec3) BoundingBox {
	return BoundingBox{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both boxes.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return BoundingBox{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Size returns the extent along each axis. Empty boxes have zero size.
func (b BoundingBox) Size() math.Vec3 {
	if b.IsEmpty() {
		return math.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint. Empty boxes are centred at the origin.
func (b BoundingBox) Center() math.Vec3 {
	if b.IsEmpty() {
		return math.Vec3{}
	}
	return b.Min.Add(b.Max).Scale(0.5)
}

// MaxDimension returns the largest of the three extents.
func (b BoundingBox) MaxDimension() float32 {
	return b.Size().MaxComponent()
}

// Corners returns the eight corner points.
func (b BoundingBox) Corners() [8]math.Vec3 {
	lo, hi := b.Min, b.Max
	return [8]math.Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z}, {X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: lo.X, Y: hi.Y, Z: lo.Z}, {X: hi.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z}, {X: hi.X, Y: lo.Y, Z: hi.Z},
		{X: lo.X, Y: hi.Y, Z: hi.Z}, {X: hi.X, Y: hi.Y, Z: hi.Z},
	}
}

// Transform returns the axis-aligned box enclosing b's corners under m.
func (b BoundingBox) Transform(m math.Mat4) BoundingBox {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBox()
	for _, c := range b.Corners() {
		out = out.ExpandByPoint(m.TransformPoint(c))
	}
	return out
}

// Node is a scene graph node with a local TRS transform.
type Node struct {
	Name        string
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3

	// Static is set for nodes authored with a matrix instead of TRS.
	Static *math.Mat4

	Mesh     *Mesh
	Parent   *Node
	Children []*Node

	// World is refreshed by Asset.UpdateWorld.
	World math.Mat4
}

func newNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: math.QuatIdentity(),
		Scale:    math.Vec3{X: 1, Y: 1, Z: 1},
		World:    math.Identity(),
	}
}

// Local returns the node's local transform.
func (n *Node) Local() math.Mat4 {
	if n.Static != nil {
		return *n.Static
	}
	return math.Compose(n.Translation, n.Rotation, n.Scale)
}

// ResetTransform sets identity rotation, unit scale and zero translation.
func (n *Node) ResetTransform() {
	n.Static = nil
	n.Translation = math.Vec3{}
	n.Rotation = math.QuatIdentity()
	n.Scale = math.Vec3{X: 1, Y: 1, Z: 1}
}

func (n *Node) addChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

func (n *Node) walk(parent math.Mat4, fn func(*Node)) {
	n.World = parent.Mul(n.Local())
	fn(n)
	for _, c := range n.Children {
		c.walk(n.World, fn)
	}
}

// Material holds the shading parameters the viewer uses.
type Material struct {
	Name         string
	BaseColor    [4]float32
	Roughness    float32
	Metalness    float32
	EnvIntensity float32
	DoubleSided  bool
}

// Primitive is a drawable triangle list.
type Primitive struct {
	Positions [][3]float32
	Indices   []uint32
	Material  int // -1 when unset
	Bounds    BoundingBox

	// Compressed is set when geometry came from the compressed-geometry decoder.
	Compressed    bool
	CastShadow    bool
	ReceiveShadow bool
}

// Mesh groups primitives.
type Mesh struct {
	Name       string
	Primitives []Primitive
}

// Path is the node property an animation channel drives.
type Path int

const (
	PathTranslation Path = iota
	PathRotation
	PathScale
)

// Interpolation is a keyframe interpolation mode.
type Interpolation int

const (
	InterpLinear Interpolation = iota
	InterpStep
)

// Channel animates one property of one node.
type Channel struct {
	Target        *Node
	Path          Path
	Interpolation Interpolation
	Times         []float32    // seconds, ascending
	Values        [][4]float32 // xyz for translation/scale, xyzw for rotation
}

// Clip is a named set of channels.
type Clip struct {
	Name     string
	Duration float32 // seconds
	Channels []Channel
}

// Asset is a decoded model. It is owned by the pipeline that loaded it and
// must be disposed when superseded.
type Asset struct {
	Path      string
	Root      *Node
	Nodes     []*Node
	Meshes    []*Mesh
	Materials []Material
	Clips     []Clip

	bounds    BoundingBox
	disposers []func()
	disposed  bool
}

// Bounds returns the bounding box measured at decode time.
func (a *Asset) Bounds() BoundingBox {
	return a.bounds
}

// UpdateWorld recomputes every node's world matrix from the root down.
func (a *Asset) UpdateWorld() {
	a.Root.walk(math.Identity(), func(*Node) {})
}

// Visit refreshes world matrices and calls fn for every node with a mesh.
func (a *Asset) Visit(fn func(n *Node)) {
	a.Root.walk(math.Identity(), func(n *Node) {
		if n.Mesh != nil {
			fn(n)
		}
	})
}

// measure computes the bounds of all primitives under the root.
func (a *Asset) measure() BoundingBox {
	box := EmptyBox()
	a.Visit(func(n *Node) {
		for _, p := range n.Mesh.Primitives {
			box = box.Union(p.Bounds.Transform(n.World))
		}
	})
	return box
}

// OnDispose registers a release function, typically for GPU buffers created
// from this asset. Functions run in reverse registration order. Registering
// on a disposed asset runs fn immediately.
func (a *Asset) OnDispose(fn func()) {
	if a.disposed {
		fn()
		return
	}
	a.disposers = append(a.disposers, fn)
}

// Dispose releases every registered resource and drops geometry. Safe to
// call more than once.
func (a *Asset) Dispose() {
	if a.disposed {
		return
	}
	a.disposed = true
	for i := len(a.disposers) - 1; i >= 0; i-- {
		a.disposers[i]()
	}
	a.disposers = nil
	for _, m := range a.Meshes {
		m.Primitives = nil
	}
}

// Disposed reports whether Dispose has run.
func (a *Asset) Disposed() bool {
	return a.disposed
}
