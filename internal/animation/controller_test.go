package animation

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/Faultbox/arviewer/internal/asset"
	"github.com/Faultbox/arviewer/internal/asset/assettest"
	"github.com/Faultbox/arviewer/pkg/math"
)

func decode(t *testing.T, m assettest.Model) *asset.Asset {
	t.Helper()
	a, err := asset.Decode("test.gltf", m.GLTF(), nil, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return a
}

func near(a, b float32) bool {
	return math32.Abs(a-b) < 1e-5
}

func TestBindAndAdvance(t *testing.T) {
	a := decode(t, assettest.Animated())
	body := a.Nodes[1]

	c := NewController()
	c.Bind(a)
	if len(c.Actions()) != 1 {
		t.Fatalf("Actions() = %d, want 1", len(c.Actions()))
	}
	if body.Translation.Y != 0 {
		t.Errorf("Translation.Y after Bind = %v, want 0", body.Translation.Y)
	}

	c.Advance(0.5)
	if !near(body.Translation.Y, 0.5) {
		t.Errorf("Translation.Y at 0.5s = %v, want 0.5", body.Translation.Y)
	}

	c.Advance(0.75)
	if !near(body.Translation.Y, 0.25) {
		t.Errorf("Translation.Y at 1.25s = %v, want 0.25 (looped)", body.Translation.Y)
	}
	if !near(c.Clock(), 1.25) {
		t.Errorf("Clock() = %v, want 1.25", c.Clock())
	}
}

func TestAdvanceIgnoresNonPositive(t *testing.T) {
	a := decode(t, assettest.Animated())
	c := NewController()
	c.Bind(a)
	c.Advance(0.5)
	c.Advance(0)
	c.Advance(-1)
	c.Advance(math32.NaN())
	if !near(c.Clock(), 0.5) {
		t.Errorf("Clock() = %v, want 0.5", c.Clock())
	}
}

func TestRebindDropsStaleActions(t *testing.T) {
	first := decode(t, assettest.Animated())
	second := decode(t, assettest.Animated())

	c := NewController()
	c.Bind(first)
	stale := c.Actions()
	c.Advance(0.25)

	first.Dispose()
	c.Bind(second)

	for _, act := range stale {
		if act.Running() {
			t.Error("action from superseded asset still running")
		}
	}
	for _, act := range c.Actions() {
		if act.Clip != &second.Clips[0] {
			t.Error("bound action does not belong to the new asset")
		}
	}

	before := first.Nodes[1].Translation
	c.Advance(0.5)
	if first.Nodes[1].Translation != before {
		t.Error("superseded asset advanced after rebind")
	}
	if !near(second.Nodes[1].Translation.Y, 0.5) {
		t.Errorf("new asset Translation.Y = %v, want 0.5", second.Nodes[1].Translation.Y)
	}
	if c.Target() != second {
		t.Error("Target() is not the new asset")
	}
}

func TestBindWithoutClips(t *testing.T) {
	a := decode(t, assettest.Box())
	c := NewController()
	c.Bind(decode(t, assettest.Animated()))
	c.Bind(a)

	if len(c.Actions()) != 0 {
		t.Errorf("Actions() = %d, want 0", len(c.Actions()))
	}
	if c.Target() != nil {
		t.Error("Target() set for asset without clips")
	}
	c.Advance(1)
}

func TestDispose(t *testing.T) {
	c := NewController()
	c.Bind(decode(t, assettest.Animated()))
	acts := c.Actions()
	c.Dispose()

	if len(c.Actions()) != 0 || c.Target() != nil {
		t.Error("Dispose() left bound state")
	}
	if acts[0].Running() {
		t.Error("action still running after Dispose")
	}
}

func TestSampleStep(t *testing.T) {
	ch := &asset.Channel{
		Path:          asset.PathTranslation,
		Interpolation: asset.InterpStep,
		Times:         []float32{0, 1, 2},
		Values:        [][4]float32{{0}, {10}, {20}},
	}
	tests := []struct {
		t    float32
		want float32
	}{
		{-1, 0}, {0.5, 0}, {1, 10}, {1.9, 10}, {5, 20},
	}
	for _, tt := range tests {
		if got := Sample(ch, tt.t)[0]; got != tt.want {
			t.Errorf("Sample(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestSampleRotation(t *testing.T) {
	q0 := math.QuatIdentity()
	q1 := math.QuatFromAxisAngle(math.Vec3{Y: 1}, math32.Pi/2)
	ch := &asset.Channel{
		Path:   asset.PathRotation,
		Times:  []float32{0, 1},
		Values: [][4]float32{{q0.X, q0.Y, q0.Z, q0.W}, {q1.X, q1.Y, q1.Z, q1.W}},
	}

	got := Sample(ch, 0.5)
	want := math.QuatFromAxisAngle(math.Vec3{Y: 1}, math32.Pi/4)
	if !near(got[1], want.Y) || !near(got[3], want.W) {
		t.Errorf("Sample(0.5) = %v, want %v", got, want)
	}
}
