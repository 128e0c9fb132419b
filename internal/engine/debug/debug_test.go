package debug

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/arviewer/internal/asset"
	"github.com/Faultbox/arviewer/pkg/math"
)

func TestBoundsLines(t *testing.T) {
	b := asset.BoundingBox{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	v := BoundsLines(b, 0.5)
	if len(v) != BoundsVertexCount*3 {
		t.Fatalf("len = %d, want %d", len(v), BoundsVertexCount*3)
	}
	for i, c := range v {
		if c != -1.5 && c != 1.5 {
			t.Fatalf("component %d = %v, want ±1.5", i, c)
		}
	}
	for i := 0; i < len(v); i += 6 {
		diff := 0
		for k := 0; k < 3; k++ {
			if v[i+k] != v[i+3+k] {
				diff++
			}
		}
		if diff != 1 {
			t.Errorf("edge %d differs on %d axes, want 1", i/6, diff)
		}
	}
	if BoundsLines(asset.EmptyBox(), 1) != nil {
		t.Error("BoundsLines(empty) != nil")
	}
}

func TestCapture(t *testing.T) {
	// Two rows, bottom row red, top row blue, as OpenGL returns them.
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	dir := filepath.Join(t.TempDir(), "shots")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	path, err := Capture(dir, "viewer", pixels, 1, 2, at)
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if want := filepath.Join(dir, "viewer_2026-01-02_03-04-05.png"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if r, _, b, _ := img.At(0, 0).RGBA(); r != 0 || b == 0 {
		t.Errorf("top pixel = %v, want blue", img.At(0, 0))
	}
	if r, _, _, _ := img.At(0, 1).RGBA(); r == 0 {
		t.Errorf("bottom pixel = %v, want red", img.At(0, 1))
	}
}

func TestCaptureSizeMismatch(t *testing.T) {
	if _, err := Capture(t.TempDir(), "x", make([]byte, 3), 1, 1, time.Now()); err == nil {
		t.Error("Capture() with short buffer returned nil error")
	}
}
