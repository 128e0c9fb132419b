package math

import (
	"testing"

	"github.com/chewxy/math32"
)

func quatNear(a, b Quat) bool {
	// q and -q are the same rotation
	return abs(math32.Abs(a.Dot(b))-1) < 1e-4
}

func TestQ4(t *testing.T) {
	q := Q4([4]float32{0, 0, 0, 1})
	if q != QuatIdentity() {
		t.Errorf("Q4(identity) = %v, want %v", q, QuatIdentity())
	}
	if got := (Quat{X: 1, Y: 2, Z: 3, W: 4}).Array(); got != [4]float32{1, 2, 3, 4} {
		t.Errorf("Array() = %v, want [1 2 3 4]", got)
	}
}

func TestQuatNormalize(t *testing.T) {
	n := Quat{X: 1, Y: 2, Z: 3, W: 4}.Normalize()
	if l := math32.Sqrt(n.Dot(n)); abs(l-1) > 1e-4 {
		t.Errorf("|Normalize()| = %v, want 1", l)
	}
	if got := (Quat{}).Normalize(); got != QuatIdentity() {
		t.Errorf("zero Normalize() = %v, want identity", got)
	}
}

func TestQuatSlerp(t *testing.T) {
	a := QuatIdentity()
	b := QuatFromAxisAngle(Vec3{Y: 1}, math32.Pi/2)

	tests := []struct {
		t    float32
		want Quat
	}{
		{0, a},
		{1, b},
		{0.5, QuatFromAxisAngle(Vec3{Y: 1}, math32.Pi/4)},
	}
	for _, tt := range tests {
		if got := a.Slerp(b, tt.t); !quatNear(got, tt.want) {
			t.Errorf("Slerp(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}

	// The negated end is the same rotation; the shorter arc is taken.
	if got := a.Slerp(b.scale(-1), 0.5); !quatNear(got, tests[2].want) {
		t.Errorf("Slerp(-b, 0.5) = %v, want %v", got, tests[2].want)
	}
}

func TestQuatRotate(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{Y: 1}, math32.Pi/2)
	got := q.Rotate(Vec3{X: 1})
	if abs(got.X) > 1e-5 || abs(got.Y) > 1e-5 || abs(got.Z+1) > 1e-5 {
		t.Errorf("Rotate(x) = %v, want (0,0,-1)", got)
	}
	if m := q.ToMat4().TransformPoint(Vec3{X: 1}); abs(m.Z+1) > 1e-5 {
		t.Errorf("ToMat4().TransformPoint(x) = %v, want (0,0,-1)", m)
	}
}
