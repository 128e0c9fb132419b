package math

import "github.com/chewxy/math32"

// Mat4 is a column-major 4x4 matrix, laid out as OpenGL expects:
// element (row r, column c) is at index c*4+r.
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{0: 1, 5: 1, 10: 1, 15: 1}
}

// Perspective is a right-handed projection onto [-1, 1] clip depth.
// fovY is in radians.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovY/2)
	d := near - far
	return Mat4{
		0:  f / aspect,
		5:  f,
		10: (far + near) / d,
		11: -1,
		14: 2 * far * near / d,
	}
}

// Ortho is the orthographic counterpart of Perspective over the given box.
func Ortho(left, right, bottom, top, near, far float32) Mat4 {
	w, h, d := right-left, top-bottom, far-near
	return Mat4{
		0:  2 / w,
		5:  2 / h,
		10: -2 / d,
		12: -(right + left) / w,
		13: -(top + bottom) / h,
		14: -(far + near) / d,
		15: 1,
	}
}

// LookAt is the view matrix of an eye at eye facing center.
func LookAt(eye, center, up Vec3) Mat4 {
	fwd := center.Sub(eye).Normalize()
	side := fwd.Cross(up).Normalize()
	upv := side.Cross(fwd)
	return Mat4{
		side.X, upv.X, -fwd.X, 0,
		side.Y, upv.Y, -fwd.Y, 0,
		side.Z, upv.Z, -fwd.Z, 0,
		-side.Dot(eye), -upv.Dot(eye), fwd.Dot(eye), 1,
	}
}

// Translate moves by (x, y, z).
func Translate(x, y, z float32) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scale scales each axis.
func Scale(x, y, z float32) Mat4 {
	return Mat4{0: x, 5: y, 10: z, 15: 1}
}

// RotateY turns angle radians about +Y.
func RotateY(angle float32) Mat4 {
	return QuatFromAxisAngle(Vec3{Y: 1}, angle).ToMat4()
}

// Compose builds translation * rotation * scale, the glTF node order.
func Compose(t Vec3, r Quat, s Vec3) Mat4 {
	m := r.ToMat4()
	for c, k := range [3]float32{s.X, s.Y, s.Z} {
		for row := 0; row < 3; row++ {
			m[c*4+row] *= k
		}
	}
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

// Mul returns m * o, so o is applied first.
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+r] * o[c*4+k]
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// TransformPoint applies m to p with w = 1, dividing by the resulting w
// when it is not 1.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	var out [4]float32
	for r := 0; r < 4; r++ {
		out[r] = m[r]*p.X + m[4+r]*p.Y + m[8+r]*p.Z + m[12+r]
	}
	if w := out[3]; w != 0 && w != 1 {
		return Vec3{X: out[0] / w, Y: out[1] / w, Z: out[2] / w}
	}
	return Vec3{X: out[0], Y: out[1], Z: out[2]}
}

// Ptr returns the address of the first element for gl.UniformMatrix4fv.
func (m *Mat4) Ptr() *float32 {
	return &m[0]
}
