package math

import "github.com/chewxy/math32"

// Quat is a rotation quaternion; W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns the no-op rotation.
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// Q4 builds a quaternion from glTF xyzw order.
func Q4(a [4]float32) Quat {
	return Quat{X: a[0], Y: a[1], Z: a[2], W: a[3]}
}

// Array returns the components in xyzw order.
func (q Quat) Array() [4]float32 {
	return [4]float32{q.X, q.Y, q.Z, q.W}
}

// QuatFromAxisAngle rotates angle radians about a unit axis.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	s, c := math32.Sincos(angle / 2)
	v := axis.Scale(s)
	return Quat{X: v.X, Y: v.Y, Z: v.Z, W: c}
}

func (q Quat) scale(s float32) Quat {
	return Quat{X: q.X * s, Y: q.Y * s, Z: q.Z * s, W: q.W * s}
}

func (q Quat) add(o Quat) Quat {
	return Quat{X: q.X + o.X, Y: q.Y + o.Y, Z: q.Z + o.Z, W: q.W + o.W}
}

// Normalize returns q at unit length. Near-zero quaternions become identity.
func (q Quat) Normalize() Quat {
	l := math32.Sqrt(q.Dot(q))
	if l < 1e-4 {
		return QuatIdentity()
	}
	return q.scale(1 / l)
}

// Dot returns the 4D dot product.
func (q Quat) Dot(o Quat) float32 {
	return q.X*o.X + q.Y*o.Y + q.Z*o.Z + q.W*o.W
}

// Slerp interpolates along the shorter arc from q to o, t in [0, 1].
func (q Quat) Slerp(o Quat, t float32) Quat {
	cos := q.Dot(o)
	if cos < 0 {
		o, cos = o.scale(-1), -cos
	}
	// Nearly parallel: the sine below vanishes, so blend linearly.
	if cos > 0.9995 {
		return q.scale(1 - t).add(o.scale(t)).Normalize()
	}
	angle := math32.Acos(cos)
	sin := math32.Sin(angle)
	a := math32.Sin((1-t)*angle) / sin
	b := math32.Sin(t*angle) / sin
	return q.scale(a).add(o.scale(b))
}

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{X: q.X, Y: q.Y, Z: q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// ToMat4 returns the rotation matrix; the columns are the rotated axes.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()
	x := q.Rotate(Vec3{X: 1})
	y := q.Rotate(Vec3{Y: 1})
	z := q.Rotate(Vec3{Z: 1})
	return Mat4{
		x.X, x.Y, x.Z, 0,
		y.X, y.Y, y.Z, 0,
		z.X, z.Y, z.Z, 0,
		0, 0, 0, 1,
	}
}
