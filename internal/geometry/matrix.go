package geometry

import "math"

// Matrix represents a 2D affine transformation matrix
//
// Layout is (a b c d e f): x' = a*x + c*y + e, y' = b*x + d*y + f.
type Matrix [6]float64

// Identity returns an identity matrix
func Identity() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Transform applies the matrix transformation to a point
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Multiply returns the transform that applies m first and then other.
// A child's world transform is child.Multiply(parentWorld).
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		m[0]*other[0] + m[1]*other[2],
		m[0]*other[1] + m[1]*other[3],
		m[2]*other[0] + m[3]*other[2],
		m[2]*other[1] + m[3]*other[3],
		m[4]*other[0] + m[5]*other[2] + other[4],
		m[4]*other[1] + m[5]*other[3] + other[5],
	}
}

// Translate creates a translation matrix
func Translate(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// Scale creates a scaling matrix
func Scale(sx, sy float64) Matrix {
	return Matrix{sx, 0, 0, sy, 0, 0}
}

// Rotate creates a rotation matrix (angle in radians). With y pointing
// down a positive angle turns clockwise on the page.
func Rotate(angle float64) Matrix {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Matrix{cos, sin, -sin, cos, 0, 0}
}

// RotateAbout rotates by angle radians around pivot.
func RotateAbout(angle float64, pivot Point) Matrix {
	return Translate(-pivot.X, -pivot.Y).Multiply(Rotate(angle)).Multiply(Translate(pivot.X, pivot.Y))
}

// IsIdentity returns true if the matrix is an identity matrix
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// Near reports whether every coefficient differs by at most eps.
func (m Matrix) Near(o Matrix, eps float64) bool {
	for i := range m {
		if math.Abs(m[i]-o[i]) > eps {
			return false
		}
	}
	return true
}

// Decompose splits m into a rotation and the residual transform that is
// left once that rotation is undone around pivot:
//
//	m == residual.Multiply(RotateAbout(theta, pivot))
//
// The angle is read from the off-diagonal term b together with a, so a
// matrix carrying skew decomposes approximately. The returned angle is in
// degrees, normalized to (-180, 180].
func Decompose(m Matrix, pivot Point) (degrees float64, residual Matrix) {
	theta := math.Atan2(m[1], m[0])
	if math.Abs(theta) < 1e-12 {
		return 0, m
	}
	residual = m.Multiply(RotateAbout(-theta, pivot))
	degrees = theta * 180 / math.Pi
	if degrees <= -180 {
		degrees += 360
	}
	return degrees, residual
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
