package geom

import "github.com/chewxy/math32"

// Matrix2D represents a 2D affine transformation matrix.
// Layout: [a, b, c, d, e, f] representing:
// | a  c  e |
// | b  d  f |
// | 0  0  1 |
type Matrix2D [6]float32

// Identity returns the identity matrix.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// FromTransform creates the matrix of a sprite transform.
// This composes: Translate(x+ox, y+oy) * Rotate(r) * Scale(sx, sy) * Translate(-ox, -oy)
func FromTransform(t Transform) Matrix2D {
	sin, cos := sinCos(t.Rotation)

	return Matrix2D{
		cos * t.ScaleX,
		sin * t.ScaleX,
		-sin * t.ScaleY,
		cos * t.ScaleY,
		t.X + t.OriginX - cos*t.ScaleX*t.OriginX + sin*t.ScaleY*t.OriginY,
		t.Y + t.OriginY - sin*t.ScaleX*t.OriginX - cos*t.ScaleY*t.OriginY,
	}
}

// Multiply multiplies this matrix by another: result = m * other
// This applies 'other' first, then 'm'.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

// TransformPoint applies the matrix to a point.
func (m Matrix2D) TransformPoint(x, y float32) (float32, float32) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// TransformVertices applies the matrix to a flat vertex list.
func (m Matrix2D) TransformVertices(vertices []float32) []float32 {
	n := len(vertices) &^ 1
	out := make([]float32, n)
	for i := 0; i < n; i += 2 {
		out[i], out[i+1] = m.TransformPoint(vertices[i], vertices[i+1])
	}
	return out
}

// Determinant returns the determinant of the matrix.
func (m Matrix2D) Determinant() float32 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invert returns the inverse of the matrix, or Identity if not invertible.
func (m Matrix2D) Invert() Matrix2D {
	det := m.Determinant()
	if det == 0 {
		return Identity()
	}

	invDet := 1 / det
	return Matrix2D{
		m[3] * invDet,
		-m[1] * invDet,
		-m[2] * invDet,
		m[0] * invDet,
		(m[2]*m[5] - m[3]*m[4]) * invDet,
		(m[1]*m[4] - m[0]*m[5]) * invDet,
	}
}

// IsIdentity checks if this is the identity matrix (within epsilon).
func (m Matrix2D) IsIdentity() bool {
	const eps = 1e-6
	return math32.Abs(m[0]-1) < eps &&
		math32.Abs(m[1]) < eps &&
		math32.Abs(m[2]) < eps &&
		math32.Abs(m[3]-1) < eps &&
		math32.Abs(m[4]) < eps &&
		math32.Abs(m[5]) < eps
}
