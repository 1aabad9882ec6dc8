// Package geom holds the 2D primitives shared by the collision engine:
// sprite transforms, affine matrices and axis-aligned bounding boxes.
//
// Coordinates are float32 and polygons are flat interleaved lists
// [x0, y0, x1, y1, ...]. Angles are degrees at every exported boundary.
package geom

import "github.com/chewxy/math32"

// Point2 is a single 2D coordinate.
type Point2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Transform places local sprite geometry in the world. Vertices are moved
// by -Origin, scaled, rotated counter-clockwise by Rotation degrees,
// moved back by +Origin and finally translated by (X, Y).
type Transform struct {
	X        float32 `json:"x" yaml:"x"`
	Y        float32 `json:"y" yaml:"y"`
	ScaleX   float32 `json:"scaleX" yaml:"scaleX"`
	ScaleY   float32 `json:"scaleY" yaml:"scaleY"`
	Rotation float32 `json:"rotation" yaml:"rotation"`
	OriginX  float32 `json:"originX" yaml:"originX"`
	OriginY  float32 `json:"originY" yaml:"originY"`
}

// IdentityTransform returns a transform that leaves vertices unchanged.
func IdentityTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// TransformPoint maps a single local point to world space.
func TransformPoint(x, y float32, t Transform) (float32, float32) {
	sin, cos := sinCos(t.Rotation)
	return transformPoint(x, y, t, sin, cos)
}

// TransformVertices maps a flat local vertex list to world space. The
// result has the same length as the input; a dangling odd coordinate is
// dropped.
func TransformVertices(vertices []float32, t Transform) []float32 {
	n := len(vertices) &^ 1
	out := make([]float32, n)

	sin, cos := sinCos(t.Rotation)
	for i := 0; i < n; i += 2 {
		out[i], out[i+1] = transformPoint(vertices[i], vertices[i+1], t, sin, cos)
	}
	return out
}

func transformPoint(x, y float32, t Transform, sin, cos float32) (float32, float32) {
	vx := (x - t.OriginX) * t.ScaleX
	vy := (y - t.OriginY) * t.ScaleY

	rx := vx*cos - vy*sin
	ry := vx*sin + vy*cos

	return rx + t.OriginX + t.X, ry + t.OriginY + t.Y
}

// sinCos returns the sine and cosine of an angle given in degrees.
func sinCos(degrees float32) (float32, float32) {
	rad := degrees * (math32.Pi / 180)
	return math32.Sin(rad), math32.Cos(rad)
}
