package geom

import (
	"errors"

	"github.com/chewxy/math32"
)

// ErrZeroScale is returned when a bounding box is requested for a sprite
// whose scale is zero on an axis; its unscaled size cannot be recovered.
var ErrZeroScale = errors.New("geom: zero scale")

// AABB is an axis-aligned bounding box with explicit extents. Bounds are
// inclusive: boxes that share an edge or a corner overlap.
type AABB struct {
	MinX float32 `json:"minX"`
	MinY float32 `json:"minY"`
	MaxX float32 `json:"maxX"`
	MaxY float32 `json:"maxY"`
}

// EmptyAABB is the box of a vertex-less shape. Its extents are the
// identity values for min/max reduction and it overlaps nothing.
var EmptyAABB = AABB{
	MinX: math32.Inf(1),
	MinY: math32.Inf(1),
	MaxX: math32.Inf(-1),
	MaxY: math32.Inf(-1),
}

// Empty reports whether the box holds no point at all.
func (a AABB) Empty() bool {
	return a.MinX > a.MaxX || a.MinY > a.MaxY
}

// Overlaps is the broad-phase test. Touching boxes overlap; empty boxes
// never do.
func (a AABB) Overlaps(b AABB) bool {
	if a.Empty() || b.Empty() {
		return false
	}
	if a.MaxX < b.MinX || b.MaxX < a.MinX {
		return false
	}
	if a.MaxY < b.MinY || b.MaxY < a.MinY {
		return false
	}
	return true
}

// Contains checks if a point lies inside the box, edges included.
func (a AABB) Contains(x, y float32) bool {
	return x >= a.MinX && x <= a.MaxX && y >= a.MinY && y <= a.MaxY
}

// Add grows the box to include a point.
func (a AABB) Add(x, y float32) AABB {
	return AABB{
		MinX: min(a.MinX, x),
		MinY: min(a.MinY, y),
		MaxX: max(a.MaxX, x),
		MaxY: max(a.MaxY, y),
	}
}

// Union returns the smallest box containing both boxes.
func (a AABB) Union(b AABB) AABB {
	if a.Empty() {
		return b
	}
	if b.Empty() {
		return a
	}
	return AABB{
		MinX: min(a.MinX, b.MinX),
		MinY: min(a.MinY, b.MinY),
		MaxX: max(a.MaxX, b.MaxX),
		MaxY: max(a.MaxY, b.MaxY),
	}
}

// Rect converts the box to position + size form.
func (a AABB) Rect() Rect {
	if a.Empty() {
		return Rect{}
	}
	return Rect{X: a.MinX, Y: a.MinY, Width: a.MaxX - a.MinX, Height: a.MaxY - a.MinY}
}

// VertexBounds reduces every vertex of every polygon to a single box.
// Polygons without vertices contribute nothing.
func VertexBounds(polygons ...[]float32) AABB {
	box := EmptyAABB
	for _, poly := range polygons {
		n := len(poly) &^ 1
		for i := 0; i < n; i += 2 {
			box = box.Add(poly[i], poly[i+1])
		}
	}
	return box
}

// RectBounds transforms the four corners of the local rectangle
// (0,0)-(width,height) and returns their bounding box.
func RectBounds(t Transform, width, height float32) AABB {
	sin, cos := sinCos(t.Rotation)
	corners := [4][2]float32{
		{0, 0},
		{width, 0},
		{width, height},
		{0, height},
	}

	box := EmptyAABB
	for _, c := range corners {
		box = box.Add(transformPoint(c[0], c[1], t, sin, cos))
	}
	return box
}

// ComputeBoundingBox returns the world-space box of a sprite whose on-screen
// (already scaled) size is width x height. The local rectangle is recovered
// by dividing by the scale, so a zero scale fails with ErrZeroScale.
func ComputeBoundingBox(t Transform, width, height float32) (Rect, error) {
	if t.ScaleX == 0 || t.ScaleY == 0 {
		return Rect{}, ErrZeroScale
	}
	return RectBounds(t, width/t.ScaleX, height/t.ScaleY).Rect(), nil
}

// Rect is a box in position + size form, the layout hosts exchange.
type Rect struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// AABB converts the rect to explicit extents.
func (r Rect) AABB() AABB {
	return AABB{MinX: r.X, MinY: r.Y, MaxX: r.X + r.Width, MaxY: r.Y + r.Height}
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}
