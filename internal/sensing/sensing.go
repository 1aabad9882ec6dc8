// Package sensing answers the sprite sensor questions that are not
// sprite-vs-sprite: does a sprite cross the stage edge, and is it under a
// finger.
package sensing

import (
	"github.com/Danveyd/NewCatroid/internal/collision"
	"github.com/Danveyd/NewCatroid/internal/geom"
)

// DefaultTouchRadius is the finger radius in stage units.
const DefaultTouchRadius float32 = 20

// TouchesEdge reports whether any polygon edge of the shape crosses the
// boundary of the screen box: one end inside and one outside, or both ends
// outside with the segment passing through the box.
func TouchesEdge(shape collision.Shape, screen geom.AABB) bool {
	if screen.Empty() {
		return false
	}

	for _, poly := range shape {
		n := len(poly) &^ 1
		if n < 4 {
			continue
		}

		for i := 0; i < n; i += 2 {
			j := (i + 2) % n
			x0, y0 := poly[i], poly[i+1]
			x1, y1 := poly[j], poly[j+1]

			in0 := screen.Contains(x0, y0)
			in1 := screen.Contains(x1, y1)
			if in0 != in1 {
				return true
			}
			if !in0 && !in1 && SegmentIntersectsBox(x0, y0, x1, y1, screen) {
				return true
			}
		}
	}
	return false
}

// TouchesFinger reports whether any touch point, taken as a circle of the
// given radius, touches the shape. A touch counts when the circle meets a
// polygon edge, or when its center lies inside an odd number of polygons.
func TouchesFinger(shape collision.Shape, touches []geom.Point2, radius float32) bool {
	r2 := radius * radius

	for _, touch := range touches {
		contained := 0
		for _, poly := range shape {
			n := len(poly) &^ 1
			if n < 4 {
				continue
			}
			if !circleOverlapsBox(touch.X, touch.Y, r2, geom.VertexBounds(poly)) {
				continue
			}

			for i := 0; i < n; i += 2 {
				j := (i + 2) % n
				if segmentNearCircle(poly[i], poly[i+1], poly[j], poly[j+1], touch.X, touch.Y, r2) {
					return true
				}
			}

			if ContainsPoint(poly, touch.X, touch.Y) {
				contained++
			}
		}
		if contained%2 == 1 {
			return true
		}
	}
	return false
}

// ContainsPoint is the even-odd point in polygon test.
func ContainsPoint(poly []float32, x, y float32) bool {
	n := len(poly) &^ 1
	if n < 6 {
		return false
	}

	inside := false
	for i, j := 0, n-2; i < n; j, i = i, i+2 {
		xi, yi := poly[i], poly[i+1]
		xj, yj := poly[j], poly[j+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// SegmentIntersectsBox clips the segment against the box (Liang-Barsky)
// and reports whether any part of it remains.
func SegmentIntersectsBox(x0, y0, x1, y1 float32, box geom.AABB) bool {
	dx, dy := x1-x0, y1-y0
	t0, t1 := float32(0), float32(1)

	clip := func(p, q float32) bool {
		if p == 0 {
			return q >= 0
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return false
			}
			t0 = max(t0, r)
		} else {
			if r < t0 {
				return false
			}
			t1 = min(t1, r)
		}
		return true
	}

	return clip(-dx, x0-box.MinX) &&
		clip(dx, box.MaxX-x0) &&
		clip(-dy, y0-box.MinY) &&
		clip(dy, box.MaxY-y0) &&
		t0 <= t1
}

func circleOverlapsBox(cx, cy, r2 float32, box geom.AABB) bool {
	if box.Empty() {
		return false
	}
	dx := cx - min(max(cx, box.MinX), box.MaxX)
	dy := cy - min(max(cy, box.MinY), box.MaxY)
	return dx*dx+dy*dy <= r2
}

func segmentNearCircle(x0, y0, x1, y1, cx, cy, r2 float32) bool {
	dx, dy := x1-x0, y1-y0
	l2 := dx*dx + dy*dy

	t := float32(0)
	if l2 > 0 {
		t = min(max(((cx-x0)*dx+(cy-y0)*dy)/l2, 0), 1)
	}
	px, py := x0+t*dx-cx, y0+t*dy-cy
	return px*px+py*py <= r2
}
