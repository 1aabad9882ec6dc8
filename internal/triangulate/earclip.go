// Package triangulate decomposes simple polygons into triangles by ear
// clipping. Polygons are flat [x0, y0, x1, y1, ...] rings without holes;
// results are index triples into the polygon's own vertex order, so
// triangle k is vertices idx[3k], idx[3k+1], idx[3k+2].
//
// Self-intersecting rings are not detected. They still produce len-2
// triangles, but the triangles do not describe the ring's area.
package triangulate

// Func is the signature of a triangulator. The collision engine accepts
// any Func so callers can wrap Triangulate with instrumentation.
type Func func(polygon []float32) []uint32

// Triangulate clips ears off the ring until a single triangle is left.
// Fewer than three vertices yield nil. A ring of n vertices always yields
// exactly n-2 triangles, in either winding.
func Triangulate(polygon []float32) []uint32 {
	n := len(polygon) / 2
	if n < 3 {
		return nil
	}

	ring := make([]uint32, n)
	if signedArea(polygon, n) >= 0 {
		for i := range ring {
			ring[i] = uint32(i)
		}
	} else {
		for i := range ring {
			ring[i] = uint32(n - 1 - i)
		}
	}

	out := make([]uint32, 0, (n-2)*3)
	start := 0
	for len(ring) > 3 {
		m := len(ring)
		ear := -1
		for k := 0; k < m; k++ {
			i := (start + k) % m
			if isEar(polygon, ring, i) {
				ear = i
				break
			}
		}
		if ear < 0 {
			ear = fallbackEar(polygon, ring)
		}

		prev, cur, next := neighbors(ring, ear)
		out = append(out, prev, cur, next)
		ring = append(ring[:ear], ring[ear+1:]...)
		start = ear % len(ring)
	}

	return append(out, ring[0], ring[1], ring[2])
}

// Triangles expands index triples into explicit vertex triples.
func Triangles(polygon []float32, indices []uint32) [][6]float32 {
	tris := make([][6]float32, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		tris = append(tris, [6]float32{
			polygon[a*2], polygon[a*2+1],
			polygon[b*2], polygon[b*2+1],
			polygon[c*2], polygon[c*2+1],
		})
	}
	return tris
}

func neighbors(ring []uint32, i int) (uint32, uint32, uint32) {
	m := len(ring)
	return ring[(i+m-1)%m], ring[i], ring[(i+1)%m]
}

// isEar reports whether ring[i] is a strictly convex vertex whose triangle
// with its neighbours holds no other ring vertex, boundary included.
func isEar(polygon []float32, ring []uint32, i int) bool {
	a, b, c := neighbors(ring, i)
	ax, ay := point(polygon, a)
	bx, by := point(polygon, b)
	cx, cy := point(polygon, c)

	if cross(ax, ay, bx, by, cx, cy) <= 0 {
		return false
	}

	for _, v := range ring {
		if v == a || v == b || v == c {
			continue
		}
		px, py := point(polygon, v)
		if (px == ax && py == ay) || (px == bx && py == by) || (px == cx && py == cy) {
			continue
		}
		if inTriangle(ax, ay, bx, by, cx, cy, px, py) {
			return false
		}
	}
	return true
}

// fallbackEar picks the most convex vertex when no clean ear exists, which
// only happens for degenerate (collinear or self-touching) rings.
func fallbackEar(polygon []float32, ring []uint32) int {
	best, bestCross := 0, 0.0
	for i := range ring {
		a, b, c := neighbors(ring, i)
		ax, ay := point(polygon, a)
		bx, by := point(polygon, b)
		cx, cy := point(polygon, c)
		if cr := cross(ax, ay, bx, by, cx, cy); cr > bestCross {
			best, bestCross = i, cr
		}
	}
	return best
}

func point(polygon []float32, i uint32) (float64, float64) {
	return float64(polygon[i*2]), float64(polygon[i*2+1])
}

// cross is the z component of (b-a) x (c-b); positive for a left turn.
func cross(ax, ay, bx, by, cx, cy float64) float64 {
	return (bx-ax)*(cy-by) - (by-ay)*(cx-bx)
}

func inTriangle(ax, ay, bx, by, cx, cy, px, py float64) bool {
	return (cx-px)*(ay-py)-(ax-px)*(cy-py) >= 0 &&
		(ax-px)*(by-py)-(bx-px)*(ay-py) >= 0 &&
		(bx-px)*(cy-py)-(cx-px)*(by-py) >= 0
}

// signedArea is twice the shoelace area; positive for counter-clockwise
// rings in a y-up frame.
func signedArea(polygon []float32, n int) float64 {
	var sum float64
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := point(polygon, uint32(i))
		xj, yj := point(polygon, uint32(j))
		sum += xj*yi - xi*yj
	}
	return sum
}
