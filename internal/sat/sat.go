// Package sat tests convex polygons for overlap with the separating axis
// theorem. Inputs must be convex; a concave polygon silently produces
// wrong answers, so triangulate it first.
package sat

import "github.com/chewxy/math32"

// Overlap reports whether the convex polygons a and b overlap. countA and
// countB are the number of floats (not points) of each polygon to use.
// Every edge normal of a and then of b is tried as a separating axis and
// the first gap returns false. Touching projections count as overlap.
func Overlap(a []float32, countA int, b []float32, countB int) bool {
	countA = clampCount(a, countA)
	countB = clampCount(b, countB)
	if countA < 6 || countB < 6 {
		return false
	}

	a, b = a[:countA], b[:countB]
	return !separatedByEdgesOf(a, a, b) && !separatedByEdgesOf(b, a, b)
}

// Triangles is Overlap for two triangles.
func Triangles(a, b *[6]float32) bool {
	return Overlap(a[:], 6, b[:], 6)
}

func clampCount(poly []float32, count int) int {
	if count > len(poly) {
		count = len(poly)
	}
	return count &^ 1
}

// separatedByEdgesOf reports whether some edge normal of edges splits a from b.
func separatedByEdgesOf(edges, a, b []float32) bool {
	n := len(edges)
	for i := 0; i < n; i += 2 {
		j := (i + 2) % n
		axisX := -(edges[j+1] - edges[i+1])
		axisY := edges[j] - edges[i]

		minA, maxA := project(a, axisX, axisY)
		minB, maxB := project(b, axisX, axisY)
		if maxA < minB || maxB < minA {
			return true
		}
	}
	return false
}

func project(poly []float32, axisX, axisY float32) (float32, float32) {
	lo, hi := math32.Inf(1), math32.Inf(-1)
	for i := 0; i < len(poly); i += 2 {
		dot := poly[i]*axisX + poly[i+1]*axisY
		lo = min(lo, dot)
		hi = max(hi, dot)
	}
	return lo, hi
}
