package sat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func square(x0, y0, x1, y1 float32) []float32 {
	return []float32{x0, y0, x1, y0, x1, y1, x0, y1}
}

func TestOverlap(t *testing.T) {
	unit := square(0, 0, 1, 1)

	tests := []struct {
		name string
		b    []float32
		want bool
	}{
		{"same", square(0, 0, 1, 1), true},
		{"intersecting", square(0.5, 0.5, 1.5, 1.5), true},
		{"contained", square(0.25, 0.25, 0.75, 0.75), true},
		{"containing", square(-5, -5, 5, 5), true},
		{"edge to edge", square(1, 0, 2, 1), true},
		{"corner to corner", square(1, 1, 2, 2), true},
		{"gap", square(1.1, 0, 2.1, 1), false},
		{"gap above", square(0, 1.5, 1, 2.5), false},
		{"clockwise winding", []float32{1, 0, 1, 1, 2, 1, 2, 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlap(unit, len(unit), tt.b, len(tt.b)))
			assert.Equal(t, tt.want, Overlap(tt.b, len(tt.b), unit, len(unit)))
		})
	}
}

func TestOverlapDiagonalSeparation(t *testing.T) {
	// The boxes of these triangles overlap; only the hypotenuse normal
	// separates them.
	a := [6]float32{0, 0, 2, 0, 0, 2}
	b := [6]float32{2, 2, 1.2, 2, 2, 1.2}
	assert.False(t, Triangles(&a, &b))

	b = [6]float32{1, 1, 2, 1, 1, 2}
	assert.True(t, Triangles(&a, &b), "touching along the hypotenuse")

	b = [6]float32{0.9, 0.9, 2, 0.9, 0.9, 2}
	assert.True(t, Triangles(&a, &b))
}

func TestOverlapUndersized(t *testing.T) {
	unit := square(0, 0, 1, 1)
	assert.False(t, Overlap(unit, len(unit), []float32{0.5, 0.5}, 2))
	assert.False(t, Overlap(nil, 0, unit, len(unit)))
	assert.False(t, Overlap(unit, 4, unit, len(unit)))
}

func TestOverlapCountClamped(t *testing.T) {
	unit := square(0, 0, 1, 1)
	other := square(0.5, 0.5, 2, 2)
	assert.True(t, Overlap(unit, 100, other, 9))
}

func BenchmarkTriangles(b *testing.B) {
	x := [6]float32{0, 0, 2, 0, 0, 2}
	y := [6]float32{1, 1, 2, 1, 1, 2}
	for b.Loop() {
		Triangles(&x, &y)
	}
}
