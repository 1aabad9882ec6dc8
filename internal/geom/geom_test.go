package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-4

func TestTransformVerticesIdentity(t *testing.T) {
	verts := []float32{0, 0, 10, 0, 10, 5, -3.5, 7.25}
	got := TransformVertices(verts, IdentityTransform())
	require.Len(t, got, len(verts))
	for i := range verts {
		assert.InDelta(t, verts[i], got[i], eps)
	}
}

func TestTransformVerticesRotation(t *testing.T) {
	tr := IdentityTransform()
	tr.Rotation = 90

	got := TransformVertices([]float32{1, 0}, tr)
	assert.InDelta(t, 0, got[0], eps)
	assert.InDelta(t, 1, got[1], eps)

	// Angles outside [0, 360) reduce through the trig functions.
	tr.Rotation = 450
	got = TransformVertices([]float32{1, 0}, tr)
	assert.InDelta(t, 0, got[0], eps)
	assert.InDelta(t, 1, got[1], eps)

	tr.Rotation = -90
	got = TransformVertices([]float32{1, 0}, tr)
	assert.InDelta(t, 0, got[0], eps)
	assert.InDelta(t, -1, got[1], eps)
}

func TestTransformVerticesOriginScaleTranslate(t *testing.T) {
	tr := Transform{X: 100, Y: 50, ScaleX: 2, ScaleY: 3, Rotation: 180, OriginX: 1, OriginY: 1}

	// (2,1) - origin = (1,0) -> scaled (2,0) -> rotated (-2,0) -> +origin (-1,1) -> +pos (99,51)
	x, y := TransformPoint(2, 1, tr)
	assert.InDelta(t, 99, x, eps)
	assert.InDelta(t, 51, y, eps)

	got := TransformVertices([]float32{2, 1, 1, 1}, tr)
	assert.InDelta(t, 99, got[0], eps)
	assert.InDelta(t, 51, got[1], eps)
	assert.InDelta(t, 101, got[2], eps)
	assert.InDelta(t, 51, got[3], eps)
}

func TestTransformVerticesZeroScaleAndOddInput(t *testing.T) {
	tr := Transform{X: 5, Y: 6}
	got := TransformVertices([]float32{3, 4, 7, 8, 9}, tr)
	require.Len(t, got, 4)
	assert.Equal(t, []float32{5, 6, 5, 6}, got)

	assert.Empty(t, TransformVertices(nil, tr))
}

func TestMatrixMatchesTransformVertices(t *testing.T) {
	transforms := []Transform{
		IdentityTransform(),
		{X: 10, Y: -4, ScaleX: 1.5, ScaleY: 0.5, Rotation: 33, OriginX: 2, OriginY: 3},
		{X: -7, Y: 2, ScaleX: -1, ScaleY: 2, Rotation: 270, OriginX: -1, OriginY: 0},
	}
	verts := []float32{0, 0, 4, 0, 4, 3, 1, 6}

	for _, tr := range transforms {
		want := TransformVertices(verts, tr)
		got := FromTransform(tr).TransformVertices(verts)
		for i := range want {
			assert.InDelta(t, want[i], got[i], eps)
		}
	}
}

func TestMatrixInvert(t *testing.T) {
	m := FromTransform(Transform{X: 3, Y: 4, ScaleX: 2, ScaleY: 2, Rotation: 45})
	assert.True(t, m.Multiply(m.Invert()).IsIdentity())

	singular := FromTransform(Transform{ScaleX: 0, ScaleY: 1})
	assert.Equal(t, Identity(), singular.Invert())
}

func TestAABBOverlaps(t *testing.T) {
	unit := AABB{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}

	tests := []struct {
		name string
		b    AABB
		want bool
	}{
		{"intersecting", AABB{0.5, 0.5, 2, 2}, true},
		{"contained", AABB{0.25, 0.25, 0.75, 0.75}, true},
		{"touching edge", AABB{1, 0, 2, 1}, true},
		{"touching corner", AABB{1, 1, 2, 2}, true},
		{"degenerate point on edge", AABB{1, 0.5, 1, 0.5}, true},
		{"separated x", AABB{1.1, 0, 2.1, 1}, false},
		{"separated y", AABB{0, -2, 1, -0.01}, false},
		{"empty", EmptyAABB, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, unit.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(unit))
		})
	}
}

func TestVertexBounds(t *testing.T) {
	box := VertexBounds([]float32{0, 0, 2, 1}, nil, []float32{-1, 5, 3})
	assert.Equal(t, AABB{MinX: -1, MinY: 0, MaxX: 2, MaxY: 5}, box)

	empty := VertexBounds()
	assert.True(t, empty.Empty())
	assert.False(t, empty.Overlaps(empty))

	single := VertexBounds([]float32{4, 4})
	assert.False(t, single.Empty())
	assert.True(t, single.Overlaps(AABB{MinX: 4, MinY: 4, MaxX: 5, MaxY: 5}))
}

func TestRectBoundsContainsTransformedCorners(t *testing.T) {
	const w, h = 40, 25
	local := []float32{0, 0, w, 0, w, h, 0, h, w / 2, h / 2}

	for rot := float32(-720); rot <= 720; rot += 37 {
		for _, s := range [][2]float32{{1, 1}, {2, 0.5}, {-1, 3}, {0, 1}} {
			tr := Transform{X: 13, Y: -8, ScaleX: s[0], ScaleY: s[1], Rotation: rot, OriginX: w / 2, OriginY: h / 2}
			box := RectBounds(tr, w, h)
			world := TransformVertices(local, tr)
			for i := 0; i < len(world); i += 2 {
				grown := AABB{MinX: box.MinX - eps, MinY: box.MinY - eps, MaxX: box.MaxX + eps, MaxY: box.MaxY + eps}
				assert.True(t, grown.Contains(world[i], world[i+1]),
					"rotation %v scale %v: point (%v, %v) outside %+v", rot, s, world[i], world[i+1], box)
			}
		}
	}
}

func TestComputeBoundingBox(t *testing.T) {
	tr := Transform{X: 10, Y: 20, ScaleX: 2, ScaleY: 2}

	// The host passes the scaled size; the local rect is 5x10.
	r, err := ComputeBoundingBox(tr, 10, 20)
	require.NoError(t, err)
	assert.InDelta(t, 10, r.X, eps)
	assert.InDelta(t, 20, r.Y, eps)
	assert.InDelta(t, 10, r.Width, eps)
	assert.InDelta(t, 20, r.Height, eps)

	tr.Rotation = 90
	r, err = ComputeBoundingBox(tr, 10, 20)
	require.NoError(t, err)
	assert.InDelta(t, -10, r.X, eps)
	assert.InDelta(t, 20, r.Y, eps)
	assert.InDelta(t, 20, r.Width, eps)
	assert.InDelta(t, 10, r.Height, eps)

	box := r.AABB()
	assert.InDelta(t, 10, box.MaxX, eps)
	assert.InDelta(t, 30, box.MaxY, eps)
}

func TestComputeBoundingBoxZeroScale(t *testing.T) {
	_, err := ComputeBoundingBox(Transform{ScaleX: 0, ScaleY: 1}, 10, 10)
	require.ErrorIs(t, err, ErrZeroScale)

	_, err = ComputeBoundingBox(Transform{ScaleX: 1, ScaleY: 0}, 10, 10)
	require.ErrorIs(t, err, ErrZeroScale)
}
