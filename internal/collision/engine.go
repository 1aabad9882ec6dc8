// Package collision decides which sprite shapes touch. A shape is a list
// of simple polygons in world space; concave polygons are triangulated
// and every triangle pair is tested with the separating axis theorem.
//
// An Engine holds configuration only. Queries never keep state between
// calls unless a Cache is attached, and a Cache is keyed by polygon
// content, so results are always a function of the inputs.
package collision

import (
	"context"
	"log/slog"

	"github.com/Danveyd/NewCatroid/internal/geom"
	"github.com/Danveyd/NewCatroid/internal/sat"
	"github.com/Danveyd/NewCatroid/internal/triangulate"
)

// Shape is a sprite outline made of flat [x0, y0, x1, y1, ...] polygons.
type Shape [][]float32

// Pair is an unordered colliding pair of shape indices with I < J.
type Pair struct {
	I int `json:"i"`
	J int `json:"j"`
}

// Engine runs pair and all-pairs collision queries.
type Engine struct {
	triangulate triangulate.Func
	logger      *slog.Logger
	workers     int
	cache       *Cache
}

// Option configures an Engine.
type Option func(*Engine)

// WithTriangulator replaces the triangulator, e.g. to count calls.
func WithTriangulator(f triangulate.Func) Option {
	return func(e *Engine) {
		if f != nil {
			e.triangulate = f
		}
	}
}

// WithLogger sets the logger used for query diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWorkers bounds the goroutines used by the context-aware all-pairs
// queries. Values below 2 keep the narrow phase on the calling goroutine.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = max(n, 1)
	}
}

// WithCache attaches a triangulation cache for identified bodies.
func WithCache(c *Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// New creates an engine. Without options it triangulates with
// triangulate.Triangulate, logs nothing and runs single-threaded.
func New(opts ...Option) *Engine {
	e := &Engine{
		triangulate: triangulate.Triangulate,
		logger:      slog.New(slog.DiscardHandler),
		workers:     1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

// Collides reports whether two shapes touch using a default engine.
func Collides(a, b Shape) bool {
	return defaultEngine.Collides(a, b)
}

// CollidePairs returns every colliding pair using a default engine.
func CollidePairs(shapes []Shape) []Pair {
	return defaultEngine.CollidePairs(shapes)
}

// Collides reports whether any triangle of a overlaps any triangle of b.
// The search stops at the first overlapping triangle pair. Polygons with
// fewer than three points contribute nothing, so an empty shape never
// collides.
func (e *Engine) Collides(a, b Shape) bool {
	return e.narrowPhase(Body{Shape: a}, Body{Shape: b})
}

// CollidesBodies is Collides for bodies, reusing cached triangulations of
// identified bodies when a cache is attached.
func (e *Engine) CollidesBodies(a, b Body) bool {
	return e.narrowPhase(a, b)
}

// CollidePairs tests every pair i < j. Pairs whose vertex bounds do not
// overlap are skipped without triangulating either shape. Pairs come back
// in the order the i < j loop discovers them.
func (e *Engine) CollidePairs(shapes []Shape) []Pair {
	pairs, _ := e.collideBodies(context.Background(), toBodies(shapes), 1)
	return pairs
}

// CollidePairsContext is CollidePairs with the narrow phase spread over the
// engine's workers. The result order matches CollidePairs.
func (e *Engine) CollidePairsContext(ctx context.Context, shapes []Shape) ([]Pair, error) {
	return e.collideBodies(ctx, toBodies(shapes), e.workers)
}

// CollideBodies is CollidePairsContext for bodies.
func (e *Engine) CollideBodies(ctx context.Context, bodies []Body) ([]Pair, error) {
	return e.collideBodies(ctx, bodies, e.workers)
}

// FlattenPairs encodes pairs as [i0, j0, i1, j1, ...].
func FlattenPairs(pairs []Pair) []int32 {
	out := make([]int32, 0, len(pairs)*2)
	for _, p := range pairs {
		out = append(out, int32(p.I), int32(p.J))
	}
	return out
}

// Bounds returns the vertex bounds of a shape.
func Bounds(s Shape) geom.AABB {
	return geom.VertexBounds(s...)
}

// BroadPhase returns the index pairs i < j whose boxes overlap, in loop order.
func BroadPhase(boxes []geom.AABB) []Pair {
	var candidates []Pair
	for i := 0; i < len(boxes); i++ {
		for j := i + 1; j < len(boxes); j++ {
			if boxes[i].Overlaps(boxes[j]) {
				candidates = append(candidates, Pair{I: i, J: j})
			}
		}
	}
	return candidates
}

func toBodies(shapes []Shape) []Body {
	bodies := make([]Body, len(shapes))
	for i, s := range shapes {
		bodies[i] = Body{Shape: s}
	}
	return bodies
}

func (e *Engine) narrowPhase(a, b Body) bool {
	if len(a.Shape) == 0 || len(b.Shape) == 0 {
		return false
	}

	trisB := make([][][6]float32, len(b.Shape))
	doneB := make([]bool, len(b.Shape))

	for pa := range a.Shape {
		trisA := e.triangles(a, pa)
		if len(trisA) == 0 {
			continue
		}

		for pb := range b.Shape {
			if !doneB[pb] {
				trisB[pb] = e.triangles(b, pb)
				doneB[pb] = true
			}
			if len(trisB[pb]) == 0 {
				continue
			}

			for ta := range trisA {
				for tb := range trisB[pb] {
					if sat.Triangles(&trisA[ta], &trisB[pb][tb]) {
						return true
					}
				}
			}
		}
	}
	return false
}

// triangles returns the triangles of polygon i of a body.
func (e *Engine) triangles(b Body, i int) [][6]float32 {
	poly := b.Shape[i]
	cached := e.cache != nil && b.ID != "" && len(poly) >= 6
	if cached {
		if tris, ok := e.cache.get(poly); ok {
			return tris
		}
	}

	tris := triangulate.Triangles(poly, e.triangulate(poly))

	if cached {
		e.cache.put(poly, tris)
	}
	return tris
}
