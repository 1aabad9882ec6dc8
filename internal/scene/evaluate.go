package scene

import (
	"github.com/Danveyd/NewCatroid/internal/collision"
	"github.com/Danveyd/NewCatroid/internal/geom"
)

// Body is a visible sprite resolved to world space.
type Body struct {
	SpriteID string
	Shape    collision.Shape
	Bounds   geom.AABB
	// Version is the newest revision that moved the sprite or an ancestor.
	Version uint64
}

// resolved holds the world placement of one sprite.
type resolved struct {
	matrix  geom.Matrix2D
	version uint64
	visible bool
	rooted  bool
}

type evaluator struct {
	scene *Scene
	index map[string]int
	memo  []*resolved
	busy  []bool
}

func newEvaluator(s *Scene) *evaluator {
	index := make(map[string]int, len(s.Sprites))
	for i, sp := range s.Sprites {
		index[sp.ID] = i
	}
	return &evaluator{
		scene: s,
		index: index,
		memo:  make([]*resolved, len(s.Sprites)),
		busy:  make([]bool, len(s.Sprites)),
	}
}

// resolve walks the parent chain of sprite i. A sprite is visible only when
// it and all of its ancestors are. A parent cycle is cut where it closes.
func (ev *evaluator) resolve(i int) *resolved {
	if r := ev.memo[i]; r != nil {
		return r
	}

	sp := &ev.scene.Sprites[i]
	r := &resolved{
		matrix:  geom.FromTransform(sp.Transform),
		version: sp.Version,
		visible: sp.Visible && sp.LookVisible,
		rooted:  true,
	}

	if sp.Parent != nil {
		if pi, ok := ev.index[*sp.Parent]; ok && !ev.busy[i] {
			ev.busy[i] = true
			parent := ev.resolve(pi)
			ev.busy[i] = false

			r.matrix = parent.matrix.Multiply(r.matrix)
			r.version = max(r.version, parent.version)
			r.visible = r.visible && parent.visible
			r.rooted = false
		}
	}

	ev.memo[i] = r
	return r
}

func (ev *evaluator) body(i int) Body {
	sp := &ev.scene.Sprites[i]
	r := ev.resolve(i)

	shape := make(collision.Shape, len(sp.Costume))
	for p, poly := range sp.Costume {
		if r.rooted {
			shape[p] = geom.TransformVertices(poly, sp.Transform)
		} else {
			shape[p] = r.matrix.TransformVertices(poly)
		}
	}

	return Body{
		SpriteID: sp.ID,
		Shape:    shape,
		Bounds:   geom.VertexBounds(shape...),
		Version:  r.version,
	}
}

// Evaluate returns the world-space bodies of every visible sprite, back to
// front.
func (s *Scene) Evaluate() []Body {
	ev := newEvaluator(s)
	bodies := make([]Body, 0, len(s.Sprites))
	for i := range s.Sprites {
		if !ev.resolve(i).visible {
			continue
		}
		bodies = append(bodies, ev.body(i))
	}
	return bodies
}

// body evaluates a single sprite. visible reports its effective
// visibility.
func (s *Scene) body(id string) (b Body, visible bool, err error) {
	i := s.indexOf(id)
	if i < 0 {
		return Body{}, false, fmtNotFound(id)
	}
	ev := newEvaluator(s)
	return ev.body(i), ev.resolve(i).visible, nil
}

// WorldShape returns the world-space polygons of a sprite regardless of
// visibility.
func (s *Scene) WorldShape(id string) (collision.Shape, error) {
	b, _, err := s.body(id)
	if err != nil {
		return nil, err
	}
	return b.Shape, nil
}

func (s *Scene) collisionBody(b Body) collision.Body {
	return collision.Body{ID: s.ID + "/" + b.SpriteID, Shape: b.Shape}
}

func (s *Scene) collisionBodies(bodies []Body) []collision.Body {
	out := make([]collision.Body, len(bodies))
	for i, b := range bodies {
		out[i] = s.collisionBody(b)
	}
	return out
}
