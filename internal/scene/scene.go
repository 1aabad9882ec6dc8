package scene

import (
	"context"
	"fmt"

	"github.com/Danveyd/NewCatroid/internal/collision"
	"github.com/Danveyd/NewCatroid/internal/geom"
	"github.com/Danveyd/NewCatroid/internal/sensing"
)

// SpritePair is a colliding pair of sprites, A behind B.
type SpritePair struct {
	A string `json:"a"`
	B string `json:"b"`
}

func fmtNotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrSpriteNotFound, id)
}

// Collisions returns every colliding pair of visible sprites.
func (s *Scene) Collisions(ctx context.Context, e *collision.Engine) ([]SpritePair, error) {
	bodies := s.Evaluate()
	pairs, err := e.CollideBodies(ctx, s.collisionBodies(bodies))
	if err != nil {
		return nil, fmt.Errorf("collide sprites: %w", err)
	}

	out := make([]SpritePair, len(pairs))
	for i, p := range pairs {
		out[i] = SpritePair{A: bodies[p.I].SpriteID, B: bodies[p.J].SpriteID}
	}
	return out, nil
}

// CollidesWith reports whether two sprites touch. Hidden sprites never
// collide, and neither does a sprite with itself.
func (s *Scene) CollidesWith(e *collision.Engine, idA, idB string) (bool, error) {
	a, visA, err := s.body(idA)
	if err != nil {
		return false, err
	}
	b, visB, err := s.body(idB)
	if err != nil {
		return false, err
	}

	if idA == idB || !visA || !visB {
		return false, nil
	}
	if !a.Bounds.Overlaps(b.Bounds) {
		return false, nil
	}
	return e.CollidesBodies(
		s.collisionBody(a),
		s.collisionBody(b),
	), nil
}

// HitTest returns the id of the frontmost visible sprite containing the
// point, or "" when the point hits nothing.
func (s *Scene) HitTest(x, y float32) string {
	bodies := s.Evaluate()
	for i := len(bodies) - 1; i >= 0; i-- {
		b := bodies[i]
		if !b.Bounds.Contains(x, y) {
			continue
		}
		if containsOdd(b.Shape, x, y) {
			return b.SpriteID
		}
	}
	return ""
}

func containsOdd(shape collision.Shape, x, y float32) bool {
	inside := false
	for _, poly := range shape {
		if sensing.ContainsPoint(poly, x, y) {
			inside = !inside
		}
	}
	return inside
}

// TouchesEdge reports whether a visible sprite crosses the stage border.
func (s *Scene) TouchesEdge(id string) (bool, error) {
	b, visible, err := s.body(id)
	if err != nil || !visible {
		return false, err
	}
	return sensing.TouchesEdge(b.Shape, s.Stage()), nil
}

// TouchesFinger reports whether any touch point is on a visible sprite.
// A radius <= 0 uses sensing.DefaultTouchRadius.
func (s *Scene) TouchesFinger(id string, touches []geom.Point2, radius float32) (bool, error) {
	b, visible, err := s.body(id)
	if err != nil || !visible {
		return false, err
	}
	if radius <= 0 {
		radius = sensing.DefaultTouchRadius
	}
	return sensing.TouchesFinger(b.Shape, touches, radius), nil
}

// SpriteBounds returns the world bounding rectangle of a sprite's look.
// Only root sprites have a plain transform; parented sprites fall back to
// the bounds of their world polygons.
func (s *Scene) SpriteBounds(id string) (geom.Rect, error) {
	sp, err := s.Sprite(id)
	if err != nil {
		return geom.Rect{}, err
	}
	if sp.Parent == nil {
		t := sp.Transform
		return geom.ComputeBoundingBox(t, sp.Width*t.ScaleX, sp.Height*t.ScaleY)
	}

	b, _, err := s.body(id)
	if err != nil {
		return geom.Rect{}, err
	}
	return b.Bounds.Rect(), nil
}
