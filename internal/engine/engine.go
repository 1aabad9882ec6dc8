// Package engine is the host-facing collision engine: the stateless
// geometry operations plus one loaded scene, all exchanged as JSON so the
// wasm binding stays a thin shim.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Danveyd/NewCatroid/internal/collision"
	"github.com/Danveyd/NewCatroid/internal/geom"
	"github.com/Danveyd/NewCatroid/internal/scene"
)

var ErrNoScene = errors.New("no scene loaded")

const cacheSize = 1024

// Engine owns the loaded scene and the collision engine that queries it.
type Engine struct {
	scene    *scene.Scene
	cache    *collision.Cache
	collider *collision.Engine
}

// NewEngine creates an engine with no scene loaded.
func NewEngine() *Engine {
	e := &Engine{}
	e.resetCache()
	return e
}

// resetCache drops the previous scene's triangulations.
func (e *Engine) resetCache() {
	e.cache = collision.NewCache(cacheSize)
	e.collider = collision.New(collision.WithCache(e.cache))
}

// --- Stateless operations ---

// TransformVertices maps local vertices to world space.
func (e *Engine) TransformVertices(vertices []float32, transformJSON string) ([]float32, error) {
	t, err := parseTransform(transformJSON)
	if err != nil {
		return nil, err
	}
	return geom.TransformVertices(vertices, t), nil
}

// ComputeBoundingBox returns the world box of a sprite of the given scaled
// size as {"x","y","width","height"} JSON.
func (e *Engine) ComputeBoundingBox(transformJSON string, width, height float32) (string, error) {
	t, err := parseTransform(transformJSON)
	if err != nil {
		return "", err
	}
	r, err := geom.ComputeBoundingBox(t, width, height)
	if err != nil {
		return "", err
	}
	return toJSON(r), nil
}

// Collides reports whether two shapes, given as [[x0,y0,...], ...], touch.
func (e *Engine) Collides(shapeAJSON, shapeBJSON string) (bool, error) {
	var a, b collision.Shape
	if err := json.Unmarshal([]byte(shapeAJSON), &a); err != nil {
		return false, fmt.Errorf("invalid shape A: %w", err)
	}
	if err := json.Unmarshal([]byte(shapeBJSON), &b); err != nil {
		return false, fmt.Errorf("invalid shape B: %w", err)
	}
	return e.collider.Collides(a, b), nil
}

// CollidePairs returns the colliding index pairs of a shape list as a flat
// [i0, j0, i1, j1, ...] list.
func (e *Engine) CollidePairs(shapesJSON string) ([]int32, error) {
	var shapes []collision.Shape
	if err := json.Unmarshal([]byte(shapesJSON), &shapes); err != nil {
		return nil, fmt.Errorf("invalid shapes: %w", err)
	}
	return collision.FlattenPairs(e.collider.CollidePairs(shapes)), nil
}

// --- Scene commands ---

// LoadScene replaces the loaded scene. Revisions in the input are only a
// starting point: every sprite is stamped past the highest one.
func (e *Engine) LoadScene(sceneJSON string) error {
	var s scene.Scene
	if err := json.Unmarshal([]byte(sceneJSON), &s); err != nil {
		return fmt.Errorf("invalid scene: %w", err)
	}
	if s.Sprites == nil {
		s.Sprites = []scene.Sprite{}
	}
	if err := s.Validate(); err != nil {
		return err
	}
	s.Touch()

	e.scene = &s
	e.resetCache()
	return nil
}

// LoadSampleScene loads the built-in demo stage.
func (e *Engine) LoadSampleScene() {
	e.scene = scene.NewSampleScene()
	e.resetCache()
}

// ApplyOperation applies a scene operation and returns the new revision.
func (e *Engine) ApplyOperation(opJSON string) (uint64, error) {
	if e.scene == nil {
		return 0, ErrNoScene
	}
	var op scene.Operation
	if err := json.Unmarshal([]byte(opJSON), &op); err != nil {
		return 0, fmt.Errorf("invalid operation: %w", err)
	}
	if err := e.scene.Apply(op); err != nil {
		return 0, err
	}
	return e.scene.Revision, nil
}

// --- Queries ---

// FindCollisions returns the colliding sprite pairs as JSON.
func (e *Engine) FindCollisions() (string, error) {
	if e.scene == nil {
		return "", ErrNoScene
	}
	pairs, err := e.scene.Collisions(context.Background(), e.collider)
	if err != nil {
		return "", err
	}
	if pairs == nil {
		pairs = []scene.SpritePair{}
	}
	return toJSON(pairs), nil
}

// CollidesWith reports whether two sprites of the loaded scene touch.
func (e *Engine) CollidesWith(idA, idB string) (bool, error) {
	if e.scene == nil {
		return false, ErrNoScene
	}
	return e.scene.CollidesWith(e.collider, idA, idB)
}

// HitTest returns the frontmost sprite at a stage point, or "".
func (e *Engine) HitTest(x, y float32) string {
	if e.scene == nil {
		return ""
	}
	return e.scene.HitTest(x, y)
}

// TouchesEdge reports whether a sprite crosses the stage border.
func (e *Engine) TouchesEdge(id string) (bool, error) {
	if e.scene == nil {
		return false, ErrNoScene
	}
	return e.scene.TouchesEdge(id)
}

// TouchesFinger reports whether any of the touch points, given as
// [{"x","y"}, ...], is on the sprite.
func (e *Engine) TouchesFinger(id, touchesJSON string, radius float32) (bool, error) {
	if e.scene == nil {
		return false, ErrNoScene
	}
	var touches []geom.Point2
	if err := json.Unmarshal([]byte(touchesJSON), &touches); err != nil {
		return false, fmt.Errorf("invalid touches: %w", err)
	}
	return e.scene.TouchesFinger(id, touches, radius)
}

// GetScene returns the loaded scene as JSON.
func (e *Engine) GetScene() string {
	if e.scene == nil {
		return "{}"
	}
	return toJSON(e.scene)
}

// GetCacheStats returns the triangulation cache counters as JSON.
func (e *Engine) GetCacheStats() string {
	return toJSON(e.cache.Stats())
}

func parseTransform(transformJSON string) (geom.Transform, error) {
	t := geom.IdentityTransform()
	if transformJSON == "" {
		return t, nil
	}
	if err := json.Unmarshal([]byte(transformJSON), &t); err != nil {
		return geom.Transform{}, fmt.Errorf("invalid transform: %w", err)
	}
	return t, nil
}

func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
