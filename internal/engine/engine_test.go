package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danveyd/NewCatroid/internal/collision"
	"github.com/Danveyd/NewCatroid/internal/scene"
)

const pairScene = `{
	"id": "scene_fixture",
	"name": "Fixture",
	"width": 480,
	"height": 360,
	"sprites": [
		{"id": "a", "name": "Left", "visible": true, "lookVisible": true, "width": 20, "height": 20,
		 "transform": {"x": 0, "y": 0, "scaleX": 1, "scaleY": 1, "originX": 10, "originY": 10},
		 "costume": [[0, 0, 20, 0, 20, 20, 0, 20]]},
		{"id": "b", "name": "Right", "visible": true, "lookVisible": true, "width": 20, "height": 20,
		 "transform": {"x": 20, "y": 0, "scaleX": 1, "scaleY": 1, "originX": 10, "originY": 10},
		 "costume": [[0, 0, 20, 0, 20, 20, 0, 20]]}
	]
}`

func TestTransformVertices(t *testing.T) {
	e := NewEngine()

	out, err := e.TransformVertices([]float32{0, 0, 10, 0}, `{"x": 5, "y": 7, "scaleX": 2, "scaleY": 2}`)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 7, 25, 7}, out)

	out, err = e.TransformVertices([]float32{1, 2}, "")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, out)

	_, err = e.TransformVertices([]float32{1, 2}, "{")
	assert.Error(t, err)
}

func TestComputeBoundingBox(t *testing.T) {
	e := NewEngine()

	box, err := e.ComputeBoundingBox(`{"x": 0, "y": 0, "scaleX": 1, "scaleY": 1}`, 10, 20)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x": 0, "y": 0, "width": 10, "height": 20}`, box)

	_, err = e.ComputeBoundingBox(`{"scaleX": 0, "scaleY": 1}`, 10, 20)
	assert.Error(t, err)
}

func TestStatelessCollision(t *testing.T) {
	e := NewEngine()

	hit, err := e.Collides(`[[0,0,10,0,10,10,0,10]]`, `[[10,0,20,0,20,10,10,10]]`)
	require.NoError(t, err)
	assert.True(t, hit, "touching squares collide")

	hit, err = e.Collides(`[[0,0,10,0,10,10,0,10]]`, `[[11,0,20,0,20,10,11,10]]`)
	require.NoError(t, err)
	assert.False(t, hit)

	_, err = e.Collides(`nope`, `[]`)
	assert.Error(t, err)

	flat, err := e.CollidePairs(`[[[0,0,10,0,10,10,0,10]], [[5,5,15,5,15,15,5,15]], [[100,100,110,100,110,110]]]`)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1}, flat)
}

func TestSceneCommandsRequireScene(t *testing.T) {
	e := NewEngine()

	_, err := e.FindCollisions()
	assert.ErrorIs(t, err, ErrNoScene)
	_, err = e.ApplyOperation(`{"type": "sprite.delete", "spriteId": "a"}`)
	assert.ErrorIs(t, err, ErrNoScene)
	_, err = e.TouchesEdge("a")
	assert.ErrorIs(t, err, ErrNoScene)
	assert.Equal(t, "", e.HitTest(0, 0))
	assert.Equal(t, "{}", e.GetScene())
}

func TestLoadSceneAndQuery(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.LoadScene(pairScene))

	pairs, err := e.FindCollisions()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"a": "a", "b": "b"}]`, pairs)

	hit, err := e.CollidesWith("a", "b")
	require.NoError(t, err)
	assert.True(t, hit)

	assert.Equal(t, "b", e.HitTest(25, 0))
	assert.Equal(t, "a", e.HitTest(5, 5))
	assert.Equal(t, "", e.HitTest(200, 0))

	edge, err := e.TouchesEdge("a")
	require.NoError(t, err)
	assert.False(t, edge)

	finger, err := e.TouchesFinger("a", `[{"x": 0, "y": 0}]`, 0)
	require.NoError(t, err)
	assert.True(t, finger)

	_, err = e.TouchesFinger("a", `{`, 0)
	assert.Error(t, err)
}

func TestLoadSceneRejectsInvalid(t *testing.T) {
	e := NewEngine()

	assert.Error(t, e.LoadScene(`{`))
	err := e.LoadScene(`{"id": "s", "width": 10, "height": 10, "sprites": [{"id": "a", "parent": "missing"}]}`)
	assert.ErrorIs(t, err, scene.ErrInvalidScene)
}

func TestApplyOperation(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.LoadScene(pairScene))

	rev, err := e.ApplyOperation(`{"type": "sprite.transform", "spriteId": "b", "transform": {"x": 100}}`)
	require.NoError(t, err)
	assert.Positive(t, rev)

	pairs, err := e.FindCollisions()
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, pairs)

	_, err = e.ApplyOperation(`{"type": "sprite.teleport", "spriteId": "b"}`)
	assert.ErrorIs(t, err, scene.ErrInvalidOperation)

	_, err = e.ApplyOperation(`{"type": "sprite.delete", "spriteId": "b"}`)
	require.NoError(t, err)

	var s scene.Scene
	require.NoError(t, json.Unmarshal([]byte(e.GetScene()), &s))
	assert.Len(t, s.Sprites, 1)
}

func TestCacheIsPerLoadedScene(t *testing.T) {
	e := NewEngine()
	e.LoadSampleScene()

	_, err := e.FindCollisions()
	require.NoError(t, err)
	_, err = e.FindCollisions()
	require.NoError(t, err)

	var stats collision.CacheStats
	require.NoError(t, json.Unmarshal([]byte(e.GetCacheStats()), &stats))
	assert.Positive(t, stats.Hits)
	assert.Positive(t, stats.Entries)

	e.LoadSampleScene()
	require.NoError(t, json.Unmarshal([]byte(e.GetCacheStats()), &stats))
	assert.Zero(t, stats.Entries, "loading a scene starts a fresh cache")
}

func TestLoadedVersionsDoNotMaskMoves(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.LoadScene(`{
		"id": "scene_stale",
		"width": 480,
		"height": 360,
		"revision": 0,
		"sprites": [
			{"id": "a", "visible": true, "lookVisible": true, "width": 10, "height": 10, "version": 3,
			 "transform": {"scaleX": 1, "scaleY": 1}, "costume": [[0, 0, 10, 0, 10, 10, 0, 10]]},
			{"id": "b", "visible": true, "lookVisible": true, "width": 10, "height": 10, "version": 3,
			 "transform": {"scaleX": 1, "scaleY": 1}, "costume": [[0, 0, 10, 0, 10, 10, 0, 10]]}
		]
	}`))

	var loaded scene.Scene
	require.NoError(t, json.Unmarshal([]byte(e.GetScene()), &loaded))
	assert.Equal(t, uint64(4), loaded.Revision)

	pairs, err := e.FindCollisions()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"a": "a", "b": "b"}]`, pairs)

	for _, x := range []string{"4", "6", "11"} {
		_, err := e.ApplyOperation(`{"type": "sprite.transform", "spriteId": "b", "transform": {"x": ` + x + `, "y": ` + x + `}}`)
		require.NoError(t, err)
	}

	pairs, err = e.FindCollisions()
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, pairs)
}
