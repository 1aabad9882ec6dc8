package session

import (
	"context"
	"sync"

	"github.com/Danveyd/NewCatroid/internal/collision"
	"github.com/Danveyd/NewCatroid/internal/geom"
	"github.com/Danveyd/NewCatroid/internal/scene"
)

// SceneState holds the authoritative scene of a room.
type SceneState struct {
	mu        sync.RWMutex
	scene     *scene.Scene
	serverSeq int64
	dirty     bool
}

func NewSceneState(s *scene.Scene) *SceneState {
	return &SceneState{scene: s}
}

// ApplyOperation applies an operation and returns the new server sequence
// and scene revision.
func (st *SceneState) ApplyOperation(op scene.Operation) (int64, uint64, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := st.scene.Apply(op); err != nil {
		return 0, 0, err
	}

	st.serverSeq++
	st.dirty = true
	return st.serverSeq, st.scene.Revision, nil
}

// Snapshot returns a copy of the scene and the current sequence.
func (st *SceneState) Snapshot() (*scene.Scene, int64) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.scene.Clone(), st.serverSeq
}

// TakeDirty returns a copy of the scene if it changed since the last call.
func (st *SceneState) TakeDirty() (*scene.Scene, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.dirty {
		return nil, false
	}
	st.dirty = false
	return st.scene.Clone(), true
}

// Dirty reports whether the scene has unsaved changes.
func (st *SceneState) Dirty() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.dirty
}

// View runs fn on the live scene under the read lock. fn must not keep or
// modify the scene.
func (st *SceneState) View(fn func(s *scene.Scene)) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	fn(st.scene)
}

// MarkDirty flags the scene for saving again, after a failed save.
func (st *SceneState) MarkDirty() {
	st.mu.Lock()
	st.dirty = true
	st.mu.Unlock()
}

// Sense runs the collision, edge and finger sensors over a snapshot so
// operations are not blocked while the engine works.
func (st *SceneState) Sense(ctx context.Context, e *collision.Engine, touches []geom.Point2, radius float32) (*CollisionPayload, error) {
	snap, _ := st.Snapshot()

	pairs, err := snap.Collisions(ctx, e)
	if err != nil {
		return nil, err
	}

	out := &CollisionPayload{
		Revision: snap.Revision,
		Pairs:    pairs,
		Edge:     []string{},
	}
	if out.Pairs == nil {
		out.Pairs = []scene.SpritePair{}
	}

	for _, b := range snap.Evaluate() {
		if hit, _ := snap.TouchesEdge(b.SpriteID); hit {
			out.Edge = append(out.Edge, b.SpriteID)
		}
		if len(touches) > 0 {
			if hit, _ := snap.TouchesFinger(b.SpriteID, touches, radius); hit {
				out.Touched = append(out.Touched, b.SpriteID)
			}
		}
	}
	return out, nil
}
