package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Danveyd/NewCatroid/internal/collision"
	"github.com/Danveyd/NewCatroid/internal/geom"
	"github.com/Danveyd/NewCatroid/internal/scene"
	"github.com/Danveyd/NewCatroid/internal/store"
	"github.com/Danveyd/NewCatroid/internal/typeid"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid request")
	ErrConflict  = errors.New("scene changed concurrently")
)

// SceneStore is the persistence the scene service needs.
type SceneStore interface {
	CreateScene(ctx context.Context, rec store.SceneRecord) (store.SceneRecord, error)
	GetScene(ctx context.Context, id string) (store.SceneRecord, error)
	ListScenes(ctx context.Context, ownerID string) ([]store.SceneRecord, error)
	UpdateScene(ctx context.Context, rec store.SceneRecord, base uint64) (store.SceneRecord, error)
	DeleteScene(ctx context.Context, id string) error
}

type Service struct {
	scenes SceneStore
	engine *collision.Engine
	logger *slog.Logger
	live   func(sceneID string) bool
}

func NewService(scenes SceneStore, engine *collision.Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{scenes: scenes, engine: engine, logger: logger}
}

// GuardLive makes writes fail with ErrConflict while live reports the scene
// open in a live session. Call it before serving requests.
func (s *Service) GuardLive(live func(sceneID string) bool) {
	s.live = live
}

// Scene is a stored scene as the API returns it.
type Scene struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"ownerId"`
	Scene     *scene.Scene `json:"scene"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// SceneSummary is a list entry.
type SceneSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Sprites   int       `json:"sprites"`
	Revision  uint64    `json:"revision"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Create stores a new scene for the owner. A nil scene becomes an empty
// stage, or the sample stage when sample is set.
func (s *Service) Create(ctx context.Context, ownerID, name string, sc *scene.Scene, sample bool) (*Scene, error) {
	switch {
	case sc != nil:
		sc = sc.Clone()
	case sample:
		sc = scene.NewSampleScene()
	default:
		sc = scene.NewEmptyScene(name, 480, 360)
	}
	if name != "" {
		sc.Name = name
	}
	sc.ID = typeid.NewSceneID()
	if sc.Sprites == nil {
		sc.Sprites = []scene.Sprite{}
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	sc.Touch()

	rec, err := s.scenes.CreateScene(ctx, store.SceneRecord{ID: sc.ID, OwnerID: ownerID, Scene: sc})
	if err != nil {
		return nil, fmt.Errorf("create scene: %w", err)
	}
	return toScene(rec), nil
}

func (s *Service) Get(ctx context.Context, sceneID, userID string) (*Scene, error) {
	rec, err := s.load(ctx, sceneID, userID)
	if err != nil {
		return nil, err
	}
	return toScene(rec), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]SceneSummary, error) {
	recs, err := s.scenes.ListScenes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}

	out := make([]SceneSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, SceneSummary{
			ID:        rec.ID,
			Name:      rec.Scene.Name,
			Sprites:   len(rec.Scene.Sprites),
			Revision:  rec.Scene.Revision,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return out, nil
}

// Replace swaps the stored scene content. The revision continues from the
// stored one so cached triangulations of the old content are never reused.
func (s *Service) Replace(ctx context.Context, sceneID, userID string, sc *scene.Scene) (*Scene, error) {
	rec, err := s.loadForWrite(ctx, sceneID, userID)
	if err != nil {
		return nil, err
	}

	sc = sc.Clone()
	sc.ID = sceneID
	if sc.Sprites == nil {
		sc.Sprites = []scene.Sprite{}
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	sc.Revision = rec.Scene.Revision
	sc.Touch()

	return s.save(ctx, rec, sc)
}

// Apply runs scene operations in order and stores the result. Nothing is
// stored if any operation fails.
func (s *Service) Apply(ctx context.Context, sceneID, userID string, ops []scene.Operation) (*Scene, error) {
	rec, err := s.loadForWrite(ctx, sceneID, userID)
	if err != nil {
		return nil, err
	}

	sc := rec.Scene.Clone()
	for i, op := range ops {
		if err := sc.Apply(op); err != nil {
			return nil, fmt.Errorf("%w: operation %d: %v", ErrInvalid, i, err)
		}
	}
	return s.save(ctx, rec, sc)
}

// Save stores a scene that was edited elsewhere (a live session) and was
// loaded at revision base. It fails with ErrConflict if the stored scene
// has moved on since.
func (s *Service) Save(ctx context.Context, sc *scene.Scene, base uint64) error {
	rec, err := s.scenes.GetScene(ctx, sc.ID)
	if err != nil {
		return mapStoreError(err)
	}
	rec.Scene = sc.Clone()
	if _, err := s.scenes.UpdateScene(ctx, rec, base); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// Load returns a stored scene without an ownership check.
func (s *Service) Load(ctx context.Context, sceneID string) (*scene.Scene, error) {
	rec, err := s.scenes.GetScene(ctx, sceneID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return rec.Scene, nil
}

// save replaces the scene of a freshly loaded record, provided nobody
// stored a newer revision in between.
func (s *Service) save(ctx context.Context, rec store.SceneRecord, sc *scene.Scene) (*Scene, error) {
	base := rec.Scene.Revision
	rec.Scene = sc
	updated, err := s.scenes.UpdateScene(ctx, rec, base)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return toScene(updated), nil
}

func (s *Service) Delete(ctx context.Context, sceneID, userID string) error {
	if _, err := s.loadForWrite(ctx, sceneID, userID); err != nil {
		return err
	}
	if err := s.scenes.DeleteScene(ctx, sceneID); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// Collisions lists the colliding sprite pairs of a stored scene.
func (s *Service) Collisions(ctx context.Context, sceneID, userID string) ([]scene.SpritePair, error) {
	rec, err := s.load(ctx, sceneID, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pairs, err := rec.Scene.Collisions(ctx, s.engine)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("scene collisions",
		"scene", sceneID,
		"sprites", len(rec.Scene.Sprites),
		"pairs", len(pairs),
		"duration", time.Since(start),
	)
	return pairs, nil
}

// HitTest returns the frontmost sprite at a stage point, or "".
func (s *Service) HitTest(ctx context.Context, sceneID, userID string, x, y float32) (string, error) {
	rec, err := s.load(ctx, sceneID, userID)
	if err != nil {
		return "", err
	}
	return rec.Scene.HitTest(x, y), nil
}

// SpriteSensors is what a sprite's stage sensors report.
type SpriteSensors struct {
	SpriteID      string    `json:"spriteId"`
	Bounds        geom.Rect `json:"bounds"`
	TouchesEdge   bool      `json:"touchesEdge"`
	TouchesFinger bool      `json:"touchesFinger"`
	Colliding     []string  `json:"colliding"`
}

// Sensors evaluates the edge, finger and collision sensors of one sprite.
func (s *Service) Sensors(ctx context.Context, sceneID, userID, spriteID string, touches []geom.Point2, radius float32) (*SpriteSensors, error) {
	rec, err := s.load(ctx, sceneID, userID)
	if err != nil {
		return nil, err
	}
	sc := rec.Scene

	bounds, err := sc.SpriteBounds(spriteID)
	if err != nil {
		return nil, mapSceneError(err)
	}
	edge, err := sc.TouchesEdge(spriteID)
	if err != nil {
		return nil, mapSceneError(err)
	}
	finger, err := sc.TouchesFinger(spriteID, touches, radius)
	if err != nil {
		return nil, mapSceneError(err)
	}

	out := &SpriteSensors{
		SpriteID:      spriteID,
		Bounds:        bounds,
		TouchesEdge:   edge,
		TouchesFinger: finger,
		Colliding:     []string{},
	}
	for _, other := range sc.Sprites {
		hit, err := sc.CollidesWith(s.engine, spriteID, other.ID)
		if err != nil {
			return nil, mapSceneError(err)
		}
		if hit {
			out.Colliding = append(out.Colliding, other.ID)
		}
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, sceneID, userID string) (store.SceneRecord, error) {
	rec, err := s.scenes.GetScene(ctx, sceneID)
	if err != nil {
		return store.SceneRecord{}, mapStoreError(err)
	}
	if rec.OwnerID != userID {
		return store.SceneRecord{}, ErrForbidden
	}
	return rec, nil
}

func (s *Service) loadForWrite(ctx context.Context, sceneID, userID string) (store.SceneRecord, error) {
	rec, err := s.load(ctx, sceneID, userID)
	if err != nil {
		return store.SceneRecord{}, err
	}
	if s.live != nil && s.live(sceneID) {
		return store.SceneRecord{}, fmt.Errorf("%w: scene is open in a live session", ErrConflict)
	}
	return rec, nil
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrConflict
	}
	return err
}

func mapSceneError(err error) error {
	switch {
	case errors.Is(err, scene.ErrSpriteNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, geom.ErrZeroScale):
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return err
}

func toScene(rec store.SceneRecord) *Scene {
	return &Scene{
		ID:        rec.ID,
		OwnerID:   rec.OwnerID,
		Scene:     rec.Scene,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
