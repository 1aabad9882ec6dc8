package scene

import (
	"encoding/json"
	"fmt"

	"github.com/Danveyd/NewCatroid/internal/typeid"
)

const (
	OpSpriteTransform  = "sprite.transform"
	OpSpriteVisibility = "sprite.visibility"
	OpSpriteCostume    = "sprite.costume"
	OpSpriteCreate     = "sprite.create"
	OpSpriteDelete     = "sprite.delete"
)

// Operation is a single scene mutation.
type Operation struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	SpriteID string `json:"spriteId,omitempty"`

	// For sprite.transform: a partial transform, e.g. {"x": 10, "rotation": 90}
	Transform json.RawMessage `json:"transform,omitempty"`

	// For sprite.visibility
	Visible     *bool `json:"visible,omitempty"`
	LookVisible *bool `json:"lookVisible,omitempty"`

	// For sprite.costume
	Costume [][]float32 `json:"costume,omitempty"`
	Width   *float32    `json:"width,omitempty"`
	Height  *float32    `json:"height,omitempty"`

	// For sprite.create
	Sprite *Sprite `json:"sprite,omitempty"`
}

// Apply mutates the scene and bumps its revision. Every sprite whose world
// geometry changed is stamped with the new revision.
func (s *Scene) Apply(op Operation) error {
	switch op.Type {
	case OpSpriteTransform:
		return s.applyTransform(op)
	case OpSpriteVisibility:
		return s.applyVisibility(op)
	case OpSpriteCostume:
		return s.applyCostume(op)
	case OpSpriteCreate:
		return s.applyCreate(op)
	case OpSpriteDelete:
		return s.applyDelete(op)
	default:
		return fmt.Errorf("%w: unknown operation type: %s", ErrInvalidOperation, op.Type)
	}
}

func (s *Scene) stamp(sp *Sprite) {
	sp.Version = s.Revision
}

func (s *Scene) applyTransform(op Operation) error {
	sp, err := s.Sprite(op.SpriteID)
	if err != nil {
		return err
	}

	var changes map[string]float32
	if err := json.Unmarshal(op.Transform, &changes); err != nil {
		return fmt.Errorf("%w: invalid transform: %v", ErrInvalidOperation, err)
	}

	t := &sp.Transform
	if v, ok := changes["x"]; ok {
		t.X = v
	}
	if v, ok := changes["y"]; ok {
		t.Y = v
	}
	if v, ok := changes["scaleX"]; ok {
		t.ScaleX = v
	}
	if v, ok := changes["scaleY"]; ok {
		t.ScaleY = v
	}
	if v, ok := changes["rotation"]; ok {
		t.Rotation = v
	}
	if v, ok := changes["originX"]; ok {
		t.OriginX = v
	}
	if v, ok := changes["originY"]; ok {
		t.OriginY = v
	}

	s.Revision++
	s.stamp(sp)
	return nil
}

func (s *Scene) applyVisibility(op Operation) error {
	sp, err := s.Sprite(op.SpriteID)
	if err != nil {
		return err
	}
	if op.Visible == nil && op.LookVisible == nil {
		return fmt.Errorf("%w: visibility operation without a value", ErrInvalidOperation)
	}

	if op.Visible != nil {
		sp.Visible = *op.Visible
	}
	if op.LookVisible != nil {
		sp.LookVisible = *op.LookVisible
	}

	s.Revision++
	return nil
}

func (s *Scene) applyCostume(op Operation) error {
	sp, err := s.Sprite(op.SpriteID)
	if err != nil {
		return err
	}
	if err := validateCostume(op.Costume); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	sp.Costume = op.Costume
	if op.Width != nil {
		sp.Width = *op.Width
	}
	if op.Height != nil {
		sp.Height = *op.Height
	}

	s.Revision++
	s.stamp(sp)
	return nil
}

func (s *Scene) applyCreate(op Operation) error {
	if op.Sprite == nil {
		return fmt.Errorf("%w: create without a sprite", ErrInvalidOperation)
	}

	sp := op.Sprite.clone()
	if sp.ID == "" {
		sp.ID = typeid.NewSpriteID()
	}
	if s.indexOf(sp.ID) >= 0 {
		return fmt.Errorf("%w: sprite %s already exists", ErrInvalidOperation, sp.ID)
	}
	if sp.Parent != nil && s.indexOf(*sp.Parent) < 0 {
		return fmt.Errorf("%w: parent %s", ErrSpriteNotFound, *sp.Parent)
	}
	if err := validateCostume(sp.Costume); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	s.Revision++
	s.stamp(&sp)
	s.Sprites = append(s.Sprites, sp)
	return nil
}

// applyDelete removes a sprite. Its children move up to its parent and keep
// their local transforms.
func (s *Scene) applyDelete(op Operation) error {
	i := s.indexOf(op.SpriteID)
	if i < 0 {
		return fmtNotFound(op.SpriteID)
	}
	removed := s.Sprites[i]

	s.Revision++
	s.Sprites = append(s.Sprites[:i], s.Sprites[i+1:]...)
	for j := range s.Sprites {
		child := &s.Sprites[j]
		if child.Parent != nil && *child.Parent == removed.ID {
			child.Parent = removed.Parent
			s.stamp(child)
		}
	}
	return nil
}
