// Package scene is the sprite stage model: sprites with costumes and
// transforms, evaluated into world-space shapes for the collision engine.
package scene

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Danveyd/NewCatroid/internal/geom"
	"github.com/Danveyd/NewCatroid/internal/typeid"
)

var (
	ErrSpriteNotFound   = errors.New("sprite not found")
	ErrInvalidScene     = errors.New("invalid scene")
	ErrInvalidOperation = errors.New("invalid operation")
)

// Scene is a stage centered on the origin. Sprites are ordered back to
// front.
type Scene struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Width    int      `json:"width" yaml:"width"`
	Height   int      `json:"height" yaml:"height"`
	Revision uint64   `json:"revision" yaml:"revision"`
	Sprites  []Sprite `json:"sprites" yaml:"sprites"`
}

// Sprite is one stage object. Costume polygons are in look-local
// coordinates, (0,0)-(Width,Height), before Transform is applied. A
// parented sprite's Transform is relative to its parent.
type Sprite struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Parent      *string        `json:"parent" yaml:"parent"`
	Transform   geom.Transform `json:"transform" yaml:"transform"`
	Visible     bool           `json:"visible" yaml:"visible"`
	LookVisible bool           `json:"lookVisible" yaml:"lookVisible"`
	Width       float32        `json:"width" yaml:"width"`
	Height      float32        `json:"height" yaml:"height"`
	Costume     [][]float32    `json:"costume" yaml:"costume"`
	Version     uint64         `json:"version" yaml:"version"`
}

// NewSprite creates a visible sprite with a fresh id, unit scale and its
// origin at the center of the look.
func NewSprite(name string, width, height float32, costume ...[]float32) Sprite {
	return Sprite{
		ID:   typeid.NewSpriteID(),
		Name: name,
		Transform: geom.Transform{
			ScaleX:  1,
			ScaleY:  1,
			OriginX: width / 2,
			OriginY: height / 2,
		},
		Visible:     true,
		LookVisible: true,
		Width:       width,
		Height:      height,
		Costume:     costume,
	}
}

// NewEmptyScene creates a scene without sprites.
func NewEmptyScene(name string, width, height int) *Scene {
	return &Scene{
		ID:       typeid.NewSceneID(),
		Name:     name,
		Width:    width,
		Height:   height,
		Revision: 1,
		Sprites:  []Sprite{},
	}
}

// Stage returns the visible stage area.
func (s *Scene) Stage() geom.AABB {
	hw, hh := float32(s.Width)/2, float32(s.Height)/2
	return geom.AABB{MinX: -hw, MinY: -hh, MaxX: hw, MaxY: hh}
}

// Sprite returns the sprite with the given id.
func (s *Scene) Sprite(id string) (*Sprite, error) {
	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSpriteNotFound, id)
	}
	return &s.Sprites[i], nil
}

// SpriteByName returns the first sprite with the given name.
func (s *Scene) SpriteByName(name string) (*Sprite, error) {
	for i := range s.Sprites {
		if s.Sprites[i].Name == name {
			return &s.Sprites[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSpriteNotFound, name)
}

func (s *Scene) indexOf(id string) int {
	for i := range s.Sprites {
		if s.Sprites[i].ID == id {
			return i
		}
	}
	return -1
}

// Touch moves the revision past every sprite version and stamps every
// sprite with it. Call it on scenes that come from outside, whose
// revision and versions may disagree.
func (s *Scene) Touch() {
	for _, sp := range s.Sprites {
		s.Revision = max(s.Revision, sp.Version)
	}
	s.Revision++
	for i := range s.Sprites {
		s.Sprites[i].Version = s.Revision
	}
}

// Validate checks sprite ids, parent links and costume polygons.
func (s *Scene) Validate() error {
	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("%w: negative stage size", ErrInvalidScene)
	}

	seen := make(map[string]bool, len(s.Sprites))
	for _, sp := range s.Sprites {
		if sp.ID == "" {
			return fmt.Errorf("%w: sprite %q has no id", ErrInvalidScene, sp.Name)
		}
		if seen[sp.ID] {
			return fmt.Errorf("%w: duplicate sprite id %s", ErrInvalidScene, sp.ID)
		}
		seen[sp.ID] = true
		if err := validateCostume(sp.Costume); err != nil {
			return fmt.Errorf("%w: sprite %s: %v", ErrInvalidScene, sp.ID, err)
		}
	}

	for _, sp := range s.Sprites {
		if sp.Parent == nil {
			continue
		}
		if !seen[*sp.Parent] {
			return fmt.Errorf("%w: sprite %s has unknown parent %s", ErrInvalidScene, sp.ID, *sp.Parent)
		}
		if s.inCycle(sp.ID) {
			return fmt.Errorf("%w: parent cycle at sprite %s", ErrInvalidScene, sp.ID)
		}
	}
	return nil
}

func (s *Scene) inCycle(id string) bool {
	steps := 0
	for cur := id; ; {
		i := s.indexOf(cur)
		if i < 0 || s.Sprites[i].Parent == nil {
			return false
		}
		cur = *s.Sprites[i].Parent
		if cur == id {
			return true
		}
		steps++
		if steps > len(s.Sprites) {
			return true
		}
	}
}

func validateCostume(costume [][]float32) error {
	for i, poly := range costume {
		if len(poly)%2 != 0 {
			return fmt.Errorf("polygon %d has an odd number of coordinates", i)
		}
	}
	return nil
}

// Clone returns a deep copy of the scene.
func (s *Scene) Clone() *Scene {
	out := *s
	out.Sprites = make([]Sprite, len(s.Sprites))
	for i, sp := range s.Sprites {
		out.Sprites[i] = sp.clone()
	}
	return &out
}

func (sp Sprite) clone() Sprite {
	if sp.Parent != nil {
		p := *sp.Parent
		sp.Parent = &p
	}
	costume := make([][]float32, len(sp.Costume))
	for i, poly := range sp.Costume {
		costume[i] = append([]float32(nil), poly...)
	}
	sp.Costume = costume
	return sp
}

// DecodeYAML reads a scene fixture, validates it and touches it, so any
// revisions written in the file are only a starting point.
func DecodeYAML(r io.Reader) (*Scene, error) {
	var s Scene
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if s.Sprites == nil {
		s.Sprites = []Sprite{}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.Touch()
	return &s, nil
}
