// Package store persists users and scenes, in Postgres or in memory.
package store

import (
	"errors"
	"time"

	"github.com/Danveyd/NewCatroid/internal/scene"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
	// ErrConflict means the stored scene moved past the caller's revision.
	ErrConflict = errors.New("revision conflict")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// SceneRecord is a stored scene and its owner.
type SceneRecord struct {
	ID        string
	OwnerID   string
	Scene     *scene.Scene
	CreatedAt time.Time
	UpdatedAt time.Time
}
