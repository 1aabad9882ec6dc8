package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// Memory keeps everything in process. It backs the server when no database
// is configured, and the tests.
type Memory struct {
	mu     sync.RWMutex
	users  map[string]User
	scenes map[string]SceneRecord
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]User),
		scenes: make(map[string]SceneRecord),
		now:    time.Now,
	}
}

func (m *Memory) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; ok {
		return User{}, ErrDuplicate
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return User{}, ErrDuplicate
		}
	}
	u.CreatedAt = m.now()
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *Memory) GetUserByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) CreateScene(_ context.Context, rec SceneRecord) (SceneRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.scenes[rec.ID]; ok {
		return SceneRecord{}, ErrDuplicate
	}
	rec.CreatedAt = m.now()
	rec.UpdatedAt = rec.CreatedAt
	rec.Scene = rec.Scene.Clone()
	m.scenes[rec.ID] = rec
	return m.copyOf(rec), nil
}

func (m *Memory) GetScene(_ context.Context, id string) (SceneRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.scenes[id]
	if !ok {
		return SceneRecord{}, ErrNotFound
	}
	return m.copyOf(rec), nil
}

func (m *Memory) ListScenes(_ context.Context, ownerID string) ([]SceneRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []SceneRecord
	for _, rec := range m.scenes {
		if rec.OwnerID == ownerID {
			out = append(out, m.copyOf(rec))
		}
	}
	slices.SortFunc(out, func(a, b SceneRecord) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *Memory) UpdateScene(_ context.Context, rec SceneRecord, base uint64) (SceneRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.scenes[rec.ID]
	if !ok {
		return SceneRecord{}, ErrNotFound
	}
	if existing.Scene.Revision != base {
		return SceneRecord{}, ErrConflict
	}
	rec.OwnerID = existing.OwnerID
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = m.now()
	rec.Scene = rec.Scene.Clone()
	m.scenes[rec.ID] = rec
	return m.copyOf(rec), nil
}

func (m *Memory) DeleteScene(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.scenes[id]; !ok {
		return ErrNotFound
	}
	delete(m.scenes, id)
	return nil
}

func (m *Memory) copyOf(rec SceneRecord) SceneRecord {
	rec.Scene = rec.Scene.Clone()
	return rec
}
