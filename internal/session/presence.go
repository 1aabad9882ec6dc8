package session

import (
	"errors"
	"fmt"
	"sync"
)

var ErrSpriteHeld = errors.New("sprite is held by another user")

// Roster tracks what each user in a room points at and holds.
type Roster struct {
	mu    sync.Mutex
	users map[string]PresencePayload // userID -> presence
	held  map[string]string          // spriteID -> userID
}

func NewRoster() *Roster {
	return &Roster{
		users: make(map[string]PresencePayload),
		held:  make(map[string]string),
	}
}

// Set records a user's presence. Taking a sprite someone else holds fails
// and leaves the roster unchanged.
func (r *Roster) Set(userID string, p PresencePayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.Held != "" {
		if owner, ok := r.held[p.Held]; ok && owner != userID {
			return fmt.Errorf("%w: %s", ErrSpriteHeld, p.Held)
		}
	}

	if prev := r.users[userID].Held; prev != "" && prev != p.Held {
		delete(r.held, prev)
	}
	if p.Held != "" {
		r.held[p.Held] = userID
	}
	r.users[userID] = p
	return nil
}

// Leave forgets a user and lets go of whatever they held.
func (r *Roster) Leave(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if held := r.users[userID].Held; held != "" {
		delete(r.held, held)
	}
	delete(r.users, userID)
}

// DropSprite releases a sprite that no longer exists. It reports whether
// anyone was holding or hovering it.
func (r *Roster) DropSprite(spriteID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	if userID, ok := r.held[spriteID]; ok {
		p := r.users[userID]
		p.Held = ""
		r.users[userID] = p
		delete(r.held, spriteID)
		changed = true
	}
	for userID, p := range r.users {
		if p.Hover == spriteID {
			p.Hover = ""
			r.users[userID] = p
			changed = true
		}
	}
	return changed
}

// Holder returns the user holding a sprite.
func (r *Roster) Holder(spriteID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.held[spriteID]
	return userID, ok
}

func (r *Roster) StateMessage() *Message {
	r.mu.Lock()
	all := make(map[string]PresencePayload, len(r.users))
	for k, v := range r.users {
		all[k] = v
	}
	r.mu.Unlock()

	return newMessage(TypePresenceState, PresenceStatePayload{Presences: all})
}
