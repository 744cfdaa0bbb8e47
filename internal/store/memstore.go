package store

import (
	"fmt"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	codeAttempts = 16
)

// Registry holds the rooms of one game, keyed by room id, plus the reverse
// index user id -> room id. A user is bound to at most one room.
type Registry[R any] struct {
	mu     sync.RWMutex
	rooms  map[string]R
	order  []string
	byUser map[string]string
}

func NewRegistry[R any]() *Registry[R] {
	return &Registry[R]{
		rooms:  make(map[string]R),
		byUser: make(map[string]string),
	}
}

// NewCode returns an unused six character room code.
func (r *Registry[R]) NewCode() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := gonanoid.Generate(codeAlphabet, codeLength)
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		r.mu.RLock()
		_, taken := r.rooms[code]
		r.mu.RUnlock()
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free room code after %d attempts", codeAttempts)
}

func (r *Registry[R]) Add(id string, room R) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[id]; !ok {
		r.order = append(r.order, id)
	}
	r.rooms[id] = room
}

func (r *Registry[R]) Get(id string) (R, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	return room, ok
}

// Delete removes the room and every user binding that points at it.
func (r *Registry[R]) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[id]; !ok {
		return
	}
	delete(r.rooms, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	for user, roomID := range r.byUser {
		if roomID == id {
			delete(r.byUser, user)
		}
	}
}

func (r *Registry[R]) Bind(userID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[userID] = roomID
}

// Claim binds the user to roomID unless they are already bound to another
// room. It reports whether the user ends up bound to roomID.
func (r *Registry[R]) Claim(userID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byUser[userID]; ok && cur != roomID {
		return false
	}
	r.byUser[userID] = roomID
	return true
}

func (r *Registry[R]) Unbind(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
}

func (r *Registry[R]) RoomOf(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUser[userID]
	return id, ok
}

// ForUser resolves the room the user is bound to.
func (r *Registry[R]) ForUser(userID string) (R, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var zero R
	id, ok := r.byUser[userID]
	if !ok {
		return zero, false
	}
	room, ok := r.rooms[id]
	return room, ok
}

// All returns rooms in creation order.
func (r *Registry[R]) All() []R {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]R, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rooms[id])
	}
	return out
}

func (r *Registry[R]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry[R]) Users() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
