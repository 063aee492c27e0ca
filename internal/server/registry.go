// Package server implements the presence registry, the authoritative
// in-memory mapping from connection identity to chat identity.
package server

import (
	"strings"
	"sync"

	"github.com/Tyrowin/roomchat/internal/logger"
)

// User is one connection's chat identity. ID is the opaque connection
// identifier assigned by the transport; Username and Room are stored trimmed
// but in their original case. A User is never mutated after insertion.
type User struct {
	ID       string
	Username string
	Room     string
}

// Registry is the single source of truth for who is present in which room.
// All operations are atomic relative to each other; the registry has no
// knowledge of the transport.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*User
	// order holds connection ids in join order so room rosters stay stable
	// across lookups.
	order []string
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]*User),
	}
}

// AddUser validates and inserts a new user. Username and room are trimmed of
// surrounding whitespace; an empty result is a validation error. A username
// already present in the same room, compared case-insensitively after
// trimming, is a conflict error. On failure the registry is left unchanged.
func (r *Registry) AddUser(id, username, room string) (*User, error) {
	username = strings.TrimSpace(username)
	room = strings.TrimSpace(room)

	if username == "" || room == "" {
		return nil, validationError("Username and room are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	foldedName := strings.ToLower(username)
	foldedRoom := strings.ToLower(room)
	for _, existing := range r.users {
		if strings.ToLower(existing.Room) == foldedRoom &&
			strings.ToLower(existing.Username) == foldedName {
			return nil, conflictError("Username is in use")
		}
	}

	user := &User{ID: id, Username: username, Room: room}
	r.users[id] = user
	r.order = append(r.order, id)

	logger.Log.Debugw("user registered", "id", id, "username", username, "room", room)
	return user, nil
}

// RemoveUser deletes the record for id and returns it. Removing an unknown or
// already-removed id returns ok=false with no error; disconnect-before-join
// and double-disconnect are silent no-ops.
func (r *Registry) RemoveUser(id string) (*User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, false
	}
	delete(r.users, id)

	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	logger.Log.Debugw("user removed", "id", id, "username", user.Username, "room", user.Room)
	return user, true
}

// GetUser returns the user registered under id, if any. Read-only.
func (r *Registry) GetUser(id string) (*User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	return user, ok
}

// GetUsersInRoom returns every user currently present in the room, matched
// case-insensitively on the trimmed room name, in join order.
func (r *Registry) GetUsersInRoom(room string) []*User {
	folded := strings.ToLower(strings.TrimSpace(room))

	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []*User
	for _, id := range r.order {
		user := r.users[id]
		if strings.ToLower(user.Room) == folded {
			users = append(users, user)
		}
	}
	return users
}
