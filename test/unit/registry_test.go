// Package unit contains unit tests for individual components of the roomchat
// server.
//
// These tests focus on testing specific functions and methods in isolation,
// using fakes where necessary to avoid dependencies on external systems.
package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/server"
)

// TestRegistryAddUser verifies that a successful join stores the trimmed
// username and room in their original case and returns the stored record.
func TestRegistryAddUser(t *testing.T) {
	registry := server.NewRegistry()

	user, err := registry.AddUser("conn-1", "  Alice  ", " Dev Team ")
	require.NoError(t, err)
	assert.Equal(t, "conn-1", user.ID)
	assert.Equal(t, "Alice", user.Username)
	assert.Equal(t, "Dev Team", user.Room)

	stored, ok := registry.GetUser("conn-1")
	require.True(t, ok)
	assert.Equal(t, user, stored)
}

// TestRegistryAddUserValidation verifies that empty usernames and rooms,
// including whitespace-only values, are rejected with a validation error and
// leave the registry untouched.
func TestRegistryAddUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		room     string
	}{
		{name: "empty username", username: "", room: "general"},
		{name: "empty room", username: "Alice", room: ""},
		{name: "whitespace username", username: "   ", room: "general"},
		{name: "whitespace room", username: "Alice", room: "\t "},
		{name: "both empty", username: "", room: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := server.NewRegistry()

			user, err := registry.AddUser("conn-1", tt.username, tt.room)
			assert.Nil(t, user)
			assert.ErrorIs(t, err, server.ErrValidation)

			_, ok := registry.GetUser("conn-1")
			assert.False(t, ok, "failed AddUser must not mutate the registry")
		})
	}
}

// TestRegistryUsernameConflict verifies the per-room uniqueness invariant:
// equivalent usernames under trimmed case-insensitive comparison conflict
// within a room, while the same name is free in a different room.
func TestRegistryUsernameConflict(t *testing.T) {
	registry := server.NewRegistry()

	_, err := registry.AddUser("conn-1", "Bob", "general")
	require.NoError(t, err)

	_, err = registry.AddUser("conn-2", "bob ", "general")
	assert.ErrorIs(t, err, server.ErrConflict)

	_, err = registry.AddUser("conn-3", "BOB", " General")
	assert.ErrorIs(t, err, server.ErrConflict, "room comparison is case-insensitive")

	_, err = registry.AddUser("conn-4", "Bob", "random")
	assert.NoError(t, err, "same username in a different room is allowed")

	// The rejected ids must not have been inserted.
	assert.Len(t, registry.GetUsersInRoom("general"), 1)
}

// TestRegistryRemoveUserIdempotent verifies that removal returns the user
// once and is a silent no-op afterwards, including for ids that never joined.
func TestRegistryRemoveUserIdempotent(t *testing.T) {
	registry := server.NewRegistry()

	_, removed := registry.RemoveUser("never-joined")
	assert.False(t, removed)

	added, err := registry.AddUser("conn-1", "Alice", "dev")
	require.NoError(t, err)

	user, removed := registry.RemoveUser("conn-1")
	require.True(t, removed)
	assert.Equal(t, added, user)

	_, removed = registry.RemoveUser("conn-1")
	assert.False(t, removed)

	assert.Empty(t, registry.GetUsersInRoom("dev"))
}

// TestRegistryGetUsersInRoom verifies room queries match case-insensitively
// and preserve join order through removals.
func TestRegistryGetUsersInRoom(t *testing.T) {
	registry := server.NewRegistry()

	for _, join := range []struct{ id, username, room string }{
		{"conn-1", "Alice", "Dev"},
		{"conn-2", "Bob", "dev"},
		{"conn-3", "Carol", "ops"},
		{"conn-4", "Dave", "DEV"},
	} {
		_, err := registry.AddUser(join.id, join.username, join.room)
		require.NoError(t, err)
	}

	names := func(users []*server.User) []string {
		out := make([]string, 0, len(users))
		for _, u := range users {
			out = append(out, u.Username)
		}
		return out
	}

	assert.Equal(t, []string{"Alice", "Bob", "Dave"}, names(registry.GetUsersInRoom("dev")))
	assert.Equal(t, []string{"Carol"}, names(registry.GetUsersInRoom("OPS")))
	assert.Empty(t, registry.GetUsersInRoom("empty-room"))

	registry.RemoveUser("conn-2")
	assert.Equal(t, []string{"Alice", "Dave"}, names(registry.GetUsersInRoom("dev")),
		"join order is preserved after removals")
}
