// Package server implements the connection gateway: the per-connection state
// machine that dispatches inbound events, consults the presence registry,
// and drives room fan-out through the transport capabilities.
package server

import (
	"sync"

	"github.com/Tyrowin/roomchat/internal/logger"
)

// Transport is the capability surface the gateway needs from the connection
// layer. The hub implements it; tests substitute a recording fake. Sends are
// fire-and-forget: delivery failures are the transport's problem, never the
// gateway's.
type Transport interface {
	// SendTo delivers an event to a single connection.
	SendTo(id, event string, payload any)
	// SendToRoom delivers an event to every connection grouped under room.
	SendToRoom(room, event string, payload any)
	// SendToRoomExcept delivers an event to every connection grouped under
	// room except excludeID.
	SendToRoomExcept(room, excludeID, event string, payload any)
	// AddToRoom tags a connection as belonging to room for future fan-out.
	AddToRoom(id, room string)
}

// Gateway handles the lifecycle of every chat connection: the join handshake,
// message and location relay, and disconnect cleanup. One event is handled to
// completion, registry mutation through fan-out, before the next begins, so
// cross-connection invariants in the registry are never observed mid-update.
type Gateway struct {
	mu        sync.Mutex
	registry  *Registry
	transport Transport
	filter    ProfanityFilter
}

// NewGateway creates a gateway over the given registry, transport, and
// profanity filter.
func NewGateway(registry *Registry, transport Transport, filter ProfanityFilter) *Gateway {
	return &Gateway{
		registry:  registry,
		transport: transport,
		filter:    filter,
	}
}

// SetFilter replaces the profanity filter. Called during startup once the
// configured word list is known.
func (g *Gateway) SetFilter(filter ProfanityFilter) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.filter = filter
}

// HandleConnect greets a freshly upgraded connection. No room exists for it
// yet, so the greeting goes to the sender alone.
func (g *Gateway) HandleConnect(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.transport.SendTo(id, EventMessage, NewMessage(SystemUsername, "Welcome to the chat room"))
}

// HandleJoin registers the connection under a username and room. On success
// it groups the connection for room fan-out, greets the joiner, announces
// them to the rest of the room, and pushes an updated roster to everyone.
// On failure nothing is grouped or broadcast and the connection stays
// joinable.
func (g *Gateway) HandleJoin(id, username, room string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, joined := g.registry.GetUser(id); joined {
		return validationError("Already joined a room")
	}

	user, err := g.registry.AddUser(id, username, room)
	if err != nil {
		return err
	}

	g.transport.AddToRoom(id, user.Room)
	g.transport.SendTo(id, EventMessage, NewMessage(SystemUsername, "Welcome!"))
	g.transport.SendToRoomExcept(user.Room, id, EventMessage,
		NewMessage(SystemUsername, user.Username+" has joined!"))
	g.sendRoomData(user.Room)

	logger.Log.Infow("user joined room", "id", id, "username", user.Username, "room", user.Room)
	return nil
}

// HandleMessage relays a chat line from a joined connection to its whole
// room, sender included. Text flagged by the profanity filter is rejected
// with a policy error and reaches no one.
func (g *Gateway) HandleMessage(id, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	user, ok := g.registry.GetUser(id)
	if !ok {
		// Not reachable through a well-behaved client; the protocol has no
		// path to send before joining.
		return validationError("Join a room before sending messages")
	}

	if g.filter.IsProfane(text) {
		return policyError("Profanity is not allowed")
	}

	g.transport.SendToRoom(user.Room, EventMessage, NewMessage(user.Username, text))
	return nil
}

// HandleLocation relays a shared location from a joined connection to its
// whole room, sender included. Coordinate ranges are not validated.
func (g *Gateway) HandleLocation(id string, latitude, longitude float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	user, ok := g.registry.GetUser(id)
	if !ok {
		return validationError("Join a room before sharing a location")
	}

	g.transport.SendToRoom(user.Room, EventLocationMessage,
		NewLocationMessage(user.Username, latitude, longitude))
	return nil
}

// HandleDisconnect removes the connection from the registry and, if it had
// joined, announces the departure and pushes the shrunken roster to whoever
// remains. A connection that never joined disconnects silently; so does a
// room emptied by the departure, since there is no one left to notify.
func (g *Gateway) HandleDisconnect(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	user, removed := g.registry.RemoveUser(id)
	if !removed {
		return
	}

	if len(g.registry.GetUsersInRoom(user.Room)) == 0 {
		return
	}

	g.transport.SendToRoom(user.Room, EventMessage,
		NewMessage(SystemUsername, user.Username+" has left"))
	g.sendRoomData(user.Room)

	logger.Log.Infow("user left room", "id", id, "username", user.Username, "room", user.Room)
}

// sendRoomData pushes the current roster for room to all of its members.
// Callers must hold g.mu.
func (g *Gateway) sendRoomData(room string) {
	users := g.registry.GetUsersInRoom(room)
	names := make([]string, 0, len(users))
	for _, user := range users {
		names = append(names, user.Username)
	}

	g.transport.SendToRoom(room, EventRoomData, RoomData{Room: room, Users: names})
}
