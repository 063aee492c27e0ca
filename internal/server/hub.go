// Package server coordinates client registration, room grouping, event
// fan-out, and connection cleanup for the roomchat WebSocket system via the
// Hub type.
package server

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/Tyrowin/roomchat/internal/logger"
)

// ConnectionHandler receives connection lifecycle notifications from the hub.
// The gateway implements it.
type ConnectionHandler interface {
	HandleConnect(id string)
	HandleDisconnect(id string)
}

// Hub owns all WebSocket client connections and implements the Transport
// capabilities the gateway fans events out through. Clients are indexed by
// connection id and grouped under case-folded room tags. Registration and
// unregistration flow through channels processed by a single Run loop;
// sends take a snapshot under a read lock and deliver without holding it.
type Hub struct {
	clients    map[string]*Client
	rooms      map[string]map[string]*Client
	register   chan *Client
	unregister chan *Client
	handler    ConnectionHandler
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates and initializes a new Hub instance with all necessary
// channels and maps. The returned Hub is ready to manage connections once
// Run is started.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// SetConnectionHandler wires the lifecycle handler notified when connections
// are registered and unregistered. Must be called before Run.
func (h *Hub) SetConnectionHandler(handler ConnectionHandler) {
	h.handler = handler
}

// GetRegisterChan returns the channel used for registering new clients to the
// hub. This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from
// the hub. This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// roomKey folds a room name to the hub's grouping key, matching the
// registry's case-insensitive comparison rule.
func roomKey(room string) string {
	return strings.ToLower(strings.TrimSpace(room))
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. This method should be called in a separate goroutine as it
// runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				logger.Log.Warnw("received nil client registration; skipping")
				continue
			}
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()
	logger.Log.Infow("client registered", "id", client.id, "addr", client.addr, "total", clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()

	if h.handler != nil {
		h.handler.HandleConnect(client.id)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	_, ok := h.clients[client.id]
	if !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	h.detachFromRoomLocked(client)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)
	logger.Log.Infow("client unregistered", "id", client.id, "addr", client.addr, "total", clientCount)

	if h.handler != nil {
		h.handler.HandleDisconnect(client.id)
	}
}

// detachFromRoomLocked removes the client from its room group, dropping the
// group entirely when it empties. Callers must hold h.mutex.
func (h *Hub) detachFromRoomLocked(client *Client) {
	if client.room == "" {
		return
	}

	members, ok := h.rooms[client.room]
	if !ok {
		return
	}
	delete(members, client.id)
	if len(members) == 0 {
		delete(h.rooms, client.room)
	}
	client.room = ""
}

// AddToRoom tags the connection as belonging to room for future fan-out. A
// connection belongs to at most one room; joins happen once per connection.
func (h *Hub) AddToRoom(id, room string) {
	key := roomKey(room)

	h.mutex.Lock()
	defer h.mutex.Unlock()

	client, ok := h.clients[id]
	if !ok {
		return
	}

	members, ok := h.rooms[key]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[key] = members
	}
	members[id] = client
	client.room = key
}

// SendTo delivers an event to a single connection. Unknown ids are dropped
// silently; the peer may already have disconnected.
func (h *Hub) SendTo(id, event string, payload any) {
	frame, ok := marshalFrame(event, payload)
	if !ok {
		return
	}

	h.mutex.RLock()
	client, exists := h.clients[id]
	h.mutex.RUnlock()
	if !exists {
		return
	}

	if !h.safeSend(client, frame) {
		h.removeFailedClients([]*Client{client})
	}
}

// SendToRoom delivers an event to every connection grouped under room.
func (h *Hub) SendToRoom(room, event string, payload any) {
	h.sendToRoom(room, "", event, payload)
}

// SendToRoomExcept delivers an event to every connection grouped under room
// except excludeID.
func (h *Hub) SendToRoomExcept(room, excludeID, event string, payload any) {
	h.sendToRoom(room, excludeID, event, payload)
}

func (h *Hub) sendToRoom(room, excludeID, event string, payload any) {
	frame, ok := marshalFrame(event, payload)
	if !ok {
		return
	}

	targets := h.roomSnapshot(roomKey(room), excludeID)

	var failed []*Client
	for _, client := range targets {
		if !h.safeSend(client, frame) {
			failed = append(failed, client)
		}
	}
	h.removeFailedClients(failed)
}

// roomSnapshot returns the current members of a room group, minus excludeID,
// without holding the lock during delivery.
func (h *Hub) roomSnapshot(key, excludeID string) []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	members := h.rooms[key]
	targets := make([]*Client, 0, len(members))
	for id, client := range members {
		if id == excludeID {
			continue
		}
		targets = append(targets, client)
	}
	return targets
}

func marshalFrame(event string, payload any) ([]byte, bool) {
	frame, err := json.Marshal(ServerFrame{Event: event, Data: payload})
	if err != nil {
		logger.Log.Errorw("failed to marshal outbound frame", "event", event, "error", err)
		return nil, false
	}
	return frame, true
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorw("recovered from panic in safeSend", "panic", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent race
	// conditions with unregistration.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client.id]
	if !exists || client.closed {
		return false
	}

	// The channel might be closed concurrently, hence the recover above.
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// removeFailedClients drops clients whose send buffers are full and closes
// their channels. Their disconnect cleanup runs through the lifecycle
// handler like any other departure.
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var removed []*Client
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if _, exists := h.clients[client.id]; exists {
			delete(h.clients, client.id)
			h.detachFromRoomLocked(client)
			client.closed = true
			removed = append(removed, client)
			channelsToClose = append(channelsToClose, client.send)
			logger.Log.Warnw("client removed due to full send buffer", "id", client.id, "addr", client.addr)
		}
	}
	h.mutex.Unlock()

	// Close channels after releasing the lock.
	for _, ch := range channelsToClose {
		close(ch)
	}

	// Eviction can happen mid-fan-out while the gateway holds its own lock,
	// so the disconnect notification must not run inline. Registry removal
	// is idempotent, so racing a normal unregister is harmless.
	if h.handler != nil {
		for _, client := range removed {
			go h.handler.HandleDisconnect(client.id)
		}
	}
}

// shutdownClients closes all active client connections.
func (h *Hub) shutdownClients() {
	logger.Log.Infow("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				logger.Log.Warnw("error closing client connection", "addr", client.addr, "error", err)
			}
		}
	}

	logger.Log.Infow("closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	logger.Log.Infow("initiating hub shutdown")

	h.cancel()

	// Wait for Run() to complete.
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Infow("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		logger.Log.Warnw("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
