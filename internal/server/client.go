// Package server manages individual WebSocket clients, handling read/write
// pumps, frame dispatch, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/logger"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Client represents one WebSocket connection in the chat system. It carries
// the transport-assigned connection id the registry and gateway key on, the
// buffered send channel the hub fans frames into, and the case-folded room
// tag maintained by the hub.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	gateway        *Gateway
	addr           string
	room           string
	closed         bool
	maxMessageSize int64
}

// NewClient creates a new Client with the provided connection id, WebSocket
// connection, hub, gateway, and remote address. The send channel is buffered
// so fan-out never blocks on a slow peer.
func NewClient(id string, conn *websocket.Conn, hub *Hub, gateway *Gateway, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, cfg.SendBuffer),
		hub:            hub,
		gateway:        gateway,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
	}
}

// ID returns the connection identifier assigned at upgrade time.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's send channel for reading outgoing frames.
// This channel is read-only from the caller's perspective.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

// setupReadConnection configures read deadlines and the pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Log.Warnw("error setting initial read deadline", "addr", c.addr, "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			logger.Log.Warnw("error setting read deadline in pong handler", "addr", c.addr, "error", err)
		}
		return nil
	})
}

// handleReadError logs the error appropriately and returns true if the read
// loop should stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		logger.Log.Warnw("inbound frame exceeded maximum size", "addr", c.addr, "limit", c.maxMessageSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		logger.Log.Infow("client disconnected", "addr", c.addr, "reason", err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		logger.Log.Infow("client connection closed", "addr", c.addr, "reason", err)
		return true
	}

	logger.Log.Warnw("websocket read error", "addr", c.addr, "error", err)
	return true
}

// handleFrame decodes one inbound frame and dispatches it to the gateway. The
// result, success or an application error, is acknowledged back to the
// originating connection when the frame carried a seq; it is never broadcast
// and never closes the connection.
func (c *Client) handleFrame(raw []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		logger.Log.Warnw("invalid frame", "addr", c.addr, "error", err)
		return
	}

	err := c.dispatch(frame)
	if err != nil {
		logger.Log.Infow("event rejected", "addr", c.addr, "event", frame.Event, "reason", err)
	}
	c.ack(frame.Seq, err)
}

func (c *Client) dispatch(frame ClientFrame) error {
	switch frame.Event {
	case EventJoin:
		var req JoinRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return validationError("Malformed join payload")
		}
		return c.gateway.HandleJoin(c.id, req.Username, req.Room)

	case EventSendMessage:
		var req SendMessageRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return validationError("Malformed message payload")
		}
		return c.gateway.HandleMessage(c.id, req.Text)

	case EventSendLocation:
		var req SendLocationRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return validationError("Malformed location payload")
		}
		return c.gateway.HandleLocation(c.id, req.Latitude, req.Longitude)

	default:
		return validationError("Unknown event: " + frame.Event)
	}
}

// ack answers an inbound event that requested acknowledgement. A zero seq
// means the client did not ask for one.
func (c *Client) ack(seq uint64, err error) {
	if seq == 0 {
		return
	}

	payload := AckPayload{Seq: seq}
	if err != nil {
		payload.Error = err.Error()
	}
	c.hub.SendTo(c.id, EventAck, payload)
}

func (c *Client) readPump() {
	defer func() {
		// Once the hub has begun shutdown its run loop no longer drains
		// unregistrations, so the send must not block forever.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			logger.Log.Warnw("error closing connection in readPump", "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
			continue
		}

		c.handleFrame(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing. Hub shutdown stops the pump directly: the send
// channel is only closed on the normal unregister path, which does not run
// once the hub's loop has exited.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleOutbound(message, ok)
	case <-ticker.C:
		return c.handlePing()
	case <-c.hub.ctx.Done():
		return false
	}
}

// closeConnection safely closes the WebSocket connection.
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		logger.Log.Warnw("error closing connection in writePump", "error", err)
	}
}

// handleOutbound writes an outgoing frame and returns false if the
// connection should be closed.
func (c *Client) handleOutbound(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		logger.Log.Warnw("error setting write deadline", "addr", c.addr, "error", err)
		return false
	}

	if !ok {
		// The hub closed the send channel.
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			logger.Log.Warnw("error writing close message", "addr", c.addr, "error", err)
		}
		return false
	}

	return c.writeTextMessage(message)
}

// writeTextMessage writes a frame and drains any frames queued behind it into
// the same websocket message, newline separated.
func (c *Client) writeTextMessage(message []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		logger.Log.Warnw("error creating writer", "addr", c.addr, "error", err)
		return false
	}

	if _, err := w.Write(message); err != nil {
		logger.Log.Warnw("error writing frame", "addr", c.addr, "error", err)
		return false
	}

	n := len(c.send)
	for i := 0; i < n; i++ {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			logger.Log.Warnw("error writing frame separator", "addr", c.addr, "error", err)
			return false
		}
		if _, err := w.Write(<-c.send); err != nil {
			logger.Log.Warnw("error writing queued frame", "addr", c.addr, "error", err)
			return false
		}
	}

	if err := w.Close(); err != nil {
		logger.Log.Warnw("error closing writer", "addr", c.addr, "error", err)
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		logger.Log.Warnw("error setting write deadline for ping", "addr", c.addr, "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		logger.Log.Warnw("error writing ping message", "addr", c.addr, "error", err)
		return false
	}
	return true
}
