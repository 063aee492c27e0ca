// Package testhelpers provides common utilities for testing the roomchat
// server.
//
// It contains a websocket chat client wrapper that speaks the frame protocol
// (emit with seq, await acks, await events) plus helpers for creating test
// servers, to reduce duplication across unit and integration tests.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/server"
)

var hubOnce sync.Once

// EnsureHubRunning starts the global hub exactly once for the whole test
// binary. Tests keep to distinct rooms so shared registry state between them
// is harmless.
func EnsureHubRunning() {
	hubOnce.Do(server.StartHub)
}

// CreateTestServer creates a test HTTP server with the application routes and
// an origin configuration that accepts the test client. The returned server
// should be closed after use.
func CreateTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	EnsureHubRunning()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	server.SetConfig(cfg)

	return httptest.NewServer(server.SetupRoutes())
}

// Frame is a decoded server-to-client envelope with the payload left raw so
// callers can unmarshal it into the expected shape.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ChatClient wraps a websocket connection speaking the chat frame protocol.
// Received frames are buffered so callers can await a specific event without
// losing the ones that arrive in between.
type ChatClient struct {
	t       *testing.T
	conn    *websocket.Conn
	seq     uint64
	pending []Frame
}

// Dial connects a ChatClient to the test server's websocket endpoint.
func Dial(t *testing.T, ts *httptest.Server) *ChatClient {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{ts.URL}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err, "websocket dial failed")
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	client := &ChatClient{t: t, conn: conn}
	t.Cleanup(client.Close)
	return client
}

// Close shuts the underlying connection. Safe to call more than once.
func (c *ChatClient) Close() {
	_ = c.conn.Close()
}

// Emit sends an event frame and returns the seq assigned to it.
func (c *ChatClient) Emit(event string, data any) uint64 {
	c.t.Helper()

	c.seq++
	payload, err := json.Marshal(data)
	require.NoError(c.t, err)

	frame := server.ClientFrame{Event: event, Seq: c.seq, Data: payload}
	require.NoError(c.t, c.conn.WriteJSON(frame))
	return c.seq
}

// Join emits a join event and waits for its acknowledgement, returning the
// error string from the ack (empty on success).
func (c *ChatClient) Join(username, room string) string {
	c.t.Helper()

	seq := c.Emit(server.EventJoin, server.JoinRequest{Username: username, Room: room})
	return c.AwaitAck(seq)
}

// readFrames blocks for the next websocket message and appends its frames,
// splitting newline-batched payloads.
func (c *ChatClient) readFrames(deadline time.Time) bool {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(deadline))
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return false
	}

	for _, line := range bytes.Split(raw, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var frame Frame
		require.NoError(c.t, json.Unmarshal(line, &frame), "invalid frame: %s", line)
		c.pending = append(c.pending, frame)
	}
	return true
}

// await scans buffered frames for the first one matching, reading more from
// the connection until the timeout elapses. The matched frame is removed from
// the buffer; everything else is retained.
func (c *ChatClient) await(match func(Frame) bool, timeout time.Duration) (Frame, bool) {
	c.t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		for i, frame := range c.pending {
			if match(frame) {
				c.pending = append(c.pending[:i], c.pending[i+1:]...)
				return frame, true
			}
		}
		if time.Now().After(deadline) || !c.readFrames(deadline) {
			return Frame{}, false
		}
	}
}

// AwaitEvent waits for the next frame with the given event name and
// unmarshals its payload into out (when out is non-nil).
func (c *ChatClient) AwaitEvent(event string, out any) Frame {
	c.t.Helper()

	frame, ok := c.await(func(f Frame) bool { return f.Event == event }, 2*time.Second)
	require.True(c.t, ok, "timed out waiting for %q event", event)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(frame.Data, out))
	}
	return frame
}

// AwaitMessage waits for a message event with the given text and returns its
// payload.
func (c *ChatClient) AwaitMessage(text string) server.Message {
	c.t.Helper()

	frame, ok := c.await(func(f Frame) bool {
		if f.Event != server.EventMessage {
			return false
		}
		var msg server.Message
		return json.Unmarshal(f.Data, &msg) == nil && msg.Text == text
	}, 2*time.Second)
	require.True(c.t, ok, "timed out waiting for message %q", text)

	var msg server.Message
	require.NoError(c.t, json.Unmarshal(frame.Data, &msg))
	return msg
}

// AwaitAck waits for the acknowledgement of seq and returns its error string,
// empty on success.
func (c *ChatClient) AwaitAck(seq uint64) string {
	c.t.Helper()

	frame, ok := c.await(func(f Frame) bool {
		if f.Event != server.EventAck {
			return false
		}
		var ack server.AckPayload
		return json.Unmarshal(f.Data, &ack) == nil && ack.Seq == seq
	}, 2*time.Second)
	require.True(c.t, ok, "timed out waiting for ack of seq %d", seq)

	var ack server.AckPayload
	require.NoError(c.t, json.Unmarshal(frame.Data, &ack))
	return ack.Error
}

// AwaitClose verifies the server closes the connection within the window,
// discarding any frames that arrive first. A read timeout fails the test; the
// connection was still open.
func (c *ChatClient) AwaitClose(window time.Duration) {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(window)))
	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			c.t.Fatal("connection was not closed by the server")
		}
		return
	}
}

// AssertNoMessage verifies that no message event with the given text arrives
// within the window.
func (c *ChatClient) AssertNoMessage(text string, window time.Duration) {
	c.t.Helper()

	_, found := c.await(func(f Frame) bool {
		if f.Event != server.EventMessage {
			return false
		}
		var msg server.Message
		return json.Unmarshal(f.Data, &msg) == nil && msg.Text == text
	}, window)
	require.False(c.t, found, "unexpected message %q received", text)
}
