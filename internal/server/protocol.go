// Package server defines the JSON wire envelopes exchanged with chat clients
// over the websocket connection.
package server

import "encoding/json"

// Inbound event names (client to server).
const (
	EventJoin         = "join"
	EventSendMessage  = "sendMessage"
	EventSendLocation = "sendLocation"
)

// Outbound event names (server to client).
const (
	EventMessage         = "message"
	EventLocationMessage = "locationMessage"
	EventRoomData        = "roomData"
	EventAck             = "ack"
)

// ClientFrame is the envelope for every inbound event. Seq is the
// acknowledgement correlation id chosen by the client; zero means no
// acknowledgement was requested.
type ClientFrame struct {
	Event string          `json:"event"`
	Seq   uint64          `json:"seq,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ServerFrame is the envelope for every outbound event.
type ServerFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// JoinRequest is the payload of a join event.
type JoinRequest struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// SendMessageRequest is the payload of a sendMessage event.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// SendLocationRequest is the payload of a sendLocation event. Coordinates are
// passed through unvalidated.
type SendLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AckPayload is the response to an inbound event that carried a seq. Error is
// empty on success.
type AckPayload struct {
	Seq   uint64 `json:"seq"`
	Error string `json:"error,omitempty"`
}
