// Package server provides the message factory: pure construction of the
// immutable payloads broadcast to chat clients, stamped with server time.
package server

import (
	"fmt"
	"time"
)

// SystemUsername is the author attached to server-generated chat lines such
// as the welcome greeting and join/leave announcements.
const SystemUsername = "System"

// Message is a chat line broadcast to a room. CreatedAt is epoch milliseconds
// assigned by the server at construction time.
type Message struct {
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// LocationMessage is a shared location broadcast to a room. URL points at a
// map query for the client-supplied coordinates.
type LocationMessage struct {
	Username  string `json:"username"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
}

// RoomData is the roster snapshot sent to a room whenever its membership
// changes. Users preserves the registry's membership order.
type RoomData struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// NewMessage builds a Message stamped with the current server time. The text
// is taken verbatim; profanity filtering happens before construction.
func NewMessage(username, text string) Message {
	return Message{
		Username:  username,
		Text:      text,
		CreatedAt: nowMillis(),
	}
}

// NewLocationMessage builds a LocationMessage whose URL interpolates the raw
// coordinates into a map query. Coordinate ranges are not checked; malformed
// values still yield a syntactically valid URL.
func NewLocationMessage(username string, latitude, longitude float64) LocationMessage {
	return LocationMessage{
		Username:  username,
		URL:       fmt.Sprintf("https://google.com/maps?q=%v,%v", latitude, longitude),
		CreatedAt: nowMillis(),
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
