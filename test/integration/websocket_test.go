// Package integration contains end-to-end tests that exercise the roomchat
// server over real HTTP and WebSocket connections.
//
// Tests share the package-global hub and registry, so each test keeps to its
// own room names.
package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/server"
	"github.com/Tyrowin/roomchat/test/testhelpers"
)

// TestChatFlow walks the full lifecycle: greeting on connect, two joins with
// their announcements and rosters, whole-room message and location fan-out,
// and departure cleanup.
func TestChatFlow(t *testing.T) {
	ts := testhelpers.CreateTestServer(t)
	defer ts.Close()

	alice := testhelpers.Dial(t, ts)
	alice.AwaitMessage("Welcome to the chat room")

	require.Empty(t, alice.Join("Alice", "flow-room"))
	welcome := alice.AwaitMessage("Welcome!")
	assert.Equal(t, server.SystemUsername, welcome.Username)
	assert.Positive(t, welcome.CreatedAt)

	var roster server.RoomData
	alice.AwaitEvent(server.EventRoomData, &roster)
	assert.Equal(t, server.RoomData{Room: "flow-room", Users: []string{"Alice"}}, roster)

	bob := testhelpers.Dial(t, ts)
	bob.AwaitMessage("Welcome to the chat room")
	require.Empty(t, bob.Join("Bob", "flow-room"))
	bob.AwaitMessage("Welcome!")

	joined := alice.AwaitMessage("Bob has joined!")
	assert.Equal(t, server.SystemUsername, joined.Username)

	alice.AwaitEvent(server.EventRoomData, &roster)
	assert.Equal(t, []string{"Alice", "Bob"}, roster.Users)
	bob.AwaitEvent(server.EventRoomData, &roster)
	assert.Equal(t, []string{"Alice", "Bob"}, roster.Users)

	// Chat messages reach the whole room, sender included.
	seq := bob.Emit(server.EventSendMessage, server.SendMessageRequest{Text: "hello from bob"})
	require.Empty(t, bob.AwaitAck(seq))

	fromBob := alice.AwaitMessage("hello from bob")
	assert.Equal(t, "Bob", fromBob.Username)
	echo := bob.AwaitMessage("hello from bob")
	assert.Equal(t, "Bob", echo.Username)

	// Locations fan out the same way, as locationMessage events.
	seq = alice.Emit(server.EventSendLocation, server.SendLocationRequest{Latitude: 10.5, Longitude: 20.25})
	require.Empty(t, alice.AwaitAck(seq))

	var location server.LocationMessage
	bob.AwaitEvent(server.EventLocationMessage, &location)
	assert.Equal(t, "Alice", location.Username)
	assert.Equal(t, "https://google.com/maps?q=10.5,20.25", location.URL)
	alice.AwaitEvent(server.EventLocationMessage, &location)
	assert.Equal(t, "Alice", location.Username)

	// Departure: the remaining member sees the announcement and the
	// shrunken roster.
	bob.Close()
	left := alice.AwaitMessage("Bob has left")
	assert.Equal(t, server.SystemUsername, left.Username)

	alice.AwaitEvent(server.EventRoomData, &roster)
	assert.Equal(t, server.RoomData{Room: "flow-room", Users: []string{"Alice"}}, roster)
}

// TestJoinConflict verifies a username already present in the room, compared
// trimmed and case-insensitively, is rejected on the ack and that the
// rejected connection can retry with a different name.
func TestJoinConflict(t *testing.T) {
	ts := testhelpers.CreateTestServer(t)
	defer ts.Close()

	first := testhelpers.Dial(t, ts)
	require.Empty(t, first.Join("Taken", "conflict-room"))

	second := testhelpers.Dial(t, ts)
	assert.Equal(t, "Username is in use", second.Join("taken ", "conflict-room"))

	// The failed join performed no registration; a corrected resubmission
	// succeeds on the same connection.
	require.Empty(t, second.Join("Someone Else", "conflict-room"))
	first.AwaitMessage("Someone Else has joined!")
}

// TestJoinValidation verifies a join without a username or room is rejected
// on the ack.
func TestJoinValidation(t *testing.T) {
	ts := testhelpers.CreateTestServer(t)
	defer ts.Close()

	client := testhelpers.Dial(t, ts)
	assert.Equal(t, "Username and room are required", client.Join("  ", "validation-room"))
	assert.Equal(t, "Username and room are required", client.Join("Alice", ""))
}

// TestProfanityRejected verifies a flagged message is acked with a policy
// error and never reaches anyone in the room.
func TestProfanityRejected(t *testing.T) {
	ts := testhelpers.CreateTestServer(t)
	defer ts.Close()

	speaker := testhelpers.Dial(t, ts)
	require.Empty(t, speaker.Join("Speaker", "policy-room"))
	listener := testhelpers.Dial(t, ts)
	require.Empty(t, listener.Join("Listener", "policy-room"))

	seq := speaker.Emit(server.EventSendMessage, server.SendMessageRequest{Text: "well damn"})
	assert.Equal(t, "Profanity is not allowed", speaker.AwaitAck(seq))

	// A clean follow-up arrives, the flagged one never does.
	seq = speaker.Emit(server.EventSendMessage, server.SendMessageRequest{Text: "sorry about that"})
	require.Empty(t, speaker.AwaitAck(seq))
	listener.AwaitMessage("sorry about that")
	listener.AssertNoMessage("well damn", 200*time.Millisecond)
	speaker.AssertNoMessage("well damn", 200*time.Millisecond)
}

// TestSendBeforeJoin verifies events that require membership are rejected on
// the ack for a connection that has not joined, and the connection stays
// usable.
func TestSendBeforeJoin(t *testing.T) {
	ts := testhelpers.CreateTestServer(t)
	defer ts.Close()

	client := testhelpers.Dial(t, ts)

	seq := client.Emit(server.EventSendMessage, server.SendMessageRequest{Text: "anyone there?"})
	assert.Equal(t, "Join a room before sending messages", client.AwaitAck(seq))

	require.Empty(t, client.Join("Early Bird", "prejoin-room"))
	seq = client.Emit(server.EventSendMessage, server.SendMessageRequest{Text: "now it works"})
	require.Empty(t, client.AwaitAck(seq))
	client.AwaitMessage("now it works")
}

// TestUnknownEventRejected verifies an unrecognized event name is answered
// with an ack error and leaves the connection open.
func TestUnknownEventRejected(t *testing.T) {
	ts := testhelpers.CreateTestServer(t)
	defer ts.Close()

	client := testhelpers.Dial(t, ts)

	seq := client.Emit("renameRoom", map[string]string{"room": "elsewhere"})
	assert.Equal(t, "Unknown event: renameRoom", client.AwaitAck(seq))

	require.Empty(t, client.Join("Survivor", "unknown-event-room"))
}
