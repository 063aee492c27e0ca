// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in chat test page.
package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// NewWebSocketHandler returns an upgrade handler bound to a specific hub and
// gateway. It upgrades the HTTP connection, assigns the connection its
// identity, and registers the client with the hub, which launches the
// read/write pumps and notifies the gateway.
func NewWebSocketHandler(h *Hub, g *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Log.Warnw("websocket upgrade failed", "error", err)
			return
		}

		client := NewClient(uuid.NewString(), conn, h, g, r.RemoteAddr)

		// Register the client with the hub; the hub launches the pump
		// goroutines and delivers the pre-join greeting.
		h.register <- client
	}
}

// WebSocketHandler handles WebSocket upgrade requests against the shared hub
// and gateway.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	NewWebSocketHandler(hub, chatGateway)(w, r)
}

// HealthHandler provides a simple health check endpoint that returns server
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "roomchat server is running!")
}

// TestPageHandler serves an HTML page for exercising the chat protocol by
// hand: join a room, send messages, share a location, and watch the roster.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		logger.Log.Warnw("error writing test page", "error", err)
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>roomchat</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; display: flex; gap: 20px; }
        #main { flex: 1; }
        #sidebar { width: 180px; border-left: 1px solid #ccc; padding-left: 10px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { padding: 5px; margin-right: 5px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        .system { color: gray; font-style: italic; }
    </style>
</head>
<body>
    <div id="main">
        <h1>roomchat</h1>
        <div>
            <input type="text" id="username" placeholder="Username">
            <input type="text" id="room" placeholder="Room">
            <button id="joinButton" onclick="join()">Join</button>
        </div>
        <div id="messages"></div>
        <div>
            <input type="text" id="messageInput" placeholder="Type a message..." disabled>
            <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
            <button id="locationButton" onclick="sendLocation()" disabled>Share location</button>
        </div>
    </div>
    <div id="sidebar">
        <h3 id="roomName"></h3>
        <ul id="users"></ul>
    </div>

    <script>
        let ws = null;
        let seq = 0;
        const pending = {};
        const messagesDiv = document.getElementById('messages');

        function addLine(html, cls) {
            const el = document.createElement('div');
            el.style.margin = '5px 0';
            if (cls) el.className = cls;
            el.innerHTML = html;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function stamp(ms) {
            return new Date(ms).toLocaleTimeString();
        }

        function emit(event, data, cb) {
            seq++;
            if (cb) pending[seq] = cb;
            ws.send(JSON.stringify({ event: event, seq: seq, data: data }));
        }

        function handleFrame(frame) {
            const d = frame.data;
            if (frame.event === 'message') {
                const cls = d.username === 'System' ? 'system' : '';
                addLine('<strong>' + d.username + '</strong> [' + stamp(d.createdAt) + ']: ' + d.text, cls);
            } else if (frame.event === 'locationMessage') {
                addLine('<strong>' + d.username + '</strong> [' + stamp(d.createdAt) + ']: <a href="' + d.url + '" target="_blank">My current location</a>');
            } else if (frame.event === 'roomData') {
                document.getElementById('roomName').textContent = d.room;
                const list = document.getElementById('users');
                list.innerHTML = '';
                d.users.forEach(function(name) {
                    const li = document.createElement('li');
                    li.textContent = name;
                    list.appendChild(li);
                });
            } else if (frame.event === 'ack') {
                const cb = pending[d.seq];
                delete pending[d.seq];
                if (cb) cb(d.error);
            }
        }

        function join() {
            const username = document.getElementById('username').value.trim();
            const room = document.getElementById('room').value.trim();
            ws = new WebSocket('ws://' + location.host + '/ws');
            ws.onmessage = function(evt) {
                evt.data.split('\n').forEach(function(line) {
                    handleFrame(JSON.parse(line));
                });
            };
            ws.onopen = function() {
                emit('join', { username: username, room: room }, function(err) {
                    if (err) {
                        addLine(err, 'system');
                        ws.close();
                        return;
                    }
                    document.getElementById('messageInput').disabled = false;
                    document.getElementById('sendButton').disabled = false;
                    document.getElementById('locationButton').disabled = false;
                });
            };
            ws.onclose = function() { addLine('Connection closed', 'system'); };
        }

        function sendMessage() {
            const input = document.getElementById('messageInput');
            const text = input.value.trim();
            if (!text) return;
            emit('sendMessage', { text: text }, function(err) {
                if (err) addLine(err, 'system');
            });
            input.value = '';
        }

        function sendLocation() {
            if (!navigator.geolocation) {
                addLine('Geolocation is not supported by your browser', 'system');
                return;
            }
            navigator.geolocation.getCurrentPosition(function(position) {
                emit('sendLocation', {
                    latitude: position.coords.latitude,
                    longitude: position.coords.longitude
                });
            });
        }

        document.getElementById('messageInput').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') sendMessage();
        });
    </script>
</body>
</html>`
