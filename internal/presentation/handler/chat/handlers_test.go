package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/huddle/internal/application/broadcast"
	"github.com/hilthontt/huddle/internal/application/session"
	"github.com/hilthontt/huddle/internal/domain"
	"github.com/hilthontt/huddle/internal/infrastructure/events"
	"github.com/hilthontt/huddle/internal/infrastructure/logging"
	"github.com/hilthontt/huddle/internal/infrastructure/repository"
	"github.com/hilthontt/huddle/internal/infrastructure/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type     string          `json:"type"`
	RoomCode string          `json:"roomCode"`
	Data     json.RawMessage `json:"data"`
}

func newServer(t *testing.T) (*httptest.Server, domain.RoomRepository) {
	t.Helper()
	logger := logging.NewNop()
	rooms := repository.NewRoomRepository(
		domain.CodeGeneratorFunc(func() (string, error) { return "K3P9QZ", nil }),
		repository.Options{},
	)
	hub := ws.NewHub(logger)
	dispatcher := broadcast.NewDispatcher(hub, rooms, logger, nil, broadcast.Options{EchoToSender: true})
	sessions := session.NewService(rooms, dispatcher, events.NopPublisher{}, nil, logger, nil, session.Options{})

	h := NewHandler(sessions, hub, ws.NewUpgrader([]string{"*"}), ws.ClientOptions{}, logger, nil)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)
	return srv, rooms
}

func connect(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ready := read(t, conn)
	require.Equal(t, ws.SessionReady, ready.Type)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": typ, "data": data}))
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func expect(t *testing.T, conn *websocket.Conn, typ string, into any) frame {
	t.Helper()
	f := read(t, conn)
	require.Equal(t, typ, f.Type, string(f.Data))
	if into != nil {
		require.NoError(t, json.Unmarshal(f.Data, into))
	}
	return f
}

func TestServeWS_Conversation(t *testing.T) {
	srv, rooms := newServer(t)
	alice := connect(t, srv)
	bob := connect(t, srv)

	send(t, alice, ws.CreateRoom, map[string]string{"name": "Alice"})
	var snap domain.Snapshot
	expect(t, alice, ws.RoomJoined, &snap)
	assert.Equal(t, "K3P9QZ", snap.Code)
	assert.True(t, snap.Created)
	expect(t, alice, ws.PresenceJoined, nil)

	send(t, bob, ws.JoinRoom, map[string]string{"code": "k3p9qz", "name": "Bob"})
	expect(t, bob, ws.RoomJoined, &snap)
	assert.Equal(t, []string{"Alice", "Bob"}, snap.Members)
	expect(t, bob, ws.PresenceJoined, nil)

	var presence ws.PresencePayload
	expect(t, alice, ws.PresenceJoined, &presence)
	assert.Equal(t, "Bob joined", presence.Notice.Body)

	send(t, alice, ws.SendMessage, map[string]string{"body": "hi"})
	var msg ws.MessagePayload
	f := expect(t, bob, ws.MessageReceived, &msg)
	assert.Equal(t, "K3P9QZ", f.RoomCode)
	assert.Equal(t, "Alice", msg.Message.Sender)
	assert.Equal(t, "hi", msg.Message.Body)
	expect(t, alice, ws.MessageReceived, nil)

	send(t, bob, ws.LeaveRoom, nil)
	var left ws.RoomLeftPayload
	expect(t, bob, ws.RoomLeft, &left)
	assert.Equal(t, "K3P9QZ", left.Code)
	expect(t, alice, ws.PresenceLeft, &presence)
	assert.Equal(t, []string{"Alice"}, presence.Members)

	require.NoError(t, alice.Close())
	require.Eventually(t, func() bool { return rooms.Count() == 0 }, 5*time.Second, 10*time.Millisecond,
		"closing the last connection removes the room")
}

func TestServeWS_Errors(t *testing.T) {
	srv, _ := newServer(t)
	conn := connect(t, srv)

	tests := []struct {
		name  string
		raw   string
		code  string
		retry bool
	}{
		{name: "unknown room", raw: `{"type":"join_room","data":{"code":"ZZZZZZ","name":"Bob"}}`, code: "ROOM_NOT_FOUND", retry: true},
		{name: "not a member", raw: `{"type":"send_message","data":{"body":"hi"}}`, code: "NOT_A_MEMBER"},
		{name: "not in room", raw: `{"type":"leave_room"}`, code: "NOT_IN_ROOM"},
		{name: "unknown type", raw: `{"type":"shout"}`, code: "UNKNOWN_EVENT"},
		{name: "malformed", raw: `{"type":`, code: "MALFORMED_FRAME"},
		{name: "invalid name", raw: `{"type":"create_room","data":{"name":"  "}}`, code: "INVALID_NAME", retry: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)))
			var payload ws.ErrorPayload
			expect(t, conn, ws.ErrorEvent, &payload)
			assert.Equal(t, tt.code, payload.Code)
			assert.Equal(t, tt.retry, payload.Retry)
		})
	}
}

func TestErrorFrame_HidesFaults(t *testing.T) {
	msg := errorFrame("K3P9QZ", fmt.Errorf("%w: boom", domain.ErrMembershipDesync))
	payload := msg.Data.(ws.ErrorPayload)
	assert.Equal(t, "INTERNAL", payload.Code)
	assert.NotContains(t, payload.Message, "boom")

	msg = errorFrame("", errors.New("something else"))
	assert.Equal(t, "INTERNAL", msg.Data.(ws.ErrorPayload).Code)

	msg = errorFrame("K3P9QZ", fmt.Errorf("join: %w", domain.ErrRoomFull))
	assert.Equal(t, "ROOM_FULL", msg.Data.(ws.ErrorPayload).Code)
	assert.Equal(t, "K3P9QZ", msg.RoomCode)
}
