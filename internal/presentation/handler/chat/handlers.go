package chat

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/huddle/internal/application/session"
	"github.com/hilthontt/huddle/internal/domain"
	"github.com/hilthontt/huddle/internal/infrastructure/logging"
	"github.com/hilthontt/huddle/internal/infrastructure/metrics"
	"github.com/hilthontt/huddle/internal/infrastructure/ws"
)

type Handler struct {
	sessions      *session.Service
	hub           *ws.Hub
	upgrader      *websocket.Upgrader
	clientOptions ws.ClientOptions
	logger        logging.Logger
	metrics       *metrics.Metrics
}

func NewHandler(
	sessions *session.Service,
	hub *ws.Hub,
	upgrader *websocket.Upgrader,
	clientOptions ws.ClientOptions,
	logger logging.Logger,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		sessions:      sessions,
		hub:           hub,
		upgrader:      upgrader,
		clientOptions: clientOptions,
		logger:        logger,
		metrics:       m,
	}
}

// ServeWS godoc
// @Summary      Open a chat connection
// @Description  Upgrades to a websocket. The server greets with session.ready; clients then send create_room, join_room, leave_room and send_message frames.
// @Tags         chat
// @Success      101 "Switching Protocols"
// @Failure      400 {string} string "Not a websocket handshake"
// @Router       /ws [get]
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(logging.WebSocket, logging.Upgrade, "upgrade failed", map[logging.ExtraKey]any{
			logging.ClientIp:     r.RemoteAddr,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	connectionID := uuid.NewString()
	client := ws.NewClient(conn, connectionID, h.clientOptions, h.logger)
	sess := h.sessions.Open(connectionID)

	// Detached so a closed request cannot abort the final Disconnect.
	ctx := context.WithoutCancel(r.Context())

	h.hub.Register(client)
	h.metrics.ConnectionOpened()
	defer func() {
		sess.Disconnect(ctx)
		h.hub.Unregister(client)
		client.Close(websocket.CloseNormalClosure, "")
		h.metrics.ConnectionClosed()
		h.logger.Debug(logging.WebSocket, logging.Disconnect, "connection closed", map[logging.ExtraKey]any{
			logging.ConnectionID: connectionID,
		})
	}()

	go client.WritePump()

	h.logger.Debug(logging.WebSocket, logging.Upgrade, "connection opened", map[logging.ExtraKey]any{
		logging.ConnectionID: connectionID,
		logging.ClientIp:     r.RemoteAddr,
	})

	if err := client.Send(ws.NewSessionReady(connectionID)); err != nil {
		return
	}

	client.ReadPump(func(raw []byte) {
		h.handleFrame(ctx, client, sess, raw)
	})
}

func (h *Handler) handleFrame(ctx context.Context, client *ws.Client, sess *session.Session, raw []byte) {
	cmd, err := ws.Decode(raw)
	if err != nil {
		h.reply(client, sess.RoomCode(), cmd.Type, err)
		return
	}

	switch cmd.Type {
	case ws.CreateRoom:
		_, err = sess.CreateRoom(ctx, cmd.Name)
	case ws.JoinRoom:
		_, err = sess.JoinRoom(ctx, cmd.Code, cmd.Name)
	case ws.SendMessage:
		_, err = sess.SendMessage(ctx, cmd.Body)
	case ws.LeaveRoom:
		var code string
		code, err = sess.LeaveRoom(ctx)
		if err == nil {
			_ = client.Send(ws.NewRoomLeft(code))
			return
		}
	}

	if err != nil {
		roomCode := sess.RoomCode()
		if cmd.Type == ws.JoinRoom && roomCode == "" {
			roomCode = domain.NormalizeCode(cmd.Code)
		}
		h.reply(client, roomCode, cmd.Type, err)
	}
}

func (h *Handler) reply(client *ws.Client, roomCode, frameType string, err error) {
	h.logger.Debug(logging.WebSocket, logging.Read, "frame rejected", map[logging.ExtraKey]any{
		logging.ConnectionID: client.ConnectionID(),
		logging.EventType:    frameType,
		logging.ErrorMessage: err.Error(),
	})
	_ = client.Send(errorFrame(roomCode, err))
}
