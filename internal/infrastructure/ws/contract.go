package ws

import (
	"github.com/hilthontt/huddle/internal/domain"
)

type WSMessage struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode,omitempty"`
	Data     any    `json:"data"`
}

// Payload structs
type ReadyPayload struct {
	ConnectionID string `json:"connectionId"`
}

type PresencePayload struct {
	Name    string         `json:"name"`
	Notice  domain.Message `json:"notice"`
	Members []string       `json:"members"`
}

type MessagePayload struct {
	Message domain.Message `json:"message"`
}

type RoomLeftPayload struct {
	Code string `json:"code"`
}

type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Retry   bool   `json:"retry,omitempty"`
}

func NewSessionReady(connectionID string) *WSMessage {
	return &WSMessage{
		Type: SessionReady,
		Data: ReadyPayload{ConnectionID: connectionID},
	}
}

func NewRoomLeft(code string) *WSMessage {
	return &WSMessage{
		Type:     RoomLeft,
		RoomCode: code,
		Data:     RoomLeftPayload{Code: code},
	}
}

func NewError(roomCode, code, message string, retry bool) *WSMessage {
	return &WSMessage{
		Type:     ErrorEvent,
		RoomCode: roomCode,
		Data: ErrorPayload{
			Code:    code,
			Message: message,
			Retry:   retry,
		},
	}
}

// FromEvent renders a room event as an outbound frame. Events without a
// payload for their type yield nil.
func FromEvent(event domain.Event) *WSMessage {
	msg := &WSMessage{RoomCode: event.RoomCode}

	switch event.Type {
	case domain.EventRoomJoined:
		if event.Snapshot == nil {
			return nil
		}
		msg.Type = RoomJoined
		msg.Data = event.Snapshot
	case domain.EventPresenceJoined, domain.EventPresenceLeft:
		if event.Presence == nil {
			return nil
		}
		msg.Type = PresenceJoined
		if event.Type == domain.EventPresenceLeft {
			msg.Type = PresenceLeft
		}
		msg.Data = PresencePayload{
			Name:    event.Presence.Name,
			Notice:  event.Presence.Notice,
			Members: event.Presence.Members,
		}
	case domain.EventMessage, domain.EventMessageAck:
		if event.Message == nil {
			return nil
		}
		msg.Type = MessageReceived
		if event.Type == domain.EventMessageAck {
			msg.Type = MessageAck
		}
		msg.Data = MessagePayload{Message: *event.Message}
	default:
		return nil
	}

	return msg
}
