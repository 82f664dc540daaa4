package domain

import (
	"context"
	"time"
)

// RoomEvent is an out-of-band record of a room lifecycle change, published
// for auditing. It never feeds back into room state.
type RoomEvent struct {
	RoomID       string    `json:"roomId"`
	RoomCode     string    `json:"roomCode"`
	ConnectionID string    `json:"connectionId,omitempty"`
	DisplayName  string    `json:"displayName,omitempty"`
	MemberCount  int       `json:"memberCount"`
	Reason       string    `json:"reason,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func NewRoomEvent(room *Room, connectionID, name string) RoomEvent {
	return RoomEvent{
		RoomID:       room.ID,
		RoomCode:     room.Code,
		ConnectionID: connectionID,
		DisplayName:  name,
		MemberCount:  room.MemberCount(),
		OccurredAt:   time.Now().UTC(),
	}
}

type RoomEventPublisher interface {
	PublishRoomCreated(ctx context.Context, event RoomEvent) error
	PublishMemberJoined(ctx context.Context, event RoomEvent) error
	PublishMemberLeft(ctx context.Context, event RoomEvent) error
	PublishRoomDeleted(ctx context.Context, event RoomEvent) error
}
