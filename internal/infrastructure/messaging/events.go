package messaging

import "github.com/hilthontt/huddle/internal/domain"

const (
	RoomAuditQueue  = "room_audit"
	DeadLetterQueue = "dead_letter_queue"
)

type RoomEventData struct {
	Event domain.RoomEvent `json:"event"`
}
