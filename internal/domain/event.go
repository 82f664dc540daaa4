package domain

type EventType string

const (
	EventRoomJoined     EventType = "room.joined"
	EventPresenceJoined EventType = "presence.joined"
	EventPresenceLeft   EventType = "presence.left"
	EventMessage        EventType = "message.received"
	// EventMessageAck confirms a post to its sender when messages are not
	// echoed back.
	EventMessageAck EventType = "message.ack"
)

// Event is a room-scoped outbound notification. Exactly one of Snapshot,
// Presence or Message is set, depending on Type.
type Event struct {
	Type     EventType
	RoomCode string
	Snapshot *Snapshot
	Presence *Presence
	Message  *Message
}

// Snapshot is the initial state replayed to a connection that just joined.
type Snapshot struct {
	Code    string    `json:"code"`
	Name    string    `json:"name"`
	Created bool      `json:"created"`
	Members []string  `json:"members"`
	History []Message `json:"history"`
}

// Envelope pairs an event with the recipients it was addressed to at the
// moment the room state changed.
type Envelope struct {
	Event      Event
	Recipients []string
	// Origin is the connection whose action produced the event, empty for
	// server-originated notices.
	Origin string
}
