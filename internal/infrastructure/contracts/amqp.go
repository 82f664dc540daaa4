package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	ConnectionID string `json:"connectionId,omitempty"`
	Data         []byte `json:"data"`
}

// Routing keys
const (
	EventRoomCreated  = "room.created"
	EventRoomDeleted  = "room.deleted"
	EventMemberJoined = "member.joined"
	EventMemberLeft   = "member.left"
)

var RoomLifecycleEvents = []string{
	EventRoomCreated,
	EventRoomDeleted,
	EventMemberJoined,
	EventMemberLeft,
}
