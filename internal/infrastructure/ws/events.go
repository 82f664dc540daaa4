package ws

// Inbound frame types.
const (
	CreateRoom  = "create_room"
	JoinRoom    = "join_room"
	LeaveRoom   = "leave_room"
	SendMessage = "send_message"
)

// Outbound frame types.
const (
	SessionReady    = "session.ready"
	RoomJoined      = "room.joined"
	RoomLeft        = "room.left"
	PresenceJoined  = "presence.joined"
	PresenceLeft    = "presence.left"
	MessageReceived = "message.received"
	MessageAck      = "message.ack"
	ErrorEvent      = "error"
)
