package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Internal        Category = "Internal"
	Session         Category = "Session"
	Room            Category = "Room"
	WebSocket       Category = "WebSocket"
	Redis           Category = "Redis"
	RabbitMQ        Category = "RabbitMQ"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Session
	CreateRoom  SubCategory = "CreateRoom"
	JoinRoom    SubCategory = "JoinRoom"
	LeaveRoom   SubCategory = "LeaveRoom"
	SendMessage SubCategory = "SendMessage"
	Disconnect  SubCategory = "Disconnect"

	// Room
	Broadcast SubCategory = "Broadcast"
	Delivery  SubCategory = "Delivery"
	Sweep     SubCategory = "Sweep"

	// WebSocket
	Upgrade SubCategory = "Upgrade"
	Read    SubCategory = "Read"
	Write   SubCategory = "Write"

	// RabbitMQ
	Publish SubCategory = "Publish"
	Consume SubCategory = "Consume"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	ErrorMessage ExtraKey = "ErrorMessage"
	ConnectionID ExtraKey = "ConnectionID"
	RoomCode     ExtraKey = "RoomCode"
	DisplayName  ExtraKey = "DisplayName"
	EventType    ExtraKey = "EventType"
	MemberCount  ExtraKey = "MemberCount"
)
