package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	MessageKindUser   MessageKind = "user"
	MessageKindSystem MessageKind = "system"
)

// SystemSender is the reserved sender name for notices. It cannot collide
// with a member because it is carried alongside MessageKindSystem.
const SystemSender = "System"

type Message struct {
	ID        string      `json:"id"`
	Sender    string      `json:"sender"`
	Kind      MessageKind `json:"kind"`
	Body      string      `json:"body"`
	Timestamp time.Time   `json:"timestamp"`
}

func newUserMessage(sender, body string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Kind:      MessageKindUser,
		Body:      body,
		Timestamp: at,
	}
}

func newSystemMessage(body string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    SystemSender,
		Kind:      MessageKindSystem,
		Body:      body,
		Timestamp: at,
	}
}

func (m Message) IsSystem() bool {
	return m.Kind == MessageKindSystem
}
