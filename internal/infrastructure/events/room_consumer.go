package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/huddle/internal/infrastructure/contracts"
	"github.com/hilthontt/huddle/internal/infrastructure/logging"
	"github.com/hilthontt/huddle/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

type consumer interface {
	ConsumeMessages(queueName string, handler messaging.MessageHandler) error
}

// RoomConsumer writes the room lifecycle stream to the log as an audit
// trail.
type RoomConsumer struct {
	rabbitmq consumer
	logger   logging.Logger
}

func NewRoomConsumer(rabbitmq consumer, logger logging.Logger) *RoomConsumer {
	return &RoomConsumer{
		rabbitmq: rabbitmq,
		logger:   logger,
	}
}

func (c *RoomConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.RoomAuditQueue, c.handle)
}

func (c *RoomConsumer) handle(_ context.Context, msg amqp091.Delivery) error {
	var message contracts.AmqpMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		return fmt.Errorf("unmarshal amqp message: %w", err)
	}

	var payload messaging.RoomEventData
	if err := json.Unmarshal(message.Data, &payload); err != nil {
		return fmt.Errorf("unmarshal room event: %w", err)
	}

	c.logger.Info(logging.RabbitMQ, logging.Consume, "room audit", map[logging.ExtraKey]any{
		logging.EventType:    msg.RoutingKey,
		logging.RoomCode:     payload.Event.RoomCode,
		logging.ConnectionID: payload.Event.ConnectionID,
		logging.DisplayName:  payload.Event.DisplayName,
		logging.MemberCount:  payload.Event.MemberCount,
	})

	return nil
}
