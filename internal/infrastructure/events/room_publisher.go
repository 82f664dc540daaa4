package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hilthontt/huddle/internal/domain"
	"github.com/hilthontt/huddle/internal/infrastructure/contracts"
	"github.com/hilthontt/huddle/internal/infrastructure/messaging"
)

const publishTimeout = 2 * time.Second

type broker interface {
	PublishMessage(ctx context.Context, routingKey string, message contracts.AmqpMessage) error
}

var _ domain.RoomEventPublisher = (*RoomPublisher)(nil)

type RoomPublisher struct {
	rabbitmq broker
}

func NewRoomPublisher(rabbitmq broker) *RoomPublisher {
	return &RoomPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *RoomPublisher) PublishRoomCreated(ctx context.Context, event domain.RoomEvent) error {
	return p.publish(ctx, contracts.EventRoomCreated, event)
}

func (p *RoomPublisher) PublishRoomDeleted(ctx context.Context, event domain.RoomEvent) error {
	return p.publish(ctx, contracts.EventRoomDeleted, event)
}

func (p *RoomPublisher) PublishMemberJoined(ctx context.Context, event domain.RoomEvent) error {
	return p.publish(ctx, contracts.EventMemberJoined, event)
}

func (p *RoomPublisher) PublishMemberLeft(ctx context.Context, event domain.RoomEvent) error {
	return p.publish(ctx, contracts.EventMemberLeft, event)
}

func (p *RoomPublisher) publish(ctx context.Context, routingKey string, event domain.RoomEvent) error {
	payload, err := json.Marshal(messaging.RoomEventData{Event: event})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.rabbitmq.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		ConnectionID: event.ConnectionID,
		Data:         payload,
	})
}

// NopPublisher drops lifecycle events; used when RabbitMQ is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishRoomCreated(context.Context, domain.RoomEvent) error  { return nil }
func (NopPublisher) PublishRoomDeleted(context.Context, domain.RoomEvent) error  { return nil }
func (NopPublisher) PublishMemberJoined(context.Context, domain.RoomEvent) error { return nil }
func (NopPublisher) PublishMemberLeft(context.Context, domain.RoomEvent) error   { return nil }
