package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hilthontt/huddle/internal/domain"
	"github.com/hilthontt/huddle/internal/infrastructure/contracts"
	"github.com/hilthontt/huddle/internal/infrastructure/logging"
	"github.com/hilthontt/huddle/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	routingKey string
	message    contracts.AmqpMessage
}

type fakeBroker struct {
	out []published
	err error
}

func (b *fakeBroker) PublishMessage(ctx context.Context, routingKey string, message contracts.AmqpMessage) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	b.out = append(b.out, published{routingKey: routingKey, message: message})
	return b.err
}

func (b *fakeBroker) ConsumeMessages(_ string, handler messaging.MessageHandler) error {
	for _, p := range b.out {
		body, err := json.Marshal(p.message)
		if err != nil {
			return err
		}
		if err := handler(context.Background(), amqp091.Delivery{RoutingKey: p.routingKey, Body: body}); err != nil {
			return err
		}
	}
	return nil
}

func TestRoomPublisher_RoutingKeys(t *testing.T) {
	broker := &fakeBroker{}
	pub := NewRoomPublisher(broker)
	ctx := context.Background()
	event := domain.RoomEvent{RoomCode: "K3P9QZ", ConnectionID: "c-1", DisplayName: "Alice", MemberCount: 1, OccurredAt: time.Now()}

	require.NoError(t, pub.PublishRoomCreated(ctx, event))
	require.NoError(t, pub.PublishMemberJoined(ctx, event))
	require.NoError(t, pub.PublishMemberLeft(ctx, event))
	require.NoError(t, pub.PublishRoomDeleted(ctx, event))

	require.Len(t, broker.out, 4)
	keys := []string{}
	for _, p := range broker.out {
		keys = append(keys, p.routingKey)
		assert.Equal(t, "c-1", p.message.ConnectionID)
	}
	assert.Equal(t, []string{
		contracts.EventRoomCreated,
		contracts.EventMemberJoined,
		contracts.EventMemberLeft,
		contracts.EventRoomDeleted,
	}, keys)

	var data messaging.RoomEventData
	require.NoError(t, json.Unmarshal(broker.out[0].message.Data, &data))
	assert.Equal(t, "K3P9QZ", data.Event.RoomCode)
	assert.Equal(t, "Alice", data.Event.DisplayName)
}

func TestRoomPublisher_PropagatesError(t *testing.T) {
	boom := errors.New("channel closed")
	pub := NewRoomPublisher(&fakeBroker{err: boom})

	err := pub.PublishRoomCreated(context.Background(), domain.RoomEvent{})
	require.ErrorIs(t, err, boom)
}

func TestRoomConsumer_RoundTrip(t *testing.T) {
	broker := &fakeBroker{}
	require.NoError(t, NewRoomPublisher(broker).PublishMemberJoined(context.Background(), domain.RoomEvent{RoomCode: "ABCDEF"}))

	consumer := NewRoomConsumer(broker, logging.NewNop())
	assert.NoError(t, consumer.Listen())
}

func TestRoomConsumer_RejectsGarbage(t *testing.T) {
	consumer := NewRoomConsumer(&fakeBroker{}, logging.NewNop())

	err := consumer.handle(context.Background(), amqp091.Delivery{Body: []byte("not json")})
	require.Error(t, err)

	body, _ := json.Marshal(contracts.AmqpMessage{Data: []byte("{broken")})
	err = consumer.handle(context.Background(), amqp091.Delivery{Body: body})
	require.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var pub domain.RoomEventPublisher = NopPublisher{}
	assert.NoError(t, pub.PublishRoomCreated(context.Background(), domain.RoomEvent{}))
}
