package broadcast

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hilthontt/huddle/internal/domain"
	"github.com/hilthontt/huddle/internal/infrastructure/logging"
	"github.com/hilthontt/huddle/internal/infrastructure/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	connectionID string
	event        domain.Event
}

type recorder struct {
	mu        sync.Mutex
	delivered []delivery
	failing   map[string]bool
}

func (r *recorder) Deliver(connectionID string, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failing[connectionID] {
		return fmt.Errorf("%w: %s", domain.ErrDeliveryFailed, connectionID)
	}
	r.delivered = append(r.delivered, delivery{connectionID: connectionID, event: event})
	return nil
}

func (r *recorder) to(connectionID string) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Event
	for _, d := range r.delivered {
		if d.connectionID == connectionID {
			out = append(out, d.event)
		}
	}
	return out
}

func types(events []domain.Event) []domain.EventType {
	out := make([]domain.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func setup(t *testing.T, opts Options) (*Dispatcher, *recorder, *domain.Room) {
	t.Helper()
	rec := &recorder{failing: map[string]bool{}}
	rooms := repository.NewRoomRepository(nil, repository.Options{})
	room, err := rooms.Create(context.Background(), "conn-a")
	require.NoError(t, err)

	return NewDispatcher(rec, rooms, logging.NewNop(), nil, opts), rec, room
}

func TestDispatcher_FlushEchoesToSender(t *testing.T) {
	d, rec, room := setup(t, Options{EchoToSender: true})
	ctx := context.Background()

	_, _ = room.Join("conn-a", "Alice")
	_, _ = room.Join("conn-b", "Bob")
	_, _ = room.PostMessage("conn-a", "hi")
	d.Flush(ctx, room)

	assert.Equal(t, []domain.EventType{
		domain.EventRoomJoined,
		domain.EventPresenceJoined,
		domain.EventPresenceJoined,
		domain.EventMessage,
	}, types(rec.to("conn-a")))
	assert.Equal(t, []domain.EventType{
		domain.EventRoomJoined,
		domain.EventPresenceJoined,
		domain.EventMessage,
	}, types(rec.to("conn-b")))
}

func TestDispatcher_FlushAcksInsteadOfEcho(t *testing.T) {
	d, rec, room := setup(t, Options{EchoToSender: false})
	ctx := context.Background()

	_, _ = room.Join("conn-a", "Alice")
	_, _ = room.Join("conn-b", "Bob")
	msg, err := room.PostMessage("conn-a", "hi")
	require.NoError(t, err)
	d.Flush(ctx, room)

	toAlice := rec.to("conn-a")
	last := toAlice[len(toAlice)-1]
	assert.Equal(t, domain.EventMessageAck, last.Type)
	assert.Equal(t, msg.ID, last.Message.ID)

	toBob := rec.to("conn-b")
	assert.Equal(t, domain.EventMessage, toBob[len(toBob)-1].Type)
}

func TestDispatcher_FailureIsIsolated(t *testing.T) {
	d, rec, room := setup(t, Options{EchoToSender: true})
	ctx := context.Background()

	_, _ = room.Join("conn-a", "Alice")
	_, _ = room.Join("conn-b", "Bob")
	_, _ = room.Join("conn-c", "Carol")
	d.Flush(ctx, room)

	rec.failing["conn-b"] = true
	_, err := room.PostMessage("conn-a", "hi")
	require.NoError(t, err)
	d.Flush(ctx, room)

	for _, id := range []string{"conn-a", "conn-c"} {
		events := rec.to(id)
		last := events[len(events)-1]
		assert.Equal(t, domain.EventMessage, last.Type, id)
		assert.Equal(t, "hi", last.Message.Body, id)
	}
}

func TestDispatcher_Broadcast(t *testing.T) {
	d, rec, room := setup(t, Options{EchoToSender: true})
	ctx := context.Background()

	_, _ = room.Join("conn-a", "Alice")
	_, _ = room.Join("conn-b", "Bob")
	d.Flush(ctx, room)
	before := len(rec.to("conn-a"))

	notice := domain.Message{Sender: domain.SystemSender, Kind: domain.MessageKindSystem, Body: "heads up"}
	err := d.Broadcast(ctx, room.Code, domain.Event{Type: domain.EventMessage, Message: &notice}, "conn-a")
	require.NoError(t, err)

	assert.Len(t, rec.to("conn-a"), before, "excluded connection gets nothing")
	toBob := rec.to("conn-b")
	assert.Equal(t, "heads up", toBob[len(toBob)-1].Message.Body)

	err = d.Broadcast(ctx, "NOPE00", domain.Event{Type: domain.EventMessage}, "")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestDispatcher_Announce(t *testing.T) {
	d, rec, room := setup(t, Options{EchoToSender: true})
	ctx := context.Background()

	_, _ = room.Join("conn-a", "Alice")
	msg := d.Announce(ctx, room, "server restarting")

	assert.True(t, msg.IsSystem())
	events := rec.to("conn-a")
	last := events[len(events)-1]
	assert.Equal(t, domain.EventMessage, last.Type)
	assert.Equal(t, "server restarting", last.Message.Body)
	assert.Equal(t, msg, room.History()[len(room.History())-1])
}
