package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/huddle/internal/domain"
	"github.com/hilthontt/huddle/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	sent   []*WSMessage
	err    error
	closed  int
	aborted int
	code    int
	done    chan struct{}
}

func (f *fakeConn) ConnectionID() string { return f.id }

func (f *fakeConn) Send(msg *WSMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeConn) Close(code int, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.code = code
}

func (f *fakeConn) Abort(code int, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted++
	f.code = code
}

// Done is closed already unless the fake was built with its own channel.
func (f *fakeConn) Done() <-chan struct{} {
	if f.done != nil {
		return f.done
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

func TestHub_Deliver(t *testing.T) {
	hub := NewHub(logging.NewNop())
	conn := &fakeConn{id: "c-1"}
	hub.Register(conn)

	msg := domain.Message{Sender: "Alice", Body: "hi", Kind: domain.MessageKindUser}
	err := hub.Deliver("c-1", domain.Event{Type: domain.EventMessage, RoomCode: "K3P9QZ", Message: &msg})
	require.NoError(t, err)

	require.Len(t, conn.sent, 1)
	assert.Equal(t, MessageReceived, conn.sent[0].Type)
	assert.Equal(t, "K3P9QZ", conn.sent[0].RoomCode)
}

func TestHub_DeliverUnknownConnection(t *testing.T) {
	hub := NewHub(logging.NewNop())

	err := hub.Deliver("ghost", domain.Event{Type: domain.EventMessage, Message: &domain.Message{}})
	require.ErrorIs(t, err, domain.ErrDeliveryFailed)
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestHub_SlowConsumerIsClosed(t *testing.T) {
	hub := NewHub(logging.NewNop())
	conn := &fakeConn{id: "c-1", err: ErrSendBufferFull}
	hub.Register(conn)

	err := hub.Send("c-1", NewSessionReady("c-1"))
	require.ErrorIs(t, err, domain.ErrDeliveryFailed)
	assert.Equal(t, 1, conn.aborted, "a slow consumer is dropped, not drained")
	assert.Zero(t, conn.closed)
}

func TestHub_UnregisterKeepsReplacement(t *testing.T) {
	hub := NewHub(logging.NewNop())
	old := &fakeConn{id: "c-1"}
	fresh := &fakeConn{id: "c-1"}

	hub.Register(old)
	hub.Register(fresh)
	hub.Unregister(old)
	assert.Equal(t, 1, hub.Count())

	hub.Unregister(fresh)
	assert.Zero(t, hub.Count())
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub(logging.NewNop())
	a, b := &fakeConn{id: "a"}, &fakeConn{id: "b"}
	hub.Register(a)
	hub.Register(b)

	hub.CloseAll(context.Background(), 1001, "shutting down")

	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1001, b.code)
}

func TestHub_CloseAllStopsWaitingAtDeadline(t *testing.T) {
	hub := NewHub(logging.NewNop())
	stuck := &fakeConn{id: "a", done: make(chan struct{})}
	hub.Register(stuck)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	hub.CloseAll(ctx, 1001, "shutting down")

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, stuck.closed)
}
