package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/huddle/internal/domain"
	"github.com/hilthontt/huddle/internal/infrastructure/logging"
)

var ErrClientNotFound = errors.New("client not found")

// Conn is the part of a connection the hub needs.
type Conn interface {
	ConnectionID() string
	Send(msg *WSMessage) error
	Close(code int, reason string)
	Abort(code int, reason string)
	Done() <-chan struct{}
}

// Hub maps connection ids to live connections and implements the
// dispatcher's delivery primitive on top of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Conn
	logger  logging.Logger
}

func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		clients: make(map[string]Conn),
		logger:  logger,
	}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ConnectionID()] = c
}

// Unregister removes c if it is still the connection registered under its id.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.clients[c.ConnectionID()]; ok && current == c {
		delete(h.clients, c.ConnectionID())
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send pushes a frame to one connection. A connection whose buffer is full
// is closed; it cannot keep up and would otherwise miss events silently.
func (h *Hub) Send(connectionID string, msg *WSMessage) error {
	h.mu.RLock()
	c, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %w %s", domain.ErrDeliveryFailed, ErrClientNotFound, connectionID)
	}

	err := c.Send(msg)
	if errors.Is(err, ErrSendBufferFull) {
		h.logger.Warn(logging.WebSocket, logging.Write, "slow consumer disconnected", map[logging.ExtraKey]any{
			logging.ConnectionID: connectionID,
		})
		c.Abort(websocket.ClosePolicyViolation, "too slow")
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	return nil
}

func (h *Hub) Deliver(connectionID string, event domain.Event) error {
	msg := FromEvent(event)
	if msg == nil {
		return fmt.Errorf("no frame for event %q", event.Type)
	}
	return h.Send(connectionID, msg)
}

// CloseAll closes every connection after its queued frames are written,
// e.g. on shutdown. It waits for the sockets to go away until ctx is done.
func (h *Hub) CloseAll(ctx context.Context, code int, reason string) {
	h.mu.RLock()
	clients := make([]Conn, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close(code, reason)
	}

	for _, c := range clients {
		select {
		case <-c.Done():
		case <-ctx.Done():
			return
		}
	}
}
