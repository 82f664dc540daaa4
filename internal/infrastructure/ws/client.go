package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/huddle/internal/infrastructure/logging"
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

type ClientOptions struct {
	SendBuffer int
	ReadLimit  int64
	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 8192
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	return o
}

// abortWait bounds the close frame written to a peer that is being dropped.
const abortWait = time.Second

// Client is one websocket connection. Outbound frames are queued on a
// bounded buffer drained by WritePump; ReadPump feeds inbound frames to a
// handler on the caller's goroutine.
type Client struct {
	ID string

	conn *connWrapper
	send chan *WSMessage

	// closing is closed when a close is requested; done once the socket is
	// torn down.
	closing     chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	doneOnce    sync.Once
	closeCode   int
	closeReason string
	aborted     bool

	opts   ClientOptions
	logger logging.Logger
}

func NewClient(conn *websocket.Conn, id string, opts ClientOptions, logger logging.Logger) *Client {
	opts = opts.withDefaults()

	return &Client{
		ID:      id,
		conn:    newConnWrapper(conn, opts.WriteWait),
		send:    make(chan *WSMessage, opts.SendBuffer),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		opts:    opts,
		logger:  logger,
	}
}

func (c *Client) ConnectionID() string {
	return c.ID
}

// Send queues msg without blocking.
func (c *Client) Send(msg *WSMessage) error {
	select {
	case <-c.closing:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.closing:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Close asks WritePump to write out the frames already queued, then the
// close frame, and tear down the socket. It does not wait for that; use
// Done. Safe to call more than once.
func (c *Client) Close(code int, reason string) {
	c.requestClose(code, reason, false)
}

// Abort drops the connection without flushing its queue. The close frame
// is attempted off the caller's goroutine, so a peer that stopped reading
// cannot stall whoever aborts it.
func (c *Client) Abort(code int, reason string) {
	if !c.requestClose(code, reason, true) {
		return
	}
	go func() {
		_ = c.conn.WriteClose(code, reason, abortWait)
		c.teardown()
	}()
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

// requestClose records how the client closes; the fields are read only
// after closing is closed.
func (c *Client) requestClose(code int, reason string, abort bool) bool {
	first := false
	c.closeOnce.Do(func() {
		c.closeCode, c.closeReason, c.aborted = code, reason, abort
		close(c.closing)
		first = true
	})
	return first
}

func (c *Client) teardown() {
	c.doneOnce.Do(func() {
		_ = c.conn.Close()
		close(c.done)
	})
}

// ReadPump blocks until the connection fails or is closed.
func (c *Client) ReadPump(handle func(raw []byte)) {
	defer c.Close(websocket.CloseNormalClosure, "")

	c.conn.conn.SetReadLimit(c.opts.ReadLimit)
	_ = c.conn.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.conn.SetPongHandler(func(string) error {
		return c.conn.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn(logging.WebSocket, logging.Read, "unexpected close", map[logging.ExtraKey]any{
					logging.ConnectionID: c.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}

		handle(raw)
	}
}

// WritePump drains the send buffer and keeps the connection alive with
// pings. On Close it flushes what is queued before the close frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.teardown()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WritePing(); err != nil {
				return
			}
		case <-c.closing:
			if !c.aborted && c.flush() == nil {
				_ = c.conn.WriteClose(c.closeCode, c.closeReason, c.opts.WriteWait)
			}
			return
		case <-c.done:
			return
		}
	}
}

func (c *Client) flush() error {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return err
			}
		case <-c.done:
			return ErrClientClosed
		default:
			return nil
		}
	}
}

func (c *Client) write(msg *WSMessage) error {
	err := c.conn.WriteJSON(msg)
	if err != nil {
		c.logger.Warn(logging.WebSocket, logging.Write, "write failed", map[logging.ExtraKey]any{
			logging.ConnectionID: c.ID,
			logging.ErrorMessage: err.Error(),
		})
	}
	return err
}
