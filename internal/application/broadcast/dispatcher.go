package broadcast

import (
	"context"
	"errors"

	"github.com/hilthontt/huddle/internal/domain"
	"github.com/hilthontt/huddle/internal/infrastructure/logging"
	"github.com/hilthontt/huddle/internal/infrastructure/metrics"
	"github.com/hilthontt/huddle/internal/infrastructure/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Deliverer pushes one event to one connection. It must not block on a slow
// peer.
type Deliverer interface {
	Deliver(connectionID string, event domain.Event) error
}

type Options struct {
	// EchoToSender delivers a user message back to its author. When false
	// the author gets an EventMessageAck instead.
	EchoToSender bool
}

type Dispatcher struct {
	deliverer Deliverer
	rooms     domain.RoomRepository
	logger    logging.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	opts      Options
}

func NewDispatcher(
	deliverer Deliverer,
	rooms domain.RoomRepository,
	logger logging.Logger,
	m *metrics.Metrics,
	opts Options,
) *Dispatcher {
	return &Dispatcher{
		deliverer: deliverer,
		rooms:     rooms,
		logger:    logger,
		metrics:   m,
		tracer:    tracing.GetTracer("huddle/broadcast"),
		opts:      opts,
	}
}

// Flush delivers everything the room has queued, in order.
func (d *Dispatcher) Flush(ctx context.Context, room *domain.Room) {
	_, span := d.tracer.Start(ctx, "broadcast.flush", trace.WithAttributes(
		attribute.String("room.code", room.Code),
	))
	defer span.End()

	var envelopes, failed int
	room.Flush(func(env domain.Envelope) {
		envelopes++
		failed += d.fanOut(env)
	})

	span.SetAttributes(
		attribute.Int("broadcast.envelopes", envelopes),
		attribute.Int("broadcast.failed", failed),
	)
}

// Broadcast queues event for every current member of the room except
// exclude and flushes it behind anything already pending.
func (d *Dispatcher) Broadcast(ctx context.Context, code string, event domain.Event, exclude string) error {
	room, err := d.rooms.GetByCode(ctx, code)
	if err != nil {
		return err
	}

	room.Enqueue(event, exclude)
	d.Flush(ctx, room)
	return nil
}

// Announce posts a system notice to the room and delivers it.
func (d *Dispatcher) Announce(ctx context.Context, room *domain.Room, text string) domain.Message {
	msg := room.PostSystemNotice(text)
	d.Flush(ctx, room)
	return msg
}

func (d *Dispatcher) fanOut(env domain.Envelope) int {
	var failed int

	for _, connectionID := range env.Recipients {
		event := env.Event
		if !d.opts.EchoToSender && connectionID == env.Origin && event.Type == domain.EventMessage {
			event.Type = domain.EventMessageAck
		}

		if err := d.deliverer.Deliver(connectionID, event); err != nil {
			failed++
			d.metrics.DeliveryFailed()
			d.logFailure(env, connectionID, err)
			continue
		}
		d.metrics.Delivered()
	}

	return failed
}

func (d *Dispatcher) logFailure(env domain.Envelope, connectionID string, err error) {
	extra := map[logging.ExtraKey]any{
		logging.RoomCode:     env.Event.RoomCode,
		logging.ConnectionID: connectionID,
		logging.EventType:    string(env.Event.Type),
		logging.ErrorMessage: err.Error(),
	}

	if errors.Is(err, domain.ErrDeliveryFailed) {
		d.logger.Warn(logging.Room, logging.Delivery, "delivery failed", extra)
		return
	}
	d.logger.Error(logging.Room, logging.Delivery, "unexpected delivery error", extra)
}
