package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hilthontt/huddle/internal/application/broadcast"
	"github.com/hilthontt/huddle/internal/domain"
	"github.com/hilthontt/huddle/internal/infrastructure/logging"
	"github.com/hilthontt/huddle/internal/infrastructure/metrics"
	"github.com/hilthontt/huddle/internal/infrastructure/tracing"
	"github.com/hilthontt/huddle/internal/infrastructure/validate"
	"go.opentelemetry.io/otel/trace"
)

const defaultMaxNameLength = 32

// Limiter throttles the operations of one connection.
type Limiter interface {
	Allow(sourceKey string) bool
}

type Options struct {
	MaxNameLength int
}

// Service owns everything sessions share: the registry, the dispatcher and
// the ambient collaborators. Construct one per process.
type Service struct {
	rooms      domain.RoomRepository
	dispatcher *broadcast.Dispatcher
	publisher  domain.RoomEventPublisher
	limiter    Limiter
	logger     logging.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer

	validateName validate.Validator
}

func NewService(
	rooms domain.RoomRepository,
	dispatcher *broadcast.Dispatcher,
	publisher domain.RoomEventPublisher,
	limiter Limiter,
	logger logging.Logger,
	m *metrics.Metrics,
	opts Options,
) *Service {
	if opts.MaxNameLength <= 0 {
		opts.MaxNameLength = defaultMaxNameLength
	}

	return &Service{
		rooms:      rooms,
		dispatcher: dispatcher,
		publisher:  publisher,
		limiter:    limiter,
		logger:     logger,
		metrics:    m,
		tracer:     tracing.GetTracer("huddle/session"),
		validateName: validate.Field("name",
			validate.Required(),
			validate.MaxRunes(opts.MaxNameLength),
			validate.Printable(),
		),
	}
}

// Open starts a session in the Connected state.
func (s *Service) Open(connectionID string) *Session {
	return &Session{
		id:    connectionID,
		svc:   s,
		state: StateConnected,
	}
}

// SweepAbandoned drops rooms that were created and never joined or whose
// creator failed before joining.
func (s *Service) SweepAbandoned(ctx context.Context, olderThan time.Duration) int {
	swept := s.rooms.SweepAbandoned(ctx, olderThan)
	for _, room := range swept {
		s.metrics.RoomRemoved("abandoned")
		s.publish(ctx, s.publisher.PublishRoomDeleted, domain.RoomEvent{
			RoomID:     room.ID,
			RoomCode:   room.Code,
			Reason:     "abandoned",
			OccurredAt: time.Now().UTC(),
		})
		s.logger.Info(logging.Room, logging.Sweep, "abandoned room removed", map[logging.ExtraKey]any{
			logging.RoomCode: room.Code,
		})
	}
	return len(swept)
}

// Announce sends a system notice to every live room, e.g. before shutdown.
func (s *Service) Announce(ctx context.Context, text string) int {
	var n int
	for _, room := range s.rooms.Rooms(ctx) {
		if room.MemberCount() == 0 {
			continue
		}
		s.dispatcher.Announce(ctx, room, text)
		n++
	}
	return n
}

func (s *Service) normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := s.validateName(name); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidName, err)
	}
	return name, nil
}

func (s *Service) allow(connectionID string) bool {
	if s.limiter == nil || s.limiter.Allow(connectionID) {
		return true
	}
	s.metrics.RateLimited("session")
	return false
}

func (s *Service) forget(connectionID string) {
	if f, ok := s.limiter.(interface{ Forget(string) }); ok {
		f.Forget(connectionID)
	}
}

// lifecycleEvent is a room event held back until the session lock is
// released, so a slow broker never delays the session's next operation.
type lifecycleEvent struct {
	publish func(context.Context, domain.RoomEvent) error
	event   domain.RoomEvent
}

func (s *Service) publishAll(ctx context.Context, events []lifecycleEvent) {
	for _, e := range events {
		s.publish(ctx, e.publish, e.event)
	}
}

func (s *Service) publish(ctx context.Context, fn func(context.Context, domain.RoomEvent) error, event domain.RoomEvent) {
	if err := fn(ctx, event); err != nil {
		s.logger.Warn(logging.RabbitMQ, logging.Publish, "failed to publish room event", map[logging.ExtraKey]any{
			logging.RoomCode:     event.RoomCode,
			logging.ConnectionID: event.ConnectionID,
			logging.ErrorMessage: err.Error(),
		})
	}
}
