package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hilthontt/huddle/internal/domain"
	"github.com/hilthontt/huddle/internal/infrastructure/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Session is the state machine of one connection:
// Connected -> InRoom -> Connected ... -> Disconnected. Its operations are
// serialized, so a disconnect racing an in-flight leave runs after it.
type Session struct {
	id  string
	svc *Service

	mu     sync.Mutex
	state  State
	room   *domain.Room
	member domain.Member
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RoomCode is empty unless the session is in a room.
func (s *Session) RoomCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == nil {
		return ""
	}
	return s.room.Code
}

func (s *Session) CreateRoom(ctx context.Context, name string) (snapshot domain.Snapshot, err error) {
	ctx, span := s.start(ctx, "create_room")
	defer func() { s.end(span, "create_room", err) }()

	var pending []lifecycleEvent
	defer func() { s.svc.publishAll(ctx, pending) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireConnectedLocked(); err != nil {
		return domain.Snapshot{}, err
	}
	name, err = s.svc.normalizeName(name)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if !s.svc.allow(s.id) {
		return domain.Snapshot{}, domain.ErrRateLimited
	}

	room, err := s.svc.rooms.Create(ctx, s.id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	s.svc.metrics.RoomCreated()

	res, err := room.Join(s.id, name)
	if err != nil {
		if room.CloseIfEmpty() && s.svc.rooms.Evict(ctx, room) {
			s.svc.metrics.RoomRemoved("create_failed")
		}
		if errors.Is(err, domain.ErrNameTaken) {
			err = fmt.Errorf("%w: creator name taken in fresh room %s", domain.ErrMembershipDesync, room.Code)
		}
		return domain.Snapshot{}, err
	}

	s.enterLocked(room, res.Member)
	s.svc.dispatcher.Flush(ctx, room)

	event := domain.NewRoomEvent(room, s.id, name)
	pending = append(pending,
		lifecycleEvent{s.svc.publisher.PublishRoomCreated, event},
		lifecycleEvent{s.svc.publisher.PublishMemberJoined, event},
	)

	s.svc.logger.Info(logging.Session, logging.CreateRoom, "room created", map[logging.ExtraKey]any{
		logging.ConnectionID: s.id,
		logging.RoomCode:     room.Code,
		logging.DisplayName:  name,
	})

	return res.Snapshot, nil
}

func (s *Session) JoinRoom(ctx context.Context, code, name string) (snapshot domain.Snapshot, err error) {
	ctx, span := s.start(ctx, "join_room")
	span.SetAttributes(attribute.String("room.code", domain.NormalizeCode(code)))
	defer func() { s.end(span, "join_room", err) }()

	var pending []lifecycleEvent
	defer func() { s.svc.publishAll(ctx, pending) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireConnectedLocked(); err != nil {
		return domain.Snapshot{}, err
	}
	name, err = s.svc.normalizeName(name)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if !s.svc.allow(s.id) {
		return domain.Snapshot{}, domain.ErrRateLimited
	}

	room, err := s.svc.rooms.GetByCode(ctx, code)
	if err != nil {
		return domain.Snapshot{}, err
	}

	res, err := room.Join(s.id, name)
	if err != nil {
		return domain.Snapshot{}, err
	}

	s.enterLocked(room, res.Member)
	s.svc.dispatcher.Flush(ctx, room)

	pending = append(pending, lifecycleEvent{s.svc.publisher.PublishMemberJoined, domain.NewRoomEvent(room, s.id, name)})

	s.svc.logger.Info(logging.Session, logging.JoinRoom, "joined room", map[logging.ExtraKey]any{
		logging.ConnectionID: s.id,
		logging.RoomCode:     room.Code,
		logging.DisplayName:  name,
		logging.MemberCount:  len(res.Presence.Members),
	})

	return res.Snapshot, nil
}

// LeaveRoom returns the session to Connected. The room is removed from the
// registry when its last member leaves.
func (s *Session) LeaveRoom(ctx context.Context) (code string, err error) {
	ctx, span := s.start(ctx, "leave_room")
	defer func() { s.end(span, "leave_room", err) }()

	var pending []lifecycleEvent
	defer func() { s.svc.publishAll(ctx, pending) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateDisconnected:
		return "", domain.ErrSessionClosed
	case StateConnected:
		return "", domain.ErrNotInRoom
	}

	code = s.room.Code
	return code, s.leaveLocked(ctx, logging.LeaveRoom, &pending)
}

func (s *Session) SendMessage(ctx context.Context, body string) (msg domain.Message, err error) {
	ctx, span := s.start(ctx, "send_message")
	defer func() { s.end(span, "send_message", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateDisconnected:
		return domain.Message{}, domain.ErrSessionClosed
	case StateConnected:
		return domain.Message{}, domain.ErrNotAMember
	}
	if !s.svc.allow(s.id) {
		return domain.Message{}, domain.ErrRateLimited
	}

	room := s.room
	msg, err = room.PostMessage(s.id, body)
	if errors.Is(err, domain.ErrNotAMember) {
		s.resetLocked()
		return domain.Message{}, fmt.Errorf("%w: session bound to room %s without membership", domain.ErrMembershipDesync, room.Code)
	}
	if err != nil {
		return domain.Message{}, err
	}

	s.svc.metrics.MessagePosted()
	s.svc.dispatcher.Flush(ctx, room)

	s.svc.logger.Debug(logging.Session, logging.SendMessage, "message posted", map[logging.ExtraKey]any{
		logging.ConnectionID: s.id,
		logging.RoomCode:     room.Code,
	})

	return msg, nil
}

// Disconnect moves the session to its terminal state, leaving the current
// room first. Only the first call does any work; it reports whether this
// call was that one.
func (s *Session) Disconnect(ctx context.Context) bool {
	var pending []lifecycleEvent
	defer func() { s.svc.publishAll(ctx, pending) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return false
	}

	ctx, span := s.start(ctx, "disconnect")
	var err error
	defer func() { s.end(span, "disconnect", err) }()

	if s.state == StateInRoom {
		err = s.leaveLocked(ctx, logging.Disconnect, &pending)
	}
	s.state = StateDisconnected
	s.svc.forget(s.id)

	return true
}

func (s *Session) requireConnectedLocked() error {
	switch s.state {
	case StateDisconnected:
		return domain.ErrSessionClosed
	case StateInRoom:
		return domain.ErrAlreadyInRoom
	}
	return nil
}

func (s *Session) enterLocked(room *domain.Room, member domain.Member) {
	s.room = room
	s.member = member
	s.state = StateInRoom
}

func (s *Session) resetLocked() {
	s.room = nil
	s.member = domain.Member{}
	s.state = StateConnected
}

func (s *Session) leaveLocked(ctx context.Context, sub logging.SubCategory, pending *[]lifecycleEvent) error {
	room, member := s.room, s.member
	s.resetLocked()

	res := room.Leave(s.id)
	if !res.Removed {
		return fmt.Errorf("%w: %s not in room %s on leave", domain.ErrMembershipDesync, s.id, room.Code)
	}

	// Remaining members hear about the departure before the room can be
	// torn down.
	s.svc.dispatcher.Flush(ctx, room)

	event := domain.NewRoomEvent(room, s.id, member.Name)
	*pending = append(*pending, lifecycleEvent{s.svc.publisher.PublishMemberLeft, event})

	if res.Empty && s.svc.rooms.Evict(ctx, room) {
		s.svc.metrics.RoomRemoved("empty")
		deleted := event
		deleted.Reason = "empty"
		*pending = append(*pending, lifecycleEvent{s.svc.publisher.PublishRoomDeleted, deleted})
	}

	s.svc.logger.Info(logging.Session, sub, "left room", map[logging.ExtraKey]any{
		logging.ConnectionID: s.id,
		logging.RoomCode:     room.Code,
		logging.DisplayName:  member.Name,
		logging.MemberCount:  len(room.Members()),
	})

	return nil
}

func (s *Session) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.svc.tracer.Start(ctx, "session."+op, trace.WithAttributes(
		attribute.String("connection.id", s.id),
	))
}

func (s *Session) end(span trace.Span, op string, err error) {
	defer span.End()
	s.svc.metrics.SessionOperation(op, err)

	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if domain.IsFault(err) {
		s.svc.logger.Error(logging.Session, logging.SubCategory(op), "invariant fault", map[logging.ExtraKey]any{
			logging.ConnectionID: s.id,
			logging.ErrorMessage: err.Error(),
		})
	}
}
