package domain

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const DefaultMaxBodyLength = 2000

type RoomOptions struct {
	// MaxMembers caps membership; zero means unlimited.
	MaxMembers int
	// MaxBodyLength bounds message bodies in runes.
	MaxBodyLength int
	// HistoryLimit keeps only the newest messages; zero keeps the whole session.
	HistoryLimit int
	// CaseInsensitiveNames folds case when checking display name uniqueness.
	CaseInsensitiveNames bool
	Clock                func() time.Time
}

func (o RoomOptions) withDefaults() RoomOptions {
	if o.MaxBodyLength <= 0 {
		o.MaxBodyLength = DefaultMaxBodyLength
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Room owns the membership and message history of one chat room. Every
// mutation runs under mu and records the deliveries it implies in the
// outbox, so the order in which events leave the room matches the order in
// which the state changed.
type Room struct {
	ID        string
	Code      string
	CreatedAt time.Time
	CreatedBy string

	opts RoomOptions

	mu      sync.Mutex
	members map[string]Member // connection id -> member
	order   []string          // connection ids in join order
	history []Message
	lastAt  time.Time
	closed  bool
	outbox  []Envelope

	flushMu sync.Mutex
}

type JoinResult struct {
	Member   Member
	Snapshot Snapshot
	Presence Presence
}

type LeaveResult struct {
	Member Member
	// Removed is false when the connection was not a member.
	Removed bool
	// Empty reports that the room lost its last member and is now closed.
	Empty    bool
	Presence *Presence
}

func NewRoom(code, createdBy string, opts RoomOptions) *Room {
	opts = opts.withDefaults()

	return &Room{
		ID:        uuid.NewString(),
		Code:      code,
		CreatedAt: opts.Clock(),
		CreatedBy: createdBy,
		opts:      opts,
		members:   make(map[string]Member),
		order:     make([]string, 0, 8),
		history:   make([]Message, 0, 64),
	}
}

func (r *Room) Join(connectionID, name string) (JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return JoinResult{}, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return JoinResult{}, ErrRoomNotFound
	}
	if _, exists := r.members[connectionID]; exists {
		return JoinResult{}, ErrAlreadyInRoom
	}
	if r.opts.MaxMembers > 0 && len(r.members) >= r.opts.MaxMembers {
		return JoinResult{}, ErrRoomFull
	}
	if r.nameTakenLocked(name) {
		return JoinResult{}, ErrNameTaken
	}

	created := len(r.members) == 0 && len(r.history) == 0 && connectionID == r.CreatedBy

	member := Member{
		ConnectionID: connectionID,
		Name:         name,
		JoinedAt:     r.opts.Clock(),
	}
	r.members[connectionID] = member
	r.order = append(r.order, connectionID)

	// The snapshot is taken before the join notice is appended; the joiner
	// receives the notice through the presence event like everyone else.
	snapshot := Snapshot{
		Code:    r.Code,
		Name:    name,
		Created: created,
		Members: r.memberNamesLocked(),
		History: r.historyLocked(),
	}

	notice := r.appendLocked(newSystemMessage(PresenceNotice(PresenceJoined, name), r.nextTimestampLocked()))
	presence := NewPresence(PresenceJoined, name, notice, snapshot.Members)

	r.outbox = append(r.outbox,
		Envelope{
			Event:      Event{Type: EventRoomJoined, RoomCode: r.Code, Snapshot: &snapshot},
			Recipients: []string{connectionID},
			Origin:     connectionID,
		},
		Envelope{
			Event:      Event{Type: presence.EventType(), RoomCode: r.Code, Presence: &presence},
			Recipients: r.recipientsLocked(),
			Origin:     connectionID,
		},
	)

	return JoinResult{Member: member, Snapshot: snapshot, Presence: presence}, nil
}

// Leave removes the connection if it is a member. Removing the last member
// closes the room; no notice is produced because nobody is left to see it.
func (r *Room) Leave(connectionID string) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.members[connectionID]
	if !ok {
		return LeaveResult{}
	}

	delete(r.members, connectionID)
	for i, id := range r.order {
		if id == connectionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if len(r.members) == 0 {
		r.closed = true
		return LeaveResult{Member: member, Removed: true, Empty: true}
	}

	notice := r.appendLocked(newSystemMessage(PresenceNotice(PresenceLeft, member.Name), r.nextTimestampLocked()))
	presence := NewPresence(PresenceLeft, member.Name, notice, r.memberNamesLocked())

	r.outbox = append(r.outbox, Envelope{
		Event:      Event{Type: presence.EventType(), RoomCode: r.Code, Presence: &presence},
		Recipients: r.recipientsLocked(),
		Origin:     connectionID,
	})

	return LeaveResult{Member: member, Removed: true, Presence: &presence}
}

func (r *Room) PostMessage(connectionID, body string) (Message, error) {
	body = strings.TrimSpace(body)

	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.members[connectionID]
	if !ok {
		return Message{}, ErrNotAMember
	}
	if body == "" {
		return Message{}, ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > r.opts.MaxBodyLength {
		return Message{}, ErrBodyTooLong
	}

	msg := r.appendLocked(newUserMessage(member.Name, body, r.nextTimestampLocked()))

	r.outbox = append(r.outbox, Envelope{
		Event:      Event{Type: EventMessage, RoomCode: r.Code, Message: &msg},
		Recipients: r.recipientsLocked(),
		Origin:     connectionID,
	})

	return msg, nil
}

// PostSystemNotice appends a server notice to the history and addresses it
// to the current members.
func (r *Room) PostSystemNotice(text string) Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := r.appendLocked(newSystemMessage(text, r.nextTimestampLocked()))

	if len(r.members) > 0 {
		r.outbox = append(r.outbox, Envelope{
			Event:      Event{Type: EventMessage, RoomCode: r.Code, Message: &msg},
			Recipients: r.recipientsLocked(),
		})
	}

	return msg
}

// Enqueue queues an ad-hoc event for the current members other than
// exclude, behind every envelope the room has already produced.
func (r *Room) Enqueue(event Event, exclude string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recipients := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if id != exclude {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return
	}

	event.RoomCode = r.Code
	r.outbox = append(r.outbox, Envelope{Event: event, Recipients: recipients})
}

// CloseIfEmpty closes a room nobody has joined, so that a join racing with
// its removal fails instead of landing in a detached room.
func (r *Room) CloseIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) > 0 {
		return false
	}
	r.closed = true
	return true
}

// Flush hands every pending envelope to deliver in the order the room
// produced them. It must not be called with mu held. Concurrent callers are
// serialized so a later envelope never overtakes an earlier one.
func (r *Room) Flush(deliver func(Envelope)) {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	for {
		r.mu.Lock()
		batch := r.outbox
		r.outbox = nil
		r.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, env := range batch {
			deliver(env)
		}
	}
}

func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memberNamesLocked()
}

// ConnectionIDs lists the members' connections in join order.
func (r *Room) ConnectionIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recipientsLocked()
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Room) HasMember(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[connectionID]
	return ok
}

func (r *Room) History() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.historyLocked()
}

func (r *Room) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Room) nameTakenLocked(name string) bool {
	for _, m := range r.members {
		if m.Name == name {
			return true
		}
		if r.opts.CaseInsensitiveNames && strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

func (r *Room) nextTimestampLocked() time.Time {
	now := r.opts.Clock()
	if now.Before(r.lastAt) {
		now = r.lastAt
	}
	r.lastAt = now
	return now
}

func (r *Room) appendLocked(msg Message) Message {
	r.history = append(r.history, msg)

	if limit := r.opts.HistoryLimit; limit > 0 && len(r.history) > limit {
		r.history = r.history[len(r.history)-limit:]
	}

	return msg
}

func (r *Room) memberNamesLocked() []string {
	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		names = append(names, r.members[id].Name)
	}
	return names
}

func (r *Room) recipientsLocked() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

func (r *Room) historyLocked() []Message {
	cpy := make([]Message, len(r.history))
	copy(cpy, r.history)
	return cpy
}
