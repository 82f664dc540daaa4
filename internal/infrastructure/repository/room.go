package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hilthontt/huddle/internal/domain"
)

const defaultMaxCodeAttempts = 32

type Options struct {
	// MaxRooms caps live rooms; zero means unlimited.
	MaxRooms        int
	MaxCodeAttempts int
	Room            domain.RoomOptions
}

type roomRepository struct {
	rooms     map[string]*domain.Room // JoinCode -> Room
	generator domain.CodeGenerator
	opts      Options
	mu        *sync.RWMutex
}

func NewRoomRepository(generator domain.CodeGenerator, opts Options) domain.RoomRepository {
	if generator == nil {
		generator = domain.NewCodeGenerator(domain.DefaultCodeLength)
	}
	if opts.MaxCodeAttempts <= 0 {
		opts.MaxCodeAttempts = defaultMaxCodeAttempts
	}

	return &roomRepository{
		rooms:     make(map[string]*domain.Room),
		generator: generator,
		opts:      opts,
		mu:        &sync.RWMutex{},
	}
}

// Create inserts an empty room under a freshly generated code. Candidate
// codes are drawn under the write lock so no two creations can race for the
// same code.
func (r *roomRepository) Create(ctx context.Context, requestedBy string) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opts.MaxRooms > 0 && len(r.rooms) >= r.opts.MaxRooms {
		return nil, domain.ErrRoomLimitReached
	}

	for attempt := 0; attempt < r.opts.MaxCodeAttempts; attempt++ {
		code, err := r.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		code = domain.NormalizeCode(code)
		if err := domain.ValidateGeneratedCode(code); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCodeSpaceExhausted, err)
		}

		if _, exists := r.rooms[code]; exists {
			continue
		}

		room := domain.NewRoom(code, requestedBy, r.opts.Room)
		r.rooms[code] = room
		return room, nil
	}

	return nil, fmt.Errorf("%w after %d attempts", domain.ErrCodeSpaceExhausted, r.opts.MaxCodeAttempts)
}

func (r *roomRepository) GetByCode(ctx context.Context, code string) (*domain.Room, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return nil, domain.ErrRoomNotFound
	}

	r.mu.RLock()
	room, exists := r.rooms[code]
	r.mu.RUnlock()
	if !exists || room.IsClosed() {
		return nil, domain.ErrRoomNotFound
	}

	return room, nil
}

// Remove deletes a room by code (idempotent).
func (r *roomRepository) Remove(ctx context.Context, code string) {
	code = domain.NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rooms, code)
}

// Evict removes room only if its code still maps to that exact room, which
// keeps a late cleanup from deleting a newer room that reused the code.
func (r *roomRepository) Evict(ctx context.Context, room *domain.Room) bool {
	if room == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, exists := r.rooms[room.Code]; exists && current == room {
		delete(r.rooms, room.Code)
		return true
	}
	return false
}

// SweepAbandoned removes rooms that were created but have had no members for
// longer than olderThan.
func (r *roomRepository) SweepAbandoned(ctx context.Context, olderThan time.Duration) []*domain.Room {
	cutoff := time.Now().Add(-olderThan)

	r.mu.Lock()
	defer r.mu.Unlock()

	var swept []*domain.Room
	for code, room := range r.rooms {
		if room.CreatedAt.After(cutoff) {
			continue
		}
		if room.IsClosed() || room.CloseIfEmpty() {
			delete(r.rooms, code)
			swept = append(swept, room)
		}
	}

	return swept
}

func (r *roomRepository) Rooms(ctx context.Context) []*domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (r *roomRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
