package domain

import (
	"context"
	"time"
)

type RoomRepository interface {
	Create(ctx context.Context, requestedBy string) (*Room, error)
	GetByCode(ctx context.Context, code string) (*Room, error)
	Remove(ctx context.Context, code string)
	Evict(ctx context.Context, room *Room) bool
	SweepAbandoned(ctx context.Context, olderThan time.Duration) []*Room
	Rooms(ctx context.Context) []*Room
	Count() int
}
