package service

import (
	"context"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"
)

// RoomStore is the persistence capability behind the registry.
//
// Update must be atomic per room: fn sees the current record and its changes
// are written back only if fn returns nil. Implementations may call fn more
// than once (optimistic retries), so fn must not accumulate side effects.
type RoomStore interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, roomID string) (*domain.Room, error)
	List(ctx context.Context) ([]domain.Room, error)
	Update(ctx context.Context, roomID string, fn func(*domain.Room) error) (*domain.Room, error)
	Delete(ctx context.Context, roomID string) error
	FindByConnection(ctx context.Context, connectionID string) ([]string, error)
	ClearParticipants(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
