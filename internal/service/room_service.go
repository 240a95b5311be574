package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"

	"github.com/google/uuid"
)

const maxRoomIDLen = 128

type RoomPolicy struct {
	DefaultCapacity int           // 0 = unlimited
	MaxCapacity     int           // 0 = no upper bound
	IdleTTL         time.Duration // 0 = rooms are never reclaimed
	ReclaimEvery    time.Duration
}

type RoomService struct {
	store  RoomStore
	policy RoomPolicy
	locks  *roomLocks

	now   func() time.Time
	newID func() string
}

func NewRoomService(store RoomStore, policy RoomPolicy) *RoomService {
	if policy.ReclaimEvery <= 0 {
		policy.ReclaimEvery = time.Minute
	}
	return &RoomService{
		store:  store,
		policy: policy,
		locks:  newRoomLocks(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

type CreateRoomParams struct {
	RoomID   string
	Capacity int
}

// CreateRoom создаёт пустую комнату. Пустой id заменяется на uuid.
func (s *RoomService) CreateRoom(ctx context.Context, p CreateRoomParams) (*domain.Room, error) {
	id := strings.TrimSpace(p.RoomID)
	if id == "" {
		id = s.newID()
	}
	if len(id) > maxRoomIDLen {
		return nil, domain.ErrInvalidRoomID
	}

	now := s.now().UTC()
	room := &domain.Room{
		ID:           id,
		Participants: []domain.Participant{},
		Capacity:     s.capacityFor(p.Capacity),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("store.Create: %w", err)
	}

	slog.Info("room created", "room", id, "capacity", room.Capacity)
	return room.Clone(), nil
}

// GetRoom returns a read-only snapshot. It must not be used to authorize protocol actions.
func (s *RoomService) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	room, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// ListRooms returns every room ordered by creation time.
func (s *RoomService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms, nil
}

// DeleteRoom removes an empty room.
func (s *RoomService) DeleteRoom(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	room, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if len(room.Participants) > 0 {
		return domain.ErrRoomNotEmpty
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("store.Delete: %w", err)
	}

	slog.Info("room deleted", "room", id)
	return nil
}

// ReclaimIdle deletes rooms that have been empty for longer than the idle TTL.
func (s *RoomService) ReclaimIdle(ctx context.Context, now time.Time) (int, error) {
	if s.policy.IdleTTL <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-s.policy.IdleTTL)

	rooms, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}

	var reclaimed int
	for _, r := range rooms {
		if len(r.Participants) > 0 || r.UpdatedAt.After(cutoff) {
			continue
		}
		ok, err := s.reclaim(ctx, r.ID, cutoff)
		if err != nil {
			return reclaimed, err
		}
		if ok {
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (s *RoomService) reclaim(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	// между List и блокировкой комнату могли занять
	room, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(room.Participants) > 0 || room.UpdatedAt.After(cutoff) {
		return false, nil
	}
	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		return false, err
	}

	slog.Info("idle room reclaimed", "room", id, "idle_since", room.UpdatedAt)
	return true, nil
}

// RunReclaimer sweeps idle rooms until ctx is done. It returns immediately when reclamation is disabled.
func (s *RoomService) RunReclaimer(ctx context.Context) error {
	if s.policy.IdleTTL <= 0 {
		return nil
	}
	ticker := time.NewTicker(s.policy.ReclaimEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.ReclaimIdle(ctx, s.now())
			if err != nil {
				slog.Warn("reclaim idle rooms failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Debug("reclaim sweep", "reclaimed", n)
			}
		}
	}
}

// PurgeParticipants empties every participant list. Connection ids do not
// survive a restart, so anything a durable store kept is stale.
func (s *RoomService) PurgeParticipants(ctx context.Context) error {
	return s.store.ClearParticipants(ctx)
}

func (s *RoomService) capacityFor(requested int) int {
	c := requested
	if c <= 0 {
		c = s.policy.DefaultCapacity
	}
	if s.policy.MaxCapacity > 0 && (c <= 0 || c > s.policy.MaxCapacity) {
		c = s.policy.MaxCapacity
	}
	if c < 0 {
		c = 0
	}
	return c
}
