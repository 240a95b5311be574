// Package memory keeps rooms in process memory. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"
)

type Store struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

func NewStore() *Store {
	return &Store{rooms: make(map[string]*domain.Room)}
}

func (s *Store) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return domain.ErrRoomExists
	}
	s.rooms[room.ID] = room.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, roomID string) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return r.Clone(), nil
}

func (s *Store) List(_ context.Context) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, *r.Clone())
	}
	return out, nil
}

// Update runs fn on a copy under the table lock. fn must not call back into the store.
func (s *Store) Update(_ context.Context, roomID string, fn func(*domain.Room) error) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	work := cur.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	work.ID = cur.ID
	work.Version = cur.Version + 1
	s.rooms[roomID] = work
	return work.Clone(), nil
}

func (s *Store) Delete(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[roomID]; !ok {
		return domain.ErrRoomNotFound
	}
	delete(s.rooms, roomID)
	return nil
}

func (s *Store) FindByConnection(_ context.Context, connectionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for id, r := range s.rooms {
		if r.Has(connectionID) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Store) ClearParticipants(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rooms {
		if len(r.Participants) > 0 {
			r.Participants = []domain.Participant{}
			r.Version++
		}
	}
	return nil
}

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }
