package service

import (
	"sync"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"
	"github.com/cwrk-planet/videomeet-signaling/internal/memory"
)

// recordingSender stands in for the websocket hub.
type recordingSender struct {
	mu     sync.Mutex
	live   map[string]bool
	events map[string][]domain.Event
}

func newRecordingSender(live ...string) *recordingSender {
	s := &recordingSender{live: map[string]bool{}, events: map[string][]domain.Event{}}
	for _, id := range live {
		s.live[id] = true
	}
	return s
}

func (s *recordingSender) connect(id string) {
	s.mu.Lock()
	s.live[id] = true
	s.mu.Unlock()
}

func (s *recordingSender) SendTo(id string, ev domain.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live[id] {
		return false
	}
	s.events[id] = append(s.events[id], ev)
	return true
}

func (s *recordingSender) of(id string, typ domain.EventType) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, ev := range s.events[id] {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (s *recordingSender) total(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events[id])
}

type fixture struct {
	store   *memory.Store
	sender  *recordingSender
	rooms   *RoomService
	members *MemberService
}

func newFixture(policy RoomPolicy, live ...string) *fixture {
	store := memory.NewStore()
	sender := newRecordingSender(live...)
	rooms := NewRoomService(store, policy)
	return &fixture{
		store:   store,
		sender:  sender,
		rooms:   rooms,
		members: NewMemberService(rooms, NewNotifier(sender)),
	}
}
