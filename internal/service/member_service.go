package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"
)

// errNotMember aborts a leave update that has nothing to remove.
var errNotMember = errors.New("connection is not a member")

type JoinResult struct {
	Self     domain.Participant
	Existing []domain.Participant
}

type MemberService struct {
	rooms    *RoomService
	notifier *Notifier
	now      func() time.Time

	mu         sync.Mutex
	membership map[string]map[string]struct{} // connID -> set of roomIDs
}

func NewMemberService(rooms *RoomService, notifier *Notifier) *MemberService {
	return &MemberService{
		rooms:      rooms,
		notifier:   notifier,
		now:        time.Now,
		membership: make(map[string]map[string]struct{}),
	}
}

// Join добавляет соединение в комнату. Если соединение уже состоит в другой
// комнате, выходит из неё только после успешного входа в новую.
func (s *MemberService) Join(ctx context.Context, roomID, connectionID, userID string) (*JoinResult, error) {
	roomID = strings.TrimSpace(roomID)
	if userID == "" {
		userID = connectionID
	}

	var previous []string
	for _, id := range s.Rooms(connectionID) {
		if id != roomID {
			previous = append(previous, id)
		}
	}

	// целевая и прежние комнаты под одной блокировкой: отказ не трогает старое членство
	unlock := s.rooms.locks.LockAll(append([]string{roomID}, previous...)...)
	defer unlock()

	now := s.now().UTC()
	self := domain.Participant{ConnectionID: connectionID, UserID: userID, JoinedAt: now}

	var existing []domain.Participant
	updated, err := s.rooms.store.Update(ctx, roomID, func(r *domain.Room) error {
		if r.Has(connectionID) {
			return domain.ErrAlreadyJoined
		}
		if r.Full() {
			return domain.ErrRoomFull
		}
		existing = append([]domain.Participant(nil), r.Participants...)
		r.Participants = append(r.Participants, self)
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.track(connectionID, roomID)

	for _, other := range previous {
		if err := s.leaveLocked(ctx, other, connectionID); err != nil {
			slog.WarnContext(ctx, "leave previous room failed", "room", other, "conn", connectionID, "err", err)
		}
	}

	s.notifier.ReplyExistingUsers(connectionID, existing)
	s.notifier.NotifyJoined(roomID, self, updated.ConnectionIDs(connectionID))

	slog.InfoContext(ctx, "participant joined", "room", roomID, "conn", connectionID, "user", userID, "size", len(updated.Participants))
	return &JoinResult{Self: self, Existing: existing}, nil
}

// Leave is a no-op when the room is gone or the connection is not in it.
func (s *MemberService) Leave(ctx context.Context, roomID, connectionID string) error {
	roomID = strings.TrimSpace(roomID)

	unlock := s.rooms.locks.Lock(roomID)
	defer unlock()

	return s.leaveLocked(ctx, roomID, connectionID)
}

// leaveLocked expects the caller to hold the room lock.
func (s *MemberService) leaveLocked(ctx context.Context, roomID, connectionID string) error {
	updated, err := s.rooms.store.Update(ctx, roomID, func(r *domain.Room) error {
		if !r.Remove(connectionID) {
			return errNotMember
		}
		r.UpdatedAt = s.now().UTC()
		return nil
	})
	switch {
	case errors.Is(err, errNotMember), errors.Is(err, domain.ErrRoomNotFound):
		s.untrack(connectionID, roomID)
		return nil
	case err != nil:
		return err
	}

	s.untrack(connectionID, roomID)
	s.notifier.NotifyLeft(roomID, connectionID, updated.ConnectionIDs(connectionID))

	slog.InfoContext(ctx, "participant left", "room", roomID, "conn", connectionID, "size", len(updated.Participants))
	return nil
}

// DisconnectAll removes the connection from every room it is found in.
// Rooms come from both the store scan and the local index, so a failed scan
// still cleans up what this process knows about.
func (s *MemberService) DisconnectAll(ctx context.Context, connectionID string) error {
	var errs []error

	found, err := s.rooms.store.FindByConnection(ctx, connectionID)
	if err != nil {
		errs = append(errs, fmt.Errorf("find rooms: %w", err))
	}

	set := make(map[string]struct{}, len(found))
	for _, id := range found {
		set[id] = struct{}{}
	}
	for _, id := range s.Rooms(connectionID) {
		set[id] = struct{}{}
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := s.Leave(ctx, id, connectionID); err != nil {
			errs = append(errs, fmt.Errorf("leave %q: %w", id, err))
		}
	}

	if len(errs) == 0 {
		s.mu.Lock()
		delete(s.membership, connectionID)
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Rooms returns the rooms this process believes the connection is in, sorted.
func (s *MemberService) Rooms(connectionID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.membership[connectionID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *MemberService) track(connectionID, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.membership[connectionID]
	if !ok {
		set = make(map[string]struct{})
		s.membership[connectionID] = set
	}
	set[roomID] = struct{}{}
}

func (s *MemberService) untrack(connectionID, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.membership[connectionID]
	if !ok {
		return
	}
	delete(set, roomID)
	if len(set) == 0 {
		delete(s.membership, connectionID)
	}
}
