package mongostore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"

	"github.com/google/uuid"
)

func TestDocumentRoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	room := &domain.Room{
		ID:           "abc",
		Participants: []domain.Participant{{ConnectionID: "c1", UserID: "u1", JoinedAt: at}},
		Capacity:     4,
		IsActive:     true,
		Version:      7,
		CreatedAt:    at,
		UpdatedAt:    at,
	}

	got := toDocument(room).toRoom()
	if got.ID != room.ID || got.Capacity != 4 || got.Version != 7 || !got.IsActive {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Participants) != 1 || got.Participants[0] != room.Participants[0] {
		t.Fatalf("participants mismatch: %+v", got.Participants)
	}
}

func TestStorageErr(t *testing.T) {
	if err := storageErr("op", errors.New("socket closed")); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if err := storageErr("op", context.DeadlineExceeded); errors.Is(err, domain.ErrStorage) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("deadline must pass through, got %v", err)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI is not set")
	}
	ctx := context.Background()
	s, err := Connect(ctx, Config{URI: uri, Database: "videomeet_test", Collection: "rooms_" + uuid.NewString()[:8]})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = s.coll.Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func TestStore_CreateGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	room := &domain.Room{ID: "abc", Participants: []domain.Participant{}, IsActive: true, CreatedAt: now, UpdatedAt: now}

	if err := s.Create(ctx, room); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(ctx, room); !errors.Is(err, domain.ErrRoomExists) {
		t.Fatalf("expected ErrRoomExists, got %v", err)
	}
	got, err := s.Get(ctx, "abc")
	if err != nil || got.ID != "abc" {
		t.Fatalf("get: %+v %v", got, err)
	}
	if err := s.Delete(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "abc"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestStore_UpdateCAS(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	_ = s.Create(ctx, &domain.Room{ID: "r", Participants: []domain.Participant{}, Capacity: 3, IsActive: true, CreatedAt: now, UpdatedAt: now})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(ctx, "r", func(r *domain.Room) error {
				if r.Full() {
					return domain.ErrRoomFull
				}
				r.Participants = append(r.Participants, domain.Participant{ConnectionID: uuid.NewString()})
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := s.Get(ctx, "r")
	if len(got.Participants) != 3 || got.Version != 3 {
		t.Fatalf("participants=%d version=%d, want 3/3", len(got.Participants), got.Version)
	}

	ids, err := s.FindByConnection(ctx, got.Participants[0].ConnectionID)
	if err != nil || len(ids) != 1 {
		t.Fatalf("FindByConnection = %v %v", ids, err)
	}
	if err := s.ClearParticipants(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _ = s.Get(ctx, "r")
	if len(got.Participants) != 0 {
		t.Fatalf("participants survived clear: %+v", got.Participants)
	}
}
