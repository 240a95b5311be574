// Package mongostore keeps rooms as documents in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxCASAttempts bounds the optimistic retry loop in Update.
const maxCASAttempts = 8

type roomDocument struct {
	RoomID       string                `bson:"roomId"`
	Participants []participantDocument `bson:"participants"`
	Capacity     int                   `bson:"capacity"`
	IsActive     bool                  `bson:"isActive"`
	Version      int64                 `bson:"version"`
	CreatedAt    time.Time             `bson:"createdAt"`
	UpdatedAt    time.Time             `bson:"updatedAt"`
}

type participantDocument struct {
	ConnectionID string    `bson:"connectionId"`
	UserID       string    `bson:"userId"`
	JoinedAt     time.Time `bson:"joinedAt"`
}

func toDocument(r *domain.Room) roomDocument {
	parts := make([]participantDocument, 0, len(r.Participants))
	for _, p := range r.Participants {
		parts = append(parts, participantDocument{ConnectionID: p.ConnectionID, UserID: p.UserID, JoinedAt: p.JoinedAt})
	}
	return roomDocument{
		RoomID:       r.ID,
		Participants: parts,
		Capacity:     r.Capacity,
		IsActive:     r.IsActive,
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (d roomDocument) toRoom() *domain.Room {
	parts := make([]domain.Participant, 0, len(d.Participants))
	for _, p := range d.Participants {
		parts = append(parts, domain.Participant{ConnectionID: p.ConnectionID, UserID: p.UserID, JoinedAt: p.JoinedAt.UTC()})
	}
	return &domain.Room{
		ID:           d.RoomID,
		Participants: parts,
		Capacity:     d.Capacity,
		IsActive:     d.IsActive,
		Version:      d.Version,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	opTTL  time.Duration
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTTL)
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "roomId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "participants.connectionId", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return storageErr("create indexes", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, room *domain.Room) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.coll.InsertOne(ctx, toDocument(room)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrRoomExists
		}
		return storageErr("insert room", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var doc roomDocument
	err := s.coll.FindOne(ctx, bson.M{"roomId": roomID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, storageErr("find room", err)
	}
	return doc.toRoom(), nil
}

func (s *Store) List(ctx context.Context) ([]domain.Room, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "roomId", Value: 1}}))
	if err != nil {
		return nil, storageErr("list rooms", err)
	}
	defer cur.Close(ctx)

	var docs []roomDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr("decode rooms", err)
	}
	rooms := make([]domain.Room, 0, len(docs))
	for _, d := range docs {
		rooms = append(rooms, *d.toRoom())
	}
	return rooms, nil
}

// Update is a compare-and-swap on version. A concurrent writer bumps the
// version, the replace matches nothing, and fn runs again on a fresh read.
func (s *Store) Update(ctx context.Context, roomID string, fn func(*domain.Room) error) (*domain.Room, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		room, err := s.Get(ctx, roomID)
		if err != nil {
			return nil, err
		}
		expected := room.Version
		if err := fn(room); err != nil {
			return nil, err
		}
		room.ID = roomID
		room.Version = expected + 1

		octx, cancel := s.opCtx(ctx)
		res, err := s.coll.ReplaceOne(octx, bson.M{"roomId": roomID, "version": expected}, toDocument(room))
		cancel()
		if err != nil {
			return nil, storageErr("replace room", err)
		}
		if res.MatchedCount == 1 {
			return room, nil
		}
	}
	return nil, fmt.Errorf("%w: room %q: too much write contention", domain.ErrStorage, roomID)
}

func (s *Store) Delete(ctx context.Context, roomID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"roomId": roomID})
	if err != nil {
		return storageErr("delete room", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *Store) FindByConnection(ctx context.Context, connectionID string) ([]string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	cur, err := s.coll.Find(ctx,
		bson.M{"participants.connectionId": connectionID},
		options.Find().SetProjection(bson.M{"roomId": 1, "_id": 0}))
	if err != nil {
		return nil, storageErr("find by connection", err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			RoomID string `bson:"roomId"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, storageErr("decode room id", err)
		}
		ids = append(ids, doc.RoomID)
	}
	if err := cur.Err(); err != nil {
		return nil, storageErr("iterate rooms", err)
	}
	return ids, nil
}

func (s *Store) ClearParticipants(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.coll.UpdateMany(ctx,
		bson.M{"participants.0": bson.M{"$exists": true}},
		bson.M{
			"$set": bson.M{"participants": bson.A{}},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return storageErr("clear participants", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.client.Ping(ctx, nil); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.client.Disconnect(ctx)
}

func storageErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStorage, op, err)
}
