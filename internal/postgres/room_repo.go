package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

// EnsureSchema создаёт таблицу rooms, если её ещё нет.
func (r *RoomRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	parts, err := encodeParticipants(room.Participants)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, queryInsertRoom,
		room.ID, parts, room.Capacity, room.IsActive, room.Version, room.CreatedAt, room.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *RoomRepository) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	return scanRoom(r.db.QueryRow(ctx, querySelectRoom, roomID))
}

func (r *RoomRepository) List(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.db.Query(ctx, queryListRooms)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return rooms, nil
}

// Update читает комнату под FOR UPDATE, применяет fn и пишет результат в той же транзакции.
func (r *RoomRepository) Update(ctx context.Context, roomID string, fn func(*domain.Room) error) (*domain.Room, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer tx.Rollback(ctx)

	room, err := scanRoom(tx.QueryRow(ctx, querySelectRoomForUpdate, roomID))
	if err != nil {
		return nil, err
	}
	if err := fn(room); err != nil {
		return nil, err
	}
	room.ID = roomID
	room.Version++

	parts, err := encodeParticipants(room.Participants)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, queryUpdateRoom,
		room.ID, parts, room.Capacity, room.IsActive, room.Version, room.UpdatedAt); err != nil {
		return nil, mapPgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapPgError(err)
	}
	return room, nil
}

func (r *RoomRepository) Delete(ctx context.Context, roomID string) error {
	cmd, err := r.db.Exec(ctx, queryDeleteRoom, roomID)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (r *RoomRepository) FindByConnection(ctx context.Context, connectionID string) ([]string, error) {
	probe, err := json.Marshal([]participantRow{{ConnectionID: connectionID}})
	if err != nil {
		return nil, err
	}
	// omitempty fields keep the containment probe down to the connection id
	rows, err := r.db.Query(ctx, queryRoomsByConnection, string(probe))
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapPgError(err)
		}
		ids = append(ids, id)
	}
	return ids, mapPgError(rows.Err())
}

func (r *RoomRepository) ClearParticipants(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, queryClearParticipants); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *RoomRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return mapPgError(r.db.Ping(ctx))
}

func (r *RoomRepository) Close(context.Context) error {
	r.db.Close()
	return nil
}

type participantRow struct {
	ConnectionID string    `json:"connectionId"`
	UserID       string    `json:"userId,omitempty"`
	JoinedAt     time.Time `json:"joinedAt,omitzero"`
}

func encodeParticipants(ps []domain.Participant) (string, error) {
	rows := make([]participantRow, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, participantRow{ConnectionID: p.ConnectionID, UserID: p.UserID, JoinedAt: p.JoinedAt})
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode participants: %w", err)
	}
	return string(b), nil
}

func decodeParticipants(raw []byte) ([]domain.Participant, error) {
	var rows []participantRow
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("%w: decode participants: %v", domain.ErrStorage, err)
		}
	}
	out := make([]domain.Participant, 0, len(rows))
	for _, p := range rows {
		out = append(out, domain.Participant{ConnectionID: p.ConnectionID, UserID: p.UserID, JoinedAt: p.JoinedAt})
	}
	return out, nil
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var (
		room domain.Room
		raw  []byte
	)
	err := row.Scan(&room.ID, &raw, &room.Capacity, &room.IsActive, &room.Version, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, mapPgError(err)
	}
	if room.Participants, err = decodeParticipants(raw); err != nil {
		return nil, err
	}
	return &room, nil
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 - unique violation
		if pgErr.Code == "23505" {
			return domain.ErrRoomExists
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStorage, err)
}
