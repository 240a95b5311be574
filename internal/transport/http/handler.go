package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"
	"github.com/cwrk-planet/videomeet-signaling/internal/service"
	"github.com/cwrk-planet/videomeet-signaling/internal/transport/http/httputil"
	"github.com/cwrk-planet/videomeet-signaling/internal/transport/ws"

	"github.com/go-chi/chi/v5"
)

const msgRoomCreated = "Room created successfully"

type RoomSvc interface {
	CreateRoom(ctx context.Context, p service.CreateRoomParams) (*domain.Room, error)
	GetRoom(ctx context.Context, id string) (*domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

type StatsSource interface {
	Stats() ws.Stats
}

type Handler struct {
	roomSvc RoomSvc
	stats   StatsSource
}

func NewHandler(room RoomSvc, stats StatsSource) *Handler {
	return &Handler{roomSvc: room, stats: stats}
}

// POST /api/rooms (и /api/create-room)
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	// пустое тело допустимо: id сгенерируется
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	room, err := h.roomSvc.CreateRoom(r.Context(), service.CreateRoomParams{RoomID: req.RoomID, Capacity: req.Capacity})
	if err != nil {
		h.fail(w, r, "handler.CreateRoom", err, map[string]any{"roomId": req.RoomID})
		return
	}

	httputil.Created(w, CreateRoomResponse{RoomID: room.ID, Message: msgRoomCreated})
}

// GET /api/rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomSvc.ListRooms(r.Context())
	if err != nil {
		h.fail(w, r, "handler.ListRooms", err, nil)
		return
	}

	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(rooms))}
	for _, rm := range rooms {
		resp.Items = append(resp.Items, toRoomItem(rm))
	}
	httputil.OK(w, resp)
}

// GET /api/rooms/{roomId}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roomId")
	room, err := h.roomSvc.GetRoom(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handler.GetRoom", err, map[string]any{"roomId": id})
		return
	}

	httputil.OK(w, toRoomItem(*room))
}

// DELETE /api/rooms/{roomId}
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roomId")
	if err := h.roomSvc.DeleteRoom(r.Context(), id); err != nil {
		h.fail(w, r, "handler.DeleteRoom", err, map[string]any{"roomId": id})
		return
	}

	httputil.OK(w, map[string]string{"roomId": id, "message": "Room deleted"})
}

// GET /api/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.stats.Stats())
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error, meta map[string]any) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), op, slog.Any("err", err))
		meta = nil
	}
	httputil.Error(r.Context(), w, status, msg, meta)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return http.StatusNotFound, "Room not found"
	case errors.Is(err, domain.ErrRoomExists):
		return http.StatusConflict, "Room already exists"
	case errors.Is(err, domain.ErrRoomNotEmpty):
		return http.StatusConflict, "Room is not empty"
	case errors.Is(err, domain.ErrRoomFull):
		return http.StatusConflict, "Room is full"
	case errors.Is(err, domain.ErrInvalidRoomID):
		return http.StatusBadRequest, "Invalid room id"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
