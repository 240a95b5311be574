package http

import (
	"time"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"
)

type CreateRoomRequest struct {
	RoomID   string `json:"roomId"`
	Capacity int    `json:"capacity"`
}

type CreateRoomResponse struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type ParticipantItem struct {
	ConnectionID string    `json:"connectionId"`
	SocketID     string    `json:"socketId"`
	UserID       string    `json:"userId"`
	JoinedAt     time.Time `json:"joinedAt"`
}

type RoomItem struct {
	RoomID       string            `json:"roomId"`
	Participants []ParticipantItem `json:"participants"`
	Capacity     int               `json:"capacity"`
	IsActive     bool              `json:"isActive"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

type RoomsListResponse struct {
	Items []RoomItem `json:"items"`
}

func toRoomItem(r domain.Room) RoomItem {
	parts := make([]ParticipantItem, 0, len(r.Participants))
	for _, p := range r.Participants {
		parts = append(parts, ParticipantItem{
			ConnectionID: p.ConnectionID,
			SocketID:     p.ConnectionID,
			UserID:       p.UserID,
			JoinedAt:     p.JoinedAt,
		})
	}
	return RoomItem{
		RoomID:       r.ID,
		Participants: parts,
		Capacity:     r.Capacity,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
