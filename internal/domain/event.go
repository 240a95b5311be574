package domain

import (
	"encoding/json"
	"time"
)

type EventType string

// Server to client events.
const (
	EventConnected     EventType = "connected"
	EventExistingUsers EventType = "existing-users"
	EventUserJoined    EventType = "user-joined"
	EventUserLeft      EventType = "user-left"
	EventOffer         EventType = "offer"
	EventAnswer        EventType = "answer"
	EventICECandidate  EventType = "ice-candidate"
	EventError         EventType = "error"
)

type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

type ParticipantPayload struct {
	ConnectionID string    `json:"connectionId"`
	UserID       string    `json:"userId"`
	JoinedAt     time.Time `json:"joinedAt"`
	// socketId mirrors connectionId for clients written against the socket.io protocol.
	SocketID string `json:"socketId"`
}

func NewParticipantPayload(p Participant) ParticipantPayload {
	return ParticipantPayload{
		ConnectionID: p.ConnectionID,
		UserID:       p.UserID,
		JoinedAt:     p.JoinedAt,
		SocketID:     p.ConnectionID,
	}
}

type UserLeftPayload struct {
	RoomID       string `json:"roomId"`
	ConnectionID string `json:"connectionId"`
	SocketID     string `json:"socketId"`
}

type OfferPayload struct {
	Offer              json.RawMessage `json:"offer"`
	SenderConnectionID string          `json:"senderConnectionId"`
	SenderSocketID     string          `json:"senderSocketId"`
}

type AnswerPayload struct {
	Answer             json.RawMessage `json:"answer"`
	SenderConnectionID string          `json:"senderConnectionId"`
	SenderSocketID     string          `json:"senderSocketId"`
}

type CandidatePayload struct {
	Candidate          json.RawMessage `json:"candidate"`
	SenderConnectionID string          `json:"senderConnectionId"`
	SenderSocketID     string          `json:"senderSocketId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
