package ws

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"
)

// Типы входящих сообщений. Дефисные варианты совпадают с событиями socket.io клиента.
const (
	TypeJoinRoom     = "joinRoom"
	TypeLeaveRoom    = "leaveRoom"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "iceCandidate"
)

var typeAliases = map[string]string{
	TypeJoinRoom:     TypeJoinRoom,
	"join-room":      TypeJoinRoom,
	TypeLeaveRoom:    TypeLeaveRoom,
	"leave-room":     TypeLeaveRoom,
	TypeOffer:        TypeOffer,
	TypeAnswer:       TypeAnswer,
	TypeICECandidate: TypeICECandidate,
	"ice-candidate":  TypeICECandidate,
}

// Inbound is one decoded client frame. The set of implementations is closed:
// only this package can add a variant, and every Visitor must handle it.
type Inbound interface {
	accept(v Visitor) error
}

type Visitor interface {
	VisitJoin(m JoinRoom) error
	VisitLeave(m LeaveRoom) error
	VisitSignal(m SignalMessage) error
}

type JoinRoom struct {
	RoomID string
	UserID string
}

type LeaveRoom struct {
	RoomID string
}

// SignalMessage carries an opaque offer, answer or candidate to one target.
type SignalMessage struct {
	Kind    domain.SignalKind
	Payload json.RawMessage
	Target  string
}

func (m JoinRoom) accept(v Visitor) error      { return v.VisitJoin(m) }
func (m LeaveRoom) accept(v Visitor) error     { return v.VisitLeave(m) }
func (m SignalMessage) accept(v Visitor) error { return v.VisitSignal(m) }

// Dispatch hands the message to the matching Visit method.
func Dispatch(m Inbound, v Visitor) error {
	return m.accept(v)
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type signalPayload struct {
	Offer              json.RawMessage `json:"offer"`
	Answer             json.RawMessage `json:"answer"`
	Candidate          json.RawMessage `json:"candidate"`
	TargetConnectionID string          `json:"targetConnectionId"`
	TargetSocketID     string          `json:"targetSocketId"`
}

// Decode parses a text frame {type, payload} into an Inbound variant.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}

	typ, ok := typeAliases[strings.TrimSpace(env.Type)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMessage, env.Type)
	}

	switch typ {
	case TypeJoinRoom, TypeLeaveRoom:
		var p roomPayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return nil, err
		}
		roomID := strings.TrimSpace(p.RoomID)
		if roomID == "" {
			return nil, fmt.Errorf("%w: roomId is required", domain.ErrMalformedMessage)
		}
		if typ == TypeJoinRoom {
			return JoinRoom{RoomID: roomID, UserID: strings.TrimSpace(p.UserID)}, nil
		}
		return LeaveRoom{RoomID: roomID}, nil

	default:
		var p signalPayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return nil, err
		}
		target := p.TargetConnectionID
		if target == "" {
			target = p.TargetSocketID
		}
		if target == "" {
			return nil, fmt.Errorf("%w: targetConnectionId is required", domain.ErrMalformedMessage)
		}

		msg := SignalMessage{Target: target}
		switch typ {
		case TypeOffer:
			msg.Kind, msg.Payload = domain.SignalOffer, p.Offer
		case TypeAnswer:
			msg.Kind, msg.Payload = domain.SignalAnswer, p.Answer
		case TypeICECandidate:
			msg.Kind, msg.Payload = domain.SignalICECandidate, p.Candidate
		}
		if len(msg.Payload) == 0 {
			return nil, fmt.Errorf("%w: %s payload is required", domain.ErrMalformedMessage, typ)
		}
		return msg, nil
	}
}

func unmarshalPayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: payload is required", domain.ErrMalformedMessage)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}
	return nil
}
