package service

import (
	"log/slog"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"
)

// Sender delivers one event to one live connection and reports whether it was queued.
type Sender interface {
	SendTo(connectionID string, ev domain.Event) bool
}

// Notifier рассылает события о составе комнаты.
type Notifier struct {
	sender Sender
}

func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// NotifyJoined sends user-joined to every recipient except the newcomer itself.
func (n *Notifier) NotifyJoined(roomID string, newcomer domain.Participant, recipients []string) int {
	ev := domain.Event{Type: domain.EventUserJoined, Payload: domain.NewParticipantPayload(newcomer)}
	return n.broadcast(roomID, newcomer.ConnectionID, recipients, ev)
}

func (n *Notifier) NotifyLeft(roomID, connectionID string, recipients []string) int {
	ev := domain.Event{
		Type: domain.EventUserLeft,
		Payload: domain.UserLeftPayload{
			RoomID:       roomID,
			ConnectionID: connectionID,
			SocketID:     connectionID,
		},
	}
	return n.broadcast(roomID, connectionID, recipients, ev)
}

// ReplyExistingUsers sends the pre-join participant list to the joiner only.
func (n *Notifier) ReplyExistingUsers(connectionID string, participants []domain.Participant) bool {
	items := make([]domain.ParticipantPayload, 0, len(participants))
	for _, p := range participants {
		items = append(items, domain.NewParticipantPayload(p))
	}
	return n.sender.SendTo(connectionID, domain.Event{Type: domain.EventExistingUsers, Payload: items})
}

func (n *Notifier) Error(connectionID, message string) bool {
	return n.sender.SendTo(connectionID, domain.Event{
		Type:    domain.EventError,
		Payload: domain.ErrorPayload{Message: message},
	})
}

func (n *Notifier) broadcast(roomID, subject string, recipients []string, ev domain.Event) int {
	var delivered int
	for _, id := range recipients {
		if id == subject {
			continue
		}
		if n.sender.SendTo(id, ev) {
			delivered++
			continue
		}
		// best-effort: соединение уже закрыто, его DisconnectAll догонит
		slog.Debug("broadcast skipped dead connection", "room", roomID, "event", ev.Type, "conn", id)
	}
	return delivered
}
