package service

import (
	"context"
	"log/slog"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"
)

const msgTargetNotFound = "target connection not found"

// Relay forwards negotiation envelopes between two connections. It never
// consults room state and never looks inside the payload.
type Relay struct {
	sender              Sender
	notifyUndeliverable bool
}

type RelayOption func(*Relay)

// WithUndeliverableNotice makes the relay answer the sender with an error
// event when the target is gone, instead of dropping the signal silently.
func WithUndeliverableNotice(on bool) RelayOption {
	return func(r *Relay) { r.notifyUndeliverable = on }
}

func NewRelay(sender Sender, opts ...RelayOption) *Relay {
	r := &Relay{sender: sender}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Relay reports whether the envelope was queued for the target.
func (r *Relay) Relay(ctx context.Context, sig domain.Signal) bool {
	ev, ok := signalEvent(sig)
	if !ok {
		slog.WarnContext(ctx, "relay: unsupported signal kind", "kind", sig.Kind, "sender", sig.Sender)
		return false
	}

	if sig.Target != "" && r.sender.SendTo(sig.Target, ev) {
		return true
	}

	slog.DebugContext(ctx, "relay: target not live", "kind", sig.Kind, "sender", sig.Sender, "target", sig.Target)
	if r.notifyUndeliverable {
		r.sender.SendTo(sig.Sender, domain.Event{
			Type:    domain.EventError,
			Payload: domain.ErrorPayload{Message: msgTargetNotFound},
		})
	}
	return false
}

func signalEvent(sig domain.Signal) (domain.Event, bool) {
	switch sig.Kind {
	case domain.SignalOffer:
		return domain.Event{Type: domain.EventOffer, Payload: domain.OfferPayload{
			Offer:              sig.Payload,
			SenderConnectionID: sig.Sender,
			SenderSocketID:     sig.Sender,
		}}, true
	case domain.SignalAnswer:
		return domain.Event{Type: domain.EventAnswer, Payload: domain.AnswerPayload{
			Answer:             sig.Payload,
			SenderConnectionID: sig.Sender,
			SenderSocketID:     sig.Sender,
		}}, true
	case domain.SignalICECandidate:
		return domain.Event{Type: domain.EventICECandidate, Payload: domain.CandidatePayload{
			Candidate:          sig.Payload,
			SenderConnectionID: sig.Sender,
			SenderSocketID:     sig.Sender,
		}}, true
	default:
		return domain.Event{}, false
	}
}
