package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"
)

func TestRelay_DeliversOnlyToTarget(t *testing.T) {
	sender := newRecordingSender("X", "Y", "Z")
	r := NewRelay(sender)

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	if !r.Relay(context.Background(), domain.Signal{Kind: domain.SignalOffer, Payload: payload, Sender: "Y", Target: "X"}) {
		t.Fatalf("relay to live target reported failure")
	}

	got := sender.of("X", domain.EventOffer)
	if len(got) != 1 {
		t.Fatalf("X got %d offers, want 1", len(got))
	}
	p := got[0].Payload.(domain.OfferPayload)
	if p.SenderConnectionID != "Y" || string(p.Offer) != string(payload) {
		t.Fatalf("offer payload = %+v", p)
	}
	if sender.total("Y") != 0 || sender.total("Z") != 0 {
		t.Fatalf("signal leaked to non-targets")
	}
}

func TestRelay_KindMapping(t *testing.T) {
	sender := newRecordingSender("X")
	r := NewRelay(sender)
	ctx := context.Background()

	r.Relay(ctx, domain.Signal{Kind: domain.SignalAnswer, Payload: json.RawMessage(`{}`), Sender: "Y", Target: "X"})
	r.Relay(ctx, domain.Signal{Kind: domain.SignalICECandidate, Payload: json.RawMessage(`{}`), Sender: "Y", Target: "X"})

	if n := len(sender.of("X", domain.EventAnswer)); n != 1 {
		t.Fatalf("answers = %d", n)
	}
	if n := len(sender.of("X", domain.EventICECandidate)); n != 1 {
		t.Fatalf("candidates = %d", n)
	}
	if r.Relay(ctx, domain.Signal{Kind: domain.SignalKind(42), Sender: "Y", Target: "X"}) {
		t.Fatalf("unknown kind must not be relayed")
	}
}

func TestRelay_MissingTarget(t *testing.T) {
	ctx := context.Background()
	sig := domain.Signal{Kind: domain.SignalOffer, Payload: json.RawMessage(`{}`), Sender: "Y", Target: "gone"}

	silent := newRecordingSender("Y")
	if NewRelay(silent).Relay(ctx, sig) {
		t.Fatalf("relay to missing target reported success")
	}
	if silent.total("Y") != 0 {
		t.Fatalf("silent relay notified the sender")
	}

	loud := newRecordingSender("Y")
	NewRelay(loud, WithUndeliverableNotice(true)).Relay(ctx, sig)
	errs := loud.of("Y", domain.EventError)
	if len(errs) != 1 || errs[0].Payload.(domain.ErrorPayload).Message != msgTargetNotFound {
		t.Fatalf("sender error events = %+v", errs)
	}
}
