package ws

import (
	"errors"
	"testing"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"
)

type recordingVisitor struct {
	got []Inbound
}

func (v *recordingVisitor) VisitJoin(m JoinRoom) error {
	v.got = append(v.got, m)
	return nil
}

func (v *recordingVisitor) VisitLeave(m LeaveRoom) error {
	v.got = append(v.got, m)
	return nil
}

func (v *recordingVisitor) VisitSignal(m SignalMessage) error {
	v.got = append(v.got, m)
	return nil
}

func TestDecode_Variants(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		want  Inbound
	}{
		{"join", `{"type":"joinRoom","payload":{"roomId":" abc ","userId":"alice"}}`, JoinRoom{RoomID: "abc", UserID: "alice"}},
		{"join alias", `{"type":"join-room","payload":{"roomId":"abc"}}`, JoinRoom{RoomID: "abc"}},
		{"leave alias", `{"type":"leave-room","payload":{"roomId":"abc"}}`, LeaveRoom{RoomID: "abc"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]byte(tc.frame))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestDecode_Signals(t *testing.T) {
	cases := []struct {
		frame   string
		kind    domain.SignalKind
		payload string
		target  string
	}{
		{`{"type":"offer","payload":{"offer":{"sdp":"x"},"targetConnectionId":"T"}}`, domain.SignalOffer, `{"sdp":"x"}`, "T"},
		{`{"type":"answer","payload":{"answer":{"sdp":"y"},"targetSocketId":"S"}}`, domain.SignalAnswer, `{"sdp":"y"}`, "S"},
		{`{"type":"ice-candidate","payload":{"candidate":{"candidate":"c"},"targetConnectionId":"T"}}`, domain.SignalICECandidate, `{"candidate":"c"}`, "T"},
	}
	for _, tc := range cases {
		got, err := Decode([]byte(tc.frame))
		if err != nil {
			t.Fatalf("decode %s: %v", tc.frame, err)
		}
		m, ok := got.(SignalMessage)
		if !ok {
			t.Fatalf("decoded %T, want SignalMessage", got)
		}
		if m.Kind != tc.kind || string(m.Payload) != tc.payload || m.Target != tc.target {
			t.Fatalf("decoded %+v", m)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		frame string
		want  error
	}{
		{`not json`, domain.ErrMalformedMessage},
		{`{"type":"chat","payload":{}}`, domain.ErrUnknownMessage},
		{`{"type":"joinRoom"}`, domain.ErrMalformedMessage},
		{`{"type":"joinRoom","payload":{"roomId":"  "}}`, domain.ErrMalformedMessage},
		{`{"type":"offer","payload":{"offer":{}}}`, domain.ErrMalformedMessage},
		{`{"type":"answer","payload":{"targetConnectionId":"T"}}`, domain.ErrMalformedMessage},
		{`{"type":"leaveRoom","payload":"abc"}`, domain.ErrMalformedMessage},
	}
	for _, tc := range cases {
		if _, err := Decode([]byte(tc.frame)); !errors.Is(err, tc.want) {
			t.Fatalf("Decode(%s) err = %v, want %v", tc.frame, err, tc.want)
		}
	}
}

func TestDispatch_RoutesToVisitor(t *testing.T) {
	v := &recordingVisitor{}
	msgs := []Inbound{JoinRoom{RoomID: "a"}, LeaveRoom{RoomID: "a"}, SignalMessage{Kind: domain.SignalOffer, Target: "x"}}
	for _, m := range msgs {
		if err := Dispatch(m, v); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	}
	if len(v.got) != 3 {
		t.Fatalf("visited %d messages, want 3", len(v.got))
	}
	if _, ok := v.got[2].(SignalMessage); !ok {
		t.Fatalf("third message visited as %T", v.got[2])
	}
}
