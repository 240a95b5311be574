package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	httpx "github.com/cwrk-planet/videomeet-signaling/internal/transport/http"
)

func TestRenderRooms(t *testing.T) {
	var buf bytes.Buffer
	renderRooms(&buf, nil)
	if !strings.Contains(buf.String(), "no rooms") {
		t.Fatalf("empty list: %q", buf.String())
	}

	buf.Reset()
	now := time.Now()
	renderRooms(&buf, []httpx.RoomItem{
		{RoomID: "alpha", Capacity: 2, IsActive: true, CreatedAt: now, UpdatedAt: now,
			Participants: []httpx.ParticipantItem{{ConnectionID: "c1"}}},
		{RoomID: "beta", CreatedAt: now, UpdatedAt: now},
	})
	out := buf.String()
	for _, want := range []string{"alpha", "1/2", "beta", "0/∞"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
}

func TestRenderRoomParticipants(t *testing.T) {
	var buf bytes.Buffer
	renderRoom(&buf, httpx.RoomItem{
		RoomID:   "gamma",
		Capacity: 4,
		Participants: []httpx.ParticipantItem{
			{ConnectionID: "conn-1", UserID: "alice", JoinedAt: time.Now()},
			{ConnectionID: "conn-2", JoinedAt: time.Now()},
		},
	})
	out := buf.String()
	for _, want := range []string{"gamma", "2/4", "conn-1", "alice", "conn-2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
}

func TestDescribeEventTruncates(t *testing.T) {
	long := strings.Repeat("x", 400)
	payload, _ := json.Marshal(map[string]string{"sdp": long})

	line := describeEvent(Event{Type: "offer", Payload: payload})
	if !strings.Contains(line, "offer") || !strings.HasSuffix(line, "...") {
		t.Fatalf("unexpected line: %q", line)
	}
}

func TestProbeReportStats(t *testing.T) {
	r := ProbeReport{RTTs: []time.Duration{3 * time.Millisecond, 1 * time.Millisecond, 2 * time.Millisecond}}
	lo, avg, hi := r.stats()
	if lo != time.Millisecond || avg != 2*time.Millisecond || hi != 3*time.Millisecond {
		t.Fatalf("stats = %s %s %s", lo, avg, hi)
	}

	lo, avg, hi = ProbeReport{}.stats()
	if lo != 0 || avg != 0 || hi != 0 {
		t.Fatalf("empty report must yield zeros")
	}

	var buf bytes.Buffer
	renderProbe(&buf, ProbeReport{RoomID: "probe-x", RTTs: r.RTTs, Lost: 1})
	if !strings.Contains(buf.String(), "3/4") {
		t.Fatalf("probe table: %s", buf.String())
	}
}
