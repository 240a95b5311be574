package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"
	"github.com/cwrk-planet/videomeet-signaling/internal/memory"
	"github.com/cwrk-planet/videomeet-signaling/internal/service"

	"github.com/gorilla/websocket"
)

type testEnv struct {
	srv   *Server
	hub   *Hub
	rooms *service.RoomService
	url   string
}

func newTestEnv(t *testing.T, relayOpts ...service.RelayOption) *testEnv {
	t.Helper()

	hub := NewHub()
	rooms := service.NewRoomService(memory.NewStore(), service.RoomPolicy{})
	notifier := service.NewNotifier(hub)
	members := service.NewMemberService(rooms, notifier)
	relay := service.NewRelay(hub, relayOpts...)

	srv := NewServer(hub, members, relay, notifier, Options{}, []string{"http://localhost:3000"})
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(func() {
		hub.CloseAll()
		ts.Close()
	})

	return &testEnv{srv: srv, hub: hub, rooms: rooms, url: "ws" + strings.TrimPrefix(ts.URL, "http")}
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func (e *testEnv) dial(t *testing.T) *client {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	c := &client{t: t, conn: conn}
	var hello domain.ConnectedPayload
	c.expect(string(domain.EventConnected), &hello)
	if hello.ConnectionID == "" {
		t.Fatalf("connected event without id")
	}
	c.id = hello.ConnectionID
	return c
}

func (c *client) send(typ string, payload any) {
	c.t.Helper()
	if err := c.conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		c.t.Fatalf("write %s: %v", typ, err)
	}
}

func (c *client) next() frame {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var f frame
	if err := c.conn.ReadJSON(&f); err != nil {
		c.t.Fatalf("read: %v", err)
	}
	return f
}

func (c *client) expect(typ string, dst any) {
	c.t.Helper()
	f := c.next()
	if f.Type != typ {
		c.t.Fatalf("got %s event (%s), want %s", f.Type, f.Payload, typ)
	}
	if dst != nil {
		if err := json.Unmarshal(f.Payload, dst); err != nil {
			c.t.Fatalf("decode %s payload: %v", typ, err)
		}
	}
}

func (c *client) expectNothing(d time.Duration) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(d))
	var f frame
	if err := c.conn.ReadJSON(&f); err == nil {
		c.t.Fatalf("unexpected %s event: %s", f.Type, f.Payload)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestServer_Scenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.rooms.CreateRoom(ctx, service.CreateRoomParams{RoomID: "abc"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	a := env.dial(t)
	b := env.dial(t)

	a.send("joinRoom", map[string]string{"roomId": "abc"})
	var none []domain.ParticipantPayload
	a.expect(string(domain.EventExistingUsers), &none)
	if len(none) != 0 {
		t.Fatalf("first joiner saw %v", none)
	}

	b.send("join-room", map[string]string{"roomId": "abc", "userId": "bob"})
	var existing []domain.ParticipantPayload
	b.expect(string(domain.EventExistingUsers), &existing)
	if len(existing) != 1 || existing[0].ConnectionID != a.id {
		t.Fatalf("B existing-users = %+v, want [%s]", existing, a.id)
	}

	var joined domain.ParticipantPayload
	a.expect(string(domain.EventUserJoined), &joined)
	if joined.ConnectionID != b.id || joined.UserID != "bob" {
		t.Fatalf("user-joined = %+v", joined)
	}

	// newcomer initiates the offer
	b.send("offer", map[string]any{"offer": map[string]string{"type": "offer", "sdp": "v=0"}, "targetConnectionId": a.id})
	var offer domain.OfferPayload
	a.expect(string(domain.EventOffer), &offer)
	if offer.SenderConnectionID != b.id || !strings.Contains(string(offer.Offer), "v=0") {
		t.Fatalf("offer = %+v", offer)
	}

	a.send("answer", map[string]any{"answer": map[string]string{"type": "answer"}, "targetSocketId": b.id})
	var answer domain.AnswerPayload
	b.expect(string(domain.EventAnswer), &answer)
	if answer.SenderSocketID != a.id {
		t.Fatalf("answer = %+v", answer)
	}

	b.send("leaveRoom", map[string]string{"roomId": "abc"})
	var left domain.UserLeftPayload
	a.expect(string(domain.EventUserLeft), &left)
	if left.ConnectionID != b.id {
		t.Fatalf("user-left = %+v", left)
	}

	room, err := env.rooms.GetRoom(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(room.Participants) != 1 || room.Participants[0].ConnectionID != a.id {
		t.Fatalf("participants = %+v", room.Participants)
	}
}

func TestServer_DisconnectCleansUp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, _ = env.rooms.CreateRoom(ctx, service.CreateRoomParams{RoomID: "r"})

	a := env.dial(t)
	b := env.dial(t)
	a.send("joinRoom", map[string]string{"roomId": "r"})
	a.expect(string(domain.EventExistingUsers), nil)
	b.send("joinRoom", map[string]string{"roomId": "r"})
	b.expect(string(domain.EventExistingUsers), nil)
	a.expect(string(domain.EventUserJoined), nil)

	_ = b.conn.Close()

	var left domain.UserLeftPayload
	a.expect(string(domain.EventUserLeft), &left)
	if left.ConnectionID != b.id {
		t.Fatalf("user-left for %s, want %s", left.ConnectionID, b.id)
	}
	a.expectNothing(200 * time.Millisecond)

	waitFor(t, func() bool { return !env.hub.Live(b.id) })
	room, _ := env.rooms.GetRoom(ctx, "r")
	if len(room.Participants) != 1 {
		t.Fatalf("participants after disconnect = %+v", room.Participants)
	}
}

func TestServer_DrainWaitsForCleanup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, _ = env.rooms.CreateRoom(ctx, service.CreateRoomParams{RoomID: "r"})

	a := env.dial(t)
	b := env.dial(t)
	a.send("joinRoom", map[string]string{"roomId": "r"})
	a.expect(string(domain.EventExistingUsers), nil)
	b.send("joinRoom", map[string]string{"roomId": "r"})
	b.expect(string(domain.EventExistingUsers), nil)

	env.hub.CloseAll()

	drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := env.srv.Drain(drainCtx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	room, err := env.rooms.GetRoom(ctx, "r")
	if err != nil {
		t.Fatal(err)
	}
	if len(room.Participants) != 0 {
		t.Fatalf("participants after drain = %+v", room.Participants)
	}
}

func TestServer_Errors(t *testing.T) {
	env := newTestEnv(t, service.WithUndeliverableNotice(true))
	a := env.dial(t)

	var e domain.ErrorPayload
	a.send("joinRoom", map[string]string{"roomId": "missing"})
	a.expect(string(domain.EventError), &e)
	if e.Message != domain.ErrRoomNotFound.Error() {
		t.Fatalf("error = %q", e.Message)
	}

	a.send("dance", map[string]string{})
	a.expect(string(domain.EventError), &e)
	if !strings.Contains(e.Message, domain.ErrUnknownMessage.Error()) {
		t.Fatalf("error = %q", e.Message)
	}

	a.send("offer", map[string]any{"offer": map[string]string{}, "targetConnectionId": "ghost"})
	a.expect(string(domain.EventError), &e)
	if e.Message != "target connection not found" {
		t.Fatalf("error = %q", e.Message)
	}
}

func TestServer_RejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)

	h := http.Header{}
	h.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(env.url, h)
	if err == nil {
		t.Fatalf("dial from foreign origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}

	h.Set("Origin", "http://localhost:3000")
	conn, _, err := websocket.DefaultDialer.Dial(env.url, h)
	if err != nil {
		t.Fatalf("dial from allowed origin: %v", err)
	}
	_ = conn.Close()
}

func TestHub_StatsAndMissingTarget(t *testing.T) {
	env := newTestEnv(t)
	env.dial(t)

	if env.hub.SendTo("ghost", domain.Event{Type: domain.EventError}) {
		t.Fatalf("send to unknown connection reported success")
	}
	st := env.hub.Stats()
	if st.Connections != 1 || st.Accepted != 1 || st.Dropped != 1 || st.Delivered < 1 {
		t.Fatalf("stats = %+v", st)
	}
}
