package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 64 * 1024
)

var errSignalClosed = errors.New("signaling connection closed")

// Event is one server frame with its payload left raw.
type Event struct {
	Type    domain.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// SignalClient is a websocket connection to /ws. Writes are serialized,
// reads are delivered in order on Events().
type SignalClient struct {
	conn   *websocket.Conn
	id     string
	events chan Event
	done   chan struct{}

	wmu       sync.Mutex
	closeOnce sync.Once
}

// DialSignal connects and waits for the "connected" greeting.
func DialSignal(ctx context.Context, wsURL string) (*SignalClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", wsURL, err)
	}
	conn.SetReadLimit(maxMessageSize)

	c := &SignalClient{conn: conn, events: make(chan Event, 64), done: make(chan struct{})}

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(dl)
	}
	var hello Event
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read greeting: %w", err)
	}
	var p domain.ConnectedPayload
	if hello.Type != domain.EventConnected || hello.Decode(&p) != nil || p.ConnectionID == "" {
		conn.Close()
		return nil, fmt.Errorf("unexpected greeting %q", hello.Type)
	}
	c.id = p.ConnectionID

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		c.wmu.Lock()
		defer c.wmu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	go c.readLoop()
	return c, nil
}

func (c *SignalClient) ID() string { return c.id }

// Events закрывается, когда соединение рвётся.
func (c *SignalClient) Events() <-chan Event { return c.events }

func (c *SignalClient) readLoop() {
	defer close(c.events)
	for {
		var ev Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				slog.Debug("signaling read stopped", "conn", c.id, "err", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *SignalClient) Send(typ string, payload any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(map[string]any{"type": typ, "payload": payload})
}

func (c *SignalClient) Join(roomID, userID string) error {
	return c.Send("joinRoom", map[string]string{"roomId": roomID, "userId": userID})
}

func (c *SignalClient) Leave(roomID string) error {
	return c.Send("leaveRoom", map[string]string{"roomId": roomID})
}

// Signal sends an offer, answer or iceCandidate to one connection.
func (c *SignalClient) Signal(typ, target string, body any) error {
	field := typ
	if typ == "iceCandidate" {
		field = "candidate"
	}
	return c.Send(typ, map[string]any{field: body, "targetConnectionId": target})
}

// Next returns the next event or fails when ctx ends or the socket closes.
func (c *SignalClient) Next(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case ev, ok := <-c.events:
		if !ok {
			return Event{}, errSignalClosed
		}
		return ev, nil
	}
}

// Expect skips events until one of type typ arrives. A server error event
// fails the wait.
func (c *SignalClient) Expect(ctx context.Context, typ domain.EventType) (Event, error) {
	for {
		ev, err := c.Next(ctx)
		if err != nil {
			return Event{}, fmt.Errorf("waiting for %s: %w", typ, err)
		}
		if ev.Type == typ {
			return ev, nil
		}
		if ev.Type == domain.EventError {
			var p domain.ErrorPayload
			_ = ev.Decode(&p)
			return Event{}, fmt.Errorf("waiting for %s: server error: %s", typ, p.Message)
		}
	}
}

func (c *SignalClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.wmu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.wmu.Unlock()
		err = c.conn.Close()
	})
	return err
}
