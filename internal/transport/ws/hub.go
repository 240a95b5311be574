package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"

	"go.uber.org/atomic"
)

// Hub is the registry of live connections keyed by connection id.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn

	accepted  atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64
}

type Stats struct {
	Connections int   `json:"connections"`
	Accepted    int64 `json:"accepted"`
	Delivered   int64 `json:"delivered"`
	Dropped     int64 `json:"dropped"`
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*Conn)}
}

func (h *Hub) Add(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c.id] = c
	h.accepted.Inc()
}

func (h *Hub) Remove(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.conns[c.id]; ok && cur == c {
		delete(h.conns, c.id)
	}
}

func (h *Hub) Live(connectionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.conns[connectionID]
	return ok
}

// SendTo queues the event for one connection. It never blocks: a full queue
// closes the slow connection and counts as a drop.
func (h *Hub) SendTo(connectionID string, ev domain.Event) bool {
	h.mu.RLock()
	c, ok := h.conns[connectionID]
	h.mu.RUnlock()
	if !ok {
		h.dropped.Inc()
		return false
	}

	b, err := json.Marshal(ev)
	if err != nil {
		slog.Error("ws: marshal event", "type", ev.Type, "err", err)
		h.dropped.Inc()
		return false
	}

	if !c.enqueue(b) {
		h.dropped.Inc()
		return false
	}
	h.delivered.Inc()
	return true
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	n := len(h.conns)
	h.mu.RUnlock()

	return Stats{
		Connections: n,
		Accepted:    h.accepted.Load(),
		Delivered:   h.delivered.Load(),
		Dropped:     h.dropped.Load(),
	}
}

// CloseAll closes every live connection; their read loops run the usual cleanup.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}
