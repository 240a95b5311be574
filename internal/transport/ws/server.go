package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"
	"github.com/cwrk-planet/videomeet-signaling/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type MemberSvc interface {
	Join(ctx context.Context, roomID, connectionID, userID string) (*service.JoinResult, error)
	Leave(ctx context.Context, roomID, connectionID string) error
	DisconnectAll(ctx context.Context, connectionID string) error
}

type Relayer interface {
	Relay(ctx context.Context, sig domain.Signal) bool
}

type ErrorReporter interface {
	Error(connectionID, message string) bool
}

const (
	opTimeout      = 10 * time.Second
	msgInternalErr = "internal error"
)

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	members  MemberSvc
	relay    Relayer
	errs     ErrorReporter
	opts     Options

	newID func() string

	// активные обработчики /ws, ждём их в Drain
	handlers sync.WaitGroup
}

func NewServer(hub *Hub, members MemberSvc, relay Relayer, errs ErrorReporter, opts Options, allowedOrigins []string) *Server {
	return &Server{
		hub:     hub,
		members: members,
		relay:   relay,
		errs:    errs,
		opts:    opts.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		newID: uuid.NewString,
	}
}

// originChecker разрешает запросы без Origin (CLI, сервисы) и origin из списка; "*" разрешает всё.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.TrimSpace(o), "/")] = struct{}{}
	}
	_, allowAll := set["*"]

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

// HandleWS: GET /ws
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		slog.Warn("ws upgrade failed", "err", err, "remote", r.RemoteAddr)
		return
	}
	s.handlers.Add(1)
	defer s.handlers.Done()

	c := newConn(s.newID(), wsConn, s.opts)
	s.hub.Add(c)
	slog.Info("ws connected", "conn", c.id, "remote", r.RemoteAddr)

	go c.writePump()

	s.hub.SendTo(c.id, domain.Event{
		Type:    domain.EventConnected,
		Payload: domain.ConnectedPayload{ConnectionID: c.id},
	})

	ctx := r.Context()
	sess := &session{srv: s, conn: c}
	c.readPump(func(data []byte) {
		sess.handle(ctx, data)
	})

	s.disconnect(context.WithoutCancel(ctx), c)
}

// Drain waits until every connection handler has finished its disconnect
// cleanup. Call it after the HTTP server and the hub are closed.
func (s *Server) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// disconnect runs once per connection: the hub forgets it first so relays
// to it are dropped, then it leaves every room.
func (s *Server) disconnect(ctx context.Context, c *Conn) {
	s.hub.Remove(c)
	c.Close()

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.members.DisconnectAll(ctx, c.id); err != nil {
		slog.Warn("ws disconnect cleanup failed", "conn", c.id, "err", err)
	}
	slog.Info("ws disconnected", "conn", c.id)
}

// session is the per-connection Visitor.
type session struct {
	srv  *Server
	conn *Conn
	ctx  context.Context
}

func (ss *session) handle(ctx context.Context, data []byte) {
	msg, err := Decode(data)
	if err != nil {
		slog.Debug("ws: bad frame", "conn", ss.conn.id, "err", err)
		ss.srv.errs.Error(ss.conn.id, err.Error())
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	ss.ctx = opCtx

	if err := Dispatch(msg, ss); err != nil {
		ss.srv.errs.Error(ss.conn.id, clientMessage(err))
	}
}

func (ss *session) VisitJoin(m JoinRoom) error {
	_, err := ss.srv.members.Join(ss.ctx, m.RoomID, ss.conn.id, m.UserID)
	if err != nil {
		slog.Debug("ws: join rejected", "conn", ss.conn.id, "room", m.RoomID, "err", err)
	}
	return err
}

func (ss *session) VisitLeave(m LeaveRoom) error {
	return ss.srv.members.Leave(ss.ctx, m.RoomID, ss.conn.id)
}

func (ss *session) VisitSignal(m SignalMessage) error {
	ss.srv.relay.Relay(ss.ctx, domain.Signal{
		Kind:    m.Kind,
		Payload: m.Payload,
		Sender:  ss.conn.id,
		Target:  m.Target,
	})
	return nil
}

// clientMessage отдаёт клиенту текст доменной ошибки, а сбои хранилища прячет.
func clientMessage(err error) string {
	for _, known := range []error{
		domain.ErrRoomNotFound,
		domain.ErrRoomFull,
		domain.ErrAlreadyJoined,
		domain.ErrInvalidRoomID,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	slog.Error("ws: operation failed", "err", err)
	return msgInternalErr
}
