package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"

	pion "github.com/pion/webrtc/v4"
	"github.com/vmihailenco/msgpack/v5"
)

var errPeerLeft = errors.New("remote peer left the room")

const (
	probePing = "ping"
	probePong = "pong"
)

// probeMessage travels over the data channel.
type probeMessage struct {
	Type   string `msgpack:"type"`
	Seq    int    `msgpack:"seq"`
	SentAt int64  `msgpack:"sentAt"`
}

func encodeProbe(m probeMessage) ([]byte, error) {
	return msgpack.Marshal(m)
}

func decodeProbe(b []byte) (probeMessage, error) {
	var m probeMessage
	err := msgpack.Unmarshal(b, &m)
	return m, err
}

// probePeer binds one PeerConnection to one signaling socket. Remote
// candidates that arrive before the remote description are queued.
type probePeer struct {
	pc *pion.PeerConnection
	sc *SignalClient

	mu         sync.Mutex
	remote     string
	haveRemote bool
	pending    []pion.ICECandidateInit

	answered     chan struct{}
	answeredOnce sync.Once
}

func newProbePeer(sc *SignalClient, iceURLs []string) (*probePeer, error) {
	cfg := pion.Configuration{}
	if len(iceURLs) > 0 {
		cfg.ICEServers = []pion.ICEServer{{URLs: iceURLs}}
	}
	pc, err := pion.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &probePeer{pc: pc, sc: sc, answered: make(chan struct{})}
	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		target := p.target()
		if target == "" {
			return
		}
		if err := sc.Signal("iceCandidate", target, c.ToJSON()); err != nil {
			slog.Debug("send candidate failed", "conn", sc.ID(), "err", err)
		}
	})
	return p, nil
}

func (p *probePeer) target() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remote
}

func (p *probePeer) setTarget(id string) {
	p.mu.Lock()
	p.remote = id
	p.mu.Unlock()
}

func (p *probePeer) offer(target string) error {
	p.setTarget(target)
	desc, err := p.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(desc); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	return p.sc.Signal("offer", target, desc)
}

// applyRemote sets the remote description and flushes queued candidates.
func (p *probePeer) applyRemote(desc pion.SessionDescription) error {
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	p.mu.Lock()
	p.haveRemote = true
	queued := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, c := range queued {
		if err := p.pc.AddICECandidate(c); err != nil {
			return fmt.Errorf("add queued candidate: %w", err)
		}
	}
	return nil
}

func (p *probePeer) handle(ev Event) error {
	switch ev.Type {
	case domain.EventOffer:
		var in domain.OfferPayload
		var desc pion.SessionDescription
		if err := ev.Decode(&in); err != nil {
			return err
		}
		if err := json.Unmarshal(in.Offer, &desc); err != nil {
			return fmt.Errorf("decode offer: %w", err)
		}
		p.setTarget(in.SenderConnectionID)
		if err := p.applyRemote(desc); err != nil {
			return err
		}
		answer, err := p.pc.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
		if err := p.pc.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("set local description: %w", err)
		}
		return p.sc.Signal("answer", in.SenderConnectionID, answer)

	case domain.EventAnswer:
		var in domain.AnswerPayload
		var desc pion.SessionDescription
		if err := ev.Decode(&in); err != nil {
			return err
		}
		if err := json.Unmarshal(in.Answer, &desc); err != nil {
			return fmt.Errorf("decode answer: %w", err)
		}
		if err := p.applyRemote(desc); err != nil {
			return err
		}
		p.answeredOnce.Do(func() { close(p.answered) })
		return nil

	case domain.EventICECandidate:
		var in domain.CandidatePayload
		var cand pion.ICECandidateInit
		if err := ev.Decode(&in); err != nil {
			return err
		}
		if err := json.Unmarshal(in.Candidate, &cand); err != nil {
			return fmt.Errorf("decode candidate: %w", err)
		}
		p.mu.Lock()
		if !p.haveRemote {
			p.pending = append(p.pending, cand)
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()
		return p.pc.AddICECandidate(cand)

	case domain.EventUserLeft:
		var in domain.UserLeftPayload
		if err := ev.Decode(&in); err == nil && in.ConnectionID == p.target() {
			return errPeerLeft
		}
		return nil

	case domain.EventError:
		var in domain.ErrorPayload
		_ = ev.Decode(&in)
		return fmt.Errorf("server error: %s", in.Message)
	}
	return nil
}

// run feeds signaling events into the peer until ctx ends.
func (p *probePeer) run(ctx context.Context) error {
	for {
		ev, err := p.sc.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := p.handle(ev); err != nil {
			return err
		}
	}
}

func (p *probePeer) close() error {
	return p.pc.Close()
}
