package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cwrk-planet/videomeet-signaling/internal/domain"

	"github.com/google/uuid"
	pion "github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type probeConfig struct {
	RoomID      string
	ICEURLs     []string
	Count       int
	Interval    time.Duration
	PingTimeout time.Duration
}

func newProbeCmd(opts *rootOptions) *cobra.Command {
	cfg := probeConfig{}
	var total time.Duration

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Connect two WebRTC peers through the relay and measure data channel RTT",
		Long: `probe joins two local peers to one room, lets them negotiate through the
signaling relay exactly like browsers do and pings over a data channel.
Without --room a temporary room is created and removed afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := opts.api()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), total)
			defer cancel()

			report, err := runProbe(ctx, api, cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			renderProbe(cmd.OutOrStdout(), report)
			if len(report.RTTs) == 0 {
				return errors.New("no ping was answered")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfg.RoomID, "room", "r", "", "existing room to probe in")
	cmd.Flags().StringSliceVar(&cfg.ICEURLs, "ice", nil, "STUN/TURN urls, host candidates only when empty")
	cmd.Flags().IntVarP(&cfg.Count, "count", "n", 5, "number of pings")
	cmd.Flags().DurationVar(&cfg.Interval, "interval", 200*time.Millisecond, "pause between pings")
	cmd.Flags().DurationVar(&cfg.PingTimeout, "ping-timeout", 2*time.Second, "how long to wait for each pong")
	cmd.Flags().DurationVar(&total, "deadline", 30*time.Second, "overall probe deadline")
	return cmd
}

func runProbe(ctx context.Context, api *APIClient, cfg probeConfig, out io.Writer) (ProbeReport, error) {
	if cfg.Count <= 0 {
		cfg.Count = 1
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 2 * time.Second
	}

	roomID := cfg.RoomID
	if roomID == "" {
		res, err := api.CreateRoom(ctx, "probe-"+uuid.NewString()[:8], 2)
		if err != nil {
			return ProbeReport{}, fmt.Errorf("create probe room: %w", err)
		}
		roomID = res.RoomID
		defer removeRoom(api, roomID, out)
	}
	report := ProbeReport{RoomID: roomID}

	start := time.Now()
	offerer, answerer, err := joinPair(ctx, api.WebSocketURL(), roomID)
	if err != nil {
		return report, err
	}
	defer func() {
		for _, sc := range []*SignalClient{offerer, answerer} {
			_ = sc.Leave(roomID)
			_ = sc.Close()
		}
	}()
	printSuccess(out, "both peers joined %s", titleStyle.Render(roomID))

	a, err := newProbePeer(answerer, cfg.ICEURLs)
	if err != nil {
		return report, err
	}
	defer a.close()
	b, err := newProbePeer(offerer, cfg.ICEURLs)
	if err != nil {
		return report, err
	}
	defer b.close()

	// answerer echoes every ping
	a.pc.OnDataChannel(func(dc *pion.DataChannel) {
		dc.OnMessage(func(msg pion.DataChannelMessage) {
			m, err := decodeProbe(msg.Data)
			if err != nil || m.Type != probePing {
				return
			}
			m.Type = probePong
			if data, err := encodeProbe(m); err == nil {
				_ = dc.Send(data)
			}
		})
	})

	dc, err := b.pc.CreateDataChannel("probe", nil)
	if err != nil {
		return report, fmt.Errorf("create data channel: %w", err)
	}
	opened := make(chan struct{})
	dc.OnOpen(func() { close(opened) })
	pongs := make(chan probeMessage, cfg.Count)
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		m, err := decodeProbe(msg.Data)
		if err != nil || m.Type != probePong {
			return
		}
		select {
		case pongs <- m:
		default:
		}
	})

	loopCtx, stopLoops := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error { return a.run(gctx) })
	g.Go(func() error { return b.run(gctx) })
	defer func() {
		stopLoops()
		_ = g.Wait()
	}()

	// the newcomer offers to the member that was already in the room
	if err := b.offer(answerer.ID()); err != nil {
		return report, err
	}

	select {
	case <-b.answered:
		report.Signaling = time.Since(start)
	case <-gctx.Done():
		return report, probeFailure(ctx, g, "waiting for answer")
	}

	select {
	case <-opened:
		report.Connect = time.Since(start)
		printSuccess(out, "data channel open after %s", report.Connect.Round(time.Millisecond))
	case <-gctx.Done():
		return report, probeFailure(ctx, g, "waiting for data channel")
	}

	for seq := 0; seq < cfg.Count; seq++ {
		if seq > 0 && cfg.Interval > 0 {
			select {
			case <-time.After(cfg.Interval):
			case <-gctx.Done():
				return report, probeFailure(ctx, g, "pinging")
			}
		}
		data, err := encodeProbe(probeMessage{Type: probePing, Seq: seq, SentAt: time.Now().UnixNano()})
		if err != nil {
			return report, err
		}
		if err := dc.Send(data); err != nil {
			return report, fmt.Errorf("send ping: %w", err)
		}
		rtt, ok := awaitPong(gctx, pongs, seq, cfg.PingTimeout)
		if !ok {
			report.Lost++
			continue
		}
		report.RTTs = append(report.RTTs, rtt)
	}
	return report, nil
}

// joinPair opens two sockets and joins them in order, so the first one is
// the existing member and the second one the newcomer.
func joinPair(ctx context.Context, wsURL, roomID string) (offerer, answerer *SignalClient, err error) {
	answerer, err = DialSignal(ctx, wsURL)
	if err != nil {
		return nil, nil, err
	}
	if err := answerer.Join(roomID, "probe-a"); err != nil {
		answerer.Close()
		return nil, nil, err
	}
	if _, err := answerer.Expect(ctx, domain.EventExistingUsers); err != nil {
		answerer.Close()
		return nil, nil, err
	}

	offerer, err = DialSignal(ctx, wsURL)
	if err != nil {
		answerer.Close()
		return nil, nil, err
	}
	if err := offerer.Join(roomID, "probe-b"); err != nil {
		answerer.Close()
		offerer.Close()
		return nil, nil, err
	}

	ev, err := offerer.Expect(ctx, domain.EventExistingUsers)
	if err == nil {
		var existing []domain.ParticipantPayload
		if err = ev.Decode(&existing); err == nil && !containsConnection(existing, answerer.ID()) {
			err = fmt.Errorf("room %s does not list the first peer", roomID)
		}
	}
	if err == nil {
		_, err = answerer.Expect(ctx, domain.EventUserJoined)
	}
	if err != nil {
		answerer.Close()
		offerer.Close()
		return nil, nil, err
	}
	return offerer, answerer, nil
}

func containsConnection(ps []domain.ParticipantPayload, id string) bool {
	for _, p := range ps {
		if p.ConnectionID == id {
			return true
		}
	}
	return false
}

func awaitPong(ctx context.Context, pongs <-chan probeMessage, seq int, timeout time.Duration) (time.Duration, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case m := <-pongs:
			if m.Seq != seq {
				continue // late pong from an earlier ping
			}
			return time.Since(time.Unix(0, m.SentAt)), true
		case <-timer.C:
			return 0, false
		case <-ctx.Done():
			return 0, false
		}
	}
}

// probeFailure prefers the signaling loop error over a bare context error.
func probeFailure(ctx context.Context, g *errgroup.Group, stage string) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", stage, ctx.Err())
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return fmt.Errorf("%s: signaling stopped", stage)
}

// removeRoom deletes the temporary room. Disconnect cleanup on the server is
// asynchronous, so a 409 is retried for a short while.
func removeRoom(api *APIClient, roomID string, out io.Writer) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for attempt := 0; ; attempt++ {
		err := api.DeleteRoom(ctx, roomID)
		if err == nil {
			return
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict || attempt >= 10 {
			printWarning(out, "could not remove probe room %s: %v", roomID, err)
			return
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			printWarning(out, "could not remove probe room %s: %v", roomID, ctx.Err())
			return
		}
	}
}
