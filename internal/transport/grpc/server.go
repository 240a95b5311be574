package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name reported by the health service besides the overall "".
const ServiceName = "videomeet.signaling"

// Pinger is the storage check behind the health status.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	addr   string
	gs     *grpc.Server
	health *health.Server
	pinger Pinger
}

func New(addr string, pinger Pinger) *Server {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(10*time.Second)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{addr: addr, gs: gs, health: hs, pinger: pinger}
}

// Serve блокирует до ошибки или Stop.
func (s *Server) Serve(ln net.Listener) error {
	slog.Info("grpc listening", "addr", ln.Addr().String())
	return s.gs.Serve(ln)
}

// Run слушает addr, следит за хранилищем и останавливается по ctx.
func (s *Server) Run(ctx context.Context, probeEvery time.Duration) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	go s.Probe(ctx, probeEvery)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ln) }()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Probe pings the store right away and then every interval, flipping the
// health status between SERVING and NOT_SERVING.
func (s *Server) Probe(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 5 * time.Second
	}
	s.check(ctx)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Server) check(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("store ping failed", "err", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *Server) Stop() {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		slog.Error("grpc graceful stop timeout; forcing stop")
		s.gs.Stop()
	}

	slog.Info("grpc stopped")
}
