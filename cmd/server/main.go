package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/videomeet-signaling/config"
	"github.com/cwrk-planet/videomeet-signaling/internal/logger"
	"github.com/cwrk-planet/videomeet-signaling/internal/service"
	grpcx "github.com/cwrk-planet/videomeet-signaling/internal/transport/grpc"
	httpx "github.com/cwrk-planet/videomeet-signaling/internal/transport/http"
	"github.com/cwrk-planet/videomeet-signaling/internal/transport/ws"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1) config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// 2) logger (set.Default)
	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.ParseBackend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting videomeet-signaling",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "store", cfg.Store.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3) store
	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open store", "err", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			slog.Warn("close store", "err", err)
		}
	}()

	// 4) services
	roomSvc := service.NewRoomService(store, service.RoomPolicy{
		DefaultCapacity: cfg.Rooms.DefaultCapacity,
		MaxCapacity:     cfg.Rooms.MaxCapacity,
		IdleTTL:         cfg.Rooms.IdleTTL,
		ReclaimEvery:    cfg.Rooms.ReclaimEvery,
	})
	// connection ids die with the process
	if err := roomSvc.PurgeParticipants(ctx); err != nil {
		slog.Error("purge stale participants", "err", err)
		os.Exit(1)
	}

	hub := ws.NewHub()
	notifier := service.NewNotifier(hub)
	memberSvc := service.NewMemberService(roomSvc, notifier)
	relay := service.NewRelay(hub, service.WithUndeliverableNotice(cfg.Signaling.NotifyUndeliverable))

	// 5) transports
	wsServer := ws.NewServer(hub, memberSvc, relay, notifier, ws.Options{
		PingPeriod:     cfg.Signaling.PingPeriod,
		PongWait:       cfg.Signaling.PongWait,
		WriteWait:      cfg.Signaling.WriteWait,
		MaxMessageSize: cfg.Signaling.MaxMessageSize,
		SendBuffer:     cfg.Signaling.SendBuffer,
	}, cfg.HTTP.AllowedOrigins)

	handler := httpx.NewHandler(roomSvc, hub)
	router := httpx.NewRouter(handler, wsServer.HandleWS, httpx.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Timeout:        cfg.HTTP.WriteTimeout,
	})
	httpSrv := httpx.NewServer(httpx.ServerConfig{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}, router)

	grpcSrv := grpcx.New(cfg.GRPC.Addr, store)

	// 6) run
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		return httpSrv.Run(gctx)
	})
	g.Go(func() error {
		return grpcSrv.Run(gctx, 5*time.Second)
	})
	g.Go(func() error {
		return roomSvc.RunReclaimer(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		// hijacked ws connections are not closed by http.Server.Shutdown
		hub.CloseAll()
		return nil
	})

	// 7) graceful shutdown
	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
	}

	// DisconnectAll ещё идут в обработчиках; store закрываем после них
	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := wsServer.Drain(drainCtx); err != nil {
		slog.Warn("ws drain timed out", "err", err)
	}
	cancel()
	slog.Info("stopped")
}
