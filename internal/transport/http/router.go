package http

import (
	"net/http"
	"time"

	"github.com/cwrk-planet/videomeet-signaling/internal/transport/http/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	AllowedOrigins []string
	Timeout        time.Duration
}

func NewRouter(h *Handler, wsHandler http.HandlerFunc, cfg RouterConfig) http.Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// WS endpoint: без Timeout и обёрток ResponseWriter, иначе Hijack не сработает
	r.Get("/ws", wsHandler)

	r.Group(func(pr chi.Router) {
		pr.Use(httputil.MiddlewareLogging)
		pr.Use(middleware.Timeout(cfg.Timeout))

		pr.Route("/api", func(api chi.Router) {
			api.Route("/rooms", func(rm chi.Router) {
				rm.Post("/", h.CreateRoom)
				rm.Get("/", h.ListRooms)

				rm.Route("/{roomId}", func(rr chi.Router) {
					rr.Get("/", h.GetRoom)
					rr.Delete("/", h.DeleteRoom)
				})
			})

			// маршруты старого клиента
			api.Post("/create-room", h.CreateRoom)
			api.Get("/room/{roomId}", h.GetRoom)

			api.Get("/stats", h.Stats)
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
