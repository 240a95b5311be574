package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu  sync.Mutex
	def *slog.Logger
)

// Init настраивает slog в зависимости от среды и ставит его как slog.Default.
func Init(cfg Config) *slog.Logger {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "videomeet-signaling"
	}
	cfg.InstanceID = instanceID(cfg.InstanceID)

	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}

	w := cfg.Output
	if w == nil {
		w = os.Stdout
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg, w)
	default:
		h = newStdHandler(cfg, w)
	}
	h = traceHandler{h.WithAttrs(commonAttrs(cfg))}

	base := slog.New(h)
	slog.SetDefault(base)

	mu.Lock()
	def = base
	mu.Unlock()
	return base
}

func L() *slog.Logger {
	mu.Lock()
	l := def
	mu.Unlock()
	if l != nil {
		return l
	}
	return Init(Config{})
}
