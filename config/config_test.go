package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("http:\n  addr: \":8080\"\ngrpc:\n  addr: \":9090\"\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Fatalf("driver = %q, want memory", cfg.Store.Driver)
	}
	if cfg.Signaling.PongWait != 60*time.Second || cfg.Signaling.PingPeriod != 54*time.Second {
		t.Fatalf("keepalive defaults = %s/%s", cfg.Signaling.PingPeriod, cfg.Signaling.PongWait)
	}
	if cfg.Signaling.SendBuffer != 256 || cfg.Signaling.MaxMessageSize != 64*1024 {
		t.Fatalf("buffer defaults = %d/%d", cfg.Signaling.SendBuffer, cfg.Signaling.MaxMessageSize)
	}
	if cfg.Rooms.IdleTTL != 0 {
		t.Fatalf("idleTTL should stay 0 when omitted, got %s", cfg.Rooms.IdleTTL)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("origins = %v", cfg.HTTP.AllowedOrigins)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"missing http":    "grpc:\n  addr: \":9090\"\n",
		"unknown driver":  "http:\n  addr: \":1\"\ngrpc:\n  addr: \":2\"\nstore:\n  driver: redis\n",
		"postgres no dsn": "http:\n  addr: \":1\"\ngrpc:\n  addr: \":2\"\nstore:\n  driver: postgres\n",
		"bad capacity":    "http:\n  addr: \":1\"\ngrpc:\n  addr: \":2\"\nrooms:\n  defaultCapacity: 10\n  maxCapacity: 4\n",
		"ping too long":   "http:\n  addr: \":1\"\ngrpc:\n  addr: \":2\"\nsignaling:\n  pingPeriod: 2m\n  pongWait: 1m\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("POSTGRES_DSN", "")
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://override:27017")
	cfg, err := Parse([]byte("http:\n  addr: \":1\"\ngrpc:\n  addr: \":2\"\nstore:\n  driver: Mongo\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Mongo.URI != "mongodb://override:27017" || cfg.Store.Driver != DriverMongo {
		t.Fatalf("mongo = %+v driver=%q", cfg.Mongo, cfg.Store.Driver)
	}
}

func TestLoadConfig_BundledFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "config.yaml")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Rooms.IdleTTL != 30*time.Minute || cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected bundled config: %+v", cfg)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "nope.yaml") {
		t.Fatalf("expected file error, got %v", err)
	}
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
