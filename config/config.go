package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type GRPC struct {
	Addr string `yaml:"addr"`
}

type HTTP struct {
	Addr           string        `yaml:"addr"`           // ":8080"
	ReadTimeout    time.Duration `yaml:"readTimeout"`    // "15s"
	WriteTimeout   time.Duration `yaml:"writeTimeout"`   // "30s"
	IdleTimeout    time.Duration `yaml:"idleTimeout"`    // "60s"
	AllowedOrigins []string      `yaml:"allowedOrigins"` // CORS
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // videomeet-signaling
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Store struct {
	Driver string `yaml:"driver"` // memory|postgres|mongo
}

type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"maxConns"`
	MinConns        int32         `yaml:"minConns"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime"`
	ApplicationName string        `yaml:"applicationName"`
}

type Mongo struct {
	URI        string        `yaml:"uri"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

type Rooms struct {
	DefaultCapacity int           `yaml:"defaultCapacity"` // 0 = без лимита
	MaxCapacity     int           `yaml:"maxCapacity"`     // 0 = без верхней границы
	IdleTTL         time.Duration `yaml:"idleTTL"`         // 0 = комнаты не удаляются автоматически
	ReclaimEvery    time.Duration `yaml:"reclaimEvery"`
}

type Signaling struct {
	NotifyUndeliverable bool          `yaml:"notifyUndeliverable"`
	PingPeriod          time.Duration `yaml:"pingPeriod"`
	PongWait            time.Duration `yaml:"pongWait"`
	WriteWait           time.Duration `yaml:"writeWait"`
	MaxMessageSize      int64         `yaml:"maxMessageSize"`
	SendBuffer          int           `yaml:"sendBuffer"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	GRPC      GRPC      `yaml:"grpc"`
	Logging   Logging   `yaml:"logging"`
	Store     Store     `yaml:"store"`
	Postgres  Postgres  `yaml:"postgres"`
	Mongo     Mongo     `yaml:"mongo"`
	Rooms     Rooms     `yaml:"rooms"`
	Signaling Signaling `yaml:"signaling"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// LoadConfig читает YAML из CONFIG_PATH (по умолчанию ./config/config.yaml).
func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets secrets stay out of the YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.GRPC.Addr == "" {
		return errors.New("grpc.addr is required")
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "":
		c.Store.Driver = DriverMemory
	case DriverMemory:
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for store.driver=postgres")
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			return errors.New("mongo.uri is required for store.driver=mongo")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	if c.Rooms.DefaultCapacity < 0 || c.Rooms.MaxCapacity < 0 {
		return errors.New("rooms capacities must not be negative")
	}
	if c.Rooms.MaxCapacity > 0 && c.Rooms.DefaultCapacity > c.Rooms.MaxCapacity {
		return errors.New("rooms.defaultCapacity exceeds rooms.maxCapacity")
	}

	// установка дефолтов, если значения не указаны
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.IdleTimeout <= 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"http://localhost:3000"}
	}

	if c.Logging.Service == "" {
		c.Logging.Service = "videomeet-signaling"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	if c.Mongo.Database == "" {
		c.Mongo.Database = "videomeet"
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = "rooms"
	}
	if c.Mongo.Timeout <= 0 {
		c.Mongo.Timeout = 5 * time.Second
	}

	if c.Rooms.ReclaimEvery <= 0 {
		c.Rooms.ReclaimEvery = time.Minute
	}

	s := &c.Signaling
	if s.PongWait <= 0 {
		s.PongWait = 60 * time.Second
	}
	if s.PingPeriod <= 0 {
		s.PingPeriod = s.PongWait * 9 / 10
	}
	if s.PingPeriod >= s.PongWait {
		return errors.New("signaling.pingPeriod must be shorter than signaling.pongWait")
	}
	if s.WriteWait <= 0 {
		s.WriteWait = 10 * time.Second
	}
	if s.MaxMessageSize <= 0 {
		s.MaxMessageSize = 64 * 1024
	}
	if s.SendBuffer <= 0 {
		s.SendBuffer = 256
	}
	return nil
}
