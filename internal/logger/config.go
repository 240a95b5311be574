package logger

import (
	"io"
	"log/slog"
	"strings"
)

type Backend string

const (
	BackendStd Backend = "std" // slog text handler
	BackendZap Backend = "zap" // JSON через slog-zap
)

type Config struct {
	// Метаданные, попадают в каждую запись
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // по умолчанию: std для dev, zap для stage/prod
	Debug   bool

	// Zap sampling: первые SampleInitial записей в секунду, дальше каждая SampleThereafter.
	SampleInitial    int
	SampleThereafter int

	AddSource bool

	// Output по умолчанию os.Stdout
	Output io.Writer
}

func ParseBackend(s string) Backend {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zap", "json":
		return BackendZap
	case "std", "text":
		return BackendStd
	default:
		return ""
	}
}

// ParseLevel понимает debug/info/warn/error, всё остальное считает info.
func ParseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func (c Config) level() slog.Level {
	if c.Debug && c.Level == 0 {
		return slog.LevelDebug
	}
	return c.Level
}
