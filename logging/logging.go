package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sunu-agro/leafscan/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup installs the default slog logger described by c. The returned closer
// flushes the rotating file, if one is configured.
func Setup(c config.Log) (*slog.Logger, io.Closer) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if c.File != "" {
		lj := &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays,
		}
		w = io.MultiWriter(os.Stderr, lj)
		closer = lj
	}

	logger := slog.New(NewHandler(w, c))
	slog.SetDefault(logger)
	return logger, closer
}

func NewHandler(w io.Writer, c config.Log) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Level)}
	if strings.EqualFold(c.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
