// Package logger builds the slog logger shared by the trigger binaries.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/vodpipeline/mediaconvert-trigger/internal/config"
)

// New returns a JSON (or text) slog logger tagged with the service name.
func New(cfg config.Log, service string) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg, service)
}

func NewWithWriter(w io.Writer, cfg config.Log, service string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	if service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", service)})
	}

	return slog.New(handler)
}

// WithComponent tags every record with the component name.
func WithComponent(l *slog.Logger, component string) *slog.Logger {
	return l.With(slog.String("component", component))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
