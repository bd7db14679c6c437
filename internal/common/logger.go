package common

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the text logger used by the binaries. LOG_LEVEL picks the level
// (debug, info, warn, error) and LOG_TIME=false drops timestamps.
func NewLogger(w io.Writer) *slog.Logger {
	dropTime := strings.EqualFold(getEnv("LOG_TIME", "true"), "false")
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(getEnv("LOG_LEVEL", "info")),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if dropTime && len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
