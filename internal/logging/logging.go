// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps "debug", "info", "warn", "error", "off" to a zerolog level. Unknown or empty input is warn.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning", "":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}

// New builds a logger writing to w. Console output is human-readable; otherwise JSON lines.
func New(w io.Writer, level string, console bool) zerolog.Logger {
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Setup installs the global logger on stderr. level falls back to LLMVRAM_LOG_LEVEL.
func Setup(level string, console bool) zerolog.Logger {
	if level == "" {
		level = os.Getenv("LLMVRAM_LOG_LEVEL")
	}
	l := New(os.Stderr, level, console)
	log.Logger = l
	return l
}
