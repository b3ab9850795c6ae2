package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.WarnLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", false)
	l.Info().Str("family", "Qwen2.5").Msg("loaded")
	l.Debug().Msg("hidden")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var ev map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if ev["family"] != "Qwen2.5" || ev["message"] != "loaded" {
		t.Errorf("event = %v", ev)
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn", true)
	l.Warn().Msg("cache unreadable")
	if !strings.Contains(buf.String(), "cache unreadable") {
		t.Errorf("console output = %q", buf.String())
	}
}
