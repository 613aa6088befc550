package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriter_JSONDefault(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer
	log := NewWithWriter(&buf)
	log.Info("hello", slog.String("source", "a.pdf"))
	log.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "hello" || rec["source"] != "a.pdf" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestNewWithWriter_TextDebug(t *testing.T) {
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	NewWithWriter(&buf).Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("expected text debug record, got %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()
	if FromContext(context.Background()) != slog.Default() {
		t.Error("empty context should yield slog.Default")
	}
	l := Discard()
	if got := FromContext(WithLogger(context.Background(), l)); got != l {
		t.Error("FromContext did not return the stored logger")
	}
}
