package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/porticoai/portico/internal/config"
)

func TestNewRespectsLevel(t *testing.T) {
	tests := []struct {
		format string
		level  slog.Level
	}{
		{"json", slog.LevelWarn},
		{"text", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			logger, err := New(config.LoggingConfig{Level: tt.level, Format: tt.format})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			ctx := context.Background()
			for _, lvl := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
				if got, want := logger.Enabled(ctx, lvl), lvl >= tt.level; got != want {
					t.Errorf("Enabled(%v) = %t, want %t", lvl, got, want)
				}
			}
		})
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: slog.LevelInfo, Format: "pretty"})
	if err == nil || !strings.Contains(err.Error(), "unsupported log format") {
		t.Fatalf("err = %v, want unsupported format error", err)
	}
}

func TestRecordsCarryServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	handler, err := newHandler(&buf, config.LoggingConfig{Level: slog.LevelInfo, Format: "json"})
	if err != nil {
		t.Fatalf("newHandler() error = %v", err)
	}

	slog.New(handler).With("service", "portico").Info("hello")
	if !strings.Contains(buf.String(), `"service":"portico"`) {
		t.Errorf("log line missing service attribute: %s", buf.String())
	}
}
