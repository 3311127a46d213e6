// Package logging builds the process-wide slog.Logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/porticoai/portico/internal/config"
)

// New constructs a logger for the configured format and level. Every record
// carries a "service" attribute so aggregated logs stay attributable.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	handler, err := newHandler(os.Stdout, cfg)
	if err != nil {
		return nil, err
	}
	return slog.New(handler).With("service", "portico"), nil
}

func newHandler(w io.Writer, cfg config.LoggingConfig) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	switch cfg.Format {
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
}
