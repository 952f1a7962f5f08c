package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/derektruong/cloudxfer/config"
	"github.com/go-logr/logr"
)

var logLevels = map[string]slog.Level{
	"DEBUG": slog.LevelDebug,
	"INFO":  slog.LevelInfo,
	"WARN":  slog.LevelWarn,
	"ERROR": slog.LevelError,
}

func newLogger(cfg config.LoggingConfig) (logr.Logger, error) {
	var out io.Writer
	switch cfg.Output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		// closed with the process
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return logr.Discard(), fmt.Errorf("failed to open log output: %w", err)
		}
		out = f
	}

	opts := &slog.HandlerOptions{Level: logLevels[cfg.Level]}
	var handler slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	}
	return logr.FromSlogHandler(handler).WithName("cloudxfer"), nil
}
