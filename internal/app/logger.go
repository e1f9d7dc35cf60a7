package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the process logger. JSON in deployments (LOG_FORMAT=json),
// text otherwise; debug level outside production. Every record carries the
// service attribute so API and worker logs interleave cleanly.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg == nil || !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "ledgerbridge"))
}
