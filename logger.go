package daro

import (
	"log/slog"

	"github.com/gogpu/daro/internal/logx"
)

// SetLogger configures the logger for daro and all its sub-packages.
// By default daro produces no log output. Pass nil to restore silence.
//
// Log levels used by daro:
//   - [slog.LevelDebug]: per-frame diagnostics (skipped publishes, layer errors)
//   - [slog.LevelInfo]: lifecycle events (initialize, shutdown, recovery, stream clients)
//   - [slog.LevelWarn]: non-fatal issues (device loss, cache overflow, scheduler join timeout)
//
// Example:
//
//	daro.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logx.Set(l)
}

// Logger returns the current logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return logx.L()
}
