// Package diag is the runtime's diagnostic stream: every panic, warning,
// and invariant violation described in spec §7 goes through here so it
// carries a consistent "[ARNM ...]" tag, matching the structured-logging
// convention webitel-im-delivery-service uses (zap, constructed once and
// passed down rather than reached for globally) — except the runtime has
// no DI container of its own, so a package-level logger is the practical
// compromise, swappable via SetLogger for embedders that already run fx.
package diag

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(newDefaultLogger())
}

func newDefaultLogger() *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), zap.WarnLevel)
	return zap.New(core)
}

// SetLogger overrides the process-wide diagnostic logger, e.g. so an
// embedder can route ARNm diagnostics into its own zap tree.
func SetLogger(l *zap.Logger) {
	current.Store(l)
}

// Logger returns the active diagnostic logger.
func Logger() *zap.Logger {
	return current.Load()
}

// Panic logs an unrecoverable panic-class diagnostic (§7 "Unmatched
// receive", arnm_panic_nomatch and friends) and aborts the process. It
// never returns.
func Panic(tag string, fields ...zap.Field) {
	Logger().Error("[ARNM panic] "+tag, fields...)
	os.Exit(2)
}

// InvariantViolation logs a hard invariant break (§7 "Invariant
// violation") and aborts, e.g. a process dequeued from a run queue in a
// state outside {Ready, Waiting}.
func InvariantViolation(tag string, fields ...zap.Field) {
	Logger().Error("[ARNM invariant] "+tag, fields...)
	os.Exit(2)
}

// Warn logs a non-fatal diagnostic: potential deadlock, non-owner
// mutex unlock, reacquiring an already-held mutex.
func Warn(tag string, fields ...zap.Field) {
	Logger().Warn("[ARNM warn] "+tag, fields...)
}
