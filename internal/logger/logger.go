// Package logger provides the global structured logger for the roomchat
// service, built on the Uber zap library. It must be initialized via Init()
// before use and flushed with Sync() on shutdown.
package logger

import (
	"errors"
	"os"

	"go.uber.org/zap"
)

// Log is the global SugaredLogger instance. It offers leveled, structured
// logging with a printf-style convenience API and is shared by every package
// in the service.
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// Init configures the global logger with the given level ("debug", "info",
// "warn", "error"). It replaces the no-op default installed at package load.
func Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.Sugar()

	return nil
}

// Sync flushes any buffered log entries. Call it on shutdown.
func Sync() error {
	if err := Log.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}

	return nil
}
