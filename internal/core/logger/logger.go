package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "omim-ads"

var globalLogger atomic.Pointer[zap.Logger]

// Init initializes the global logger.
// "production" gets JSON output; anything else gets colored console output.
func Init(environment string, level string) error {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := zapcore.ParseLevel(level)
	if err == nil {
		config.Level = zap.NewAtomicLevelAt(l)
	}

	logger, err := config.Build(zap.Fields(zap.String("service", serviceName)))
	if err != nil {
		return err
	}

	globalLogger.Store(logger)
	return nil
}

// Set replaces the global logger. Tests use it to install an observer core.
func Set(l *zap.Logger) {
	globalLogger.Store(l)
}

// Get returns the global logger instance.
// If not initialized, it returns a no-op logger to prevent panics.
func Get() *zap.Logger {
	if l := globalLogger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// Sync flushes any buffered log entries.
func Sync() {
	if l := globalLogger.Load(); l != nil {
		_ = l.Sync()
	}
}
