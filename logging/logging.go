// Package logging builds zap loggers and adapts them to the es.Logger
// interface accepted by every component Config.
package logging

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/getpup/pupsourcing/es"
)

// Formats lists the supported encodings.
var Formats = []string{"console", "json"}

// ParseLevel converts a level name into a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// LevelFromVerbosity maps a -v count to a level: none logs warnings and
// errors only, -v adds info, -vv and above add debug.
func LevelFromVerbosity(verbosity int) zapcore.Level {
	switch {
	case verbosity <= 0:
		return zapcore.WarnLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// New builds a logger writing to stderr in the given format ("console" or "json").
func New(level zapcore.Level, format string) (*zap.Logger, error) {
	var encoderConfig zapcore.EncoderConfig
	if format == "json" {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.TimeKey = ""
		encoderConfig.CallerKey = ""
		format = "console"
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// Adapter implements es.Logger on top of a zap logger.
// Variadic args are alternating key/value pairs.
type Adapter struct {
	logger *zap.SugaredLogger
}

// Compile-time check that Adapter implements es.Logger.
var _ es.Logger = (*Adapter)(nil)

// Adapt wraps a zap logger.
func Adapt(logger *zap.Logger) *Adapter {
	return &Adapter{logger: logger.Sugar()}
}

// With returns an adapter that adds keyvals to every entry.
func (a *Adapter) With(keyvals ...interface{}) *Adapter {
	return &Adapter{logger: a.logger.With(keyvals...)}
}

// Debug implements es.Logger.
func (a *Adapter) Debug(ctx context.Context, msg string, keyvals ...interface{}) {
	a.logger.Debugw(msg, keyvals...)
}

// Info implements es.Logger.
func (a *Adapter) Info(ctx context.Context, msg string, keyvals ...interface{}) {
	a.logger.Infow(msg, keyvals...)
}

// Error implements es.Logger.
func (a *Adapter) Error(ctx context.Context, msg string, keyvals ...interface{}) {
	a.logger.Errorw(msg, keyvals...)
}

// Sync flushes buffered entries.
func (a *Adapter) Sync() error {
	return a.logger.Sync()
}
