package logging

import (
	"context"

	"github.com/getpup/pupsourcing/es"
)

type fieldLogger struct {
	logger  es.Logger
	keyvals []interface{}
}

// WithFields returns a logger that prepends keyvals to every entry.
// It returns nil when logger is nil so callers keep their nil checks.
func WithFields(logger es.Logger, keyvals ...interface{}) es.Logger {
	if logger == nil {
		return nil
	}
	return &fieldLogger{logger: logger, keyvals: keyvals}
}

func (l *fieldLogger) merge(keyvals []interface{}) []interface{} {
	merged := make([]interface{}, 0, len(l.keyvals)+len(keyvals))
	merged = append(merged, l.keyvals...)
	return append(merged, keyvals...)
}

func (l *fieldLogger) Debug(ctx context.Context, msg string, keyvals ...interface{}) {
	l.logger.Debug(ctx, msg, l.merge(keyvals)...)
}

func (l *fieldLogger) Info(ctx context.Context, msg string, keyvals ...interface{}) {
	l.logger.Info(ctx, msg, l.merge(keyvals)...)
}

func (l *fieldLogger) Error(ctx context.Context, msg string, keyvals ...interface{}) {
	l.logger.Error(ctx, msg, l.merge(keyvals)...)
}
