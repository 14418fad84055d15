package core

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

var defaultLogger *zap.SugaredLogger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	defaultLogger = l.Sugar()
}

// SetLogger replaces the process-wide fallback logger. Intended for main()
// and for tests that want to capture output.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		defaultLogger = l
	}
}

// WithDefaultLogger returns a context carrying a logger scoped to id, e.g.
// one stacking job or one table assembly.
func WithDefaultLogger(parent context.Context, id string) context.Context {
	return context.WithValue(parent, loggerKey{}, defaultLogger.Named(id))
}

func fromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.SugaredLogger); ok {
			return l
		}
	}
	return defaultLogger
}

func Infof(ctx context.Context, tpl string, args ...any) {
	fromContext(ctx).Infof(tpl, args...)
}

func Warnf(ctx context.Context, tpl string, args ...any) {
	fromContext(ctx).Warnf(tpl, args...)
}

func Errorf(ctx context.Context, tpl string, args ...any) {
	fromContext(ctx).Errorf(tpl, args...)
}

func Debugf(ctx context.Context, tpl string, args ...any) {
	fromContext(ctx).Debugf(tpl, args...)
}
