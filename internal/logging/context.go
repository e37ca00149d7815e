package logging

import (
	"context"

	"github.com/sirupsen/logrus"
)

type loggingContextKeyType struct{}

var loggingContextKey loggingContextKeyType

// Stash stores a logger in a context.
func Stash(ctx context.Context, logger logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, loggingContextKey, logger)
}

// FromContext returns the logger stored by Stash or the standard logger.
func FromContext(ctx context.Context) logrus.FieldLogger {
	val := ctx.Value(loggingContextKey)
	if val == nil {
		return logrus.StandardLogger()
	}
	l, ok := val.(logrus.FieldLogger)
	if !ok {
		return logrus.StandardLogger()
	}
	return l
}
