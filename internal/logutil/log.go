package logutil

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type key struct{}

// WithLogger returns a context carrying the given logger; handlers and
// the resolver pick it up again with GetOrDefault.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, key{}, logger)
}

// GetOrDefault returns the logger carried by ctx, falling back to the
// process-wide one.
func GetOrDefault(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(key{}).(zerolog.Logger); ok {
		return logger
	}
	return log.Logger
}
