package slogx

import (
	"context"
	"log/slog"

	"github.com/lexorahq/provision/pkg/idx"
)

type ctxKey struct{}

type corrKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithCorrelationID attaches a correlation id both to the contextual logger
// and to the context itself so downstream backend calls can propagate it.
func WithCorrelationID(ctx context.Context, corrID idx.ID) context.Context {
	l := FromContext(ctx).With("corr_id", corrID.String())
	ctx = context.WithValue(ctx, corrKey{}, corrID)
	return WithContext(ctx, l)
}

// CorrelationID returns the correlation id attached to ctx, or idx.Zero.
func CorrelationID(ctx context.Context) idx.ID {
	id, ok := ctx.Value(corrKey{}).(idx.ID)
	if !ok {
		return idx.Zero
	}
	return id
}
