// Package requestctx carries request metadata from the HTTP edge into domain
// code, which tags logs and audit rows with it without importing transport.
package requestctx

import (
	"context"
	"log/slog"
)

type Meta struct {
	RequestID string
	ClientIP  string
}

type ctxKey struct{}

func With(ctx context.Context, meta Meta) context.Context {
	return context.WithValue(ctx, ctxKey{}, meta)
}

func From(ctx context.Context) Meta {
	meta, _ := ctx.Value(ctxKey{}).(Meta)
	return meta
}

func GetRequestID(ctx context.Context) string {
	return From(ctx).RequestID
}

// Logger returns the default logger, tagged with the request id when ctx
// came from an HTTP request. Batch jobs get the plain logger.
func Logger(ctx context.Context) *slog.Logger {
	if id := GetRequestID(ctx); id != "" {
		return slog.Default().With("requestId", id)
	}
	return slog.Default()
}
