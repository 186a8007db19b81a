// Package actorctx carries request-scoped identity on a context.Context so that
// code below the HTTP layer can log who is acting.
package actorctx

import (
	"context"

	"github.com/geocoder89/taskhub/internal/authz"
)

type ctxKey string

const (
	keyCaller    ctxKey = "caller"
	keyRequestID ctxKey = "request_id"
)

func WithCaller(ctx context.Context, caller authz.Caller) context.Context {
	return context.WithValue(ctx, keyCaller, caller)
}

func CallerFrom(ctx context.Context) (authz.Caller, bool) {
	v, ok := ctx.Value(keyCaller).(authz.Caller)

	return v, ok && v.ID != 0
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)

	return v, ok && v != ""
}
