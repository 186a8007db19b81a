package observability

import (
	"context"
	"log/slog"

	"github.com/geocoder89/taskhub/internal/actorctx"
	"go.opentelemetry.io/otel/trace"
)

// ContextHandler decorates records with what the context knows about the
// request: the active span, the request id and the authenticated caller.
// Attributes already set on the record win.
type ContextHandler struct {
	next slog.Handler
}

func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		return h.next.Handle(ctx, r)
	}

	present := map[string]bool{}
	r.Attrs(func(a slog.Attr) bool {
		present[a.Key] = true
		return true
	})

	add := func(a slog.Attr) {
		if !present[a.Key] {
			r.AddAttrs(a)
		}
	}

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		add(slog.String("trace_id", sc.TraceID().String()))
		add(slog.String("span_id", sc.SpanID().String()))
	}
	if id, ok := actorctx.RequestIDFrom(ctx); ok {
		add(slog.String("request_id", id))
	}
	if caller, ok := actorctx.CallerFrom(ctx); ok {
		add(slog.Int64("caller_id", caller.ID))
		add(slog.String("caller_role", string(caller.Role)))
	}

	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
