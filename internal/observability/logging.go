package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

// Context keys read by ContextHandler. Middleware sets RequestIDKey; the webhook
// endpoint sets CallIDKey once the call id is known.
const (
	RequestIDKey contextKey = "request_id"
	CallIDKey    contextKey = "call_id"
)

// WithCallID returns a copy of ctx whose log records carry call_id.
func WithCallID(ctx context.Context, callID string) context.Context {
	if callID == "" {
		return ctx
	}

	return context.WithValue(ctx, CallIDKey, callID)
}

// ContextHandler wraps a slog.Handler and adds request_id, call_id and the active
// span's trace_id/span_id from the context to each log record when present.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler returns a handler that adds context values to records.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

// Enabled reports whether the inner handler is enabled for the given level.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds context fields to the record, then forwards to the inner handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
			r.AddAttrs(slog.String("request_id", id))
		}

		if id, ok := ctx.Value(CallIDKey).(string); ok && id != "" && !hasAttr(r, "call_id") {
			r.AddAttrs(slog.String("call_id", id))
		}

		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			r.AddAttrs(
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
		}
	}

	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("inner handler: %w", err)
	}

	return nil
}

// WithAttrs returns a handler whose attributes are the concatenation of the inner's and attrs.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup returns a handler for the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}

func hasAttr(r slog.Record, key string) bool {
	found := false

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			found = true
			return false
		}

		return true
	})

	return found
}
