package log

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/tuanvumaihuynh/stockroom/internal/auth"
	"github.com/tuanvumaihuynh/stockroom/pkg/correlationid"
)

var _ slog.Handler = (*enrichedHandler)(nil)

// enrichedHandler adds correlation id, trace ids and the acting user to every record.
type enrichedHandler struct {
	h slog.Handler
}

func newEnrichedHandler(h slog.Handler) enrichedHandler {
	return enrichedHandler{h: h}
}

func (eh enrichedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return eh.h.Enabled(ctx, level)
}

func (eh enrichedHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(contextAttrs(ctx)...)
	return eh.h.Handle(ctx, r)
}

func contextAttrs(ctx context.Context) []slog.Attr {
	attrs := make([]slog.Attr, 0, 4)

	if correlationID, ok := correlationid.FromContext(ctx); ok {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	if p, ok := auth.PrincipalFromContext(ctx); ok {
		attrs = append(attrs, slog.Group("user", slog.Int64("id", p.UserID), slog.String("name", p.Username)))
	}

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}

	return attrs
}

func (eh enrichedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newEnrichedHandler(eh.h.WithAttrs(attrs))
}

func (eh enrichedHandler) WithGroup(name string) slog.Handler {
	return newEnrichedHandler(eh.h.WithGroup(name))
}
