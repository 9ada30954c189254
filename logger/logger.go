package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"chatbot/config"

	"go.opentelemetry.io/otel/trace"
)

// Setup installs the process-wide slog logger.
func Setup(cfg config.Config) {
	slog.SetDefault(New(cfg, os.Stdout))
}

func New(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.IsDevelopment() {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = NewContextHandler(slog.NewJSONHandler(w, opts))
	} else {
		handler = NewContextHandler(slog.NewTextHandler(w, opts))
	}
	return slog.New(handler)
}

// ContextHandler decorates records with trace ids and the LogFields carried
// by the context.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	fields := GetLogFields(ctx)
	if fields.ConversationID != "" {
		r.AddAttrs(slog.String("conversation_id", fields.ConversationID))
	}
	if fields.Component != "" {
		r.AddAttrs(slog.String("component", fields.Component))
	}

	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}
