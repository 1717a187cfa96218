package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/config"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const httpRouteKey contextKey = "http.route"

// WithHTTPRoute adds the HTTP route to the context
func WithHTTPRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, httpRouteKey, route)
}

// HTTPRouteFromContext extracts the HTTP route from context
func HTTPRouteFromContext(ctx context.Context) string {
	if route, ok := ctx.Value(httpRouteKey).(string); ok {
		return route
	}
	return ""
}

// traceContextHandler is a custom slog handler that injects trace context
type traceContextHandler struct {
	handler slog.Handler
}

func (h *traceContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle adds trace_id, span_id, request_id and http.route from the context
func (h *traceContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		r.AddAttrs(slog.String("request_id", reqID))
	}

	if route := HTTPRouteFromContext(ctx); route != "" {
		r.AddAttrs(slog.String("http.route", route))
	}

	return h.handler.Handle(ctx, r)
}

func (h *traceContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceContextHandler{
		handler: h.handler.WithAttrs(attrs),
	}
}

func (h *traceContextHandler) WithGroup(name string) slog.Handler {
	return &traceContextHandler{
		handler: h.handler.WithGroup(name),
	}
}

// initLogger initializes a structured JSON logger with trace context injection
func initLogger(cfg *config.OTLPConfig, level slog.Level) *slog.Logger {
	return newLogger(os.Stdout, cfg, level)
}

func newLogger(w io.Writer, cfg *config.OTLPConfig, level slog.Level) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})

	return slog.New(&traceContextHandler{handler: jsonHandler}).With(
		slog.String("service.name", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
	)
}
