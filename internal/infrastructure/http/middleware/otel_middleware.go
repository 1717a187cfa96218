package middleware

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// RoutePattern returns the chi route pattern for r, falling back to the raw path
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// BodyLimit caps request bodies at maxBytes. Product images arrive inline as
// data URIs, so the limit is generous but finite.
func BodyLimit(maxBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActiveRequestsMiddleware tracks active HTTP requests.
// The route is resolved on first write, after chi has matched it.
func ActiveRequestsMiddleware(meter metric.Meter) func(next http.Handler) http.Handler {
	activeRequests, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of active HTTP server requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapper := &routeAwareWriter{
				WrapResponseWriter: middleware.NewWrapResponseWriter(w, r.ProtoMajor),
				request:            r,
				activeRequests:     activeRequests,
			}

			next.ServeHTTP(wrapper, r)

			wrapper.finish()
		})
	}
}

// routeAwareWriter increments the active request gauge once the route is known
type routeAwareWriter struct {
	middleware.WrapResponseWriter
	request        *http.Request
	activeRequests metric.Int64UpDownCounter

	once  sync.Once
	attrs metric.MeasurementOption
}

func (w *routeAwareWriter) WriteHeader(statusCode int) {
	w.start()
	w.WrapResponseWriter.WriteHeader(statusCode)
}

func (w *routeAwareWriter) Write(b []byte) (int, error) {
	w.start()
	return w.WrapResponseWriter.Write(b)
}

func (w *routeAwareWriter) Flush() {
	w.start()
	if f, ok := w.WrapResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *routeAwareWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.WrapResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("%T does not implement http.Hijacker", w.WrapResponseWriter)
	}
	w.start()
	return hj.Hijack()
}

func (w *routeAwareWriter) start() {
	w.once.Do(func() {
		// attributes must match exactly between increment and decrement
		w.attrs = metric.WithAttributes(
			attribute.String("http.request.method", w.request.Method),
			attribute.String("http.route", RoutePattern(w.request)),
			attribute.String("server.address", w.request.Host),
		)
		w.activeRequests.Add(w.request.Context(), 1, w.attrs)
	})
}

func (w *routeAwareWriter) finish() {
	w.start()
	w.activeRequests.Add(w.request.Context(), -1, w.attrs)
}

// DurationMillisecondsMiddleware records HTTP request duration in milliseconds,
// alongside the seconds-based histogram otelhttp already emits
func DurationMillisecondsMiddleware(meter metric.Meter) func(next http.Handler) http.Handler {
	durationHistogram, err := meter.Float64Histogram(
		"http.server.request.duration.ms",
		metric.WithDescription("HTTP server request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := float64(time.Since(start).Microseconds()) / 1000
			durationHistogram.Record(r.Context(), duration,
				metric.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("http.route", RoutePattern(r)),
					attribute.Int("http.response.status_code", statusOf(ww)),
					attribute.String("server.address", r.Host),
				),
			)
		})
	}
}

// HTTPRouteContext adds the HTTP route pattern to the request context so all
// logs during request processing carry http.route, and labels the otelhttp
// server metrics with the pattern instead of the raw path.
// Register it inline (Group or With) so it runs after chi has matched the route.
func HTTPRouteContext() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := RoutePattern(r)
			if labeler, ok := otelhttp.LabelerFromContext(r.Context()); ok {
				labeler.Add(attribute.String("http.route", route))
			}

			ctx := telemetry.WithHTTPRoute(r.Context(), route)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StructuredLogger logs one JSON line per request
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := statusOf(ww)

			attrs := []any{
				slog.String("http.request.method", r.Method),
				slog.String("http.route", RoutePattern(r)),
				slog.String("url.path", r.URL.Path),
				slog.String("url.query", r.URL.RawQuery),
				slog.Int("http.response.status_code", status),
				slog.Int("http.response.body.size", ww.BytesWritten()),
				slog.String("duration", duration.String()),
				slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
				slog.String("client.address", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			}

			if spanCtx := trace.SpanFromContext(r.Context()).SpanContext(); spanCtx.IsValid() {
				attrs = append(attrs,
					slog.String("trace_id", spanCtx.TraceID().String()),
					slog.String("span_id", spanCtx.SpanID().String()),
				)
			}

			logLevel := slog.LevelInfo
			if status >= 500 {
				logLevel = slog.LevelError
			} else if status >= 400 {
				logLevel = slog.LevelWarn
			}

			logger.Log(r.Context(), logLevel, "HTTP request completed", attrs...)
		})
	}
}

// statusOf treats a handler that never wrote a header as 200
func statusOf(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
