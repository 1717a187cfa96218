package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/config"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/http/handler"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/http/middleware"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const meterName = "catalog-api"

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	config     *config.ServerConfig
	handler    *handler.ProductHandler
	logger     *slog.Logger
	telemetry  *telemetry.Telemetry
	httpServer *http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.ServerConfig,
	handler *handler.ProductHandler,
	logger *slog.Logger,
	telem *telemetry.Telemetry,
) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		handler:   handler,
		logger:    logger,
		telemetry: telem,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// setupMiddleware configures the middleware chain
func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(middleware.StructuredLogger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.BodyLimit(s.config.MaxBodyBytes))

	meter := s.telemetry.MeterProvider.Meter(meterName)
	s.router.Use(middleware.ActiveRequestsMiddleware(meter))
	s.router.Use(middleware.DurationMillisecondsMiddleware(meter))
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Route("/api/products", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.HTTPRouteContext())

			r.Get("/", s.handler.ListProducts)
			r.Post("/", s.handler.CreateProduct)
			r.Put("/", s.handler.UpdateProduct)
			r.Delete("/", s.handler.DeleteProduct)
			r.Get("/{id}", s.handler.GetProduct)
		})
	})

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.router.Method(http.MethodGet, "/metrics", s.telemetry.MetricsHandler)
}

// Handler returns the router wrapped with otelhttp for automatic HTTP metrics and tracing
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "http-server",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
		otelhttp.WithTracerProvider(s.telemetry.TracerProvider),
		otelhttp.WithMeterProvider(s.telemetry.MeterProvider),
	)
}

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		slog.String("address", s.httpServer.Addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
