package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Telemetry holds all OpenTelemetry components
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Logger         *slog.Logger
	// MetricsHandler serves the Prometheus scrape endpoint
	MetricsHandler http.Handler

	conn *grpc.ClientConn
}

// NewTelemetry initializes all OpenTelemetry components
func NewTelemetry(cfg *config.OTLPConfig, level slog.Level) (*Telemetry, error) {
	ctx := context.Background()

	logger := initLogger(cfg, level)

	logger.Info("Initializing OpenTelemetry",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("service_name", cfg.ServiceName),
	)

	conn, err := grpc.NewClient(cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	tp, err := initTracerProvider(ctx, conn, res)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	logger.Info("Tracer provider initialized successfully")

	promReader, metricsHandler, err := newPrometheusReader()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	mp, err := initMeterProvider(ctx, conn, res, promReader)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	otel.SetMeterProvider(mp)
	logger.Info("Meter provider initialized successfully (OTLP + Prometheus exporters)")

	return &Telemetry{
		TracerProvider: tp,
		MeterProvider:  mp,
		Logger:         logger,
		MetricsHandler: metricsHandler,
		conn:           conn,
	}, nil
}

// NewNoOpTelemetry creates a telemetry instance that exports nothing over OTLP.
// Prometheus metrics are still collected and served.
func NewNoOpTelemetry(cfg *config.OTLPConfig, level slog.Level) (*Telemetry, error) {
	logger := initLogger(cfg, level)

	promReader, metricsHandler, err := newPrometheusReader()
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider()
	mp := metric.NewMeterProvider(metric.WithReader(promReader))

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	logger.Info("Telemetry initialized in no-op mode (export disabled)")

	return &Telemetry{
		TracerProvider: tp,
		MeterProvider:  mp,
		Logger:         logger,
		MetricsHandler: metricsHandler,
	}, nil
}

// Shutdown flushes and stops all telemetry components
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.Logger.Info("Shutting down OpenTelemetry")

	var errs []error
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		t.Logger.Error("Failed to shutdown tracer provider", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		t.Logger.Error("Failed to shutdown meter provider", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if t.conn != nil {
		if err := t.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	t.Logger.Info("OpenTelemetry shutdown successfully")
	return nil
}
