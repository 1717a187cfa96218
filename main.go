package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/app/service"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/domain"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/config"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/http"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/http/handler"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/repository/memory"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/repository/postgres"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/repository/redisstore"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "catalog-api"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var telem *telemetry.Telemetry
	if cfg.OTLP.ExportEnabled {
		telem, err = telemetry.NewTelemetry(&cfg.OTLP, cfg.LogLevel)
	} else {
		telem, err = telemetry.NewNoOpTelemetry(&cfg.OTLP, cfg.LogLevel)
	}
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer := telem.TracerProvider.Tracer(instrumentationName)
	meter := telem.MeterProvider.Meter(instrumentationName)
	logger := telem.Logger

	logger.Info("Starting catalog API", slog.String("store", cfg.Store.Backend))

	repo, closeRepo, err := newRepository(ctx, &cfg.Store, tracer, logger)
	if err != nil {
		logger.Error("Failed to initialize product store", slog.String("error", err.Error()))
		return
	}
	defer closeRepo()

	productService := service.NewProductService(repo, tracer, meter, logger)
	productHandler := handler.NewProductHandler(productService, logger)
	server := http.NewServer(&cfg.Server, productHandler, logger, telem)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server gracefully", slog.String("error", err.Error()))
	}

	logger.Info("Server stopped")
}

// newRepository builds the configured product store. The memory store keeps
// the catalog only for the lifetime of the process.
func newRepository(
	ctx context.Context,
	cfg *config.StoreConfig,
	tracer trace.Tracer,
	logger *slog.Logger,
) (domain.ProductRepository, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("Using in-memory product store; the catalog is lost on restart")
		return memory.NewProductRepository(tracer, logger), func() {}, nil

	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		repo := postgres.NewProductRepository(db, tracer, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repo, func() { _ = db.Close() }, nil

	case config.BackendRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewProductRepository(client, tracer, logger), func() { _ = client.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
