package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catgraph/infrastructure/config"
	"catgraph/infrastructure/di"
	"catgraph/interfaces/http/rest"
	"catgraph/pkg/observability"

	"go.uber.org/zap"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Dynamic.Stop()

	if cfg.EnableTracing {
		tracing, err := observability.InitTracing("catgraph-api", cfg.Environment, cfg.TracingEndpoint)
		if err != nil {
			container.Logger.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := tracing.Shutdown(shutdownCtx); err != nil {
				container.Logger.Error("Tracer shutdown error", zap.Error(err))
			}
		}()
	}

	// Start the outbox relay
	container.Outbox.Start(ctx)
	defer container.Outbox.Stop()

	// Create router
	routerCfg := rest.Config{
		Version:        version,
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: nil,
	}
	deps := rest.Deps{
		CommandBus: container.CommandBus,
		QueryBus:   container.QueryBus,
		BulkLink:   container.BulkLink,
		Pruner:     container.Pruner,
		Outbox:     container.Outbox,
		Limiter:    container.RateLimiter,
		Logger:     container.Logger,
	}
	if cfg.EnableMetrics {
		deps.Collector = container.Collector
	}
	router := rest.NewRouter(routerCfg, deps)

	// Setup routes
	handler := router.Setup()

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("version", version),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}

	// Clean up resources
	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
