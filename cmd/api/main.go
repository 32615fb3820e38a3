package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/settleline/reconcile-backend/internal/api"
	"github.com/settleline/reconcile-backend/internal/application/service"
	"github.com/settleline/reconcile-backend/internal/infrastructure/config"
	"github.com/settleline/reconcile-backend/internal/infrastructure/logging"
	"github.com/settleline/reconcile-backend/internal/infrastructure/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Local .env files are optional; real environments set vars directly.
	_ = godotenv.Load()

	cfg := config.LoadOrEnvWithPath(*configPath)
	if *port != 0 {
		cfg.Server.Port = *port
	}

	loggingCfg := cfg.Logging
	if *verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	ctx := context.Background()

	store, err := storage.Open(ctx, cfg.Storage.Driver, storageDSN(cfg))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	matchService := service.NewMatchService(store, cfg.Matching, logger)

	apiCfg := api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StorageDriver:  cfg.Storage.Driver,
	}
	server := api.NewServer(apiCfg, store, matchService, logger)

	// Handle graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}

// storageDSN picks the connection string for the configured driver.
func storageDSN(cfg *config.Config) string {
	if cfg.Storage.Driver == "postgres" {
		return cfg.Storage.DatabaseURI
	}
	return cfg.Storage.DatabasePath
}
