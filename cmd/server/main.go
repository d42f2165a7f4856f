package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dragonpay/backend/internal/archive"
	"github.com/dragonpay/backend/internal/config"
	"github.com/dragonpay/backend/internal/directory"
	"github.com/dragonpay/backend/internal/engine"
	"github.com/dragonpay/backend/internal/logging"
	"github.com/dragonpay/backend/internal/methods"
	"github.com/dragonpay/backend/internal/server"
	"github.com/dragonpay/backend/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	archiveClient, err := buildArchiveClient(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to create archive client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := archiveClient.Close(context.Background()); err != nil {
			logger.Warn("closing archive client failed", "error", err)
		}
	}()

	dir := directory.New()
	registry := methods.Default()
	eng := engine.New(dir, registry)

	publisher := service.NewPublisher(archive.NewArchiver(archiveClient), logger, cfg.Archive.BufferSize)
	defer publisher.Close()

	payoutService := service.New(dir, registry, eng, publisher)
	apiHandlers := server.NewAPIHandlers(logger, payoutService)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health: server.ArchiveHealthService{Client: archiveClient},
		API:    apiHandlers,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// buildArchiveClient connects to the configured Neo4j archive, or
// falls back to the in-memory client when no archive URI is set.
func buildArchiveClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (archive.Client, error) {
	if cfg.Archive.URI == "" {
		logger.Info("no archive configured, using in-memory client")
		return archive.NewMemoryClient(), nil
	}

	opts := archive.Options{
		URI:            cfg.Archive.URI,
		Database:       cfg.Archive.Database,
		Username:       cfg.Archive.Username,
		Password:       cfg.Archive.Password,
		MaxConnections: cfg.Archive.MaxConnections,
	}
	client, err := archive.NewNeo4jClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to archive", "uri", cfg.Archive.URI, "database", cfg.Archive.Database)
	return client, nil
}
