package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nshruti113/url-risk-dashboard/internal/config"
	"github.com/nshruti113/url-risk-dashboard/internal/logging"
	"github.com/nshruti113/url-risk-dashboard/internal/ml"
	"github.com/nshruti113/url-risk-dashboard/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	logger := logging.Init("urlrisk-server")
	logger.Info("Starting URL Risk Dashboard Server")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	provider := ml.NewFileProvider(cfg.Model.ClassifierPath, cfg.Model.VectorizerPath, logger)
	if cfg.Model.Preload {
		if _, err := provider.Model(); err != nil {
			logger.Warn("Classifier not loaded, serving conservative scores", "error", err)
		}
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	server, err := NewServer(cfg, store, provider, logger)
	if err != nil {
		return err
	}
	server.metrics.SetModelLoaded(provider.Status().Loaded)

	// Push live stats in background
	go server.startStatsBroadcaster(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.hub.Close()
	return httpServer.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Store, error) {
	if !cfg.Redis.Enabled {
		logger.Info("Redis disabled, keeping alerts in memory")
		return storage.NewMemoryStore(int(cfg.Redis.MaxAlerts)), nil
	}
	client, err := storage.NewRedisClient(ctx, storage.RedisOptions{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		Channel:   cfg.Redis.Channel,
		MaxAlerts: cfg.Redis.MaxAlerts,
		AlertTTL:  cfg.Redis.AlertTTL,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)
	return client, nil
}
