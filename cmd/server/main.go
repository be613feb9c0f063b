package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/dataprep/internal/archive"
	"github.com/JonMunkholm/dataprep/internal/config"
	"github.com/JonMunkholm/dataprep/internal/core"
	"github.com/JonMunkholm/dataprep/internal/logging"
	"github.com/JonMunkholm/dataprep/internal/metrics"
	"github.com/JonMunkholm/dataprep/internal/store"
	"github.com/JonMunkholm/dataprep/internal/web"
)

func main() {
	// Load and validate configuration (.env is read by config.Load)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	opts := core.ServiceOptions{
		SessionTTL:    cfg.Session.TTL,
		MaxFileSize:   cfg.Upload.MaxFileSize,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
	}
	var serverOpts []web.Option

	// Optional operation history in PostgreSQL
	if cfg.Database.Enabled() {
		pool, err := store.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		history := store.NewHistoryStore(pool)
		if err := history.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create history schema", "error", err)
			os.Exit(1)
		}
		opts.Recorder = history
		serverOpts = append(serverOpts, web.WithHealthCheck("database", pool.Ping))
		slog.Info("operation history enabled")
	}

	// Optional export archive in S3-compatible storage
	if cfg.Archive.Enabled() {
		archiver, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			slog.Error("failed to connect to archive storage", "error", err)
			os.Exit(1)
		}
		opts.Archiver = archiver
		slog.Info("export archive enabled", "endpoint", cfg.Archive.Endpoint, "bucket", cfg.Archive.Bucket)
	}

	m := metrics.New()
	opts.Observer = m

	service := core.NewService(opts)
	service.Start()
	defer service.Stop()

	m.RegisterLimiter(service.LimiterStatus)
	m.RegisterSessions(service.Sessions().Len)
	serverOpts = append(serverOpts, web.WithMetrics(m))

	server := web.NewServer(service, cfg, serverOpts...)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight uploads finish parsing
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.WaitForIngests(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
