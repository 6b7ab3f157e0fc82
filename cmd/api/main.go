package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/signal-community/apply-service/internal/config"
	"github.com/signal-community/apply-service/internal/handlers"
	"github.com/signal-community/apply-service/internal/httpserver"
	"github.com/signal-community/apply-service/internal/logging"
	"github.com/signal-community/apply-service/internal/notify"
	"github.com/signal-community/apply-service/internal/ratelimit"
	"github.com/signal-community/apply-service/internal/store"
)

// main boots the service: config → logger → archive → notifier → limiter → HTTP server.
func main() {
	// Load runtime config from environment (.env autoloaded when present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	// Durable archive for submissions that miss email delivery. Optional:
	// without it, missed deliveries are logged only.
	var archive *store.PostgresArchive
	if cfg.ArchiveDBURL != "" {
		archive, err = store.NewPostgresArchive(cfg.ArchiveDBURL)
		if err != nil {
			logger.Fatal("archive database unreachable", zap.Error(err))
		}
		defer archive.Close()

		if err := archive.EnsureSchema(); err != nil {
			logger.Fatal("archive schema bootstrap failed", zap.Error(err))
		}
	} else {
		logger.Warn("ARCHIVE_DB_URL not set, missed deliveries will only be logged")
	}

	notifier := notify.NewClient("", cfg.EmailJSServiceID, cfg.EmailJSTemplateID, cfg.EmailJSPublicKey, cfg.ToEmail)
	notifier.Timeout = cfg.NotifyTimeout
	if !notifier.Configured() {
		logger.Warn("EmailJS credentials not set, running in log-only delivery mode")
	}

	limiter := ratelimit.New(cfg.RateLimitWindow, cfg.RateLimitMax, cfg.RateLimitMinInterval)
	limiter.StartJanitor(time.Minute)
	defer limiter.Stop()

	deps := handlers.ApplyDeps{
		Limiter:  limiter,
		Notifier: notifier,
		Log:      logger,
	}
	var pinger httpserver.Pinger
	if archive != nil {
		deps.Archive = archive
		pinger = archive
	}

	router := httpserver.NewRouter(deps, pinger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server started",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment),
			zap.Bool("notifier_configured", notifier.Configured()),
			zap.Bool("archive_enabled", archive != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown incomplete", zap.Error(err))
	}
}
