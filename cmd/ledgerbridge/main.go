package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledgerbridge/internal/cache"
	"ledgerbridge/internal/cli"
	apphttp "ledgerbridge/internal/http"
	applog "ledgerbridge/internal/log"
	"ledgerbridge/internal/services"
)

func main() {
	cli.LoadEnvFile()

	// Services tag their own component.
	logger := cli.SetupLogger("")
	appLogger := logger.WithComponent(applog.ComponentApp)

	cfg := cli.LoadAndValidateConfig(appLogger.Slog())
	result := cli.InitBackend(context.Background(), appLogger.Slog(), cfg)
	store := result.Backend

	api := cli.NewLedgerClient(cfg)
	secrets := cli.NewSecrets(cfg, store)
	options := services.NewOptionsService(api, secrets, time.Minute, logger.Slog())

	// /cron/ynab runs cycles here unless a worker is listening on the broker.
	syncService := cli.NewSyncService(cfg, api, store, secrets, logger.Slog())
	processor := services.NewSyncProcessor(syncService, services.SyncProcessorConfig{PollInterval: cfg.SyncInterval})

	deps := apphttp.Dependencies{
		Secrets:            secrets,
		Triggers:           services.NewTriggerService(store, logger.Slog()),
		Options:            options,
		Actions:            services.NewActionService(api, secrets, logger.Slog()),
		Store:              store,
		Sync:               processor,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}
	// A nil *amqp.Client must not become a non-nil interface.
	if result.Broker != nil {
		deps.Broker = result.Broker
	}

	caches := cache.NewManager()
	caches.Register(options.Cache())
	caches.StartCleanup(5 * time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, deps)
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(appLogger.Slog(), 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				appLogger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	appLogger.Info("Starting ledgerbridge server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"broker", result.Broker != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLogger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	appLogger.Info("Server stopped gracefully")
}
