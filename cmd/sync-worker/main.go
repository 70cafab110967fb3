package main

import (
	"context"
	"errors"
	"time"

	"ledgerbridge/internal/cli"
	applog "ledgerbridge/internal/log"
	"ledgerbridge/internal/services"
	"ledgerbridge/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("")
	workerLogger := logger.WithComponent(applog.ComponentWorker)
	workerLogger.Info("Starting sync-worker")

	cfg := cli.LoadAndValidateConfig(workerLogger.Slog())
	result := cli.InitBackend(context.Background(), workerLogger.Slog(), cfg)
	store := result.Backend

	secrets := cli.NewSecrets(cfg, store)
	syncService := cli.NewSyncService(cfg, cli.NewLedgerClient(cfg), store, secrets, logger.Slog())
	processor := services.NewSyncProcessor(syncService, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		RunOnStart:   true,
	})

	var events worker.EventPublisher
	if result.Broker != nil {
		events = result.Broker
	} else {
		workerLogger.Info("AMQP disabled - running scheduled cycles only")
	}
	syncWorker := worker.NewSyncWorker(processor, events)

	ctx, done := cli.GracefulShutdown(workerLogger.Slog(), 2*time.Minute, func(shutdownCtx context.Context) {
		if err := processor.Stop(shutdownCtx); err != nil {
			workerLogger.Error("Sync processor stop error", "error", err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				workerLogger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	if err := processor.Start(ctx); err != nil {
		workerLogger.Error("Failed to start sync processor", "error", err)
		return
	}

	if result.Broker != nil {
		go func() {
			err := result.Broker.ConsumeSyncRequests(ctx, syncWorker.HandleSyncRequest)
			if err != nil && !errors.Is(err, context.Canceled) {
				// Scheduled cycles keep running without the consumer.
				workerLogger.Error("Sync request consumption stopped", "error", err)
			}
		}()
	}

	workerLogger.Info("Sync worker running",
		"interval", cfg.SyncInterval,
		"concurrency", cfg.SyncConcurrency,
		"broker", result.Broker != nil)

	cli.WaitForShutdown(ctx, done)
	workerLogger.Info("Sync worker stopped")
}
