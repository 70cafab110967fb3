package cli

import (
	"log/slog"
	"net/http"
	"time"

	"ledgerbridge/internal/backend"
	"ledgerbridge/internal/config"
	"ledgerbridge/internal/ledger"
	"ledgerbridge/internal/notify"
	"ledgerbridge/internal/services"
)

// secretsTTL bounds how long a credential change made by the admin tool
// takes to reach a running process.
const secretsTTL = 30 * time.Second

// NewSecrets returns a provider over the store's settings, seeded from the
// environment.
func NewSecrets(cfg *config.Config, store backend.Backend) *services.SecretsProvider {
	return services.NewSecretsProvider(store, cfg.Seed(), secretsTTL)
}

// NewLedgerClient returns a ledger API client using the configured timeout.
func NewLedgerClient(cfg *config.Config) *ledger.Client {
	return ledger.NewClient(cfg.LedgerBaseURL, &http.Client{Timeout: cfg.HTTPTimeout})
}

// NewSyncService wires the sync cycle to the ledger API, the store and the
// realtime notifier.
func NewSyncService(cfg *config.Config, api services.LedgerAPI, store backend.Backend, secrets *services.SecretsProvider, logger *slog.Logger) *services.SyncService {
	notifier := notify.NewRealtimeNotifier(cfg.NotifyURL, &http.Client{Timeout: cfg.HTTPTimeout})
	syncCfg := services.DefaultSyncServiceConfig()
	if cfg.SyncConcurrency > 0 {
		syncCfg.Concurrency = cfg.SyncConcurrency
	}
	return services.NewSyncService(api, store, notifier, secrets, syncCfg, logger)
}
