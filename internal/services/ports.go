package services

import (
	"context"

	"ledgerbridge/internal/changelog"
	"ledgerbridge/internal/core"
	"ledgerbridge/internal/ledger"
)

// Ports for outbound adapters.
type (
	// LedgerAPI is the subset of the ledger REST API the services use.
	LedgerAPI interface {
		ListBudgets(ctx context.Context, token string) ([]ledger.BudgetSummary, error)
		GetBudget(ctx context.Context, token, budgetID string, knowledge *int64) (*ledger.Snapshot, error)
		ListAccounts(ctx context.Context, token, budgetID string) ([]ledger.Account, error)
		ListCategoryGroups(ctx context.Context, token, budgetID string) ([]ledger.CategoryGroup, error)
		CreateTransaction(ctx context.Context, token, budgetID string, tx ledger.SaveTransaction) (string, error)
	}

	// StateStore persists budget states, subscriptions and the budget list.
	StateStore interface {
		// LoadBudget returns core.ErrUnknownBudget for a budget never saved.
		LoadBudget(ctx context.Context, budgetID string) (*changelog.BudgetState, error)
		// SaveBudget is a compare-and-swap on the state's version and returns
		// core.ErrStaleState when it loses.
		SaveBudget(ctx context.Context, st *changelog.BudgetState) error
		BudgetIDs(ctx context.Context) ([]string, error)
		RegisterTrigger(ctx context.Context, budgetID string, class core.EntityClass, triggerID string) (bool, error)
		DeregisterTrigger(ctx context.Context, triggerID string) (int, error)
		LoadBudgetList(ctx context.Context) ([]core.BudgetInfo, error)
		SaveBudgetList(ctx context.Context, list []core.BudgetInfo) error
	}

	// SettingsStore holds credentials and other key/value settings.
	SettingsStore interface {
		GetSetting(ctx context.Context, key string) (string, bool, error)
		SetSetting(ctx context.Context, key, value string) error
	}

	// Notifier tells the automation platform which triggers have new data.
	Notifier interface {
		Notify(ctx context.Context, serviceKey string, triggerIDs []string) error
	}
)
