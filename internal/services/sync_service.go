package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerbridge/internal/changelog"
	"ledgerbridge/internal/core"
)

// CycleState is the orchestrator's per-budget state machine.
type CycleState string

const (
	StateIdle       CycleState = "idle"
	StateFetching   CycleState = "fetching"
	StateDiffing    CycleState = "diffing"
	StatePersisting CycleState = "persisting"
	StateNotifying  CycleState = "notifying"
)

// SyncServiceConfig holds configuration for the sync service
type SyncServiceConfig struct {
	// Concurrency bounds how many budgets are synced in parallel (default: 4)
	Concurrency int
}

func DefaultSyncServiceConfig() SyncServiceConfig {
	return SyncServiceConfig{Concurrency: 4}
}

type (
	// BudgetReport describes one budget's pass through a cycle.
	BudgetReport struct {
		BudgetID    string
		Name        string
		FirstSync   bool
		Knowledge   int64
		Emitted     map[core.EntityClass]int
		Subscribers []string
		// State is where the budget stopped; StateIdle on success.
		State CycleState
		Err   error
	}

	// CycleReport summarises one sync cycle.
	CycleReport struct {
		StartedAt  time.Time
		FinishedAt time.Time
		Budgets    []BudgetReport
		Notified   []string
		NotifyErr  error
	}
)

// Failed returns the number of budgets whose cycle aborted.
func (r *CycleReport) Failed() int {
	n := 0
	for _, b := range r.Budgets {
		if b.Err != nil {
			n++
		}
	}
	return n
}

// SyncService runs sync cycles: it fetches budget deltas, diffs them into
// change logs, persists each budget and notifies subscribers.
type SyncService struct {
	ledger   LedgerAPI
	store    StateStore
	notifier Notifier
	secrets  *SecretsProvider
	engine   *changelog.Engine
	config   SyncServiceConfig
	logger   *slog.Logger
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewSyncService(
	ledgerAPI LedgerAPI,
	store StateStore,
	notifier Notifier,
	secrets *SecretsProvider,
	config SyncServiceConfig,
	logger *slog.Logger,
) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &SyncService{
		ledger:   ledgerAPI,
		store:    store,
		notifier: notifier,
		secrets:  secrets,
		engine:   changelog.NewEngine(logger.With("component", "changelog")),
		config:   config,
		logger:   logger.With("component", "sync"),
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// RunCycle syncs every budget that is new or modified since the last cycle
// and sends one notification for all affected subscribers.
func (s *SyncService) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{StartedAt: s.now()}
	defer func() { report.FinishedAt = s.now() }()

	secrets, err := s.secrets.Load(ctx)
	if err != nil {
		return report, err
	}
	if secrets.AccessToken == "" {
		s.logger.WarnContext(ctx, "Skipping sync cycle", "error", core.ErrNoAccessToken)
		return report, nil
	}

	budgets, err := s.ledger.ListBudgets(ctx, secrets.AccessToken)
	if err != nil {
		return report, fmt.Errorf("list budgets: %w", err)
	}
	fresh := make([]core.BudgetInfo, 0, len(budgets))
	for _, b := range budgets {
		fresh = append(fresh, core.BudgetInfo{ID: b.ID, Name: b.Name, LastModifiedOn: b.LastModifiedOn})
	}

	known, err := s.store.LoadBudgetList(ctx)
	if err != nil {
		return report, err
	}
	toProcess := ChangedBudgets(known, fresh)
	if len(toProcess) == 0 {
		s.logger.DebugContext(ctx, "No budgets changed")
		return report, nil
	}
	s.logger.InfoContext(ctx, "Sync cycle started", "budgets", len(toProcess))

	reports := make([]BudgetReport, len(toProcess))
	g := new(errgroup.Group)
	g.SetLimit(s.config.Concurrency)
	for i, b := range toProcess {
		g.Go(func() error {
			reports[i] = s.SyncBudget(ctx, secrets.AccessToken, b)
			return nil
		})
	}
	_ = g.Wait()
	report.Budgets = reports

	failed := make(map[string]bool)
	for _, r := range reports {
		if r.Err != nil {
			failed[r.BudgetID] = true
			continue
		}
		report.Notified = changelog.MergeSubscribers(report.Notified, r.Subscribers)
	}

	if err := s.store.SaveBudgetList(ctx, mergeBudgetList(known, fresh, failed)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save budget list", "error", err)
	}

	if len(report.Notified) > 0 && s.notifier != nil {
		s.logger.InfoContext(ctx, "Notifying triggers", "count", len(report.Notified))
		if err := s.notifier.Notify(ctx, secrets.ServiceKey, report.Notified); err != nil {
			report.NotifyErr = err
			s.logger.ErrorContext(ctx, "Trigger notification failed", "error", err)
		}
	}

	s.logger.InfoContext(ctx, "Sync cycle finished",
		"budgets", len(reports),
		"failed", report.Failed(),
		"notified", len(report.Notified))
	return report, nil
}

// SyncBudget runs one budget through fetch, diff and persist. Errors abort
// the budget's cycle without persisting anything and are returned in the
// report.
func (s *SyncService) SyncBudget(ctx context.Context, token string, budget core.BudgetInfo) BudgetReport {
	report := BudgetReport{BudgetID: budget.ID, Name: budget.Name, State: StateFetching}
	logger := s.logger.With("budget_id", budget.ID)

	unlock := s.lock(budget.ID)
	defer unlock()

	fail := func(err error) BudgetReport {
		report.Err = err
		logger.ErrorContext(ctx, "Budget sync aborted", "state", report.State, "error", err)
		return report
	}

	prev, err := s.store.LoadBudget(ctx, budget.ID)
	if errors.Is(err, core.ErrUnknownBudget) {
		prev = changelog.NewBudgetState(budget.ID)
	} else if err != nil {
		return fail(err)
	}
	report.FirstSync = prev.IsFirstSync()

	snap, err := s.ledger.GetBudget(ctx, token, budget.ID, prev.Knowledge())
	if err != nil {
		return fail(err)
	}

	report.State = StateDiffing
	out, err := s.engine.Apply(prev, snap, s.now())
	if err != nil {
		return fail(err)
	}

	report.State = StatePersisting
	if err := s.store.SaveBudget(ctx, out.State); err != nil {
		return fail(err)
	}

	report.State = StateNotifying
	report.Knowledge = snap.ServerKnowledge
	report.Emitted = out.Emitted
	report.Subscribers = out.Subscribers
	if report.Name == "" {
		report.Name = snap.Budget.Name
	}

	logger.InfoContext(ctx, "Budget synced",
		"first_sync", report.FirstSync,
		"knowledge", snap.ServerKnowledge,
		"changes", out.Emitted,
		"subscribers", len(out.Subscribers))

	report.State = StateIdle
	return report
}

func (s *SyncService) lock(budgetID string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[budgetID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[budgetID] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// ChangedBudgets returns the budgets of fresh that are absent from known or
// whose last_modified_on differs.
func ChangedBudgets(known, fresh []core.BudgetInfo) []core.BudgetInfo {
	seen := make(map[string]string, len(known))
	for _, b := range known {
		seen[b.ID] = b.LastModifiedOn
	}
	var out []core.BudgetInfo
	for _, b := range fresh {
		if last, ok := seen[b.ID]; !ok || last != b.LastModifiedOn {
			out = append(out, b)
		}
	}
	return out
}

// mergeBudgetList returns fresh, except that failed budgets keep their
// previous entry (or are left out) so the next cycle retries them.
func mergeBudgetList(known, fresh []core.BudgetInfo, failed map[string]bool) []core.BudgetInfo {
	if len(failed) == 0 {
		return fresh
	}
	prev := make(map[string]core.BudgetInfo, len(known))
	for _, b := range known {
		prev[b.ID] = b
	}
	out := make([]core.BudgetInfo, 0, len(fresh))
	for _, b := range fresh {
		if failed[b.ID] {
			if old, ok := prev[b.ID]; ok {
				out = append(out, old)
			}
			continue
		}
		out = append(out, b)
	}
	return out
}
