package services

import (
	"context"
	"fmt"
	"sync"

	"ledgerbridge/internal/ledger"
)

// fakeLedger serves canned budgets. Each GetBudget call for a budget pops
// the next queued snapshot.
type fakeLedger struct {
	mu        sync.Mutex
	budgets   []ledger.BudgetSummary
	snapshots map[string][]*ledger.Snapshot
	fail      map[string]error
	accounts  []ledger.Account
	groups    []ledger.CategoryGroup

	knowledgeSeen map[string][]*int64
	created       []ledger.SaveTransaction
	listCalls     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		snapshots:     make(map[string][]*ledger.Snapshot),
		fail:          make(map[string]error),
		knowledgeSeen: make(map[string][]*int64),
	}
}

func (f *fakeLedger) queue(budgetID string, snaps ...*ledger.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[budgetID] = append(f.snapshots[budgetID], snaps...)
}

func (f *fakeLedger) ListBudgets(_ context.Context, _ string) ([]ledger.BudgetSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]ledger.BudgetSummary(nil), f.budgets...), nil
}

func (f *fakeLedger) GetBudget(_ context.Context, _, budgetID string, knowledge *int64) (*ledger.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.knowledgeSeen[budgetID] = append(f.knowledgeSeen[budgetID], knowledge)
	if err := f.fail[budgetID]; err != nil {
		return nil, err
	}
	q := f.snapshots[budgetID]
	if len(q) == 0 {
		return nil, fmt.Errorf("no snapshot for %s", budgetID)
	}
	f.snapshots[budgetID] = q[1:]
	return q[0], nil
}

func (f *fakeLedger) ListAccounts(_ context.Context, _, _ string) ([]ledger.Account, error) {
	return f.accounts, nil
}

func (f *fakeLedger) ListCategoryGroups(_ context.Context, _, _ string) ([]ledger.CategoryGroup, error) {
	return f.groups, nil
}

func (f *fakeLedger) CreateTransaction(_ context.Context, _, _ string, tx ledger.SaveTransaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, tx)
	return fmt.Sprintf("tx-%d", len(f.created)), nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls [][]string
	key   string
	err   error
}

func (n *fakeNotifier) Notify(_ context.Context, serviceKey string, ids []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.key = serviceKey
	n.calls = append(n.calls, append([]string(nil), ids...))
	return n.err
}
