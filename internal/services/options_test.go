package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ledgerbridge/internal/core"
	"ledgerbridge/internal/ledger"
	"ledgerbridge/internal/storage/memory"
)

func TestOptions_Accounts(t *testing.T) {
	l := newFakeLedger()
	l.accounts = []ledger.Account{
		{ID: "a3", Name: "Wallet", OnBudget: true},
		{ID: "a1", Name: "Checking", OnBudget: true},
		{ID: "a2", Name: "Mortgage"},
		{ID: "a4", Name: "Old", Closed: true, OnBudget: true},
		{ID: "a5", Name: "Gone", Deleted: true},
	}
	secrets := NewSecretsProvider(memory.New(), core.Secrets{AccessToken: "t", DefaultBudget: budgetA}, time.Minute)
	s := NewOptionsService(l, secrets, time.Minute, nil)

	opts, err := s.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if len(opts) != 3 || opts[0].Label != "Budget" || opts[1].Label != "Tracking" || opts[2].Label != "Closed" {
		t.Fatalf("unexpected groups %+v", opts)
	}
	if got := opts[0].Values; len(got) != 2 || got[0].Label != "- Checking" || got[1].Value != "a3" {
		t.Fatalf("unexpected budget accounts %+v", got)
	}
	if len(opts[1].Values) != 1 || len(opts[2].Values) != 1 {
		t.Fatalf("unexpected tracking/closed %+v", opts)
	}
}

func TestOptions_CategoriesPinsInternalGroup(t *testing.T) {
	l := newFakeLedger()
	l.groups = []ledger.CategoryGroup{
		{ID: "g1", Name: "Bills", Categories: []ledger.Category{{ID: "c1", Name: "Rent"}}},
		{ID: "g0", Name: internalMasterCategory, Categories: []ledger.Category{{ID: "c0", Name: "Inflow"}}},
	}
	secrets := NewSecretsProvider(memory.New(), core.Secrets{AccessToken: "t", DefaultBudget: budgetA}, time.Minute)
	s := NewOptionsService(l, secrets, time.Minute, nil)

	for _, tc := range []struct {
		trigger bool
		first   string
	}{{false, "(automatic)"}, {true, "(all categories)"}} {
		opts, err := s.Categories(context.Background(), tc.trigger)
		if err != nil {
			t.Fatalf("Categories: %v", err)
		}
		if len(opts) != 3 || opts[0].Label != tc.first || opts[1].Label != internalMasterCategory || opts[2].Label != "Bills" {
			t.Fatalf("unexpected category options %+v", opts)
		}
		if opts[2].Values[0].Alias1 != "Bills|Rent" {
			t.Fatalf("unexpected alias %q", opts[2].Values[0].Alias1)
		}
	}
}

func TestOptions_BudgetsCached(t *testing.T) {
	l := newFakeLedger()
	l.budgets = []ledger.BudgetSummary{{ID: budgetA, Name: "Home"}}
	secrets := NewSecretsProvider(memory.New(), core.Secrets{AccessToken: "t"}, time.Minute)
	s := NewOptionsService(l, secrets, time.Minute, nil)

	for range 3 {
		opts, err := s.Budgets(context.Background())
		if err != nil {
			t.Fatalf("Budgets: %v", err)
		}
		if len(opts) != 1 || opts[0].Value != budgetA {
			t.Fatalf("unexpected budgets %+v", opts)
		}
	}
	if l.listCalls != 1 {
		t.Fatalf("expected one ledger call, got %d", l.listCalls)
	}
}

func TestOptions_NoDefaultBudget(t *testing.T) {
	secrets := NewSecretsProvider(memory.New(), core.Secrets{AccessToken: "t"}, time.Minute)
	s := NewOptionsService(newFakeLedger(), secrets, time.Minute, nil)
	if _, err := s.Accounts(context.Background()); !errors.Is(err, core.ErrNoDefaultBudget) {
		t.Fatalf("expected ErrNoDefaultBudget, got %v", err)
	}
}

func TestOption_MarshalJSON(t *testing.T) {
	data, err := json.Marshal([]Option{
		{Label: "(automatic)"},
		{Label: "Bills", Values: []Option{{Label: "- Rent", Value: "c1", Alias2: "Rent"}}},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `[{"label":"(automatic)","value":""},{"label":"Bills","values":[{"label":"- Rent","value":"c1","alias2":"Rent"}]}]`
	if string(data) != want {
		t.Fatalf("got %s\nwant %s", data, want)
	}
}
