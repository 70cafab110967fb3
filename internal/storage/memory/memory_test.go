package memory

import (
	"context"
	"errors"
	"testing"

	"ledgerbridge/internal/changelog"
	"ledgerbridge/internal/core"
)

func TestMemoryStoreSaveLoadAndCAS(t *testing.T) {
	s := New()
	ctx := context.Background()

	st := changelog.NewBudgetState("b1")
	st.Config = &changelog.Config{ID: "b1", Knowledge: 1}
	if err := s.SaveBudget(ctx, st); err != nil {
		t.Fatalf("SaveBudget: %v", err)
	}

	a, err := s.LoadBudget(ctx, "b1")
	if err != nil {
		t.Fatalf("LoadBudget: %v", err)
	}
	b, _ := s.LoadBudget(ctx, "b1")

	a.Config.Knowledge = 2
	if err := s.SaveBudget(ctx, a); err != nil {
		t.Fatalf("SaveBudget a: %v", err)
	}
	if err := s.SaveBudget(ctx, b); !errors.Is(err, core.ErrStaleState) {
		t.Fatalf("expected ErrStaleState, got %v", err)
	}
	if err := s.SaveBudget(ctx, changelog.NewBudgetState("b1")); !errors.Is(err, core.ErrStaleState) {
		t.Fatalf("expected ErrStaleState for duplicate first write, got %v", err)
	}

	got, _ := s.LoadBudget(ctx, "b1")
	if got.Config.Knowledge != 2 {
		t.Fatalf("expected knowledge 2, got %d", got.Config.Knowledge)
	}
	got.Config.Knowledge = 99
	again, _ := s.LoadBudget(ctx, "b1")
	if again.Config.Knowledge != 2 {
		t.Fatalf("expected LoadBudget to return a copy")
	}
}

func TestMemoryStoreTriggersSurviveSave(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.RegisterTrigger(ctx, "b1", core.ClassAccounts, "t"); !errors.Is(err, core.ErrUnknownBudget) {
		t.Fatalf("expected ErrUnknownBudget, got %v", err)
	}

	st := changelog.NewBudgetState("b1")
	st.Config = &changelog.Config{ID: "b1"}
	if err := s.SaveBudget(ctx, st); err != nil {
		t.Fatalf("SaveBudget: %v", err)
	}

	loaded, _ := s.LoadBudget(ctx, "b1")
	if added, err := s.RegisterTrigger(ctx, "b1", core.ClassAccounts, "t"); err != nil || !added {
		t.Fatalf("expected trigger added, got %v %v", added, err)
	}

	// loaded predates the registration; saving it must keep the subscription.
	if err := s.SaveBudget(ctx, loaded); err != nil {
		t.Fatalf("SaveBudget: %v", err)
	}
	after, _ := s.LoadBudget(ctx, "b1")
	if !after.Class(core.ClassAccounts).HasTrigger("t") {
		t.Fatalf("expected trigger to survive a state save")
	}

	if n, _ := s.DeregisterTrigger(ctx, "t"); n != 1 {
		t.Fatalf("expected one removal, got %d", n)
	}
}

func TestMemoryStoreSettingsAndList(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.SetSetting(ctx, "k", "v"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if v, ok, _ := s.GetSetting(ctx, "k"); !ok || v != "v" {
		t.Fatalf("unexpected setting %q %v", v, ok)
	}
	if err := s.SaveBudgetList(ctx, []core.BudgetInfo{{ID: "b1"}}); err != nil {
		t.Fatalf("SaveBudgetList: %v", err)
	}
	list, _ := s.LoadBudgetList(ctx)
	if len(list) != 1 || list[0].ID != "b1" {
		t.Fatalf("unexpected list %v", list)
	}
}
