package changelog

import (
	"reflect"
	"testing"

	"ledgerbridge/internal/core"
)

func TestAddTrigger_Idempotent(t *testing.T) {
	st := NewBudgetState("b1")
	if !st.AddTrigger(core.ClassAccounts, "t1") {
		t.Fatalf("expected first add to report true")
	}
	if st.AddTrigger(core.ClassAccounts, "t1") {
		t.Fatalf("expected duplicate add to report false")
	}
	if got := st.Class(core.ClassAccounts).Triggers; !reflect.DeepEqual(got, []string{"t1"}) {
		t.Fatalf("unexpected triggers %v", got)
	}
}

func TestRemoveTrigger_AllClasses(t *testing.T) {
	st := NewBudgetState("b1")
	st.AddTrigger(core.ClassAccounts, "t1")
	st.AddTrigger(core.ClassPayees, "t1")
	st.AddTrigger(core.ClassPayees, "t2")

	if n := st.RemoveTrigger("t1"); n != 2 {
		t.Fatalf("expected 2 removals, got %d", n)
	}
	if st.Class(core.ClassAccounts).HasTrigger("t1") || st.Class(core.ClassPayees).HasTrigger("t1") {
		t.Fatalf("expected t1 removed everywhere")
	}
	if !st.Class(core.ClassPayees).HasTrigger("t2") {
		t.Fatalf("expected t2 kept")
	}
	if n := st.RemoveTrigger("missing"); n != 0 {
		t.Fatalf("expected no removals, got %d", n)
	}
}

func TestSubscribers_UnionInSyncOrder(t *testing.T) {
	st := NewBudgetState("b1")
	st.AddTrigger(core.ClassTransactions, "tx")
	st.AddTrigger(core.ClassAccounts, "acc")
	st.AddTrigger(core.ClassTransactions, "acc")
	st.AddTrigger(core.ClassMonths, "month")

	got := st.Subscribers([]core.EntityClass{core.ClassTransactions, core.ClassAccounts})
	if want := []string{"acc", "tx"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMergeSubscribers(t *testing.T) {
	got := MergeSubscribers([]string{"a", "b"}, []string{"b", "c"})
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestClone_IsDeep(t *testing.T) {
	st := NewBudgetState("b1")
	st.Config = &Config{ID: "b1", Knowledge: 3}
	st.AddTrigger(core.ClassAccounts, "t1")
	st.Class(core.ClassAccounts).Projection = map[string]Summary{"a": {Name: "A"}}

	cp := st.Clone()
	cp.AddTrigger(core.ClassAccounts, "t2")
	cp.Class(core.ClassAccounts).Projection["b"] = Summary{Name: "B"}
	cp.Config.Knowledge = 4

	if st.Class(core.ClassAccounts).HasTrigger("t2") {
		t.Fatalf("clone shares triggers with the original")
	}
	if _, ok := st.Class(core.ClassAccounts).Projection["b"]; ok {
		t.Fatalf("clone shares projection with the original")
	}
	if st.Config.Knowledge != 3 {
		t.Fatalf("clone shares config with the original")
	}
}
