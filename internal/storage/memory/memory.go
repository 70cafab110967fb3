// Package memory is an in-process store for budget state, used in tests and
// for running without a database.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"ledgerbridge/internal/changelog"
	"ledgerbridge/internal/core"
)

type Store struct {
	mu       sync.Mutex
	budgets  map[string]*changelog.BudgetState
	list     []core.BudgetInfo
	settings map[string]string
}

func New() *Store {
	return &Store{
		budgets:  make(map[string]*changelog.BudgetState),
		settings: make(map[string]string),
	}
}

// LoadBudget returns a copy of the stored state.
func (s *Store) LoadBudget(_ context.Context, budgetID string) (*changelog.BudgetState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.budgets[budgetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownBudget, budgetID)
	}
	return st.Clone(), nil
}

// SaveBudget stores a copy of st if its version matches, keeping the
// triggers registered in the store.
func (s *Store) SaveBudget(_ context.Context, st *changelog.BudgetState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.budgets[st.BudgetID]
	switch {
	case st.Version == 0 && exists:
		return fmt.Errorf("%w: budget %s already exists", core.ErrStaleState, st.BudgetID)
	case st.Version != 0 && (!exists || current.Version != st.Version):
		return fmt.Errorf("%w: budget %s at version %d", core.ErrStaleState, st.BudgetID, st.Version)
	}

	next := st.Clone()
	for _, cs := range next.Classes {
		cs.Triggers = nil
	}
	if exists {
		for c, cs := range current.Classes {
			next.Class(c).Triggers = slices.Clone(cs.Triggers)
		}
	}
	st.Version++
	next.Version = st.Version
	s.budgets[st.BudgetID] = next
	return nil
}

func (s *Store) BudgetIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.budgets))
	for id := range s.budgets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) RegisterTrigger(_ context.Context, budgetID string, class core.EntityClass, triggerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.budgets[budgetID]
	if !ok {
		return false, fmt.Errorf("%w: %s", core.ErrUnknownBudget, budgetID)
	}
	return st.AddTrigger(class, triggerID), nil
}

func (s *Store) DeregisterTrigger(_ context.Context, triggerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, st := range s.budgets {
		removed += st.RemoveTrigger(triggerID)
	}
	return removed, nil
}

func (s *Store) LoadBudgetList(_ context.Context) ([]core.BudgetInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.BudgetInfo{}, s.list...), nil
}

func (s *Store) SaveBudgetList(_ context.Context, list []core.BudgetInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append([]core.BudgetInfo(nil), list...)
	return nil
}

func (s *Store) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *Store) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
