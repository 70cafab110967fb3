// Package changelog turns successive ledger snapshots into per-class change
// logs.
//
// A BudgetState holds, for every tracked class, the projection needed to
// classify the next delta, the retained change records and the subscribers
// to notify. Engine.Apply produces the next state from the previous one and a
// fetched snapshot without mutating its input.
package changelog

import (
	"maps"
	"slices"

	"ledgerbridge/internal/core"
)

type (
	// Summary is the projected view of one identity-tracked entity.
	Summary struct {
		Name        string `json:"name"`
		Group       string `json:"group,omitempty"`
		Fingerprint string `json:"fingerprint,omitempty"`
	}

	// ClassState is the persisted sub-document of one entity class.
	ClassState struct {
		Changed    []core.ChangeRecord `json:"changed"`
		Triggers   []string            `json:"triggers,omitempty"`
		Projection map[string]Summary  `json:"data,omitempty"`
		Groups     map[string]string   `json:"groups,omitempty"`
		Tracked    []string            `json:"tracked,omitempty"`
	}

	// Config identifies the budget and the cursor of the last persisted sync.
	Config struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Knowledge int64  `json:"knowledge"`
	}

	// BudgetState is everything persisted for one budget.
	BudgetState struct {
		BudgetID string
		// Config is nil until the first sync completes.
		Config  *Config
		Classes map[core.EntityClass]*ClassState
		// Version guards compare-and-swap writes. Zero means never persisted.
		Version int64
	}
)

// NewBudgetState returns the state of a budget that has never been synced.
func NewBudgetState(budgetID string) *BudgetState {
	return &BudgetState{
		BudgetID: budgetID,
		Classes:  make(map[core.EntityClass]*ClassState, len(core.SyncOrder)),
	}
}

// IsFirstSync reports whether no cursor has been persisted yet.
func (s *BudgetState) IsFirstSync() bool {
	return s.Config == nil
}

// Knowledge returns the persisted cursor, or nil before the first sync.
func (s *BudgetState) Knowledge() *int64 {
	if s.Config == nil {
		return nil
	}
	k := s.Config.Knowledge
	return &k
}

// Class returns the sub-document for c, creating an empty one if needed.
func (s *BudgetState) Class(c core.EntityClass) *ClassState {
	if s.Classes == nil {
		s.Classes = make(map[core.EntityClass]*ClassState, len(core.SyncOrder))
	}
	cs, ok := s.Classes[c]
	if !ok {
		cs = &ClassState{}
		s.Classes[c] = cs
	}
	return cs
}

// HasTrigger reports whether id is subscribed to this class.
func (cs *ClassState) HasTrigger(id string) bool {
	return slices.Contains(cs.Triggers, id)
}

// Clone returns a deep copy of s. Change records are treated as immutable and
// shared.
func (s *BudgetState) Clone() *BudgetState {
	out := &BudgetState{
		BudgetID: s.BudgetID,
		Classes:  make(map[core.EntityClass]*ClassState, len(s.Classes)),
		Version:  s.Version,
	}
	if s.Config != nil {
		cfg := *s.Config
		out.Config = &cfg
	}
	for c, cs := range s.Classes {
		if cs == nil {
			continue
		}
		out.Classes[c] = &ClassState{
			Changed:    slices.Clone(cs.Changed),
			Triggers:   slices.Clone(cs.Triggers),
			Projection: maps.Clone(cs.Projection),
			Groups:     maps.Clone(cs.Groups),
			Tracked:    slices.Clone(cs.Tracked),
		}
	}
	return out
}
