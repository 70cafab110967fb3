package changelog

import (
	"slices"

	"ledgerbridge/internal/core"
)

// AddTrigger subscribes id to class c. It reports false if id was already
// subscribed.
func (s *BudgetState) AddTrigger(c core.EntityClass, id string) bool {
	cs := s.Class(c)
	if cs.HasTrigger(id) {
		return false
	}
	cs.Triggers = append(cs.Triggers, id)
	return true
}

// RemoveTrigger unsubscribes id from every class and returns how many
// subscriptions were removed.
func (s *BudgetState) RemoveTrigger(id string) int {
	removed := 0
	for _, cs := range s.Classes {
		before := len(cs.Triggers)
		cs.Triggers = slices.DeleteFunc(cs.Triggers, func(t string) bool { return t == id })
		removed += before - len(cs.Triggers)
	}
	return removed
}

// Subscribers returns the de-duplicated union of the triggers of the given
// classes, in sync order.
func (s *BudgetState) Subscribers(classes []core.EntityClass) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, c := range core.SyncOrder {
		if !slices.Contains(classes, c) {
			continue
		}
		cs, ok := s.Classes[c]
		if !ok {
			continue
		}
		for _, id := range cs.Triggers {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// MergeSubscribers appends the ids of b missing from a, preserving order.
func MergeSubscribers(a, b []string) []string {
	for _, id := range b {
		if !slices.Contains(a, id) {
			a = append(a, id)
		}
	}
	return a
}
