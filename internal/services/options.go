package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"ledgerbridge/internal/cache"
	"ledgerbridge/internal/core"
)

// internalMasterCategory is the ledger's built-in group, listed first.
const internalMasterCategory = "Internal Master Category"

// Option is one dropdown entry. An option with Values is a group and has no
// value of its own.
type Option struct {
	Label  string
	Value  string
	Alias  string
	Alias1 string
	Alias2 string
	Values []Option
}

func (o Option) MarshalJSON() ([]byte, error) {
	if o.Values != nil {
		return json.Marshal(struct {
			Label  string   `json:"label"`
			Values []Option `json:"values"`
		}{o.Label, o.Values})
	}
	return json.Marshal(struct {
		Label  string `json:"label"`
		Value  string `json:"value"`
		Alias  string `json:"alias,omitempty"`
		Alias1 string `json:"alias1,omitempty"`
		Alias2 string `json:"alias2,omitempty"`
	}{o.Label, o.Value, o.Alias, o.Alias1, o.Alias2})
}

// OptionsService builds the dropdown values of trigger and action fields.
// Results are cached briefly; concurrent requests share one ledger call.
type OptionsService struct {
	ledger  LedgerAPI
	secrets *SecretsProvider
	cache   *cache.LRUCache[[]Option]
	logger  *slog.Logger
}

func NewOptionsService(ledgerAPI LedgerAPI, secrets *SecretsProvider, ttl time.Duration, logger *slog.Logger) *OptionsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OptionsService{
		ledger:  ledgerAPI,
		secrets: secrets,
		cache:   cache.NewLRUCache[[]Option](64, ttl),
		logger:  logger.With("component", "options"),
	}
}

// Cache exposes the option cache for periodic cleanup.
func (s *OptionsService) Cache() *cache.LRUCache[[]Option] {
	return s.cache
}

// Budgets lists the budgets, most recently modified first.
func (s *OptionsService) Budgets(ctx context.Context) ([]Option, error) {
	secrets, err := s.secrets.Load(ctx)
	if err != nil {
		return nil, err
	}
	if secrets.AccessToken == "" {
		return []Option{}, nil
	}
	return s.cache.GetOrLoad(ctx, "budgets", func(ctx context.Context) ([]Option, error) {
		budgets, err := s.ledger.ListBudgets(ctx, secrets.AccessToken)
		if err != nil {
			return nil, err
		}
		out := make([]Option, 0, len(budgets))
		for _, b := range budgets {
			out = append(out, Option{Label: b.Name, Value: b.ID})
		}
		s.logger.DebugContext(ctx, "Budget options loaded", "count", len(out))
		return out, nil
	})
}

// Accounts lists the default budget's accounts grouped as Budget, Tracking
// and Closed.
func (s *OptionsService) Accounts(ctx context.Context) ([]Option, error) {
	secrets, budgetID, err := s.defaultBudget(ctx)
	if err != nil {
		return nil, err
	}
	return s.cache.GetOrLoad(ctx, "accounts:"+budgetID, func(ctx context.Context) ([]Option, error) {
		accounts, err := s.ledger.ListAccounts(ctx, secrets.AccessToken, budgetID)
		if err != nil {
			return nil, err
		}
		onBudget, tracking, closed := []Option{}, []Option{}, []Option{}
		for _, a := range accounts {
			if a.Deleted {
				continue
			}
			opt := Option{Label: "- " + a.Name, Value: a.ID, Alias: a.Name}
			switch {
			case a.Closed:
				closed = append(closed, opt)
			case a.OnBudget:
				onBudget = append(onBudget, opt)
			default:
				tracking = append(tracking, opt)
			}
		}
		for _, group := range [][]Option{onBudget, tracking, closed} {
			sort.SliceStable(group, func(i, j int) bool { return group[i].Label < group[j].Label })
		}
		return []Option{
			{Label: "Budget", Values: onBudget},
			{Label: "Tracking", Values: tracking},
			{Label: "Closed", Values: closed},
		}, nil
	})
}

// Categories lists the default budget's categories by group. forTrigger
// selects the label of the empty first option.
func (s *OptionsService) Categories(ctx context.Context, forTrigger bool) ([]Option, error) {
	secrets, budgetID, err := s.defaultBudget(ctx)
	if err != nil {
		return nil, err
	}
	key := "categories:" + budgetID
	if forTrigger {
		key += ":trigger"
	}
	return s.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]Option, error) {
		groups, err := s.ledger.ListCategoryGroups(ctx, secrets.AccessToken, budgetID)
		if err != nil {
			return nil, err
		}
		first := Option{Label: "(automatic)"}
		if forTrigger {
			first.Label = "(all categories)"
		}
		out := []Option{first}
		for _, g := range groups {
			if g.Deleted {
				continue
			}
			values := []Option{}
			for _, c := range g.Categories {
				if c.Deleted {
					continue
				}
				values = append(values, Option{
					Label:  "- " + c.Name,
					Value:  c.ID,
					Alias1: g.Name + "|" + c.Name,
					Alias2: c.Name,
				})
			}
			opt := Option{Label: g.Name, Values: values}
			if g.Name == internalMasterCategory {
				out = append(out[:1], append([]Option{opt}, out[1:]...)...)
			} else {
				out = append(out, opt)
			}
		}
		return out, nil
	})
}

func (s *OptionsService) defaultBudget(ctx context.Context) (core.Secrets, string, error) {
	secrets, err := s.secrets.Load(ctx)
	if err != nil {
		return core.Secrets{}, "", err
	}
	if secrets.DefaultBudget == "" {
		return core.Secrets{}, "", core.ErrNoDefaultBudget
	}
	if secrets.AccessToken == "" {
		return core.Secrets{}, "", core.ErrNoAccessToken
	}
	return secrets, secrets.DefaultBudget, nil
}
