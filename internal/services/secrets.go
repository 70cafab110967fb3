package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledgerbridge/internal/cache"
	"ledgerbridge/internal/core"
)

// Setting keys in the settings store.
const (
	SettingServiceKey    = "service_key"
	SettingAccessToken   = "ledger_token"
	SettingDefaultBudget = "default_budget"
	SettingSessionKey    = "session_key"
)

const secretsCacheKey = "secrets"

// SecretsProvider hands out immutable core.Secrets snapshots. Values come from
// the settings store, falling back to the seed given at construction. A write
// drops the cached snapshot so the next Load sees it.
type SecretsProvider struct {
	store SettingsStore
	seed  core.Secrets
	cache *cache.LRUCache[core.Secrets]
}

func NewSecretsProvider(store SettingsStore, seed core.Secrets, ttl time.Duration) *SecretsProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SecretsProvider{
		store: store,
		seed:  seed,
		cache: cache.NewLRUCache[core.Secrets](1, ttl),
	}
}

// Load returns the current secrets.
func (p *SecretsProvider) Load(ctx context.Context) (core.Secrets, error) {
	return p.cache.GetOrLoad(ctx, secretsCacheKey, p.load)
}

func (p *SecretsProvider) load(ctx context.Context) (core.Secrets, error) {
	s := p.seed
	fields := []struct {
		key string
		dst *string
	}{
		{SettingServiceKey, &s.ServiceKey},
		{SettingAccessToken, &s.AccessToken},
		{SettingDefaultBudget, &s.DefaultBudget},
		{SettingSessionKey, &s.SessionKey},
	}
	for _, f := range fields {
		v, ok, err := p.store.GetSetting(ctx, f.key)
		if err != nil {
			return core.Secrets{}, fmt.Errorf("load secrets: %w", err)
		}
		if ok && v != "" {
			*f.dst = v
		}
	}

	if s.SessionKey == "" {
		s.SessionKey = strings.ReplaceAll(uuid.NewString(), "-", "")
		if err := p.store.SetSetting(ctx, SettingSessionKey, s.SessionKey); err != nil {
			return core.Secrets{}, fmt.Errorf("store session key: %w", err)
		}
	}
	return s, nil
}

// Set validates and stores one secret.
func (p *SecretsProvider) Set(ctx context.Context, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case SettingServiceKey, SettingAccessToken:
		if err := core.ValidateKey(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	case SettingDefaultBudget:
		if err := core.ValidateBudgetID(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	case SettingSessionKey:
	default:
		return fmt.Errorf("unknown setting %q", key)
	}

	if err := p.store.SetSetting(ctx, key, value); err != nil {
		return err
	}
	p.cache.Delete(secretsCacheKey)
	return nil
}
