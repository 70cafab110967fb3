package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ledgerbridge/internal/core"
	"ledgerbridge/internal/storage/memory"
)

func TestSecretsProvider_SeedAndOverride(t *testing.T) {
	store := memory.New()
	p := NewSecretsProvider(store, core.Secrets{AccessToken: "seed-token"}, time.Hour)
	ctx := context.Background()

	s, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.AccessToken != "seed-token" {
		t.Fatalf("expected seeded token, got %q", s.AccessToken)
	}
	if s.SessionKey == "" {
		t.Fatalf("expected a generated session key")
	}

	token := strings.Repeat("t", core.KeyLength)
	if err := p.Set(ctx, SettingAccessToken, token); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s2, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s2.AccessToken != token {
		t.Fatalf("expected stored token after write")
	}
	if s2.SessionKey != s.SessionKey {
		t.Fatalf("expected session key to persist")
	}
	if s.AccessToken != "seed-token" {
		t.Fatalf("earlier snapshot must not change")
	}
}

func TestSecretsProvider_Validation(t *testing.T) {
	p := NewSecretsProvider(memory.New(), core.Secrets{}, time.Hour)
	ctx := context.Background()

	if err := p.Set(ctx, SettingServiceKey, "short"); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if err := p.Set(ctx, SettingDefaultBudget, "not-a-uuid"); !errors.Is(err, core.ErrInvalidBudgetID) {
		t.Fatalf("expected ErrInvalidBudgetID, got %v", err)
	}
	if err := p.Set(ctx, SettingDefaultBudget, "0b1a2c3d-1111-2222-3333-444455556666"); err != nil {
		t.Fatalf("expected valid budget id, got %v", err)
	}
	if err := p.Set(ctx, "other", "x"); err == nil {
		t.Fatalf("expected unknown setting error")
	}
}
