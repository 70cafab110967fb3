package core

import (
	"fmt"

	"github.com/google/uuid"
)

// Sentinels used by the automation platform's endpoint tests.
const (
	TestBudgetID       = "TEST#TEST"
	TestAccountSuccess = "TEST#TEST#1"
	TestAccountSkip    = "TEST#TEST#2"
)

// KeyLength is the required length of the service key and the ledger token.
const KeyLength = 64

// Secrets is an immutable snapshot of the credentials in the settings store.
type Secrets struct {
	ServiceKey    string
	AccessToken   string
	DefaultBudget string
	SessionKey    string
}

// ValidateKey checks a service key or access token.
func ValidateKey(key string) error {
	if len(key) != KeyLength {
		return fmt.Errorf("%w: must be %d characters, got %d", ErrInvalidKey, KeyLength, len(key))
	}
	return nil
}

// ValidateBudgetID checks that id is a ledger budget identifier (a UUID).
func ValidateBudgetID(id string) error {
	if len(id) != 36 {
		return fmt.Errorf("%w: %q", ErrInvalidBudgetID, id)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidBudgetID, id)
	}
	return nil
}
