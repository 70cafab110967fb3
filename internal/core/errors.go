package core

import "errors"

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidBudgetID = errors.New("invalid budget id")
	ErrInvalidKey      = errors.New("invalid key")
	ErrMissingField    = errors.New("missing required field")
	ErrUnknownBudget   = errors.New("unknown budget")
	ErrUnknownAccount  = errors.New("unknown account")
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownClass    = errors.New("unknown entity class")
	ErrStaleState      = errors.New("budget state was modified concurrently")
	ErrNoAccessToken   = errors.New("ledger access token not configured")
	ErrNoDefaultBudget = errors.New("no default budget configured")
	ErrTestAccountSkip = errors.New("test account rejected")
)
