package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledgerbridge/internal/core"
	"ledgerbridge/internal/ledger"
)

const (
	maxPayeeLength = 50
	maxMemoLength  = 200
)

// dateLayouts are the accepted action date formats, tried in order. The last
// one is the automation platform's own display format.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02T15:04:05",
	"January 2, 2006 at 03:04PM",
}

// TransactionRequest carries the action fields of a create or adjust action.
// All values arrive as strings.
type TransactionRequest struct {
	// UseDefault resolves the budget from the configured default.
	UseDefault bool
	BudgetID   string
	Account    string
	Date       string
	// Amount is the transaction amount (create) and NewBalance the target
	// account balance (adjust), both in currency units.
	Amount     string
	NewBalance string
	Payee      string
	Category   string
	Memo       string
	Cleared    string
	Approved   string
	FlagColor  string
	ImportID   string
	Timezone   string
}

// ActionService writes transactions to the ledger on behalf of actions.
type ActionService struct {
	ledger  LedgerAPI
	secrets *SecretsProvider
	logger  *slog.Logger
	now     func() time.Time
}

func NewActionService(ledgerAPI LedgerAPI, secrets *SecretsProvider, logger *slog.Logger) *ActionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionService{
		ledger:  ledgerAPI,
		secrets: secrets,
		logger:  logger.With("component", "actions"),
		now:     time.Now,
	}
}

// CreateTransaction creates a transaction and returns the action result id.
func (s *ActionService) CreateTransaction(ctx context.Context, req TransactionRequest) (string, error) {
	return s.execute(ctx, "create", req, func(_ ledger.Account) (int64, error) {
		return core.ParseAmountToMilliunits(req.Amount)
	})
}

// AdjustBalance creates the transaction that brings an account to
// req.NewBalance.
func (s *ActionService) AdjustBalance(ctx context.Context, req TransactionRequest) (string, error) {
	req.ImportID = ""
	return s.execute(ctx, "adjust_balance", req, func(acc ledger.Account) (int64, error) {
		target, err := core.ParseAmountToMilliunits(req.NewBalance)
		if err != nil {
			return 0, err
		}
		return target - acc.Balance, nil
	})
}

func (s *ActionService) execute(ctx context.Context, op string, req TransactionRequest, amount func(ledger.Account) (int64, error)) (string, error) {
	switch req.Account {
	case core.TestAccountSuccess:
		return resultID(), nil
	case core.TestAccountSkip:
		return "", core.ErrTestAccountSkip
	}

	secrets, err := s.secrets.Load(ctx)
	if err != nil {
		return "", err
	}
	budgetID := req.BudgetID
	if req.UseDefault {
		budgetID = secrets.DefaultBudget
	}
	if err := core.ValidateBudgetID(budgetID); err != nil {
		return "", err
	}
	if secrets.AccessToken == "" {
		return "", core.ErrNoAccessToken
	}
	logger := s.logger.With("operation", op, "budget_id", budgetID)

	accounts, err := s.ledger.ListAccounts(ctx, secrets.AccessToken, budgetID)
	if err != nil {
		return "", err
	}
	acc, ok := findAccount(accounts, req.Account)
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnknownAccount, req.Account)
	}

	var categoryID *string
	if req.Category != "" {
		groups, err := s.ledger.ListCategoryGroups(ctx, secrets.AccessToken, budgetID)
		if err != nil {
			return "", err
		}
		if id, ok := findCategory(groups, req.Category); ok {
			categoryID = &id
		} else {
			logger.WarnContext(ctx, "Unknown category ignored", "category", req.Category)
		}
	}

	date, err := s.resolveDate(req.Date, req.Timezone)
	if err != nil {
		return "", err
	}
	milliunits, err := amount(acc)
	if err != nil {
		return "", err
	}

	tx := ledger.SaveTransaction{
		AccountID:  acc.ID,
		Date:       date,
		Amount:     milliunits,
		CategoryID: categoryID,
		Cleared:    req.Cleared,
		Approved:   req.Approved == "true",
	}
	if req.Payee != "" {
		tx.PayeeName = ptr(truncate(req.Payee, maxPayeeLength))
	}
	if req.Memo != "" {
		tx.Memo = ptr(truncate(req.Memo, maxMemoLength))
	}
	if req.FlagColor != "" && req.FlagColor != "none" {
		tx.FlagColor = ptr(req.FlagColor)
	}
	if req.ImportID != "" {
		tx.ImportID = ptr(req.ImportID)
	}

	ledgerID, err := s.ledger.CreateTransaction(ctx, secrets.AccessToken, budgetID, tx)
	if err != nil {
		return "", err
	}
	logger.InfoContext(ctx, "Transaction created",
		"transaction_id", ledgerID,
		"account_id", acc.ID,
		"amount", milliunits)
	return resultID(), nil
}

// resolveDate returns the action date as YYYY-MM-DD. An empty value means
// today in the caller's timezone.
func (s *ActionService) resolveDate(value, tz string) (string, error) {
	if value == "" {
		loc, err := loadLocation(tz)
		if err != nil {
			return "", err
		}
		return s.now().In(loc).Format(time.DateOnly), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(time.DateOnly), nil
		}
	}
	return "", fmt.Errorf("%w: %q", core.ErrInvalidDate, value)
}

// findAccount matches by id first, then by name.
func findAccount(accounts []ledger.Account, ref string) (ledger.Account, bool) {
	for _, a := range accounts {
		if a.ID == ref {
			return a, true
		}
	}
	for _, a := range accounts {
		if a.Name == ref {
			return a, true
		}
	}
	return ledger.Account{}, false
}

func findCategory(groups []ledger.CategoryGroup, ref string) (string, bool) {
	var byName string
	for _, g := range groups {
		for _, c := range g.Categories {
			if c.ID == ref {
				return c.ID, true
			}
			if byName == "" && c.Name == ref {
				byName = c.ID
			}
		}
	}
	return byName, byName != ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

func resultID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func ptr[T any](v T) *T { return &v }
