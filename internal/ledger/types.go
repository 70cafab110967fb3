package ledger

// Wire types for the ledger REST API. Amounts are integer milliunits.

type (
	CurrencyFormat struct {
		ISOCode       string `json:"iso_code"`
		DecimalDigits int    `json:"decimal_digits"`
	}

	BudgetSummary struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		LastModifiedOn string `json:"last_modified_on"`
	}

	Account struct {
		ID               string  `json:"id"`
		Name             string  `json:"name"`
		Type             string  `json:"type"`
		OnBudget         bool    `json:"on_budget"`
		Closed           bool    `json:"closed"`
		Note             *string `json:"note"`
		Balance          int64   `json:"balance"`
		ClearedBalance   int64   `json:"cleared_balance"`
		UnclearedBalance int64   `json:"uncleared_balance"`
		Deleted          bool    `json:"deleted"`
	}

	CategoryGroup struct {
		ID         string     `json:"id"`
		Name       string     `json:"name"`
		Hidden     bool       `json:"hidden"`
		Deleted    bool       `json:"deleted"`
		Categories []Category `json:"categories,omitempty"`
	}

	Category struct {
		ID                     string  `json:"id"`
		CategoryGroupID        string  `json:"category_group_id"`
		Name                   string  `json:"name"`
		Hidden                 bool    `json:"hidden"`
		Note                   *string `json:"note"`
		Budgeted               int64   `json:"budgeted"`
		Activity               int64   `json:"activity"`
		Balance                int64   `json:"balance"`
		GoalType               *string `json:"goal_type"`
		GoalCreationMonth      *string `json:"goal_creation_month"`
		GoalTarget             *int64  `json:"goal_target"`
		GoalTargetMonth        *string `json:"goal_target_month"`
		GoalPercentageComplete *int    `json:"goal_percentage_complete"`
		Deleted                bool    `json:"deleted"`
	}

	Month struct {
		Month        string     `json:"month"`
		Note         *string    `json:"note"`
		Income       int64      `json:"income"`
		Budgeted     int64      `json:"budgeted"`
		Activity     int64      `json:"activity"`
		ToBeBudgeted int64      `json:"to_be_budgeted"`
		AgeOfMoney   *int       `json:"age_of_money"`
		Deleted      bool       `json:"deleted"`
		Categories   []Category `json:"categories"`
	}

	Payee struct {
		ID                string  `json:"id"`
		Name              string  `json:"name"`
		TransferAccountID *string `json:"transfer_account_id"`
		Deleted           bool    `json:"deleted"`
	}

	Transaction struct {
		ID                string  `json:"id"`
		Date              string  `json:"date"`
		Amount            int64   `json:"amount"`
		Memo              *string `json:"memo"`
		Cleared           string  `json:"cleared"`
		Approved          bool    `json:"approved"`
		FlagColor         *string `json:"flag_color"`
		AccountID         string  `json:"account_id"`
		PayeeID           *string `json:"payee_id"`
		CategoryID        *string `json:"category_id"`
		TransferAccountID *string `json:"transfer_account_id"`
		Deleted           bool    `json:"deleted"`
	}

	// Budget is a full or delta budget export. In a delta only the entities
	// changed since the requested knowledge are present.
	Budget struct {
		ID             string          `json:"id"`
		Name           string          `json:"name"`
		LastModifiedOn string          `json:"last_modified_on"`
		FirstMonth     string          `json:"first_month"`
		LastMonth      string          `json:"last_month"`
		CurrencyFormat *CurrencyFormat `json:"currency_format"`
		Accounts       []Account       `json:"accounts"`
		Payees         []Payee         `json:"payees"`
		CategoryGroups []CategoryGroup `json:"category_groups"`
		Categories     []Category      `json:"categories"`
		Months         []Month         `json:"months"`
		Transactions   []Transaction   `json:"transactions"`
	}

	// Snapshot pairs a budget export with the server cursor it reflects.
	Snapshot struct {
		Budget          Budget
		ServerKnowledge int64
	}

	// SaveTransaction is the request body for creating a transaction.
	SaveTransaction struct {
		AccountID  string  `json:"account_id"`
		Date       string  `json:"date"`
		Amount     int64   `json:"amount"`
		PayeeName  *string `json:"payee_name,omitempty"`
		CategoryID *string `json:"category_id,omitempty"`
		Memo       *string `json:"memo,omitempty"`
		Cleared    string  `json:"cleared,omitempty"`
		Approved   bool    `json:"approved"`
		FlagColor  *string `json:"flag_color,omitempty"`
		ImportID   *string `json:"import_id,omitempty"`
	}
)

// DecimalDigits returns the currency precision of the budget.
func (b Budget) DecimalDigits() int {
	if b.CurrencyFormat == nil {
		return 2
	}
	return b.CurrencyFormat.DecimalDigits
}
