package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Budget struct {
	ID              string
	Name            string
	Knowledge       sql.NullInt64
	Accounts        string
	Categories      string
	Months          string
	MonthCategories string
	Payees          string
	Transactions    string
	Version         int64
}

const getBudget = `
SELECT id, name, knowledge, accounts, categories, months, month_categories, payees, transactions, version
FROM budgets WHERE id = ?`

func (q *Queries) GetBudget(ctx context.Context, id string) (Budget, error) {
	row := q.db.QueryRowContext(ctx, getBudget, id)
	var b Budget
	err := row.Scan(&b.ID, &b.Name, &b.Knowledge, &b.Accounts, &b.Categories,
		&b.Months, &b.MonthCategories, &b.Payees, &b.Transactions, &b.Version)
	return b, err
}

const insertBudget = `
INSERT INTO budgets (id, name, knowledge, accounts, categories, months, month_categories, payees, transactions, version)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
ON CONFLICT(id) DO NOTHING`

// InsertBudget returns the number of inserted rows; zero means the budget
// already exists.
func (q *Queries) InsertBudget(ctx context.Context, b Budget) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertBudget, b.ID, b.Name, b.Knowledge,
		b.Accounts, b.Categories, b.Months, b.MonthCategories, b.Payees, b.Transactions)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateBudget = `
UPDATE budgets
SET name = ?, knowledge = ?, accounts = ?, categories = ?, months = ?, month_categories = ?,
    payees = ?, transactions = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND version = ?`

// UpdateBudget writes b if the stored version still equals b.Version and
// returns the number of updated rows.
func (q *Queries) UpdateBudget(ctx context.Context, b Budget) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBudget, b.Name, b.Knowledge,
		b.Accounts, b.Categories, b.Months, b.MonthCategories, b.Payees, b.Transactions,
		b.ID, b.Version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listBudgetIDs = `SELECT id FROM budgets ORDER BY id`

func (q *Queries) ListBudgetIDs(ctx context.Context) ([]string, error) {
	return q.queryStrings(ctx, listBudgetIDs)
}

type Trigger struct {
	EntityClass     string
	TriggerIdentity string
}

const listTriggers = `
SELECT entity_class, trigger_identity FROM triggers
WHERE budget_id = ? ORDER BY rowid`

func (q *Queries) ListTriggers(ctx context.Context, budgetID string) ([]Trigger, error) {
	rows, err := q.db.QueryContext(ctx, listTriggers, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Trigger
	for rows.Next() {
		var t Trigger
		if err := rows.Scan(&t.EntityClass, &t.TriggerIdentity); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertTrigger = `
INSERT OR IGNORE INTO triggers (budget_id, entity_class, trigger_identity) VALUES (?, ?, ?)`

func (q *Queries) InsertTrigger(ctx context.Context, budgetID, class, identity string) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertTrigger, budgetID, class, identity)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTrigger = `DELETE FROM triggers WHERE trigger_identity = ?`

func (q *Queries) DeleteTrigger(ctx context.Context, identity string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTrigger, identity)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getBudgetList = `SELECT data FROM budget_list WHERE id = 1`

func (q *Queries) GetBudgetList(ctx context.Context) (string, error) {
	var data string
	err := q.db.QueryRowContext(ctx, getBudgetList).Scan(&data)
	return data, err
}

const upsertBudgetList = `
INSERT INTO budget_list (id, data) VALUES (1, ?)
ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertBudgetList(ctx context.Context, data string) error {
	_, err := q.db.ExecContext(ctx, upsertBudgetList, data)
	return err
}

const getSetting = `SELECT value FROM settings WHERE key = ?`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, getSetting, key).Scan(&value)
	return value, err
}

const upsertSetting = `
INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, key, value)
	return err
}

func (q *Queries) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
