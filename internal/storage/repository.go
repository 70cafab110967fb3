package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ledgerbridge/internal/changelog"
	"ledgerbridge/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	schema, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "schema_version", schema.Version)

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks database connectivity.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// LoadBudget reads a budget's state with its registered triggers. It returns
// core.ErrUnknownBudget if the budget has never been persisted.
func (r *SQLiteRepository) LoadBudget(ctx context.Context, budgetID string) (*changelog.BudgetState, error) {
	row, err := r.queries.GetBudget(ctx, budgetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownBudget, budgetID)
	}
	if err != nil {
		return nil, fmt.Errorf("get budget %s: %w", budgetID, err)
	}

	st := changelog.NewBudgetState(row.ID)
	st.Version = row.Version
	if row.Knowledge.Valid {
		st.Config = &changelog.Config{ID: row.ID, Name: row.Name, Knowledge: row.Knowledge.Int64}
	}

	for class, blob := range classColumns(&row) {
		var cs changelog.ClassState
		if err := json.Unmarshal([]byte(*blob), &cs); err != nil {
			return nil, fmt.Errorf("decode %s of budget %s: %w", class, budgetID, err)
		}
		cs.Triggers = nil
		st.Classes[class] = &cs
	}

	triggers, err := r.queries.ListTriggers(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list triggers of budget %s: %w", budgetID, err)
	}
	for _, t := range triggers {
		class := core.EntityClass(t.EntityClass)
		if !class.IsValid() {
			slog.WarnContext(ctx, "Ignoring trigger for unknown class",
				"budget_id", budgetID, "entity_class", t.EntityClass)
			continue
		}
		st.AddTrigger(class, t.TriggerIdentity)
	}

	return st, nil
}

// SaveBudget persists st with a compare-and-swap on st.Version. On success
// st.Version is advanced; if another writer got there first it returns
// core.ErrStaleState. Triggers are stored separately and are not written.
func (r *SQLiteRepository) SaveBudget(ctx context.Context, st *changelog.BudgetState) error {
	row := Budget{ID: st.BudgetID, Version: st.Version}
	if st.Config != nil {
		row.Name = st.Config.Name
		row.Knowledge = sql.NullInt64{Int64: st.Config.Knowledge, Valid: true}
	}
	for class, blob := range classColumns(&row) {
		cs := changelog.ClassState{Changed: []core.ChangeRecord{}}
		if existing, ok := st.Classes[class]; ok && existing != nil {
			cs = *existing
		}
		cs.Triggers = nil
		data, err := json.Marshal(cs)
		if err != nil {
			return fmt.Errorf("encode %s of budget %s: %w", class, st.BudgetID, err)
		}
		*blob = string(data)
	}

	var (
		n   int64
		err error
	)
	if st.Version == 0 {
		n, err = r.queries.InsertBudget(ctx, row)
	} else {
		n, err = r.queries.UpdateBudget(ctx, row)
	}
	if err != nil {
		return fmt.Errorf("save budget %s: %w", st.BudgetID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: budget %s at version %d", core.ErrStaleState, st.BudgetID, st.Version)
	}

	st.Version++
	slog.DebugContext(ctx, "Budget state saved", "budget_id", st.BudgetID, "version", st.Version)
	return nil
}

// BudgetIDs lists every persisted budget.
func (r *SQLiteRepository) BudgetIDs(ctx context.Context) ([]string, error) {
	ids, err := r.queries.ListBudgetIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return ids, nil
}

// RegisterTrigger subscribes triggerID to a class of a persisted budget. It
// reports whether the subscription is new.
func (r *SQLiteRepository) RegisterTrigger(ctx context.Context, budgetID string, class core.EntityClass, triggerID string) (bool, error) {
	if _, err := r.queries.GetBudget(ctx, budgetID); errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: %s", core.ErrUnknownBudget, budgetID)
	} else if err != nil {
		return false, fmt.Errorf("get budget %s: %w", budgetID, err)
	}

	n, err := r.queries.InsertTrigger(ctx, budgetID, string(class), triggerID)
	if err != nil {
		return false, fmt.Errorf("insert trigger: %w", err)
	}
	return n > 0, nil
}

// DeregisterTrigger removes triggerID from every class of every budget.
func (r *SQLiteRepository) DeregisterTrigger(ctx context.Context, triggerID string) (int, error) {
	n, err := r.queries.DeleteTrigger(ctx, triggerID)
	if err != nil {
		return 0, fmt.Errorf("delete trigger: %w", err)
	}
	return int(n), nil
}

// LoadBudgetList returns the cached budget list, empty if none was stored.
func (r *SQLiteRepository) LoadBudgetList(ctx context.Context) ([]core.BudgetInfo, error) {
	data, err := r.queries.GetBudgetList(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return []core.BudgetInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget list: %w", err)
	}
	var list []core.BudgetInfo
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, fmt.Errorf("decode budget list: %w", err)
	}
	return list, nil
}

// SaveBudgetList replaces the cached budget list.
func (r *SQLiteRepository) SaveBudgetList(ctx context.Context, list []core.BudgetInfo) error {
	if list == nil {
		list = []core.BudgetInfo{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode budget list: %w", err)
	}
	if err := r.queries.UpsertBudgetList(ctx, string(data)); err != nil {
		return fmt.Errorf("save budget list: %w", err)
	}
	return nil
}

// GetSetting returns a stored setting and whether it exists.
func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	value, err := r.queries.GetSetting(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting stores a setting.
func (r *SQLiteRepository) SetSetting(ctx context.Context, key, value string) error {
	if err := r.queries.UpsertSetting(ctx, key, value); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func classColumns(b *Budget) map[core.EntityClass]*string {
	return map[core.EntityClass]*string{
		core.ClassAccounts:        &b.Accounts,
		core.ClassCategories:      &b.Categories,
		core.ClassMonths:          &b.Months,
		core.ClassMonthCategories: &b.MonthCategories,
		core.ClassPayees:          &b.Payees,
		core.ClassTransactions:    &b.Transactions,
	}
}
