package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EntityClass identifies one of the six tracked ledger entity classes.
type EntityClass string

const (
	ClassAccounts        EntityClass = "accounts"
	ClassCategories      EntityClass = "categories"
	ClassMonths          EntityClass = "months"
	ClassMonthCategories EntityClass = "month_categories"
	ClassPayees          EntityClass = "payees"
	ClassTransactions    EntityClass = "transactions"
)

// SyncOrder is the order in which classes are diffed within a budget.
// Transactions come last so their references resolve against the freshly
// updated account, category and payee projections.
var SyncOrder = []EntityClass{
	ClassAccounts,
	ClassCategories,
	ClassMonths,
	ClassMonthCategories,
	ClassPayees,
	ClassTransactions,
}

func (c EntityClass) String() string { return string(c) }

// IsValid reports whether c is one of the tracked classes.
func (c EntityClass) IsValid() bool {
	for _, known := range SyncOrder {
		if c == known {
			return true
		}
	}
	return false
}

// ChangeType classifies a change record.
type ChangeType string

const (
	ChangeNew    ChangeType = "new"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

type (
	// ChangeMeta is the delivery envelope the automation platform uses to
	// deduplicate and order events.
	ChangeMeta struct {
		ID        string `json:"id"`
		Timestamp int64  `json:"timestamp"`
	}

	// ChangeRecord is a single entry of a class change log.
	//
	// Fields holds the class-specific display fields. On the wire they are
	// flattened next to created_at, change and meta.
	ChangeRecord struct {
		CreatedAt time.Time
		Change    ChangeType // empty for month records
		Fields    map[string]any
		Meta      ChangeMeta
	}

	// BudgetInfo is one entry of the cached budget list.
	BudgetInfo struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		LastModifiedOn string `json:"last_modified_on"`
	}
)

// NewChangeRecord builds a record whose meta id is "<entityID>_<knowledge>".
func NewChangeRecord(now time.Time, change ChangeType, entityID string, knowledge int64, fields map[string]any) ChangeRecord {
	return ChangeRecord{
		CreatedAt: now.UTC(),
		Change:    change,
		Fields:    fields,
		Meta: ChangeMeta{
			ID:        fmt.Sprintf("%s_%d", entityID, knowledge),
			Timestamp: now.Unix(),
		},
	}
}

// Field returns a display field or nil.
func (r ChangeRecord) Field(name string) any {
	return r.Fields[name]
}

// In returns a copy of r with created_at expressed in loc.
func (r ChangeRecord) In(loc *time.Location) ChangeRecord {
	r.CreatedAt = r.CreatedAt.In(loc)
	return r
}

func (r ChangeRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["created_at"] = r.CreatedAt.Format(time.RFC3339)
	if r.Change != "" {
		out["change"] = r.Change
	}
	out["meta"] = r.Meta
	return json.Marshal(out)
}

func (r *ChangeRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rec := ChangeRecord{Fields: make(map[string]any, len(raw))}
	for key, value := range raw {
		switch key {
		case "created_at":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return fmt.Errorf("created_at: %w", err)
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("created_at: %w", err)
			}
			rec.CreatedAt = t
		case "change":
			if err := json.Unmarshal(value, &rec.Change); err != nil {
				return fmt.Errorf("change: %w", err)
			}
		case "meta":
			if err := json.Unmarshal(value, &rec.Meta); err != nil {
				return fmt.Errorf("meta: %w", err)
			}
		default:
			dec := json.NewDecoder(bytes.NewReader(value))
			dec.UseNumber()
			var v any
			if err := dec.Decode(&v); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			rec.Fields[key] = v
		}
	}

	*r = rec
	return nil
}
