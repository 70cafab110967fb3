package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata"

	"ledgerbridge/internal/core"
)

// DefaultFeedLimit is the number of records returned when the caller does
// not ask for a limit.
const DefaultFeedLimit = 50

// FeedRequest is a poll of one class change log.
type FeedRequest struct {
	BudgetID        string
	Class           core.EntityClass
	TriggerIdentity string
	// Limit caps the result; nil means DefaultFeedLimit.
	Limit *int
	// Timezone is an IANA name; empty means UTC.
	Timezone string
	// CategoryID filters month_categories records by category id, label or
	// name. Empty means all.
	CategoryID string
}

// TriggerService serves change feeds and manages trigger subscriptions.
type TriggerService struct {
	store  StateStore
	logger *slog.Logger
	now    func() time.Time
}

func NewTriggerService(store StateStore, logger *slog.Logger) *TriggerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TriggerService{
		store:  store,
		logger: logger.With("component", "triggers"),
		now:    time.Now,
	}
}

// Feed registers the caller's trigger identity on the class and returns the
// class change log newest-first with created_at in the caller's timezone.
// An unknown budget yields an empty feed.
func (s *TriggerService) Feed(ctx context.Context, req FeedRequest) ([]core.ChangeRecord, error) {
	if !req.Class.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownClass, req.Class)
	}
	loc, err := loadLocation(req.Timezone)
	if err != nil {
		return nil, err
	}
	limit := DefaultFeedLimit
	if req.Limit != nil {
		limit = max(*req.Limit, 0)
	}

	logger := s.logger.With("budget_id", req.BudgetID, "entity_class", req.Class)

	var records []core.ChangeRecord
	if isTestFeed(req) {
		records = SampleRecords(req.Class, s.now())
	} else {
		records, err = s.read(ctx, logger, req)
		if err != nil {
			return nil, err
		}
	}

	if len(records) > limit {
		records = records[:limit]
	}
	out := make([]core.ChangeRecord, len(records))
	for i, r := range records {
		out[i] = r.In(loc)
	}
	logger.DebugContext(ctx, "Feed served", "change_count", len(out))
	return out, nil
}

func (s *TriggerService) read(ctx context.Context, logger *slog.Logger, req FeedRequest) ([]core.ChangeRecord, error) {
	st, err := s.store.LoadBudget(ctx, req.BudgetID)
	if errors.Is(err, core.ErrUnknownBudget) {
		logger.WarnContext(ctx, "Unknown budget")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var categoryFilter string
	if req.Class == core.ClassMonthCategories && req.CategoryID != "" {
		// Categories are referenced by id only; labels are ambiguous.
		if _, ok := st.Class(core.ClassCategories).Projection[req.CategoryID]; !ok {
			return nil, fmt.Errorf("%w: %q", core.ErrUnknownCategory, req.CategoryID)
		}
		categoryFilter = req.CategoryID
	}

	if req.TriggerIdentity != "" {
		added, err := s.store.RegisterTrigger(ctx, req.BudgetID, req.Class, req.TriggerIdentity)
		if err != nil {
			return nil, fmt.Errorf("register trigger: %w", err)
		}
		if added {
			logger.InfoContext(ctx, "Trigger registered", "trigger_identity", req.TriggerIdentity)
		}
	}

	changed := st.Class(req.Class).Changed
	if categoryFilter == "" {
		return changed, nil
	}
	var filtered []core.ChangeRecord
	for _, r := range changed {
		if id, _ := r.Field("category_id").(string); id == categoryFilter {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Deregister removes a trigger identity from every class of every stored
// budget.
func (s *TriggerService) Deregister(ctx context.Context, triggerID string) (int, error) {
	n, err := s.store.DeregisterTrigger(ctx, triggerID)
	if err != nil {
		return 0, fmt.Errorf("deregister trigger: %w", err)
	}
	s.logger.InfoContext(ctx, "Trigger removed", "trigger_identity", triggerID, "removed", n)
	return n, nil
}

func isTestFeed(req FeedRequest) bool {
	if req.BudgetID == core.TestBudgetID {
		return true
	}
	return req.Class == core.ClassMonthCategories && req.CategoryID == core.TestBudgetID
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidTimezone, name)
	}
	return loc, nil
}
