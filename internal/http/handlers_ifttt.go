package http

import (
	"errors"
	"fmt"
	"net/http"

	"ledgerbridge/internal/core"
	"ledgerbridge/internal/ledger"
	applog "ledgerbridge/internal/log"
	"ledgerbridge/internal/services"
)

type triggerRoute struct {
	slug  string
	class core.EntityClass
	// defaultBudget reads the budget from settings instead of triggerFields.
	defaultBudget bool
	// byCategory requires a category trigger field.
	byCategory bool
}

var triggerRoutes = []triggerRoute{
	{slug: "ynab_account_updated", class: core.ClassAccounts},
	{slug: "ynab_category_updated", class: core.ClassCategories},
	{slug: "ynab_category_month_updated", class: core.ClassMonthCategories, byCategory: true},
	{slug: "ynab_category_month_updated_default", class: core.ClassMonthCategories, byCategory: true, defaultBudget: true},
	{slug: "ynab_month_updated", class: core.ClassMonths},
	{slug: "ynab_payee_updated", class: core.ClassPayees},
	{slug: "ynab_transaction_updated", class: core.ClassTransactions},
}

type actionRoute struct {
	slug          string
	adjust        bool
	defaultBudget bool
}

var actionRoutes = []actionRoute{
	{slug: "ynab_create"},
	{slug: "ynab_create_default", defaultBudget: true},
	{slug: "ynab_adjust_balance", adjust: true},
	{slug: "ynab_adjust_balance_default", adjust: true, defaultBudget: true},
}

// Action fields after account, in the order they are validated.
var (
	createFields = []string{"date", "amount", "payee", "category", "memo", "cleared", "approved", "flag_color", "import_id"}
	adjustFields = []string{"date", "new_balance", "payee", "category", "memo", "cleared", "approved", "flag_color"}
)

func (r actionRoute) fields() []string {
	if r.adjust {
		return adjustFields
	}
	return createFields
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleTestSetup returns the sample field values the platform's endpoint
// tests use: the test budget for triggers, and a succeeding and a skipping
// test account for actions.
func (s *Server) handleTestSetup(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{"samples": testSamples()}).Write(w)
}

func testSamples() map[string]any {
	triggers := make(map[string]map[string]string, len(triggerRoutes))
	for _, route := range triggerRoutes {
		fields := map[string]string{}
		if !route.defaultBudget {
			fields["budget"] = core.TestBudgetID
		}
		if route.byCategory {
			fields["category"] = core.TestBudgetID
		}
		triggers[route.slug] = fields
	}

	actionSamples := func(account string) map[string]map[string]string {
		out := make(map[string]map[string]string, len(actionRoutes))
		for _, route := range actionRoutes {
			fields := map[string]string{"account": account}
			if !route.defaultBudget {
				fields["budget"] = "x"
			}
			for _, name := range route.fields() {
				fields[name] = "x"
			}
			out[route.slug] = fields
		}
		return out
	}

	return map[string]any{
		"triggers":             triggers,
		"actions":              actionSamples(core.TestAccountSuccess),
		"actionRecordSkipping": actionSamples(core.TestAccountSkip),
	}
}

func (s *Server) handleBudgetOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options.Budgets(r.Context())
	s.writeOptions(w, r, opts, err)
}

func (s *Server) handleAccountOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options.Accounts(r.Context())
	s.writeOptions(w, r, opts, err)
}

func (s *Server) handleCategoryOptions(forTrigger bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := s.options.Categories(r.Context(), forTrigger)
		s.writeOptions(w, r, opts, err)
	}
}

func (s *Server) writeOptions(w http.ResponseWriter, r *http.Request, opts []services.Option, err error) {
	switch {
	case errors.Is(err, core.ErrNoDefaultBudget):
		OptionsError(msgOptionsNoDefault).Write(w)
	case err != nil:
		s.structured.LogError(r.Context(), "Loading field options failed", err, applog.OpOptions,
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", r.UserAgent()))
		OptionsError(msgOptionsUnavailable).Write(w)
	default:
		NewJSONResponse().Data(opts).Write(w)
	}
}

// handleTrigger serves a trigger poll: it registers the trigger identity and
// returns the class change log.
func (s *Server) handleTrigger(route triggerRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := applog.FromContext(ctx).With(applog.FieldEntityClass, route.class)

		req, err := ParseWebhookRequest(r)
		if err != nil {
			logger.WarnContext(ctx, "Malformed trigger poll", applog.FieldError, err)
			InvalidDataError().Write(w)
			return
		}

		var budgetID string
		if route.defaultBudget {
			secrets, err := s.secrets.Load(ctx)
			if err != nil {
				s.structured.LogError(ctx, "Loading secrets failed", err, applog.OpFeed, nil)
				ErrorResponse(http.StatusBadRequest, msgCannotRetrieve).Write(w)
				return
			}
			budgetID = secrets.DefaultBudget
		} else {
			var ok bool
			if budgetID, ok = req.TriggerField("budget"); !ok {
				logger.WarnContext(ctx, "Trigger poll without budget field")
				InvalidDataError().Write(w)
				return
			}
		}

		var category string
		if route.byCategory {
			var ok bool
			if category, ok = req.TriggerField("category"); !ok {
				logger.WarnContext(ctx, "Trigger poll without category field")
				InvalidDataError().Write(w)
				return
			}
		}

		if req.TriggerIdentity == nil {
			logger.WarnContext(ctx, "Trigger poll without trigger_identity")
			InvalidDataError().Write(w)
			return
		}

		if budgetID == "" && category != core.TestBudgetID {
			logger.WarnContext(ctx, "Trigger poll without budget", applog.FieldError, core.ErrNoDefaultBudget)
			ErrorResponse(http.StatusBadRequest, msgCannotRetrieve).Write(w)
			return
		}

		records, err := s.triggers.Feed(ctx, services.FeedRequest{
			BudgetID:        budgetID,
			Class:           route.class,
			TriggerIdentity: *req.TriggerIdentity,
			Limit:           req.Limit,
			Timezone:        req.Timezone(),
			CategoryID:      category,
		})
		switch {
		case errors.Is(err, core.ErrUnknownCategory):
			logger.WarnContext(ctx, "Unknown category in trigger poll", "category", category)
			InvalidDataError().Write(w)
			return
		case err != nil:
			s.structured.LogError(ctx, "Serving trigger poll failed", err, applog.OpFeed,
				applog.NewFields().WithBudget(budgetID, nil).WithTrigger(route.class.String(), *req.TriggerIdentity))
			ErrorResponse(http.StatusBadRequest, msgCannotRetrieve).Write(w)
			return
		}

		s.appMetrics.feedsServed.Add(1)
		s.structured.LogFeed(ctx, budgetID, route.class.String(), *req.TriggerIdentity, len(records))
		NewJSONResponse().Data(records).Write(w)
	}
}

// handleDeleteTrigger drops a trigger identity from every budget and class.
// Unknown identities are not an error.
func (s *Server) handleDeleteTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := s.triggers.Deregister(ctx, id); err != nil {
		s.structured.LogError(ctx, "Removing trigger failed", err, applog.OpDeregister,
			applog.NewFields().WithTrigger("", id))
		ErrorResponse(http.StatusInternalServerError, "Cannot remove trigger").Write(w)
		return
	}
	NewJSONResponse().Raw(struct{}{}).Write(w)
}

// handleAction validates the action fields and creates the transaction.
func (s *Server) handleAction(route actionRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := applog.FromContext(ctx).With(applog.FieldOperation, route.slug)

		req, err := ParseWebhookRequest(r)
		if err != nil {
			logger.WarnContext(ctx, "Malformed action call", applog.FieldError, err)
			SkipError("Invalid data").Write(w)
			return
		}
		if req.ActionFields == nil {
			SkipError("Invalid data: actionFields missing").Write(w)
			return
		}
		required := append([]string{"account"}, route.fields()...)
		if !route.defaultBudget {
			required = append(required, "budget")
		}
		if missing := req.MissingActionField(required...); missing != "" {
			logger.WarnContext(ctx, "Action call missing field", "field", missing)
			SkipError("Invalid data: missing field: " + missing).Write(w)
			return
		}

		get := func(name string) string {
			v, _ := req.ActionField(name)
			return v
		}
		txReq := services.TransactionRequest{
			UseDefault: route.defaultBudget,
			BudgetID:   get("budget"),
			Account:    get("account"),
			Date:       get("date"),
			Amount:     get("amount"),
			NewBalance: get("new_balance"),
			Payee:      get("payee"),
			Category:   get("category"),
			Memo:       get("memo"),
			Cleared:    get("cleared"),
			Approved:   get("approved"),
			FlagColor:  get("flag_color"),
			ImportID:   get("import_id"),
			Timezone:   req.Timezone(),
		}

		var id string
		if route.adjust {
			id, err = s.actions.AdjustBalance(ctx, txReq)
		} else {
			id, err = s.actions.CreateTransaction(ctx, txReq)
		}
		if err != nil {
			s.appMetrics.actionsSkipped.Add(1)
			msg := actionErrorMessage(err, txReq.BudgetID)
			logger.WarnContext(ctx, "Action skipped", applog.FieldError, err, "message", msg)
			SkipError(msg).Write(w)
			return
		}

		s.appMetrics.actionsOK.Add(1)
		NewJSONResponse().Data([]map[string]string{{"id": id}}).Write(w)
	}
}

// actionErrorMessage turns an action failure into the message shown to the
// user.
func actionErrorMessage(err error, budgetID string) string {
	var transport *ledger.TransportError
	switch {
	case errors.Is(err, core.ErrTestAccountSkip):
		return "Test"
	case errors.Is(err, core.ErrInvalidBudgetID):
		return "Invalid data: incorrect budget: " + budgetID
	case errors.Is(err, core.ErrUnknownAccount):
		return "Account not found"
	case errors.Is(err, core.ErrInvalidDate), errors.Is(err, core.ErrInvalidTimezone):
		return "Invalid date"
	case errors.Is(err, core.ErrInvalidAmount):
		return "Invalid amount"
	case errors.Is(err, core.ErrNoAccessToken):
		return "Ledger access token not configured"
	case errors.As(err, &transport):
		if transport.Detail != "" {
			return transport.Detail
		}
		if transport.StatusCode != 0 {
			return fmt.Sprintf("%d Bad request", transport.StatusCode)
		}
		return "Ledger unavailable"
	default:
		return "Cannot create transaction"
	}
}
