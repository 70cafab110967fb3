package changelog

import (
	"ledgerbridge/internal/core"
	"ledgerbridge/internal/ledger"
)

func classSpecs() []classSpec {
	return []classSpec{
		{class: core.ClassAccounts, mode: modeIdentity, extract: extractAccounts, same: sameFingerprint},
		{class: core.ClassCategories, mode: modeIdentity, prepare: stageGroups, extract: extractCategories, same: sameFingerprint},
		{class: core.ClassMonths, mode: modePassthrough, noChangeTag: true, extract: extractMonths},
		{class: core.ClassMonthCategories, mode: modePassthrough, noChangeTag: true, extract: extractMonthCategories},
		{class: core.ClassPayees, mode: modeIdentity, extract: extractPayees, same: sameName},
		{class: core.ClassTransactions, mode: modeIDSet, extract: extractTransactions},
	}
}

func sameFingerprint(a, b Summary) bool { return a.Fingerprint == b.Fingerprint }

func sameName(a, b Summary) bool { return a.Name == b.Name }

func extractAccounts(p *pass, _ *ClassState) ([]entity, error) {
	items := make([]entity, 0, len(p.budget.Accounts))
	for _, a := range p.budget.Accounts {
		fp := core.Fingerprint(a.Name, a.Type, a.OnBudget, a.Closed, a.Note,
			a.Balance, a.ClearedBalance, a.UnclearedBalance)
		items = append(items, entity{
			id:      a.ID,
			deleted: a.Deleted,
			summary: Summary{Name: a.Name, Fingerprint: fp},
			fields: map[string]any{
				"name":              a.Name,
				"type":              a.Type,
				"on_budget":         a.OnBudget,
				"closed":            a.Closed,
				"note":              a.Note,
				"balance":           p.amount(a.Balance),
				"cleared_balance":   p.amount(a.ClearedBalance),
				"uncleared_balance": p.amount(a.UnclearedBalance),
			},
		})
	}
	return items, nil
}

// stageGroups applies group additions and removals. Groups are never
// reported as updated.
func stageGroups(p *pass, next *ClassState) {
	for _, g := range p.budget.CategoryGroups {
		if g.Deleted {
			delete(next.Groups, g.ID)
			continue
		}
		next.Groups[g.ID] = g.Name
	}
}

// groupName resolves a category's group, warning when a live category
// points at an unknown group.
func groupName(p *pass, groups map[string]string, c ledger.Category) string {
	if name, ok := groups[c.CategoryGroupID]; ok {
		return name
	}
	if !c.Deleted {
		p.logger.Warn("Category group not found",
			"category_id", c.ID,
			"category_group_id", c.CategoryGroupID)
	}
	return ""
}

func categoryFields(p *pass, c ledger.Category, group string) map[string]any {
	return map[string]any{
		"category_id":              c.ID,
		"group":                    group,
		"name":                     c.Name,
		"hidden":                   c.Hidden,
		"note":                     c.Note,
		"budgeted":                 p.amount(c.Budgeted),
		"activity":                 p.amount(c.Activity),
		"balance":                  p.amount(c.Balance),
		"goal_type":                c.GoalType,
		"goal_creation_month":      c.GoalCreationMonth,
		"goal_target":              p.optionalAmount(c.GoalTarget),
		"goal_target_month":        c.GoalTargetMonth,
		"goal_percentage_complete": c.GoalPercentageComplete,
	}
}

func extractCategories(p *pass, next *ClassState) ([]entity, error) {
	items := make([]entity, 0, len(p.budget.Categories))
	for _, c := range p.budget.Categories {
		group := groupName(p, next.Groups, c)
		fp := core.Fingerprint(c.CategoryGroupID, c.Name, c.Hidden, c.Note,
			c.Budgeted, c.Activity, c.Balance, c.GoalType, c.GoalCreationMonth,
			c.GoalTarget, c.GoalTargetMonth, c.GoalPercentageComplete)
		items = append(items, entity{
			id:      c.ID,
			deleted: c.Deleted,
			summary: Summary{Name: c.Name, Group: group, Fingerprint: fp},
			fields:  categoryFields(p, c, group),
		})
	}
	return items, nil
}

func monthIndex(p *pass, month string) (int, error) {
	return core.RelativeMonthIndex(p.budget.FirstMonth, month)
}

func extractMonths(p *pass, _ *ClassState) ([]entity, error) {
	if p.first {
		return nil, nil
	}
	items := make([]entity, 0, len(p.budget.Months))
	for _, m := range p.budget.Months {
		index, err := monthIndex(p, m.Month)
		if err != nil {
			return nil, err
		}
		items = append(items, entity{
			id: m.Month,
			fields: map[string]any{
				"month":          core.MonthKey(m.Month),
				"relative_index": index,
				"income":         p.amount(m.Income),
				"budgeted":       p.amount(m.Budgeted),
				"activity":       p.amount(m.Activity),
				"to_be_budgeted": p.amount(m.ToBeBudgeted),
				"age_of_money":   m.AgeOfMoney,
			},
		})
	}
	return items, nil
}

// extractMonthCategories emits one row per live category of every month in
// the delta. Groups resolve against the category group map staged earlier in
// the same pass.
func extractMonthCategories(p *pass, _ *ClassState) ([]entity, error) {
	if p.first {
		return nil, nil
	}
	var groups map[string]string
	if cs, ok := p.next.Classes[core.ClassCategories]; ok {
		groups = cs.Groups
	}

	var items []entity
	for _, m := range p.budget.Months {
		index, err := monthIndex(p, m.Month)
		if err != nil {
			return nil, err
		}
		month := core.MonthKey(m.Month)
		for _, c := range m.Categories {
			if c.Deleted {
				continue
			}
			fields := categoryFields(p, c, groupName(p, groups, c))
			fields["month"] = month
			fields["relative_index"] = index
			items = append(items, entity{
				id:     c.ID,
				metaID: c.ID + "_" + month,
				fields: fields,
			})
		}
	}
	return items, nil
}

func extractPayees(p *pass, _ *ClassState) ([]entity, error) {
	items := make([]entity, 0, len(p.budget.Payees))
	for _, py := range p.budget.Payees {
		items = append(items, entity{
			id:      py.ID,
			deleted: py.Deleted,
			summary: Summary{Name: py.Name},
			fields:  map[string]any{"name": py.Name},
		})
	}
	return items, nil
}

// extractTransactions resolves account, payee and category names against the
// projections already staged in this pass. Unresolved references are null.
func extractTransactions(p *pass, _ *ClassState) ([]entity, error) {
	if p.first {
		return nil, nil
	}
	accounts := p.projection(core.ClassAccounts)
	categories := p.projection(core.ClassCategories)
	payees := p.projection(core.ClassPayees)

	items := make([]entity, 0, len(p.budget.Transactions))
	for _, t := range p.budget.Transactions {
		account := p.resolve(accounts, &t.AccountID, t.ID, "account")
		transfer := p.resolve(accounts, t.TransferAccountID, t.ID, "transfer_account")
		payee := p.resolve(payees, t.PayeeID, t.ID, "payee")

		var category, categoryGroup any
		if c, ok := lookup(categories, t.CategoryID); ok {
			category, categoryGroup = c.Name, c.Group
		} else {
			category = p.resolve(categories, t.CategoryID, t.ID, "category")
		}

		items = append(items, entity{
			id:      t.ID,
			deleted: t.Deleted,
			fields: map[string]any{
				"date":             t.Date,
				"amount":           p.amount(t.Amount),
				"memo":             t.Memo,
				"cleared":          t.Cleared,
				"approved":         t.Approved,
				"flag_color":       t.FlagColor,
				"account":          account,
				"payee":            payee,
				"category":         category,
				"category_group":   categoryGroup,
				"transfer_account": transfer,
			},
		})
	}
	return items, nil
}

func (p *pass) projection(c core.EntityClass) map[string]Summary {
	if cs, ok := p.next.Classes[c]; ok {
		return cs.Projection
	}
	return nil
}

func lookup(projection map[string]Summary, id *string) (Summary, bool) {
	if id == nil || *id == "" {
		return Summary{}, false
	}
	s, ok := projection[*id]
	return s, ok
}

// resolve returns the projected name for id, or nil. A non-empty id that
// cannot be resolved is logged.
func (p *pass) resolve(projection map[string]Summary, id *string, txID, kind string) any {
	if s, ok := lookup(projection, id); ok {
		return s.Name
	}
	if id != nil && *id != "" {
		p.logger.Warn("Unresolved transaction reference",
			"transaction_id", txID,
			"reference", kind,
			"reference_id", *id)
	}
	return nil
}
