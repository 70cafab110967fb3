package services

import (
	"strconv"
	"time"

	"ledgerbridge/internal/core"
)

// sampleFields are the canned display fields returned for the test budget.
var sampleFields = map[core.EntityClass]map[string]any{
	core.ClassAccounts: {
		"name":              "TEST_account",
		"type":              "checking",
		"on_budget":         true,
		"closed":            false,
		"note":              "TEST_note",
		"balance":           "3.33",
		"cleared_balance":   "2.22",
		"uncleared_balance": "1.11",
	},
	core.ClassCategories: {
		"group":                    "TEST_group",
		"name":                     "TEST_category",
		"hidden":                   false,
		"note":                     "TEST_note",
		"budgeted":                 "33.33",
		"activity":                 "22.22",
		"balance":                  "11.11",
		"goal_type":                "TB",
		"goal_creation_month":      "2099-01",
		"goal_target":              "44.44",
		"goal_target_month":        "2099-12",
		"goal_percentage_complete": "50",
	},
	core.ClassMonthCategories: {
		"month":                    "2020-01",
		"relative_index":           2,
		"group":                    "TEST_group",
		"name":                     "TEST_category",
		"hidden":                   false,
		"note":                     "TEST_note",
		"budgeted":                 "33.33",
		"activity":                 "22.22",
		"balance":                  "11.11",
		"goal_type":                "TB",
		"goal_creation_month":      "2099-01",
		"goal_target":              "44.44",
		"goal_target_month":        "2099-12",
		"goal_percentage_complete": "50",
	},
	core.ClassMonths: {
		"month":          "2099-12",
		"relative_index": 42,
		"income":         "1234.56",
		"budgeted":       "1234.56",
		"activity":       "1234.56",
		"to_be_budgeted": "1234.56",
		"age_of_money":   "60",
	},
	core.ClassPayees: {
		"name": "TEST_payee",
	},
	core.ClassTransactions: {
		"date":             "2020-12-31",
		"amount":           "12.34",
		"memo":             "Foo bar",
		"cleared":          "cleared",
		"approved":         true,
		"flag_color":       "red",
		"account":          "Piggy bank",
		"payee":            "Acme Market",
		"category":         "Supermarket",
		"category_group":   "Personal expenses",
		"transfer_account": "",
	},
}

// SampleRecords returns the three records served for the test budget.
func SampleRecords(class core.EntityClass, now time.Time) []core.ChangeRecord {
	change := core.ChangeUpdate
	if class == core.ClassMonths || class == core.ClassMonthCategories {
		change = ""
	}
	records := make([]core.ChangeRecord, 0, 3)
	for i := 1; i <= 3; i++ {
		fields := make(map[string]any, len(sampleFields[class]))
		for k, v := range sampleFields[class] {
			fields[k] = v
		}
		records = append(records, core.ChangeRecord{
			CreatedAt: now.UTC(),
			Change:    change,
			Fields:    fields,
			Meta:      core.ChangeMeta{ID: strconv.Itoa(i), Timestamp: now.Unix()},
		})
	}
	return records
}
