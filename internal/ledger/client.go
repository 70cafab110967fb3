// Package ledger is a client for the budgeting ledger REST API.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// DefaultBaseURL is the public ledger API endpoint.
const DefaultBaseURL = "https://api.youneedabudget.com/v1"

const maxResponseBytes = 64 << 20

// Client talks to the ledger API. The bearer token is supplied per call so a
// single client can serve credential changes without being rebuilt.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. A nil httpClient gets a 30 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// ListBudgets returns the user's budgets, most recently modified first.
func (c *Client) ListBudgets(ctx context.Context, token string) ([]BudgetSummary, error) {
	var resp struct {
		Data struct {
			Budgets []BudgetSummary `json:"budgets"`
		} `json:"data"`
	}
	if err := c.do(ctx, token, "list budgets", http.MethodGet, "/budgets", nil, &resp); err != nil {
		return nil, err
	}
	budgets := resp.Data.Budgets
	sort.SliceStable(budgets, func(i, j int) bool {
		return budgets[i].LastModifiedOn > budgets[j].LastModifiedOn
	})
	return budgets, nil
}

// GetBudget fetches a budget export. With a nil knowledge the full budget is
// returned, otherwise only what changed since that cursor.
func (c *Client) GetBudget(ctx context.Context, token, budgetID string, knowledge *int64) (*Snapshot, error) {
	path := "/budgets/" + url.PathEscape(budgetID)
	if knowledge != nil {
		path += "?last_knowledge_of_server=" + strconv.FormatInt(*knowledge, 10)
	}

	var resp struct {
		Data struct {
			Budget          *Budget `json:"budget"`
			ServerKnowledge *int64  `json:"server_knowledge"`
		} `json:"data"`
	}
	const op = "get budget"
	if err := c.do(ctx, token, op, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	switch {
	case resp.Data.Budget == nil:
		return nil, &MalformedSnapshotError{Op: op, Reason: "missing budget"}
	case resp.Data.ServerKnowledge == nil:
		return nil, &MalformedSnapshotError{Op: op, Reason: "missing server_knowledge"}
	case resp.Data.Budget.ID == "":
		return nil, &MalformedSnapshotError{Op: op, Reason: "missing budget id"}
	case resp.Data.Budget.CurrencyFormat == nil:
		return nil, &MalformedSnapshotError{Op: op, Reason: "missing currency_format"}
	}

	return &Snapshot{Budget: *resp.Data.Budget, ServerKnowledge: *resp.Data.ServerKnowledge}, nil
}

// ListAccounts returns the budget's accounts.
func (c *Client) ListAccounts(ctx context.Context, token, budgetID string) ([]Account, error) {
	var resp struct {
		Data struct {
			Accounts []Account `json:"accounts"`
		} `json:"data"`
	}
	path := "/budgets/" + url.PathEscape(budgetID) + "/accounts"
	if err := c.do(ctx, token, "list accounts", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Accounts, nil
}

// ListCategoryGroups returns the budget's category groups with their categories.
func (c *Client) ListCategoryGroups(ctx context.Context, token, budgetID string) ([]CategoryGroup, error) {
	var resp struct {
		Data struct {
			CategoryGroups []CategoryGroup `json:"category_groups"`
		} `json:"data"`
	}
	path := "/budgets/" + url.PathEscape(budgetID) + "/categories"
	if err := c.do(ctx, token, "list categories", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.CategoryGroups, nil
}

// CreateTransaction creates a single transaction and returns its id.
func (c *Client) CreateTransaction(ctx context.Context, token, budgetID string, tx SaveTransaction) (string, error) {
	body := struct {
		Transaction SaveTransaction `json:"transaction"`
	}{Transaction: tx}

	var resp struct {
		Data struct {
			TransactionIDs []string `json:"transaction_ids"`
			Transaction    *struct {
				ID string `json:"id"`
			} `json:"transaction"`
		} `json:"data"`
	}
	path := "/budgets/" + url.PathEscape(budgetID) + "/transactions"
	if err := c.do(ctx, token, "create transaction", http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}

	if resp.Data.Transaction != nil && resp.Data.Transaction.ID != "" {
		return resp.Data.Transaction.ID, nil
	}
	if len(resp.Data.TransactionIDs) > 0 {
		return resp.Data.TransactionIDs[0], nil
	}
	return "", nil
}

func (c *Client) do(ctx context.Context, token, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ledger %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Detail: errorDetail(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &MalformedSnapshotError{Op: op, Reason: "decode body", Err: err}
	}
	return nil
}

// errorDetail extracts error.detail from an API error body.
func errorDetail(data []byte) string {
	var body struct {
		Error struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Detail string `json:"detail"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Error.Detail != "" {
		return body.Error.Detail
	}
	return body.Error.Name
}
