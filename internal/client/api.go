// Package client is the Go consumer of the tracker API: a typed HTTP
// client, an action-reduced state store and a session that keeps the two
// in sync with the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AyushBalyan/Expense-Tracker/internal/core"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// APIClient talks to one tracker server. It is safe for concurrent use
// once the token is set.
type APIClient struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken attaches a bearer token to every subsequent request. An empty
// token clears authentication.
func (c *APIClient) SetToken(token string) {
	c.token = token
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			msg = envelope.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// --- auth ---

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *APIClient) Register(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/register", credentials{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *APIClient) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", credentials{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *APIClient) Verify(ctx context.Context) (core.User, error) {
	var resp struct {
		User core.User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/auth/verify", nil, &resp)
	return resp.User, err
}

// --- categories ---

func (c *APIClient) ListCategories(ctx context.Context) ([]core.Category, error) {
	var categories []core.Category
	err := c.do(ctx, http.MethodGet, "/categories", nil, &categories)
	return categories, err
}

func (c *APIClient) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	var category core.Category
	err := c.do(ctx, http.MethodPost, "/categories", map[string]string{"name": name}, &category)
	return category, err
}

// --- income ---

func (c *APIClient) ListIncome(ctx context.Context) ([]core.IncomeRecord, error) {
	var records []core.IncomeRecord
	err := c.do(ctx, http.MethodGet, "/income", nil, &records)
	return records, err
}

func (c *APIClient) CreateIncome(ctx context.Context, in core.IncomeRecord) (core.IncomeRecord, error) {
	body := map[string]any{"amount": in.Amount, "month": in.Month, "year": in.Year}
	var record core.IncomeRecord
	err := c.do(ctx, http.MethodPost, "/income", body, &record)
	return record, err
}

func (c *APIClient) LockIncome(ctx context.Context, id int64) (core.IncomeRecord, error) {
	var record core.IncomeRecord
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/income/%d/lock", id), nil, &record)
	return record, err
}

// --- expenses ---

func (c *APIClient) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	var records []core.ExpenseRecord
	err := c.do(ctx, http.MethodGet, "/expenses", nil, &records)
	return records, err
}

func expenseBody(e core.ExpenseRecord) map[string]any {
	return map[string]any{
		"title":       e.Title,
		"amount":      e.Amount,
		"category_id": e.CategoryID,
		"date":        e.Date,
	}
}

func (c *APIClient) CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	var record core.ExpenseRecord
	err := c.do(ctx, http.MethodPost, "/expenses", expenseBody(e), &record)
	return record, err
}

func (c *APIClient) UpdateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	var record core.ExpenseRecord
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/expenses/%d", e.ID), expenseBody(e), &record)
	return record, err
}

func (c *APIClient) DeleteExpense(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/expenses/%d", id), nil, nil)
}

// --- dashboard ---

func (c *APIClient) Dashboard(ctx context.Context) (core.DashboardSnapshot, error) {
	var snap core.DashboardSnapshot
	err := c.do(ctx, http.MethodGet, "/dashboard", nil, &snap)
	return snap, err
}
