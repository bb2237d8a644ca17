package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AyushBalyan/Expense-Tracker/internal/auth"
	"github.com/AyushBalyan/Expense-Tracker/internal/cache"
	"github.com/AyushBalyan/Expense-Tracker/internal/core"
	"github.com/AyushBalyan/Expense-Tracker/internal/services"
	"github.com/AyushBalyan/Expense-Tracker/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}

	snapshots := cache.New[int64, core.DashboardSnapshot](16, time.Minute)
	tracker := services.NewTracker(repo, nil, snapshots)
	tokens := auth.NewTokenService("test-secret-0123456789", time.Hour)

	srv := NewServer(":0", tracker, repo, tokens, 1000)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		tracker.Close()
	})
	return ts
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

type testClient struct {
	t     *testing.T
	base  string
	token string
}

func (c *testClient) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		c.t.Fatalf("build request: %v", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func (c *testClient) mustJSON(method, path string, body any, wantStatus int, out any) {
	c.t.Helper()
	resp, raw := c.do(method, path, body)
	if resp.StatusCode != wantStatus {
		c.t.Fatalf("%s %s = %d, want %d (body %s)", method, path, resp.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			c.t.Fatalf("unmarshal %s: %v", raw, err)
		}
	}
}

func register(t *testing.T, ts *httptest.Server, email string) *testClient {
	t.Helper()
	c := &testClient{t: t, base: ts.URL}
	var tok tokenResponse
	c.mustJSON("POST", "/auth/register", credentialsRequest{Email: email, Password: "hunter2hunter2"}, http.StatusCreated, &tok)
	c.token = tok.Token
	return c
}

func TestRegisterLoginVerify(t *testing.T) {
	ts := newTestServer(t)
	c := register(t, ts, "alice@example.com")

	var verified struct {
		User core.User `json:"user"`
	}
	c.mustJSON("GET", "/auth/verify", nil, http.StatusOK, &verified)
	if verified.User.Email != "alice@example.com" {
		t.Fatalf("verify returned %+v", verified)
	}

	// Duplicate registration conflicts.
	resp, _ := c.do("POST", "/auth/register", credentialsRequest{Email: "alice@example.com", Password: "hunter2hunter2"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	// Fresh login issues a usable token.
	login := &testClient{t: t, base: ts.URL}
	var tok tokenResponse
	login.mustJSON("POST", "/auth/login", credentialsRequest{Email: "alice@example.com", Password: "hunter2hunter2"}, http.StatusOK, &tok)
	login.token = tok.Token
	login.mustJSON("GET", "/auth/verify", nil, http.StatusOK, &verified)

	// Wrong password and unknown email look identical.
	resp, _ = login.do("POST", "/auth/login", credentialsRequest{Email: "alice@example.com", Password: "wrong-password"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d, want 401", resp.StatusCode)
	}
	resp, _ = login.do("POST", "/auth/login", credentialsRequest{Email: "nobody@example.com", Password: "hunter2hunter2"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown email = %d, want 401", resp.StatusCode)
	}
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	ts := newTestServer(t)
	c := &testClient{t: t, base: ts.URL}

	for _, path := range []string{"/categories", "/income", "/expenses", "/dashboard", "/auth/verify"} {
		resp, _ := c.do("GET", path, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("GET %s without token = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestExpenseLifecycle(t *testing.T) {
	ts := newTestServer(t)
	c := register(t, ts, "alice@example.com")

	var cat core.Category
	c.mustJSON("POST", "/categories", createCategoryRequest{Name: "Food"}, http.StatusCreated, &cat)

	var created core.ExpenseRecord
	c.mustJSON("POST", "/expenses", expenseRequest{
		Title: "groceries", Amount: mustDecimal(t, "42.50"), CategoryID: cat.ID, Date: core.NewDate(2025, 1, 15),
	}, http.StatusCreated, &created)
	if created.ID == 0 {
		t.Fatalf("expected assigned id, got %+v", created)
	}

	var updated core.ExpenseRecord
	c.mustJSON("PUT", fmt.Sprintf("/expenses/%d", created.ID), expenseRequest{
		Title: "weekly groceries", Amount: mustDecimal(t, "50"), CategoryID: cat.ID, Date: core.NewDate(2025, 1, 16),
	}, http.StatusOK, &updated)
	if updated.Title != "weekly groceries" {
		t.Fatalf("update returned %+v", updated)
	}

	var list []core.ExpenseRecord
	c.mustJSON("GET", "/expenses", nil, http.StatusOK, &list)
	if len(list) != 1 || list[0].Title != "weekly groceries" {
		t.Fatalf("unexpected list %+v", list)
	}

	c.mustJSON("DELETE", fmt.Sprintf("/expenses/%d", created.ID), nil, http.StatusOK, nil)
	c.mustJSON("GET", "/expenses", nil, http.StatusOK, &list)
	if len(list) != 0 {
		t.Fatalf("expected empty list after delete, got %+v", list)
	}
}

func TestExpenseValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	c := register(t, ts, "alice@example.com")

	resp, _ := c.do("POST", "/expenses", expenseRequest{
		Title: "", Amount: mustDecimal(t, "10"), CategoryID: 1, Date: core.NewDate(2025, 1, 1),
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty title = %d, want 400", resp.StatusCode)
	}

	resp, _ = c.do("POST", "/income", createIncomeRequest{Amount: mustDecimal(t, "100"), Month: 13, Year: 2025})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("month 13 = %d, want 400", resp.StatusCode)
	}

	// Over-length fields are the client's fault, never a server error.
	resp, _ = c.do("POST", "/categories", createCategoryRequest{Name: strings.Repeat("x", 101)})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("101-char category name = %d, want 400", resp.StatusCode)
	}
	resp, _ = c.do("POST", "/expenses", expenseRequest{
		Title: strings.Repeat("x", 201), Amount: mustDecimal(t, "10"), CategoryID: 1, Date: core.NewDate(2025, 1, 1),
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("201-char expense title = %d, want 400", resp.StatusCode)
	}
}

func TestCrossUserIsolation(t *testing.T) {
	ts := newTestServer(t)
	alice := register(t, ts, "alice@example.com")
	bob := register(t, ts, "bob@example.com")

	var cat core.Category
	alice.mustJSON("POST", "/categories", createCategoryRequest{Name: "Food"}, http.StatusCreated, &cat)
	var exp core.ExpenseRecord
	alice.mustJSON("POST", "/expenses", expenseRequest{
		Title: "groceries", Amount: mustDecimal(t, "10"), CategoryID: cat.ID, Date: core.NewDate(2025, 1, 1),
	}, http.StatusCreated, &exp)

	// Bob cannot see, modify or delete Alice's record.
	var list []core.ExpenseRecord
	bob.mustJSON("GET", "/expenses", nil, http.StatusOK, &list)
	if len(list) != 0 {
		t.Fatalf("bob sees alice's expenses: %+v", list)
	}
	resp, _ := bob.do("DELETE", fmt.Sprintf("/expenses/%d", exp.ID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign delete = %d, want 404", resp.StatusCode)
	}
	resp, _ = bob.do("PUT", fmt.Sprintf("/expenses/%d", exp.ID), expenseRequest{
		Title: "stolen", Amount: mustDecimal(t, "1"), CategoryID: cat.ID, Date: core.NewDate(2025, 1, 1),
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign update = %d, want 404", resp.StatusCode)
	}
}

func TestIncomeLock(t *testing.T) {
	ts := newTestServer(t)
	c := register(t, ts, "alice@example.com")

	var in core.IncomeRecord
	c.mustJSON("POST", "/income", createIncomeRequest{Amount: mustDecimal(t, "1000"), Month: 1, Year: 2025}, http.StatusCreated, &in)
	if in.IsLocked {
		t.Fatalf("new income must start unlocked")
	}

	var locked core.IncomeRecord
	c.mustJSON("PUT", fmt.Sprintf("/income/%d/lock", in.ID), nil, http.StatusOK, &locked)
	if !locked.IsLocked {
		t.Fatalf("lock returned %+v", locked)
	}

	resp, _ := c.do("PUT", "/income/99999/lock", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing income lock = %d, want 404", resp.StatusCode)
	}
}

func TestDashboardSnapshot(t *testing.T) {
	ts := newTestServer(t)
	c := register(t, ts, "alice@example.com")

	var cat core.Category
	c.mustJSON("POST", "/categories", createCategoryRequest{Name: "Food"}, http.StatusCreated, &cat)

	c.mustJSON("POST", "/income", createIncomeRequest{Amount: mustDecimal(t, "1000"), Month: 1, Year: 2025}, http.StatusCreated, nil)
	c.mustJSON("POST", "/expenses", expenseRequest{
		Title: "groceries", Amount: mustDecimal(t, "300"), CategoryID: cat.ID, Date: core.NewDate(2025, 1, 10),
	}, http.StatusCreated, nil)
	c.mustJSON("POST", "/expenses", expenseRequest{
		Title: "coffee", Amount: mustDecimal(t, "50"), CategoryID: cat.ID, Date: core.NewDate(2025, 2, 2),
	}, http.StatusCreated, nil)

	var snap core.DashboardSnapshot
	c.mustJSON("GET", "/dashboard", nil, http.StatusOK, &snap)

	if snap.TotalIncome != 1000 || snap.TotalExpenses != 350 {
		t.Fatalf("totals = %v/%v, want 1000/350", snap.TotalIncome, snap.TotalExpenses)
	}
	want := []core.MonthlyBucket{
		{Month: 1, Income: 1000, Expenses: 300},
		{Month: 2, Income: 0, Expenses: 50},
	}
	if len(snap.MonthlyData) != len(want) {
		t.Fatalf("monthlyData = %+v", snap.MonthlyData)
	}
	for i := range want {
		if snap.MonthlyData[i] != want[i] {
			t.Fatalf("monthlyData[%d] = %+v, want %+v", i, snap.MonthlyData[i], want[i])
		}
	}
	if len(snap.CategoryData) != 1 || snap.CategoryData[0].Value != 350 {
		t.Fatalf("categoryData = %+v", snap.CategoryData)
	}

	// The snapshot tracks deletions.
	var list []core.ExpenseRecord
	c.mustJSON("GET", "/expenses", nil, http.StatusOK, &list)
	c.mustJSON("DELETE", fmt.Sprintf("/expenses/%d", list[1].ID), nil, http.StatusOK, nil)
	c.mustJSON("GET", "/dashboard", nil, http.StatusOK, &snap)
	if snap.TotalExpenses != 300 {
		t.Fatalf("totalExpenses after delete = %v, want 300", snap.TotalExpenses)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}
