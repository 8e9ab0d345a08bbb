package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spendwise/internal/auth"
	"spendwise/internal/budget"
	"spendwise/internal/catalog"
	"spendwise/internal/services"
	"spendwise/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := storage.NewMemoryStore()
	cat := catalog.Default()
	table, err := budget.Parse(`{"groceries": 200.00}`)
	if err != nil {
		t.Fatalf("budget.Parse: %v", err)
	}

	expenses := services.NewExpenseService(store, cat, nil)
	srv := NewServer(":0", Deps{
		Auth:      auth.NewService(store, time.Hour),
		Expenses:  expenses,
		Importer:  services.NewImportService(store, cat),
		Summaries: services.NewSummaryService(store),
		Alerts:    services.NewAlertService(store, table),
		Recurring: services.NewRecurringService(store, expenses, cat),
		Catalog:   cat,
		// generous limit so tests never trip it
		RequestsPerMinute: 10000,
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, payload any) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, raw
}

func register(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]string{
		"username": username,
		"password": "correct-horse",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", resp.StatusCode, body)
	}
	var out map[string]string
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	if out["token"] == "" {
		t.Fatal("register returned empty token")
	}
	return out["token"]
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := doJSON(t, http.MethodGet, ts.URL+path, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "alice")

	// duplicate username
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]string{
		"username": "alice", "password": "correct-horse",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", resp.StatusCode)
	}

	// wrong password
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", resp.StatusCode)
	}

	// logout invalidates the session
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/auth/logout", token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("logout status = %d, want 204", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/expenses", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("request after logout status = %d, want 401", resp.StatusCode)
	}
}

func TestExpensesRequireAuth(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/expenses", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestExpenseCRUDOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "alice")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/expenses", token, map[string]string{
		"date":        "2025-03-10",
		"category":    "groceries",
		"amount":      "45,90",
		"description": "Weekly shop",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, body)
	}
	var created expenseResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal created: %v", err)
	}
	if created.Amount != 45.90 || created.Category != "groceries" {
		t.Errorf("created = %+v", created)
	}

	url := fmt.Sprintf("%s/api/expenses/%d", ts.URL, created.ID)

	resp, body = doJSON(t, http.MethodGet, url, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, body %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPut, url, token, map[string]string{
		"date":        "2025-03-11",
		"category":    "transport",
		"amount":      "12.00",
		"description": "Bus pass",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, body %s", resp.StatusCode, body)
	}
	var updated expenseResponse
	json.Unmarshal(body, &updated)
	if updated.Category != "transport" || updated.Amount != 12.0 {
		t.Errorf("updated = %+v", updated)
	}

	resp, _ = doJSON(t, http.MethodDelete, url, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, url, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "alice")

	tests := []struct {
		name    string
		payload map[string]string
		status  int
	}{
		{
			name: "bad date",
			payload: map[string]string{
				"date": "March 1st", "category": "groceries", "amount": "10.00", "description": "x",
			},
			status: http.StatusBadRequest,
		},
		{
			name: "bad amount",
			payload: map[string]string{
				"date": "2025-03-01", "category": "groceries", "amount": "ten", "description": "x",
			},
			status: http.StatusBadRequest,
		},
		{
			name: "zero amount",
			payload: map[string]string{
				"date": "2025-03-01", "category": "groceries", "amount": "0", "description": "x",
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "unknown category",
			payload: map[string]string{
				"date": "2025-03-01", "category": "yachts", "amount": "10.00", "description": "x",
			},
			status: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/expenses", token, tt.payload)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.status, body)
			}
		})
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	ts := newTestServer(t)
	alice := register(t, ts, "alice")
	bob := register(t, ts, "bob")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/expenses", alice, map[string]string{
		"date": "2025-03-10", "category": "groceries", "amount": "10.00", "description": "Mine",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created expenseResponse
	json.Unmarshal(body, &created)

	resp, _ = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/expenses/%d", ts.URL, created.ID), bob, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-owner get status = %d, want 404", resp.StatusCode)
	}
}

func TestImportCSVEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "alice")

	csv := "date,amount,description,category\n" +
		"2025-03-01,\"45,90\",Lunch groceries,Groceries\n" +
		"2025-03-01,\"45,90\",Lunch groceries,Groceries\n" +
		"2025-03-02,12.50,Bus,Transport\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "expenses.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	io.Copy(part, strings.NewReader(csv))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/expenses/import", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("import request: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d, body %s", resp.StatusCode, body)
	}

	var outcome map[string]int
	if err := json.Unmarshal(body, &outcome); err != nil {
		t.Fatalf("unmarshal outcome: %v", err)
	}
	if outcome["imported"] != 2 || outcome["skipped"] != 1 {
		t.Errorf("outcome = %v, want imported 2 skipped 1", outcome)
	}

	// empty body is a 400
	resp2, _ := doJSON(t, http.MethodPost, ts.URL+"/api/expenses/import", token, nil)
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("empty import status = %d, want 400", resp2.StatusCode)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "alice")

	for _, payload := range []map[string]string{
		{"date": "2025-03-01", "category": "groceries", "amount": "60.00", "description": "Food"},
		{"date": "2025-03-02", "category": "transport", "amount": "40.00", "description": "Train"},
	} {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/expenses", token, payload)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status = %d, body %s", resp.StatusCode, body)
		}
	}

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/summary?year=2025&month=3", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d, body %s", resp.StatusCode, body)
	}

	var summary struct {
		Total          float64                 `json:"total"`
		CategoryTotals []categoryValueResponse `json:"category_totals"`
		AvailableYears []int                   `json:"available_years"`
	}
	if err := json.Unmarshal(body, &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.Total != 100.0 {
		t.Errorf("total = %v, want 100", summary.Total)
	}
	if len(summary.CategoryTotals) != 2 || summary.CategoryTotals[0].Category != "groceries" ||
		summary.CategoryTotals[0].Percentage != 60 {
		t.Errorf("category totals = %+v", summary.CategoryTotals)
	}
	if len(summary.AvailableYears) == 0 {
		t.Error("available years is empty")
	}
}

func TestAlertsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "alice")

	// Overspend the groceries budget in the current month so the alert
	// scoping rule lets it through.
	today := time.Now().Format("2006-01-02")
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/expenses", token, map[string]string{
		"date": today, "category": "groceries", "amount": "235.50", "description": "Stocking up",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, body)
	}

	now := time.Now()
	url := fmt.Sprintf("%s/api/alerts?year=%d&month=%d", ts.URL, now.Year(), int(now.Month()))
	resp, body = doJSON(t, http.MethodGet, url, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("alerts status = %d, body %s", resp.StatusCode, body)
	}

	var out struct {
		Alerts []struct {
			Category   string  `json:"category"`
			Budget     float64 `json:"budget"`
			Spent      float64 `json:"spent"`
			ExceededBy float64 `json:"exceeded_by"`
		} `json:"alerts"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal alerts: %v", err)
	}
	if len(out.Alerts) != 1 {
		t.Fatalf("got %d alerts, want 1 (body %s)", len(out.Alerts), body)
	}
	a := out.Alerts[0]
	if a.Category != "groceries" || a.Budget != 200.0 || a.Spent != 235.5 || a.ExceededBy != 35.5 {
		t.Errorf("alert = %+v", a)
	}

	// historical months never alert
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/alerts?year=2020&month=1", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("historical alerts status = %d", resp.StatusCode)
	}
	json.Unmarshal(body, &out)
	if len(out.Alerts) != 0 {
		t.Errorf("historical alerts = %d, want 0", len(out.Alerts))
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/categories", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("categories status = %d", resp.StatusCode)
	}
	var out struct {
		Categories []struct {
			Key string `json:"key"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal categories: %v", err)
	}
	keys := make(map[string]bool)
	for _, c := range out.Categories {
		keys[c.Key] = true
	}
	if !keys["groceries"] || !keys["transport"] {
		t.Errorf("categories = %v, missing defaults", keys)
	}
}

func TestRecurringEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := register(t, ts, "alice")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/recurring", token, map[string]string{
		"category":    "utilities",
		"amount":      "120.00",
		"description": "Electricity",
		"frequency":   "monthly",
		"start_date":  "2025-01-05",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create recurring status = %d, body %s", resp.StatusCode, body)
	}
	var created struct {
		ID     int64 `json:"id"`
		Active bool  `json:"active"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal created: %v", err)
	}
	if created.ID == 0 || !created.Active {
		t.Errorf("created = %+v", created)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/recurring", token, map[string]string{
		"category":    "utilities",
		"amount":      "120.00",
		"description": "Electricity",
		"frequency":   "fortnightly",
		"start_date":  "2025-01-05",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad frequency status = %d, want 422", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/recurring", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list recurring status = %d", resp.StatusCode)
	}
	var listed struct {
		Recurring []recurringResponse `json:"recurring"`
	}
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(listed.Recurring) != 1 || listed.Recurring[0].Frequency != "monthly" {
		t.Errorf("listed = %+v", listed.Recurring)
	}

	url := fmt.Sprintf("%s/api/recurring/%d", ts.URL, created.ID)
	resp, _ = doJSON(t, http.MethodPatch, url, token, map[string]bool{"active": false})
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("patch status = %d, want 204", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, url, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, url, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", resp.StatusCode)
	}
}
