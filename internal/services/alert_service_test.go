package services

import (
	"context"
	"testing"

	"spendwise/internal/budget"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

func newAlertService(t *testing.T, store storage.ExpenseStore, budgetsJSON string) *AlertService {
	t.Helper()
	table, err := budget.Parse(budgetsJSON)
	if err != nil {
		t.Fatalf("budget.Parse: %v", err)
	}
	svc := NewAlertService(store, table)
	svc.now = fixedClock(2025, 3, 15)
	return svc
}

func TestGenerateAlertsExceededBudget(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newAlertService(t, store, `{"groceries": 200.00}`)

	seed(t, store, 1, core.NewDate(2025, 3, 5), "groceries", 13550)
	seed(t, store, 1, core.NewDate(2025, 3, 20), "groceries", 10000)

	alerts, err := svc.GenerateAlerts(context.Background(), 1, 2025, 3)
	if err != nil {
		t.Fatalf("GenerateAlerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}

	a := alerts[0]
	if a.Category != "groceries" || a.Budget != 200.0 || a.Spent != 235.5 || a.ExceededBy != 35.5 {
		t.Errorf("alert = %+v, want groceries 200.00/235.50/+35.50", a)
	}
	if a.Message == "" {
		t.Error("alert message is empty")
	}
}

func TestGenerateAlertsOnlyCurrentMonth(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newAlertService(t, store, `{"groceries": 10.00}`)

	// Massive historical overspend, but not the current month.
	seed(t, store, 1, core.NewDate(2025, 1, 5), "groceries", 999999)

	tests := []struct {
		name  string
		year  int
		month int
	}{
		{"past month same year", 2025, 1},
		{"future month same year", 2025, 12},
		{"previous year same month", 2024, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts, err := svc.GenerateAlerts(context.Background(), 1, tt.year, tt.month)
			if err != nil {
				t.Fatalf("GenerateAlerts: %v", err)
			}
			if len(alerts) != 0 {
				t.Errorf("got %d alerts for %d-%02d, want 0", len(alerts), tt.year, tt.month)
			}
		})
	}
}

func TestGenerateAlertsWithinBudget(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newAlertService(t, store, `{"groceries": 200.00}`)

	// Exactly at the limit does not alert; only strictly over does.
	seed(t, store, 1, core.NewDate(2025, 3, 5), "groceries", 20000)

	alerts, err := svc.GenerateAlerts(context.Background(), 1, 2025, 3)
	if err != nil {
		t.Fatalf("GenerateAlerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("got %d alerts at exactly the budget, want 0", len(alerts))
	}
}

func TestGenerateAlertsUnbudgetedCategoryNeverAlerts(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newAlertService(t, store, `{"groceries": 200.00}`)

	seed(t, store, 1, core.NewDate(2025, 3, 5), "entertainment", 999999)

	alerts, err := svc.GenerateAlerts(context.Background(), 1, 2025, 3)
	if err != nil {
		t.Fatalf("GenerateAlerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("got %d alerts for unbudgeted category, want 0", len(alerts))
	}
}

func TestGenerateAlertsOrderedBySpend(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newAlertService(t, store, `{"groceries": 10.00, "transport": 10.00}`)

	seed(t, store, 1, core.NewDate(2025, 3, 5), "transport", 5000)
	seed(t, store, 1, core.NewDate(2025, 3, 6), "groceries", 9000)

	alerts, err := svc.GenerateAlerts(context.Background(), 1, 2025, 3)
	if err != nil {
		t.Fatalf("GenerateAlerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(alerts))
	}
	if alerts[0].Category != "groceries" || alerts[1].Category != "transport" {
		t.Errorf("alert order = [%s %s], want highest spend first",
			alerts[0].Category, alerts[1].Category)
	}
}
