package services

import (
	"context"
	"fmt"
	"time"

	"spendwise/internal/budget"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// AlertService flags categories whose spending in the current calendar
// month exceeds their configured budget. Alerts are a right-now signal:
// asking about any other (year, month) yields no alerts, even when that
// period overspent.
type AlertService struct {
	store   storage.ExpenseStore
	budgets *budget.Table
	now     func() time.Time
}

func NewAlertService(store storage.ExpenseStore, budgets *budget.Table) *AlertService {
	return &AlertService{store: store, budgets: budgets, now: time.Now}
}

// GenerateAlerts evaluates the owner's spending against the budget
// table. Ordering follows the per-category totals, highest spend first.
func (s *AlertService) GenerateAlerts(ctx context.Context, ownerID int64, year, month int) ([]core.Alert, error) {
	current := s.now()
	if year != current.Year() || month != int(current.Month()) {
		return nil, nil
	}

	totals, err := s.store.SumAmountsByCategory(ctx, storage.Window{OwnerID: ownerID, Year: year, Month: month})
	if err != nil {
		return nil, fmt.Errorf("sum amounts by category: %w", err)
	}

	var alerts []core.Alert
	for _, row := range totals {
		limit, ok := s.budgets.Limit(row.Category)
		if !ok {
			continue
		}
		if row.TotalCents <= limit.Cents {
			continue
		}
		spent := centsToMajor(row.TotalCents)
		budgeted := limit.Euros()
		exceededBy := centsToMajor(row.TotalCents - limit.Cents)
		alerts = append(alerts, core.Alert{
			Category:   row.Category,
			Budget:     budgeted,
			Spent:      spent,
			ExceededBy: exceededBy,
			Message: fmt.Sprintf("Budget exceeded for %s: spent %.2f of %.2f (+%.2f)",
				row.Category, spent, budgeted, exceededBy),
		})
	}
	return alerts, nil
}
