package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendwise/internal/catalog"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// RecurringService manages recurring expense templates and turns due
// templates into real expenses. Spawned expenses go through the
// ExpenseService, so they are validated and mirrored like manual ones.
type RecurringService struct {
	store    storage.RecurringStore
	expenses *ExpenseService
	catalog  *catalog.Catalog
	now      func() time.Time
}

func NewRecurringService(store storage.RecurringStore, expenses *ExpenseService, cat *catalog.Catalog) *RecurringService {
	return &RecurringService{store: store, expenses: expenses, catalog: cat, now: time.Now}
}

func (s *RecurringService) CreateTemplate(ctx context.Context, re core.RecurringExpense) (int64, error) {
	if err := re.Validate(); err != nil {
		return 0, err
	}
	if !s.catalog.Contains(re.Category) {
		return 0, fmt.Errorf("%w %q", ErrUnknownCategory, re.Category)
	}
	re.Active = true
	re.LastRun = time.Time{}
	if err := s.store.CreateRecurringExpense(ctx, &re); err != nil {
		return 0, fmt.Errorf("create recurring expense: %w", err)
	}
	return re.ID, nil
}

func (s *RecurringService) ListTemplates(ctx context.Context, ownerID int64) ([]core.RecurringExpense, error) {
	return s.store.ListRecurringExpenses(ctx, ownerID)
}

func (s *RecurringService) SetActive(ctx context.Context, ownerID, id int64, active bool) error {
	return s.store.SetRecurringActive(ctx, ownerID, id, active)
}

func (s *RecurringService) DeleteTemplate(ctx context.Context, ownerID, id int64) error {
	return s.store.DeleteRecurringExpense(ctx, ownerID, id)
}

// ProcessDue fires every active template that is due right now and
// returns how many expenses were created. A failing template is logged
// and skipped; it never blocks the rest of the batch.
func (s *RecurringService) ProcessDue(ctx context.Context) (int, error) {
	now := s.now()
	templates, err := s.store.ListActiveRecurringExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active recurring expenses: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring expenses",
		"active", len(templates), "date", now.Format("2006-01-02"))

	created := 0
	for _, re := range templates {
		if re.StartDate.Time.After(now) {
			continue
		}
		checker, err := checkerFor(re.Frequency)
		if err != nil {
			slog.ErrorContext(ctx, "Recurring template has unusable frequency",
				"id", re.ID, "frequency", re.Frequency, "error", err)
			continue
		}
		if !checker.IsDue(re.LastRun, now, re.StartDate) {
			continue
		}

		expense := core.Expense{
			OwnerID:     re.OwnerID,
			Date:        core.Date{Time: now.UTC().Truncate(24 * time.Hour)},
			Category:    re.Category,
			Amount:      re.Amount,
			Description: re.Description,
		}
		if _, err := s.expenses.CreateExpense(ctx, expense); err != nil {
			slog.ErrorContext(ctx, "Failed to create expense from recurring template",
				"id", re.ID, "description", re.Description, "error", err)
			continue
		}
		if err := s.store.MarkRecurringRun(ctx, re.ID, now); err != nil {
			// The expense exists; a stale last_run risks one duplicate
			// on the next sweep, which dedup downstream tolerates.
			slog.ErrorContext(ctx, "Failed to record recurring run",
				"id", re.ID, "error", err)
		}
		created++
		slog.InfoContext(ctx, "Created expense from recurring template",
			"id", re.ID, "description", re.Description,
			"amount_cents", re.Amount.Cents, "frequency", re.Frequency)
	}

	slog.InfoContext(ctx, "Recurring expense processing complete",
		"created", created, "checked", len(templates))
	return created, nil
}
