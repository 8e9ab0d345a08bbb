package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendwise/internal/amqp"
	"spendwise/internal/catalog"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// ErrUnknownCategory is returned when a manually entered category is
// not in the catalog.
var ErrUnknownCategory = errors.New("unknown category")

// MirrorPublisher enqueues spreadsheet reconcile requests. Satisfied by
// *amqp.Client; nil disables mirroring.
type MirrorPublisher interface {
	PublishMirror(ctx context.Context, msg *amqp.MirrorMessage) error
}

// ExpenseService handles single-record entry: validated create, update,
// delete, lookup and paged listing. Every write also enqueues a mirror
// message when a publisher is configured; mirror failures are logged
// and never fail the request, the store is the source of truth.
type ExpenseService struct {
	store     storage.ExpenseStore
	catalog   *catalog.Catalog
	publisher MirrorPublisher
}

func NewExpenseService(store storage.ExpenseStore, cat *catalog.Catalog, publisher MirrorPublisher) *ExpenseService {
	return &ExpenseService{store: store, catalog: cat, publisher: publisher}
}

// ExpensePage is one page of an owner's expenses plus the total row
// count for the queried window.
type ExpensePage struct {
	Expenses []core.Expense
	Total    int64
}

func (s *ExpenseService) validate(e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if !s.catalog.Contains(e.Category) {
		return fmt.Errorf("%w %q", ErrUnknownCategory, e.Category)
	}
	return nil
}

func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	if err := s.validate(e); err != nil {
		return 0, err
	}
	if err := s.store.CreateExpense(ctx, &e); err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}
	s.mirror(ctx, e.ID, e.OwnerID, amqp.OpUpsert)
	return e.ID, nil
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := s.validate(e); err != nil {
		return err
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	s.mirror(ctx, e.ID, e.OwnerID, amqp.OpUpsert)
	return nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, ownerID, id int64) error {
	if err := s.store.DeleteExpense(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.mirror(ctx, id, ownerID, amqp.OpDelete)
	return nil
}

func (s *ExpenseService) FindExpense(ctx context.Context, ownerID, id int64) (core.Expense, error) {
	return s.store.GetExpense(ctx, ownerID, id)
}

// ListExpenses returns one page of expenses, newest first. page is
// 1-based; pageSize falls back to 20 when not positive.
func (s *ExpenseService) ListExpenses(ctx context.Context, ownerID int64, year, month, page, pageSize int) (ExpensePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	w := storage.Window{OwnerID: ownerID, Year: year, Month: month}

	total, err := s.store.CountExpenses(ctx, w)
	if err != nil {
		return ExpensePage{}, fmt.Errorf("count expenses: %w", err)
	}
	expenses, err := s.store.ListExpenses(ctx, w, (page-1)*pageSize, pageSize)
	if err != nil {
		return ExpensePage{}, fmt.Errorf("list expenses: %w", err)
	}
	return ExpensePage{Expenses: expenses, Total: total}, nil
}

func (s *ExpenseService) mirror(ctx context.Context, id, ownerID int64, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMirror(ctx, amqp.NewMirrorMessage(id, ownerID, op)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish mirror message",
			"expense_id", id, "op", op, "error", err)
	}
}
