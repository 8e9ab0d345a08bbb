// Package storage is the persistence boundary for expense records,
// users and sessions. Two implementations exist: SQLite for real
// deployments and an in-memory store for development and tests.
package storage

import (
	"context"
	"errors"

	"spendwise/internal/core"
)

// ErrNotFound reports a record that does not exist or is not visible to
// the requesting owner.
var ErrNotFound = errors.New("record not found")

// Window scopes a query to one owner and, when Year is non-zero, to the
// full calendar month (year, month), first through last day inclusive.
type Window struct {
	OwnerID int64
	Year    int
	Month   int // 1-12, meaningful only when Year is set
}

// CategoryTotal is one row of the per-category sum aggregation,
// returned in descending total order.
type CategoryTotal struct {
	Category   string
	TotalCents int64
}

// CategoryAverage is one row of the per-category average aggregation,
// returned in descending average order. Count carries the number of
// records behind the mean so callers can weight it.
type CategoryAverage struct {
	Category     string
	AverageCents float64
	Count        int64
}

// ExpenseWriter is the slice of the store available inside an import
// transaction.
type ExpenseWriter interface {
	// CreateExpense persists a new record and assigns its ID.
	CreateExpense(ctx context.Context, e *core.Expense) error
}

// ExpenseStore is the full persistence port consumed by the services.
type ExpenseStore interface {
	ExpenseWriter

	GetExpense(ctx context.Context, ownerID, id int64) (core.Expense, error)
	// UpdateExpense replaces date, category, amount and description of
	// an existing record, scoped to its owner.
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, ownerID, id int64) error

	// ListExpenses returns records in the window, newest date first.
	ListExpenses(ctx context.Context, w Window, offset, limit int) ([]core.Expense, error)
	CountExpenses(ctx context.Context, w Window) (int64, error)

	SumAmounts(ctx context.Context, w Window) (int64, error)
	SumAmountsByCategory(ctx context.Context, w Window) ([]CategoryTotal, error)
	AverageAmountsByCategory(ctx context.Context, w Window) ([]CategoryAverage, error)
	// ListExpenditureYears returns the distinct calendar years with at
	// least one record for the owner, descending.
	ListExpenditureYears(ctx context.Context, ownerID int64) ([]int, error)

	// WithTx runs fn inside one transaction. The transaction commits
	// only when fn returns nil; any error rolls back every write fn
	// performed.
	WithTx(ctx context.Context, fn func(tx ExpenseWriter) error) error

	Close() error
}
