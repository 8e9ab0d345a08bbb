// Package sheets defines the outbound ports for the spreadsheet mirror.
package sheets

import (
	"context"

	"spendwise/internal/core"
)

type (
	// RowWriter appends one expense row to the mirror.
	RowWriter interface {
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// RowRemover drops the row for an expense id. Removing an id that
	// was never mirrored is not an error.
	RowRemover interface {
		Remove(ctx context.Context, expenseID int64) error
	}

	// Mirror is the full reconcile surface the worker needs.
	Mirror interface {
		RowWriter
		RowRemover
	}
)
