// Package worker reconciles expense rows into the spreadsheet mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendwise/internal/amqp"
	"spendwise/internal/sheets"
	"spendwise/internal/storage"
)

// MirrorWorker applies mirror messages. The store is the source of
// truth: an upsert re-reads the expense before writing, so processing a
// stale message never resurrects deleted data.
type MirrorWorker struct {
	store  storage.ExpenseStore
	mirror sheets.Mirror
}

func NewMirrorWorker(store storage.ExpenseStore, mirror sheets.Mirror) *MirrorWorker {
	return &MirrorWorker{store: store, mirror: mirror}
}

// HandleMessage reconciles one expense. Returned errors signal the
// consumer to requeue.
func (w *MirrorWorker) HandleMessage(ctx context.Context, msg *amqp.MirrorMessage) error {
	switch msg.Op {
	case amqp.OpDelete:
		return w.remove(ctx, msg.ExpenseID)
	case amqp.OpUpsert:
		return w.upsert(ctx, msg)
	default:
		return fmt.Errorf("unknown mirror op %q", msg.Op)
	}
}

func (w *MirrorWorker) upsert(ctx context.Context, msg *amqp.MirrorMessage) error {
	expense, err := w.store.GetExpense(ctx, msg.OwnerID, msg.ExpenseID)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted between publish and delivery. Make the mirror agree.
		slog.InfoContext(ctx, "Expense gone, removing mirror row", "expense_id", msg.ExpenseID)
		return w.remove(ctx, msg.ExpenseID)
	}
	if err != nil {
		return fmt.Errorf("get expense %d: %w", msg.ExpenseID, err)
	}

	// Remove first so a re-upsert replaces rather than duplicates.
	if err := w.mirror.Remove(ctx, expense.ID); err != nil {
		return fmt.Errorf("remove stale mirror row %d: %w", expense.ID, err)
	}
	ref, err := w.mirror.Append(ctx, expense)
	if err != nil {
		return fmt.Errorf("append mirror row %d: %w", expense.ID, err)
	}

	slog.InfoContext(ctx, "Mirrored expense",
		"expense_id", expense.ID,
		"owner_id", expense.OwnerID,
		"row_ref", ref)
	return nil
}

func (w *MirrorWorker) remove(ctx context.Context, expenseID int64) error {
	if err := w.mirror.Remove(ctx, expenseID); err != nil {
		return fmt.Errorf("remove mirror row %d: %w", expenseID, err)
	}
	return nil
}
