package worker

import (
	"context"
	"testing"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/sheets/memory"
	"spendwise/internal/storage"
)

func storedExpense(t *testing.T, store storage.ExpenseStore) core.Expense {
	t.Helper()
	e := core.Expense{
		OwnerID:     1,
		Date:        core.NewDate(2025, 3, 10),
		Category:    "groceries",
		Amount:      core.Money{Cents: 4590},
		Description: "Weekly shop",
	}
	if err := store.CreateExpense(context.Background(), &e); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	return e
}

func TestHandleMessageUpsert(t *testing.T) {
	store := storage.NewMemoryStore()
	mirror := memory.New()
	w := NewMirrorWorker(store, mirror)

	e := storedExpense(t, store)
	msg := amqp.NewMirrorMessage(e.ID, e.OwnerID, amqp.OpUpsert)
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	row, ok := mirror.Row(e.ID)
	if !ok {
		t.Fatal("expense not mirrored")
	}
	if row.Amount.Cents != 4590 || row.Category != "groceries" {
		t.Errorf("mirrored row = %+v", row)
	}

	// Replays replace the row instead of duplicating it.
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage replay: %v", err)
	}
	if mirror.Len() != 1 {
		t.Errorf("mirror holds %d rows after replay, want 1", mirror.Len())
	}
}

func TestHandleMessageDelete(t *testing.T) {
	store := storage.NewMemoryStore()
	mirror := memory.New()
	w := NewMirrorWorker(store, mirror)

	e := storedExpense(t, store)
	if err := w.HandleMessage(context.Background(), amqp.NewMirrorMessage(e.ID, e.OwnerID, amqp.OpUpsert)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := w.HandleMessage(context.Background(), amqp.NewMirrorMessage(e.ID, e.OwnerID, amqp.OpDelete)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mirror.Len() != 0 {
		t.Errorf("mirror holds %d rows after delete, want 0", mirror.Len())
	}
}

func TestHandleMessageUpsertOfDeletedExpense(t *testing.T) {
	store := storage.NewMemoryStore()
	mirror := memory.New()
	w := NewMirrorWorker(store, mirror)

	e := storedExpense(t, store)
	if err := w.HandleMessage(context.Background(), amqp.NewMirrorMessage(e.ID, e.OwnerID, amqp.OpUpsert)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.DeleteExpense(context.Background(), e.OwnerID, e.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}

	// Stale upsert arrives after the store delete: the row must go away.
	if err := w.HandleMessage(context.Background(), amqp.NewMirrorMessage(e.ID, e.OwnerID, amqp.OpUpsert)); err != nil {
		t.Fatalf("stale upsert: %v", err)
	}
	if mirror.Len() != 0 {
		t.Errorf("mirror holds %d rows for deleted expense, want 0", mirror.Len())
	}
}
