package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"spendwise/internal/catalog"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

const csvHeader = "date,amount,description,category\n"

func newImporter(store storage.ExpenseStore) *ImportService {
	return NewImportService(store, catalog.Default())
}

func TestImportCSVEmptyInput(t *testing.T) {
	store := storage.NewMemoryStore()
	_, err := newImporter(store).ImportCSV(context.Background(), 1, strings.NewReader(""))
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("got %v, want ErrEmptyInput", err)
	}
}

func TestImportCSVHeaderOnly(t *testing.T) {
	store := storage.NewMemoryStore()
	outcome, err := newImporter(store).ImportCSV(context.Background(), 1, strings.NewReader(csvHeader))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if outcome.Imported != 0 || outcome.Skipped != 0 {
		t.Errorf("got %+v, want zero outcome", outcome)
	}
}

func TestImportCSVHappyPath(t *testing.T) {
	store := storage.NewMemoryStore()
	input := csvHeader +
		"2024-03-01,\"45,90\",Lunch groceries,Groceries\n" +
		"2024/03/02,12.50,Bus ticket,Transport\n" +
		"03.03.2024,9.99,Cinema,Entertainment\n"

	outcome, err := newImporter(store).ImportCSV(context.Background(), 1, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if outcome.Imported != 3 || outcome.Skipped != 0 {
		t.Fatalf("got %+v, want 3 imported, 0 skipped", outcome)
	}

	expenses, err := store.ListExpenses(context.Background(), storage.Window{OwnerID: 1, Year: 2024, Month: 3}, 0, 10)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(expenses) != 3 {
		t.Fatalf("got %d stored expenses, want 3", len(expenses))
	}

	byCategory := make(map[string]core.Expense)
	for _, e := range expenses {
		byCategory[e.Category] = e
	}
	if got := byCategory["groceries"].Amount.Cents; got != 4590 {
		t.Errorf("groceries amount = %d cents, want 4590", got)
	}
	if got := byCategory["transport"].Date.Format(); got != "2024-03-02" {
		t.Errorf("transport date = %s, want 2024-03-02", got)
	}
	if got := byCategory["entertainment"].Date.Format(); got != "2024-03-03" {
		t.Errorf("entertainment date = %s, want 2024-03-03", got)
	}
}

func TestImportCSVDuplicateRows(t *testing.T) {
	store := storage.NewMemoryStore()
	input := csvHeader +
		"2024-03-01,10.00,Coffee,Groceries\n" +
		"2024-03-01,10.00,Coffee,Groceries\n" +
		"2024-03-02,10.00,Coffee,Groceries\n"

	outcome, err := newImporter(store).ImportCSV(context.Background(), 1, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if outcome.Imported != 2 || outcome.Skipped != 1 {
		t.Errorf("got %+v, want 2 imported, 1 skipped", outcome)
	}
}

func TestImportCSVDuplicateOfSkippedRowIsRetried(t *testing.T) {
	store := storage.NewMemoryStore()
	// Row 1 fails validation (future date), so its fingerprint is never
	// marked seen and row 2 is judged on its own merits.
	future := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	input := csvHeader +
		future + ",10.00,Crystal ball,Groceries\n" +
		future + ",10.00,Crystal ball,Groceries\n"

	outcome, err := newImporter(store).ImportCSV(context.Background(), 1, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if outcome.Imported != 0 || outcome.Skipped != 2 {
		t.Errorf("got %+v, want 0 imported, 2 skipped", outcome)
	}
}

func TestImportCSVRowLevelSkips(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"too few fields", "2024-03-01,10.00\n"},
		{"unknown category", "2024-03-01,10.00,Mystery,Cryptocurrency\n"},
		{"unparseable date", "March 1st,10.00,Coffee,Groceries\n"},
		{"unparseable amount", "2024-03-01,ten,Coffee,Groceries\n"},
		{"zero amount", "2024-03-01,0.00,Coffee,Groceries\n"},
		{"negative amount", "2024-03-01,-5.00,Coffee,Groceries\n"},
		{"empty description", "2024-03-01,10.00, ,Groceries\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			input := csvHeader + tt.row + "2024-03-02,5.00,Bread,Groceries\n"

			outcome, err := newImporter(store).ImportCSV(context.Background(), 1, strings.NewReader(input))
			if err != nil {
				t.Fatalf("ImportCSV: %v", err)
			}
			if outcome.Imported != 1 || outcome.Skipped != 1 {
				t.Errorf("got %+v, want 1 imported, 1 skipped", outcome)
			}
		})
	}
}

func TestImportCSVBlankLinesNotCounted(t *testing.T) {
	store := storage.NewMemoryStore()
	input := csvHeader +
		"2024-03-01,10.00,Coffee,Groceries\n" +
		"\n" +
		"   \n" +
		"2024-03-02,5.00,Bread,Groceries\n"

	outcome, err := newImporter(store).ImportCSV(context.Background(), 1, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if outcome.Imported != 2 || outcome.Skipped != 0 {
		t.Errorf("got %+v, want 2 imported, 0 skipped", outcome)
	}
}

func TestImportCSVCategoryAliases(t *testing.T) {
	store := storage.NewMemoryStore()
	input := csvHeader +
		"2024-03-01,10.00,Weekly shop,SUPERMARKET\n" +
		"2024-03-02,5.00,Metro,commute\n"

	outcome, err := newImporter(store).ImportCSV(context.Background(), 1, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if outcome.Imported != 2 {
		t.Fatalf("got %+v, want 2 imported", outcome)
	}

	expenses, _ := store.ListExpenses(context.Background(), storage.Window{OwnerID: 1, Year: 2024, Month: 3}, 0, 10)
	categories := make(map[string]bool)
	for _, e := range expenses {
		categories[e.Category] = true
	}
	if !categories["groceries"] || !categories["transport"] {
		t.Errorf("stored categories = %v, want canonical groceries and transport", categories)
	}
}

// failingStore makes the Nth persisted row fail so the whole batch must
// roll back.
type failingStore struct {
	*storage.MemoryStore
	failOn int
}

type failingWriter struct {
	inner  storage.ExpenseWriter
	writes *int
	failOn int
}

func (w *failingWriter) CreateExpense(ctx context.Context, e *core.Expense) error {
	*w.writes++
	if *w.writes == w.failOn {
		return errors.New("disk full")
	}
	return w.inner.CreateExpense(ctx, e)
}

func (s *failingStore) WithTx(ctx context.Context, fn func(tx storage.ExpenseWriter) error) error {
	writes := 0
	return s.MemoryStore.WithTx(ctx, func(tx storage.ExpenseWriter) error {
		return fn(&failingWriter{inner: tx, writes: &writes, failOn: s.failOn})
	})
}

func TestImportCSVInfrastructureFailureRollsBack(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), failOn: 3}
	input := csvHeader +
		"2024-03-01,10.00,Coffee,Groceries\n" +
		"2024-03-02,5.00,Bread,Groceries\n" +
		"2024-03-03,7.00,Milk,Groceries\n"

	_, err := newImporter(store).ImportCSV(context.Background(), 1, strings.NewReader(input))
	if err == nil {
		t.Fatal("expected infrastructure error")
	}

	count, cerr := store.CountExpenses(context.Background(), storage.Window{OwnerID: 1, Year: 2024, Month: 3})
	if cerr != nil {
		t.Fatalf("CountExpenses: %v", cerr)
	}
	if count != 0 {
		t.Errorf("count after failed batch = %d, want 0 (no partial import)", count)
	}
}
