package services

import (
	"context"
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"spendwise/internal/catalog"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// ErrEmptyInput is returned when an uploaded CSV carries no rows at all,
// not even a header.
var ErrEmptyInput = errors.New("csv input is empty")

// Accepted date layouts for CSV rows, tried in order.
var csvDateLayouts = []string{"2006-01-02", "2006/01/02", "02.01.2006"}

// ImportOutcome reports what a batch import did. Imported plus Skipped
// covers every non-blank data row in the file.
type ImportOutcome struct {
	Imported int
	Skipped  int
}

// ImportService loads expenses from CSV batches. Row-level problems
// (bad dates, unknown categories, duplicates) skip the row and keep
// going; infrastructure failures abort and roll back the whole batch.
type ImportService struct {
	store   storage.ExpenseStore
	catalog *catalog.Catalog
}

func NewImportService(store storage.ExpenseStore, cat *catalog.Catalog) *ImportService {
	return &ImportService{store: store, catalog: cat}
}

// ImportCSV reads expense rows for one owner inside a single
// transaction. The first line is always treated as a header and
// discarded. Expected columns: date, amount, description, category.
func (s *ImportService) ImportCSV(ctx context.Context, ownerID int64, input io.Reader) (ImportOutcome, error) {
	reader := csv.NewReader(input)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// Header first, before any transaction is opened. No header means
	// an empty file.
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return ImportOutcome{}, ErrEmptyInput
		}
		return ImportOutcome{}, fmt.Errorf("read csv header: %w", err)
	}

	var outcome ImportOutcome
	seen := make(map[string]bool)

	err := s.store.WithTx(ctx, func(tx storage.ExpenseWriter) error {
		line := 0 // 1-based data row number, header excluded
		for {
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read csv row: %w", err)
			}
			line++

			if isBlankRow(record) {
				continue
			}
			if len(record) < 4 {
				outcome.Skipped++
				slog.WarnContext(ctx, "Skipping csv row",
					"line", line, "reason", fmt.Sprintf("expected 4 fields, got %d", len(record)))
				continue
			}

			// Fingerprint the raw fields before any normalization so
			// re-uploads of the same file match byte for byte. A row is
			// only marked seen once it persists, so a duplicate of a
			// skipped row gets its own chance.
			fingerprint := rowFingerprint(record[0], record[1], record[2], record[3])
			if seen[fingerprint] {
				outcome.Skipped++
				slog.WarnContext(ctx, "Skipping duplicate csv row", "line", line)
				continue
			}

			expense, err := s.parseRow(ownerID, record)
			if err != nil {
				outcome.Skipped++
				slog.WarnContext(ctx, "Skipping csv row", "line", line, "reason", err)
				continue
			}

			if err := tx.CreateExpense(ctx, &expense); err != nil {
				return fmt.Errorf("persist row %d: %w", line, err)
			}
			seen[fingerprint] = true
			outcome.Imported++
		}
	})
	if err != nil {
		return ImportOutcome{}, err
	}

	slog.InfoContext(ctx, "CSV import finished",
		"owner_id", ownerID,
		"imported", outcome.Imported,
		"skipped", outcome.Skipped)
	return outcome, nil
}

// isBlankRow reports whether a record is an empty or whitespace-only
// line. Blank lines are dropped without counting as a skip.
func isBlankRow(record []string) bool {
	if len(record) == 0 {
		return true
	}
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}

func (s *ImportService) parseRow(ownerID int64, record []string) (core.Expense, error) {
	rawDate := strings.TrimSpace(record[0])
	rawAmount := strings.TrimSpace(record[1])
	description := strings.TrimSpace(record[2])
	rawCategory := strings.TrimSpace(record[3])

	category, ok := s.catalog.Normalize(rawCategory)
	if !ok {
		return core.Expense{}, fmt.Errorf("unknown category %q", rawCategory)
	}

	if rawDate == "" || rawAmount == "" {
		return core.Expense{}, errors.New("missing date or amount")
	}

	date, err := parseCSVDate(rawDate)
	if err != nil {
		return core.Expense{}, err
	}

	cents, err := core.ParseDecimalToCents(rawAmount)
	if err != nil {
		return core.Expense{}, err
	}

	amount := core.Money{Cents: cents}
	if err := core.ValidateExpenseFields(date, amount, description, category.Key); err != nil {
		return core.Expense{}, err
	}

	return core.Expense{
		OwnerID:     ownerID,
		Date:        date,
		Category:    category.Key,
		Amount:      amount,
		Description: description,
	}, nil
}

func parseCSVDate(raw string) (core.Date, error) {
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return core.Date{Time: t}, nil
		}
	}
	return core.Date{}, fmt.Errorf("unparseable date %q", raw)
}

func rowFingerprint(date, amount, description, category string) string {
	sum := md5.Sum([]byte(date + "|" + amount + "|" + description + "|" + category))
	return hex.EncodeToString(sum[:])
}
