package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spendwise/internal/core"
)

// RecurringStore persists recurring expense templates. The scheduler
// reads across owners; everything else is owner-scoped.
type RecurringStore interface {
	CreateRecurringExpense(ctx context.Context, r *core.RecurringExpense) error
	GetRecurringExpense(ctx context.Context, ownerID, id int64) (core.RecurringExpense, error)
	ListRecurringExpenses(ctx context.Context, ownerID int64) ([]core.RecurringExpense, error)
	// ListActiveRecurringExpenses returns active templates for all
	// owners, the scheduler's work list.
	ListActiveRecurringExpenses(ctx context.Context) ([]core.RecurringExpense, error)
	SetRecurringActive(ctx context.Context, ownerID, id int64, active bool) error
	DeleteRecurringExpense(ctx context.Context, ownerID, id int64) error
	// MarkRecurringRun records that a template fired at ranAt.
	MarkRecurringRun(ctx context.Context, id int64, ranAt time.Time) error
}

const lastRunLayout = time.RFC3339

func (r *SQLiteRepository) CreateRecurringExpense(ctx context.Context, re *core.RecurringExpense) error {
	lastRun := ""
	if !re.LastRun.IsZero() {
		lastRun = re.LastRun.UTC().Format(lastRunLayout)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_expenses (owner_id, category, amount_cents, description, frequency, start_date, active, last_run)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		re.OwnerID, re.Category, re.Amount.Cents, re.Description, string(re.Frequency),
		re.StartDate.Format(), re.Active, lastRun)
	if err != nil {
		return fmt.Errorf("insert recurring expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("recurring expense insert id: %w", err)
	}
	re.ID = id
	return nil
}

const recurringColumns = `id, owner_id, category, amount_cents, description, frequency, start_date, active, last_run`

func scanRecurring(row rowScanner) (core.RecurringExpense, error) {
	var re core.RecurringExpense
	var freq, startDate, lastRun string
	err := row.Scan(&re.ID, &re.OwnerID, &re.Category, &re.Amount.Cents, &re.Description,
		&freq, &startDate, &re.Active, &lastRun)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringExpense{}, ErrNotFound
	}
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("scan recurring expense: %w", err)
	}
	re.Frequency = core.Frequency(freq)
	t, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("parse stored start date %q: %w", startDate, err)
	}
	re.StartDate = core.Date{Time: t}
	if lastRun != "" {
		ran, err := time.Parse(lastRunLayout, lastRun)
		if err != nil {
			return core.RecurringExpense{}, fmt.Errorf("parse stored last run %q: %w", lastRun, err)
		}
		re.LastRun = ran
	}
	return re, nil
}

func (r *SQLiteRepository) GetRecurringExpense(ctx context.Context, ownerID, id int64) (core.RecurringExpense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanRecurring(row)
}

func (r *SQLiteRepository) queryRecurring(ctx context.Context, query string, args ...any) ([]core.RecurringExpense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recurring expenses: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringExpense
	for rows.Next() {
		re, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListRecurringExpenses(ctx context.Context, ownerID int64) ([]core.RecurringExpense, error) {
	return r.queryRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE owner_id = ? ORDER BY id`, ownerID)
}

func (r *SQLiteRepository) ListActiveRecurringExpenses(ctx context.Context) ([]core.RecurringExpense, error) {
	return r.queryRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE active = 1 ORDER BY id`)
}

func (r *SQLiteRepository) SetRecurringActive(ctx context.Context, ownerID, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET active = ? WHERE id = ? AND owner_id = ?`, active, id, ownerID)
	if err != nil {
		return fmt.Errorf("update recurring expense: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteRecurringExpense(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_expenses WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) MarkRecurringRun(ctx context.Context, id int64, ranAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET last_run = ? WHERE id = ?`,
		ranAt.UTC().Format(lastRunLayout), id)
	if err != nil {
		return fmt.Errorf("mark recurring run: %w", err)
	}
	return requireRow(res)
}
