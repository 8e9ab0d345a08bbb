package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"spendwise/internal/auth"
	"spendwise/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// monthWindow returns the inclusive YYYY-MM-DD bounds of a calendar month.
func monthWindow(year, month int) (string, string) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format("2006-01-02"), last.Format("2006-01-02")
}

// windowClause builds the WHERE tail and args for an owner+window scope.
func windowClause(w Window) (string, []any) {
	clause := " WHERE owner_id = ?"
	args := []any{w.OwnerID}
	if w.Year != 0 {
		start, end := monthWindow(w.Year, w.Month)
		clause += " AND date BETWEEN ? AND ?"
		args = append(args, start, end)
	}
	return clause, args
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e *core.Expense) error {
	return createExpense(ctx, r.db, e)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func createExpense(ctx context.Context, db execer, e *core.Expense) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO expenses (owner_id, date, category, amount_cents, description)
		 VALUES (?, ?, ?, ?, ?)`,
		e.OwnerID, e.Date.Format(), e.Category, e.Amount.Cents, e.Description)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("expense insert id: %w", err)
	}
	e.ID = id
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, ownerID, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, date, category, amount_cents, description
		 FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanExpense(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var dateStr string
	err := row.Scan(&e.ID, &e.OwnerID, &dateStr, &e.Category, &e.Amount.Cents, &e.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	e.Date = core.Date{Time: t}
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		 SET date = ?, category = ?, amount_cents = ?, description = ?
		 WHERE id = ? AND owner_id = ?`,
		e.Date.Format(), e.Category, e.Amount.Cents, e.Description, e.ID, e.OwnerID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, w Window, offset, limit int) ([]core.Expense, error) {
	clause, args := windowClause(w)
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, date, category, amount_cents, description
		 FROM expenses`+clause+` ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) CountExpenses(ctx context.Context, w Window) (int64, error) {
	clause, args := windowClause(w)
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`+clause, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return count, nil
}

func (r *SQLiteRepository) SumAmounts(ctx context.Context, w Window) (int64, error) {
	clause, args := windowClause(w)
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT SUM(amount_cents) FROM expenses`+clause, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum amounts: %w", err)
	}
	return total.Int64, nil
}

func (r *SQLiteRepository) SumAmountsByCategory(ctx context.Context, w Window) ([]CategoryTotal, error) {
	clause, args := windowClause(w)
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents) AS total FROM expenses`+clause+
			` GROUP BY category ORDER BY total DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("sum amounts by category: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var t CategoryTotal
		if err := rows.Scan(&t.Category, &t.TotalCents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (r *SQLiteRepository) AverageAmountsByCategory(ctx context.Context, w Window) ([]CategoryAverage, error) {
	clause, args := windowClause(w)
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, AVG(amount_cents) AS average, COUNT(*) AS count FROM expenses`+clause+
			` GROUP BY category ORDER BY average DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("average amounts by category: %w", err)
	}
	defer rows.Close()

	var averages []CategoryAverage
	for rows.Next() {
		var a CategoryAverage
		if err := rows.Scan(&a.Category, &a.AverageCents, &a.Count); err != nil {
			return nil, fmt.Errorf("scan category average: %w", err)
		}
		averages = append(averages, a)
	}
	return averages, rows.Err()
}

func (r *SQLiteRepository) ListExpenditureYears(ctx context.Context, ownerID int64) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT CAST(strftime('%Y', date) AS INTEGER) AS year
		 FROM expenses WHERE owner_id = ? ORDER BY year DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenditure years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// txWriter scopes expense writes to one open transaction.
type txWriter struct {
	tx *sql.Tx
}

func (w *txWriter) CreateExpense(ctx context.Context, e *core.Expense) error {
	return createExpense(ctx, w.tx, e)
}

func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(tx ExpenseWriter) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&txWriter{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// --- auth.Storage ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, u *auth.User) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		u.Username, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user insert id: %w", err)
	}
	u.ID = id
	return nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (auth.User, error) {
	var u auth.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrUnknownUser
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s auth.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Token,
		s.CreatedAt.UTC().Format(time.RFC3339), s.ExpiresAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	var s auth.Session
	var created, expires string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, created_at, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&s.ID, &s.UserID, &s.Token, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	if err != nil {
		return auth.Session{}, fmt.Errorf("get session: %w", err)
	}
	if s.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return auth.Session{}, fmt.Errorf("parse session created_at: %w", err)
	}
	if s.ExpiresAt, err = time.Parse(time.RFC3339, expires); err != nil {
		return auth.Session{}, fmt.Errorf("parse session expires_at: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
