package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"spendwise/internal/auth"
	"spendwise/internal/core"
)

// MemoryStore is an in-process ExpenseStore and auth.Storage used as
// the dev backend and as the service-level test double. Query semantics
// mirror the SQLite repository: month windows are inclusive, category
// sums order descending by total, averages descending by mean.
type MemoryStore struct {
	mu        sync.Mutex
	expenses  []core.Expense
	recurring []core.RecurringExpense
	users     []auth.User
	sessions  []auth.Session
	nextExp   int64
	nextRec   int64
	nextUser  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextExp: 1, nextRec: 1, nextUser: 1}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) CreateExpense(ctx context.Context, e *core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.nextExp
	m.nextExp++
	m.expenses = append(m.expenses, *e)
	return nil
}

func (m *MemoryStore) GetExpense(ctx context.Context, ownerID, id int64) (core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.expenses {
		if e.ID == id && e.OwnerID == ownerID {
			return e, nil
		}
	}
	return core.Expense{}, ErrNotFound
}

func (m *MemoryStore) UpdateExpense(ctx context.Context, e core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.expenses {
		if cur.ID == e.ID && cur.OwnerID == e.OwnerID {
			m.expenses[i] = e
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) DeleteExpense(ctx context.Context, ownerID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.expenses {
		if cur.ID == id && cur.OwnerID == ownerID {
			m.expenses = append(m.expenses[:i], m.expenses[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) matching(w Window) []core.Expense {
	var out []core.Expense
	for _, e := range m.expenses {
		if e.OwnerID != w.OwnerID {
			continue
		}
		if w.Year != 0 && (e.Date.Year() != w.Year || e.Date.Month() != w.Month) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m *MemoryStore) ListExpenses(ctx context.Context, w Window, offset, limit int) ([]core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := m.matching(w)
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date.Time) {
			return matched[i].Date.After(matched[j].Date.Time)
		}
		return matched[i].ID > matched[j].ID
	})
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MemoryStore) CountExpenses(ctx context.Context, w Window) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.matching(w))), nil
}

func (m *MemoryStore) SumAmounts(ctx context.Context, w Window) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, e := range m.matching(w) {
		total += e.Amount.Cents
	}
	return total, nil
}

func (m *MemoryStore) SumAmountsByCategory(ctx context.Context, w Window) ([]CategoryTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sums := make(map[string]int64)
	for _, e := range m.matching(w) {
		sums[e.Category] += e.Amount.Cents
	}
	totals := make([]CategoryTotal, 0, len(sums))
	for category, cents := range sums {
		totals = append(totals, CategoryTotal{Category: category, TotalCents: cents})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].TotalCents != totals[j].TotalCents {
			return totals[i].TotalCents > totals[j].TotalCents
		}
		return totals[i].Category < totals[j].Category
	})
	return totals, nil
}

func (m *MemoryStore) AverageAmountsByCategory(ctx context.Context, w Window) ([]CategoryAverage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sums := make(map[string]int64)
	counts := make(map[string]int64)
	for _, e := range m.matching(w) {
		sums[e.Category] += e.Amount.Cents
		counts[e.Category]++
	}
	averages := make([]CategoryAverage, 0, len(sums))
	for category, cents := range sums {
		averages = append(averages, CategoryAverage{
			Category:     category,
			AverageCents: float64(cents) / float64(counts[category]),
			Count:        counts[category],
		})
	}
	sort.Slice(averages, func(i, j int) bool {
		if averages[i].AverageCents != averages[j].AverageCents {
			return averages[i].AverageCents > averages[j].AverageCents
		}
		return averages[i].Category < averages[j].Category
	})
	return averages, nil
}

func (m *MemoryStore) ListExpenditureYears(ctx context.Context, ownerID int64) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[int]bool)
	for _, e := range m.expenses {
		if e.OwnerID == ownerID {
			seen[e.Date.Year()] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

// stagedWriter buffers creates so WithTx can commit or discard them as
// one unit, mirroring the SQLite transaction boundary.
type stagedWriter struct {
	store  *MemoryStore
	staged []*core.Expense
}

func (s *stagedWriter) CreateExpense(ctx context.Context, e *core.Expense) error {
	s.store.mu.Lock()
	e.ID = s.store.nextExp
	s.store.nextExp++
	s.store.mu.Unlock()
	s.staged = append(s.staged, e)
	return nil
}

func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx ExpenseWriter) error) error {
	staged := &stagedWriter{store: m}
	if err := fn(staged); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range staged.staged {
		m.expenses = append(m.expenses, *e)
	}
	return nil
}

// --- auth.Storage ---

func (m *MemoryStore) CreateUser(ctx context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.nextUser
	m.nextUser++
	m.users = append(m.users, *u)
	return nil
}

func (m *MemoryStore) GetUserByUsername(ctx context.Context, username string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrUnknownUser
}

func (m *MemoryStore) CreateSession(ctx context.Context, s auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *MemoryStore) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Token == token {
			return s, nil
		}
	}
	return auth.Session{}, auth.ErrSessionNotFound
}

func (m *MemoryStore) DeleteSession(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sessions {
		if s.Token == token {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) CreateRecurringExpense(ctx context.Context, re *core.RecurringExpense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	re.ID = m.nextRec
	m.nextRec++
	m.recurring = append(m.recurring, *re)
	return nil
}

func (m *MemoryStore) GetRecurringExpense(ctx context.Context, ownerID, id int64) (core.RecurringExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, re := range m.recurring {
		if re.ID == id && re.OwnerID == ownerID {
			return re, nil
		}
	}
	return core.RecurringExpense{}, ErrNotFound
}

func (m *MemoryStore) ListRecurringExpenses(ctx context.Context, ownerID int64) ([]core.RecurringExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.RecurringExpense
	for _, re := range m.recurring {
		if re.OwnerID == ownerID {
			out = append(out, re)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListActiveRecurringExpenses(ctx context.Context) ([]core.RecurringExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.RecurringExpense
	for _, re := range m.recurring {
		if re.Active {
			out = append(out, re)
		}
	}
	return out, nil
}

func (m *MemoryStore) SetRecurringActive(ctx context.Context, ownerID, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, re := range m.recurring {
		if re.ID == id && re.OwnerID == ownerID {
			m.recurring[i].Active = active
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) DeleteRecurringExpense(ctx context.Context, ownerID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, re := range m.recurring {
		if re.ID == id && re.OwnerID == ownerID {
			m.recurring = append(m.recurring[:i], m.recurring[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) MarkRecurringRun(ctx context.Context, id int64, ranAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, re := range m.recurring {
		if re.ID == id {
			m.recurring[i].LastRun = ranAt
			return nil
		}
	}
	return ErrNotFound
}
