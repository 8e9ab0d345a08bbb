// Package memory is an in-process spreadsheet mirror for development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"spendwise/internal/core"
)

type Store struct {
	mu   sync.Mutex
	rows map[int64]core.Expense
}

func New() *Store {
	return &Store{rows: make(map[int64]core.Expense)}
}

// Append stores the expense keyed by id and returns a synthetic row
// reference. Re-appending an id overwrites the previous row.
func (s *Store) Append(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[e.ID] = e
	return fmt.Sprintf("mem:%d", e.ID), nil
}

func (s *Store) Remove(_ context.Context, expenseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, expenseID)
	return nil
}

// Row returns the mirrored expense for an id, if present.
func (s *Store) Row(expenseID int64) (core.Expense, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[expenseID]
	return e, ok
}

// Len reports how many rows the mirror holds.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
