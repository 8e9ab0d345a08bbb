// Package budget holds the per-category monthly spending thresholds.
// The table is loaded once from configuration at startup and read-only
// at runtime; a category without an entry has no budget enforced.
package budget

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"spendwise/internal/core"
)

// Table maps canonical category keys to monthly thresholds in cents.
type Table struct {
	limits map[string]int64
}

// Parse decodes a JSON document of the form
//
//	{"groceries": 200.00, "transport": 80}
//
// with thresholds in major units. An empty document yields an empty
// table (no budgets enforced anywhere).
func Parse(doc string) (*Table, error) {
	t := &Table{limits: make(map[string]int64)}
	if strings.TrimSpace(doc) == "" {
		return t, nil
	}

	var raw map[string]float64
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return nil, fmt.Errorf("parse category budgets: %w", err)
	}
	for category, threshold := range raw {
		if threshold < 0 {
			return nil, fmt.Errorf("budget for %q is negative", category)
		}
		t.limits[strings.ToLower(category)] = int64(math.Round(threshold * 100))
	}
	return t, nil
}

// Limit returns the monthly threshold for a category, matching the
// canonical key case-insensitively. ok is false when no budget is
// defined for the category.
func (t *Table) Limit(category string) (core.Money, bool) {
	cents, ok := t.limits[strings.ToLower(category)]
	if !ok {
		return core.Money{}, false
	}
	return core.Money{Cents: cents}, true
}

// Categories returns the budgeted category keys, sorted.
func (t *Table) Categories() []string {
	keys := make([]string, 0, len(t.limits))
	for k := range t.limits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len reports how many categories carry a budget.
func (t *Table) Len() int {
	return len(t.limits)
}
