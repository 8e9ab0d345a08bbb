package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// SummaryService turns stored expenses into the monthly aggregation
// view: grand total, per-category totals and averages with rounded
// percentage shares, and the years a picker can offer.
type SummaryService struct {
	store storage.ExpenseStore
	now   func() time.Time
}

func NewSummaryService(store storage.ExpenseStore) *SummaryService {
	return &SummaryService{store: store, now: time.Now}
}

// MonthlySummary aggregates one owner's expenses over a calendar month.
func (s *SummaryService) MonthlySummary(ctx context.Context, ownerID int64, year, month int) (core.MonthlySummary, error) {
	w := storage.Window{OwnerID: ownerID, Year: year, Month: month}

	totalCents, err := s.store.SumAmounts(ctx, w)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("sum amounts: %w", err)
	}

	totals, err := s.categoryTotals(ctx, w)
	if err != nil {
		return core.MonthlySummary{}, err
	}

	averages, err := s.categoryAverages(ctx, w)
	if err != nil {
		return core.MonthlySummary{}, err
	}

	years, err := s.availableYears(ctx, ownerID)
	if err != nil {
		return core.MonthlySummary{}, err
	}

	return core.MonthlySummary{
		Year:             year,
		Month:            month,
		Total:            centsToMajor(totalCents),
		CategoryTotals:   totals,
		CategoryAverages: averages,
		AvailableYears:   years,
	}, nil
}

// categoryTotals computes each category's spend and its rounded share
// of the grand sum. A zero grand sum leaves every percentage at 0.
func (s *SummaryService) categoryTotals(ctx context.Context, w storage.Window) ([]core.CategoryValue, error) {
	rows, err := s.store.SumAmountsByCategory(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("sum amounts by category: %w", err)
	}

	var grand int64
	for _, row := range rows {
		grand += row.TotalCents
	}

	totals := make([]core.CategoryValue, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, core.CategoryValue{
			Category:   row.Category,
			Value:      centsToMajor(row.TotalCents),
			Percentage: share(float64(row.TotalCents), float64(grand)),
		})
	}
	return totals, nil
}

// categoryAverages computes each category's mean spend and its rounded
// share of the weighted mean across all categories, where the weighted
// mean is sum(mean*count)/sum(count).
func (s *SummaryService) categoryAverages(ctx context.Context, w storage.Window) ([]core.CategoryValue, error) {
	rows, err := s.store.AverageAmountsByCategory(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("average amounts by category: %w", err)
	}

	var weightedSum float64
	var totalCount int64
	for _, row := range rows {
		weightedSum += row.AverageCents * float64(row.Count)
		totalCount += row.Count
	}
	var weightedMean float64
	if totalCount > 0 {
		weightedMean = weightedSum / float64(totalCount)
	}

	averages := make([]core.CategoryValue, 0, len(rows))
	for _, row := range rows {
		averages = append(averages, core.CategoryValue{
			Category:   row.Category,
			Value:      row.AverageCents / 100.0,
			Percentage: share(row.AverageCents, weightedMean),
		})
	}
	return averages, nil
}

// availableYears lists the years the owner has expenses in, newest
// first, with the current year always present so a fresh account still
// gets a usable year picker.
func (s *SummaryService) availableYears(ctx context.Context, ownerID int64) ([]int, error) {
	years, err := s.store.ListExpenditureYears(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenditure years: %w", err)
	}

	current := s.now().Year()
	found := false
	for _, y := range years {
		if y == current {
			found = true
			break
		}
	}
	if !found {
		years = append(years, current)
		sort.Sort(sort.Reverse(sort.IntSlice(years)))
	}
	return years, nil
}

func centsToMajor(cents int64) float64 {
	return float64(cents) / 100.0
}

// share is the rounded percentage of part against whole, 0 when the
// denominator is 0.
func share(part, whole float64) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(part / whole * 100))
}
