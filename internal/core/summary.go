package core

// CategoryValue is one entry of a per-category aggregation result.
// Value is in major units; Percentage is rounded to the nearest integer
// against the grand sum (totals) or the weighted mean (averages), and 0
// for every entry when the denominator is 0.
type CategoryValue struct {
	Category   string
	Value      float64
	Percentage int
}

// MonthlySummary is the transient aggregation result for one owner and
// calendar month window.
type MonthlySummary struct {
	Year             int
	Month            int // 1-12
	Total            float64
	CategoryTotals   []CategoryValue
	CategoryAverages []CategoryValue
	AvailableYears   []int
}

// Alert reports a category whose current-month spending exceeds its
// configured budget. Budget, Spent and ExceededBy are major units.
type Alert struct {
	Category   string
	Budget     float64
	Spent      float64
	ExceededBy float64
	Message    string
}
