package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Date is a calendar day; the time component is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is the persisted spending record. ID is assigned by the
	// store on first persist and immutable afterward. Category holds the
	// canonical catalog key, Amount is minor units.
	Expense struct {
		ID          int64
		OwnerID     int64
		Date        Date
		Category    string
		Amount      Money
		Description string
	}
)

var (
	ErrFutureDate        = errors.New("date cannot be in the future")
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrEmptyDescription  = errors.New("description cannot be empty")
	ErrEmptyCategory     = errors.New("category must be selected")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Format renders the date as YYYY-MM-DD, the storage form.
func (d Date) Format() string {
	return d.Time.Format("2006-01-02")
}

// ValidateExpenseFields applies the field checks shared by manual entry
// and CSV import, in a fixed order: date, amount, description, category.
// The first violated check wins; later violations never mask it.
// Catalog membership is the caller's concern.
func ValidateExpenseFields(date Date, amount Money, description, category string) error {
	if date.Time.After(time.Now()) {
		return ErrFutureDate
	}
	if amount.Cents <= 0 {
		return ErrNonPositiveAmount
	}
	if len(strings.TrimSpace(description)) == 0 {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (e Expense) Validate() error {
	return ValidateExpenseFields(e.Date, e.Amount, e.Description, e.Category)
}
