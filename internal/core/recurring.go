package core

import (
	"errors"
	"fmt"
	"time"
)

// Frequency is how often a recurring expense template fires.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

var ErrUnknownFrequency = errors.New("unknown frequency")

// ParseFrequency maps external input onto a known Frequency.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case Daily, Weekly, Monthly, Yearly:
		return Frequency(s), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownFrequency, s)
}

// RecurringExpense is a template that spawns real expenses on a
// schedule. StartDate anchors the day-of-month (and month, for yearly
// templates); LastRun is zero until the first expense is created.
type RecurringExpense struct {
	ID          int64
	OwnerID     int64
	Category    string
	Amount      Money
	Description string
	Frequency   Frequency
	StartDate   Date
	Active      bool
	LastRun     time.Time
}

// Validate checks the template fields. Unlike an expense, the start
// date may be in the future: the template simply stays dormant until
// it arrives.
func (r RecurringExpense) Validate() error {
	if r.Amount.Cents <= 0 {
		return ErrNonPositiveAmount
	}
	if len(r.Description) == 0 {
		return ErrEmptyDescription
	}
	if r.Category == "" {
		return ErrEmptyCategory
	}
	if _, err := ParseFrequency(string(r.Frequency)); err != nil {
		return err
	}
	return nil
}
