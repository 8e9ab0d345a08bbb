package core

import (
	"errors"
	"testing"
	"time"
)

func yesterday() Date {
	y := time.Now().AddDate(0, 0, -1)
	return NewDate(y.Year(), int(y.Month()), y.Day())
}

func tomorrow() Date {
	tm := time.Now().AddDate(0, 0, 1)
	return NewDate(tm.Year(), int(tm.Month()), tm.Day())
}

func TestValidateExpenseFields(t *testing.T) {
	cases := []struct {
		name     string
		date     Date
		amount   Money
		desc     string
		category string
		want     error
	}{
		{"valid", yesterday(), Money{Cents: 100}, "Lunch", "groceries", nil},
		{"today is valid", NewDate(time.Now().Year(), int(time.Now().Month()), time.Now().Day()), Money{Cents: 1}, "x", "transport", nil},
		{"future date", tomorrow(), Money{Cents: 100}, "Lunch", "groceries", ErrFutureDate},
		{"zero amount", yesterday(), Money{Cents: 0}, "Lunch", "groceries", ErrNonPositiveAmount},
		{"negative amount", yesterday(), Money{Cents: -50}, "Lunch", "groceries", ErrNonPositiveAmount},
		{"blank description", yesterday(), Money{Cents: 100}, "   ", "groceries", ErrEmptyDescription},
		{"blank category", yesterday(), Money{Cents: 100}, "Lunch", " ", ErrEmptyCategory},
		// The checked order is date, amount, description, category: the
		// earliest violation is the one reported.
		{"future date masks bad amount", tomorrow(), Money{Cents: 0}, "", "", ErrFutureDate},
		{"bad amount masks bad description", yesterday(), Money{Cents: 0}, "", "", ErrNonPositiveAmount},
	}
	for _, tc := range cases {
		err := ValidateExpenseFields(tc.date, tc.amount, tc.desc, tc.category)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	e := Expense{
		OwnerID:     1,
		Date:        yesterday(),
		Category:    "groceries",
		Amount:      Money{Cents: 4590},
		Description: "Lunch groceries",
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	e.Amount = Money{}
	if err := e.Validate(); !errors.Is(err, ErrNonPositiveAmount) {
		t.Fatalf("expected ErrNonPositiveAmount, got %v", err)
	}
}

func TestDateFormat(t *testing.T) {
	if got := NewDate(2024, 3, 1).Format(); got != "2024-03-01" {
		t.Fatalf("expected 2024-03-01, got %q", got)
	}
}
