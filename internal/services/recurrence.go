package services

import (
	"fmt"
	"time"

	"spendwise/internal/core"
)

// duenessChecker decides whether a recurring template should fire,
// given when it last fired. One implementation per frequency.
type duenessChecker interface {
	IsDue(lastRun, now time.Time, startDate core.Date) bool
}

type dailyChecker struct{}

func (dailyChecker) IsDue(lastRun, now time.Time, _ core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	return lastRun.Format("2006-01-02") != now.Format("2006-01-02")
}

type weeklyChecker struct{}

func (weeklyChecker) IsDue(lastRun, now time.Time, _ core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	return now.Sub(lastRun).Hours()/24 >= 7
}

type monthlyChecker struct{}

// IsDue fires once per month, on the start date's day of the month.
// When the anchor day does not exist in the current month (say the
// 31st in February), the last day of the month substitutes.
func (monthlyChecker) IsDue(lastRun, now time.Time, startDate core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	if lastRun.Year() == now.Year() && lastRun.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(startDate.Day(), now)
}

type yearlyChecker struct{}

func (yearlyChecker) IsDue(lastRun, now time.Time, startDate core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	if lastRun.Year() == now.Year() {
		return false
	}
	switch {
	case int(now.Month()) < startDate.Month():
		return false
	case int(now.Month()) == startDate.Month():
		return now.Day() >= clampDay(startDate.Day(), now)
	default:
		return true
	}
}

// clampDay caps a target day of month to the length of now's month.
func clampDay(day int, now time.Time) int {
	last := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

var duenessCheckers = map[core.Frequency]duenessChecker{
	core.Daily:   dailyChecker{},
	core.Weekly:  weeklyChecker{},
	core.Monthly: monthlyChecker{},
	core.Yearly:  yearlyChecker{},
}

func checkerFor(frequency core.Frequency) (duenessChecker, error) {
	checker, ok := duenessCheckers[frequency]
	if !ok {
		return nil, fmt.Errorf("%w %q", core.ErrUnknownFrequency, frequency)
	}
	return checker, nil
}
