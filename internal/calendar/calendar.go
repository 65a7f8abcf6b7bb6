// Package calendar enumerates working days.
//
// A working day is any Monday to Friday. Public holidays (TARGET closing
// days included) are not modelled, so a holiday counts as a working day with
// a missing rate and lowers the month's data quality to partial.
package calendar

import (
	"iter"
	"time"

	"github.com/jinzhu/now"

	"fxrates/internal/core"
)

func config() *now.Config {
	return &now.Config{WeekStartDay: time.Monday, TimeLocation: time.UTC}
}

// IsWorkingDay reports whether d falls Monday to Friday.
func IsWorkingDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// MonthBounds returns the first and last calendar day of ym.
func MonthBounds(ym core.YearMonth) (time.Time, time.Time) {
	n := config().With(ym.FirstDay())
	return core.DateOnly(n.BeginningOfMonth()), core.DateOnly(n.EndOfMonth())
}

// QuarterBounds returns the first and last calendar day of the quarter
// containing ym.
func QuarterBounds(ym core.YearMonth) (time.Time, time.Time) {
	n := config().With(ym.FirstDay())
	return core.DateOnly(n.BeginningOfQuarter()), core.DateOnly(n.EndOfQuarter())
}

// WorkingDaysInMonth yields the working days of ym in ascending order.
// The sequence is finite and may be ranged over any number of times.
func WorkingDaysInMonth(ym core.YearMonth) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		first, last := MonthBounds(ym)
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			if !IsWorkingDay(d) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// CountWorkingDays returns the number of working days in ym.
func CountWorkingDays(ym core.YearMonth) int {
	n := 0
	for range WorkingDaysInMonth(ym) {
		n++
	}
	return n
}

// LastWorkingDay returns the final working day of ym.
func LastWorkingDay(ym core.YearMonth) time.Time {
	_, last := MonthBounds(ym)
	for !IsWorkingDay(last) {
		last = last.AddDate(0, 0, -1)
	}
	return last
}

// NextWorkingDay returns the first working day strictly after d.
func NextWorkingDay(d time.Time) time.Time {
	next := core.DateOnly(d).AddDate(0, 0, 1)
	for !IsWorkingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// IsMonthComplete reports whether the last calendar day of ym is before today.
func IsMonthComplete(ym core.YearMonth, today time.Time) bool {
	_, last := MonthBounds(ym)
	return last.Before(core.DateOnly(today))
}

// ExpectedPublication is the day the closing rate of ym becomes available.
func ExpectedPublication(ym core.YearMonth) time.Time {
	_, last := MonthBounds(ym)
	return NextWorkingDay(last)
}
