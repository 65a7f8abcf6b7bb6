package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyMonth marks a month in which no working day could be triangulated.
// Summaries never return it; it is reported through DataQualityIncomplete.
var ErrEmptyMonth = errors.New("no rates for month")

// MalformedRowError describes an import row that failed validation.
type MalformedRowError struct {
	Line   int
	Field  string
	Reason string
}

func (e *MalformedRowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Reason)
}

// MissingRateError reports that no quote exists for a currency on a date.
type MissingRateError struct {
	Date     time.Time
	Currency string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("missing %s rate on %s", e.Currency, FormatDate(e.Date))
}

// InvalidRateError reports a stored quote that cannot be divided by.
type InvalidRateError struct {
	Date     time.Time
	Currency string
	Rate     float64
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("invalid %s rate %v on %s", e.Currency, e.Rate, FormatDate(e.Date))
}

// IsMissingRate reports whether err wraps a MissingRateError.
func IsMissingRate(err error) bool {
	var m *MissingRateError
	return errors.As(err, &m)
}

// IsInvalidRate reports whether err wraps an InvalidRateError.
func IsInvalidRate(err error) bool {
	var inv *InvalidRateError
	return errors.As(err, &inv)
}
