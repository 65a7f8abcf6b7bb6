package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/currency"
)

const (
	// EUR is the quotation base of every ECB reference rate.
	EUR = "EUR"
	// DefaultBaseCurrency is the application base used when none is configured.
	DefaultBaseCurrency = "GBP"

	dateLayout      = "2006-01-02"
	yearMonthLayout = "2006-01"
)

type (
	// RawRate is one ECB quote: units of CurrencyCode per 1 EUR on Date.
	RawRate struct {
		Date         time.Time
		CurrencyCode string
		EURRate      float64
	}

	// TriangulatedRate expresses CurrencyCode per 1 unit of BaseCurrency.
	TriangulatedRate struct {
		Date         time.Time
		CurrencyCode string
		BaseCurrency string
		Rate         float64
	}

	// YearMonth identifies a calendar month.
	YearMonth struct {
		Year  int
		Month time.Month
	}

	// RateConfig carries the caller's selection into the pipeline.
	RateConfig struct {
		BaseCurrency string
		Currencies   []string
		CoverageFrom time.Time
		CoverageTo   time.Time
	}

	// ApplicationCurrency is a currency configured for reporting and export.
	ApplicationCurrency struct {
		Code    string
		Name    string
		Active  bool
		AddedAt time.Time
	}
)

var (
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidRate     = errors.New("invalid rate")
	ErrInvalidMonth    = errors.New("invalid year-month")
	ErrEmptySelection  = errors.New("no currencies selected")
)

// NewYearMonth builds a YearMonth, validating the month range.
func NewYearMonth(year, month int) (YearMonth, error) {
	if month < 1 || month > 12 || year < 1999 || year > 9999 {
		return YearMonth{}, fmt.Errorf("%w: %04d-%02d", ErrInvalidMonth, year, month)
	}
	return YearMonth{Year: year, Month: time.Month(month)}, nil
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(yearMonthLayout, strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// YearMonthOf returns the month containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Label renders the month for humans, e.g. "September 2024".
func (ym YearMonth) Label() string {
	return fmt.Sprintf("%s %d", ym.Month.String(), ym.Year)
}

// EPMPeriod renders the OneStream time member, e.g. "2024M09".
func (ym YearMonth) EPMPeriod() string {
	return fmt.Sprintf("%dM%02d", ym.Year, int(ym.Month))
}

// FirstDay returns the first calendar day of the month in UTC.
func (ym YearMonth) FirstDay() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following month.
func (ym YearMonth) Next() YearMonth {
	return YearMonthOf(ym.FirstDay().AddDate(0, 1, 0))
}

// Prev returns the preceding month.
func (ym YearMonth) Prev() YearMonth {
	return YearMonthOf(ym.FirstDay().AddDate(0, -1, 0))
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// Quarter returns 1..4.
func (ym YearMonth) Quarter() int {
	return (int(ym.Month)-1)/3 + 1
}

// MonthsBetween lists every month from 'from' to 'to' inclusive.
func MonthsBetween(from, to YearMonth) []YearMonth {
	var out []YearMonth
	for m := from; !to.Before(m); m = m.Next() {
		out = append(out, m)
	}
	return out
}

// NormalizeCurrency upper-cases and validates an ISO 4217 code.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	if _, err := currency.ParseISO(code); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return code, nil
}

// ParseDate parses an ISO 8601 calendar date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// DateOnly truncates t to UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r RawRate) Validate() error {
	if r.Date.IsZero() {
		return ErrInvalidDate
	}
	if _, err := NormalizeCurrency(r.CurrencyCode); err != nil {
		return err
	}
	if r.EURRate <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRate, r.EURRate)
	}
	return nil
}

// Normalized returns a copy of the config with codes validated, upper-cased
// and de-duplicated in order. The base currency defaults to GBP.
func (c RateConfig) Normalized() (RateConfig, error) {
	out := c
	base := c.BaseCurrency
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseCurrency
	}
	var err error
	if out.BaseCurrency, err = NormalizeCurrency(base); err != nil {
		return RateConfig{}, fmt.Errorf("base currency: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Currencies))
	out.Currencies = make([]string, 0, len(c.Currencies))
	for _, code := range c.Currencies {
		norm, err := NormalizeCurrency(code)
		if err != nil {
			return RateConfig{}, err
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out.Currencies = append(out.Currencies, norm)
	}
	return out, nil
}

// Covers reports whether d lies inside the configured coverage range.
// Zero bounds are open.
func (c RateConfig) Covers(d time.Time) bool {
	if !c.CoverageFrom.IsZero() && d.Before(c.CoverageFrom) {
		return false
	}
	if !c.CoverageTo.IsZero() && d.After(c.CoverageTo) {
		return false
	}
	return true
}

// ImportRow is one unvalidated input row as read from a source file.
type ImportRow struct {
	Line         int
	Date         string
	CurrencyCode string
	EURRate      string
}
