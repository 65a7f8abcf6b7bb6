// Package core holds the FX domain: ECB quotes, triangulated rates, monthly
// summaries and the errors raised while deriving them.
package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseRate parses a positive decimal rate. Both dot and comma separators are
// accepted; "N/A" and empty cells are rejected.
func ParseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "N/A") {
		return 0, fmt.Errorf("%w: empty", ErrInvalidRate)
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: %s is not positive", ErrInvalidRate, d.String())
	}
	f, _ := d.Float64()
	return f, nil
}

// FormatRate renders a rate with six decimals.
func FormatRate(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(6)
}

// FormatPercent renders a percentage with two decimals.
func FormatPercent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatOptional renders a nullable value with the given formatter, or "".
func FormatOptional(v *float64, format func(float64) string) string {
	if v == nil {
		return ""
	}
	return format(*v)
}

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// QuoteSource resolves the EUR quote of a currency on a date.
type QuoteSource interface {
	EURRate(date time.Time, code string) (float64, bool)
}

// RateTable is an in-memory QuoteSource keyed by date then currency.
// EUR resolves to 1.0 on any date that carries at least one quote.
type RateTable struct {
	byDate map[time.Time]map[string]float64
}

// NewRateTable indexes raw rates. Later duplicates replace earlier ones.
func NewRateTable(rates []RawRate) *RateTable {
	t := &RateTable{byDate: make(map[time.Time]map[string]float64)}
	for _, r := range rates {
		t.Add(r)
	}
	return t
}

// Add inserts or replaces a quote.
func (t *RateTable) Add(r RawRate) {
	d := DateOnly(r.Date)
	day, ok := t.byDate[d]
	if !ok {
		day = make(map[string]float64)
		t.byDate[d] = day
	}
	day[strings.ToUpper(r.CurrencyCode)] = r.EURRate
}

func (t *RateTable) EURRate(date time.Time, code string) (float64, bool) {
	day, ok := t.byDate[DateOnly(date)]
	if !ok || len(day) == 0 {
		return 0, false
	}
	if code == EUR {
		return 1.0, true
	}
	v, ok := day[code]
	return v, ok
}

// Dates lists the quoted dates in ascending order.
func (t *RateTable) Dates() []time.Time {
	out := make([]time.Time, 0, len(t.byDate))
	for d := range t.byDate {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Len returns the number of quoted dates.
func (t *RateTable) Len() int { return len(t.byDate) }

// SortRawRates orders rates by date ascending, then currency code.
func SortRawRates(rates []RawRate) {
	sort.SliceStable(rates, func(i, j int) bool {
		if !rates[i].Date.Equal(rates[j].Date) {
			return rates[i].Date.Before(rates[j].Date)
		}
		return rates[i].CurrencyCode < rates[j].CurrencyCode
	})
}
