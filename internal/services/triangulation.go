package services

import (
	"time"

	"fxrates/internal/core"
)

// Triangulator derives cross rates from EUR quotes.
type Triangulator struct {
	quotes core.QuoteSource
}

func NewTriangulator(quotes core.QuoteSource) *Triangulator {
	return &Triangulator{quotes: quotes}
}

// Triangulate returns units of target per 1 unit of base on date.
//
// It fails with *core.MissingRateError when either side has no quote and with
// *core.InvalidRateError when a quote is not positive. target == base is 1.0
// on any date where base itself is quoted.
func (t *Triangulator) Triangulate(date time.Time, target, base string) (float64, error) {
	if target == base {
		if _, ok := t.quotes.EURRate(date, base); !ok {
			return 0, &core.MissingRateError{Date: core.DateOnly(date), Currency: base}
		}
		return 1.0, nil
	}
	baseRate, err := t.quote(date, base)
	if err != nil {
		return 0, err
	}
	targetRate, err := t.quote(date, target)
	if err != nil {
		return 0, err
	}
	return targetRate / baseRate, nil
}

// Rate is Triangulate wrapped into a TriangulatedRate.
func (t *Triangulator) Rate(date time.Time, target, base string) (core.TriangulatedRate, error) {
	v, err := t.Triangulate(date, target, base)
	if err != nil {
		return core.TriangulatedRate{}, err
	}
	return core.TriangulatedRate{
		Date:         core.DateOnly(date),
		CurrencyCode: target,
		BaseCurrency: base,
		Rate:         v,
	}, nil
}

func (t *Triangulator) quote(date time.Time, code string) (float64, error) {
	v, ok := t.quotes.EURRate(date, code)
	if !ok {
		return 0, &core.MissingRateError{Date: core.DateOnly(date), Currency: code}
	}
	if v <= 0 {
		return 0, &core.InvalidRateError{Date: core.DateOnly(date), Currency: code, Rate: v}
	}
	return v, nil
}
