package services

import "fxrates/internal/core"

const (
	rateDecimals    = 6
	percentDecimals = 2
)

// ComputeVariance returns closing minus average, absolute and relative to
// the average. A missing or zero average yields an Undefined record with
// both variances nil.
func ComputeVariance(s core.MonthlySummary) core.VarianceRecord {
	rec := core.VarianceRecord{
		YearMonth:    s.YearMonth,
		CurrencyCode: s.CurrencyCode,
	}
	if s.AverageRate == nil || *s.AverageRate == 0 || s.ClosingRate == nil {
		rec.Undefined = true
		return rec
	}

	abs := *s.ClosingRate - *s.AverageRate
	pct := abs / *s.AverageRate * 100

	abs = core.Round(abs, rateDecimals)
	pct = core.Round(pct, percentDecimals)
	rec.AbsoluteVariance = &abs
	rec.PercentVariance = &pct
	return rec
}
