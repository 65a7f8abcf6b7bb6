package services

import (
	"fmt"

	"fxrates/internal/calendar"
	"fxrates/internal/core"
)

// Aggregator computes monthly average and closing rates over working days.
type Aggregator struct {
	tri *Triangulator
}

func NewAggregator(quotes core.QuoteSource) *Aggregator {
	return &Aggregator{tri: NewTriangulator(quotes)}
}

// Summarize averages the triangulated rate of code against base over the
// working days of ym. Days without a quote are skipped; a month where no day
// succeeds is returned as DataQualityIncomplete rather than as an error.
// An invalid stored quote aborts the summary.
func (a *Aggregator) Summarize(ym core.YearMonth, code, base string) (core.MonthlySummary, error) {
	s := core.MonthlySummary{
		YearMonth:    ym,
		CurrencyCode: code,
		BaseCurrency: base,
	}

	var sum float64
	for day := range calendar.WorkingDaysInMonth(ym) {
		s.ExpectedWorkingDays++

		rate, err := a.tri.Triangulate(day, code, base)
		if err != nil {
			if core.IsMissingRate(err) {
				continue
			}
			return core.MonthlySummary{}, fmt.Errorf("summarize %s %s/%s: %w", ym, code, base, err)
		}

		sum += rate
		s.WorkingDayCount++
		closing := rate
		s.ClosingRate = &closing
		s.ClosingDate = day
	}

	s.DataQuality = core.GradeCoverage(s.WorkingDayCount, s.ExpectedWorkingDays)
	if s.WorkingDayCount == 0 {
		s.ClosingRate = nil
		return s, nil
	}
	avg := sum / float64(s.WorkingDayCount)
	s.AverageRate = &avg
	return s, nil
}

// SummarizeMonth summarizes every currency of cfg for ym. A currency whose
// summary fails on invalid data is recorded in the report's Errors and left
// out of Rows; other currencies are unaffected.
func (a *Aggregator) SummarizeMonth(ym core.YearMonth, cfg core.RateConfig) core.MonthReport {
	report := core.MonthReport{
		YearMonth:    ym,
		BaseCurrency: cfg.BaseCurrency,
	}
	for _, code := range cfg.Currencies {
		s, err := a.Summarize(ym, code, cfg.BaseCurrency)
		if err != nil {
			if report.Errors == nil {
				report.Errors = make(map[string]error)
			}
			report.Errors[code] = err
			continue
		}
		report.Rows = append(report.Rows, core.SummaryRow{Summary: s, Variance: ComputeVariance(s)})
	}
	return report
}

// EmptyMonth reports whether s carries no data, as core.ErrEmptyMonth.
func EmptyMonth(s core.MonthlySummary) error {
	if s.Incomplete() {
		return fmt.Errorf("%s %s: %w", s.YearMonth, s.CurrencyCode, core.ErrEmptyMonth)
	}
	return nil
}
