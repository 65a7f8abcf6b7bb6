package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fxrates/internal/calendar"
	"fxrates/internal/core"
	"fxrates/internal/metrics"
	"fxrates/internal/storage"
)

// SummaryService runs the read pipeline: stored quotes, triangulation,
// monthly aggregation and variance. It never writes rates.
type SummaryService struct {
	rates storage.RateReader
	now   func() time.Time
}

func NewSummaryService(rates storage.RateReader) *SummaryService {
	return &SummaryService{rates: rates, now: time.Now}
}

// MonthReport summarizes every currency of cfg for ym.
func (s *SummaryService) MonthReport(ctx context.Context, ym core.YearMonth, cfg core.RateConfig) (core.MonthReport, error) {
	reports, err := s.RangeReports(ctx, ym, ym, cfg)
	if err != nil {
		return core.MonthReport{}, err
	}
	return reports[0], nil
}

// RangeReports summarizes every month from 'from' to 'to' inclusive, reading
// the store once for the whole range.
func (s *SummaryService) RangeReports(ctx context.Context, from, to core.YearMonth, cfg core.RateConfig) ([]core.MonthReport, error) {
	cfg, err := cfg.Normalized()
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s after %s", core.ErrInvalidMonth, from, to)
	}

	start, _ := calendar.MonthBounds(from)
	_, end := calendar.MonthBounds(to)
	table, err := s.loadTable(ctx, start, end, cfg)
	if err != nil {
		return nil, err
	}

	agg := NewAggregator(table)
	months := core.MonthsBetween(from, to)
	reports := make([]core.MonthReport, 0, len(months))
	for _, ym := range months {
		began := time.Now()
		report := agg.SummarizeMonth(ym, cfg)
		for _, row := range report.Rows {
			metrics.ObserveSummary(string(row.Summary.DataQuality), time.Since(began))
			if err := EmptyMonth(row.Summary); err != nil {
				slog.DebugContext(ctx, "Month has no rates yet", "error", err)
			}
		}
		for code, err := range report.Errors {
			if !core.IsInvalidRate(err) {
				slog.ErrorContext(ctx, "Summary failed",
					"year_month", ym.String(),
					"currency", code,
					"error", err)
				continue
			}
			metrics.IncInvalidRate()
			slog.WarnContext(ctx, "Invalid stored rate",
				"year_month", ym.String(),
				"currency", code,
				"error", err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// DailyRates triangulates every stored date in [from, to] for the currencies
// of cfg. Dates missing a quote are skipped; an invalid quote is returned as
// an error.
func (s *SummaryService) DailyRates(ctx context.Context, from, to time.Time, cfg core.RateConfig) ([]core.TriangulatedRate, error) {
	cfg, err := cfg.Normalized()
	if err != nil {
		return nil, err
	}
	table, err := s.loadTable(ctx, from, to, cfg)
	if err != nil {
		return nil, err
	}

	tri := NewTriangulator(table)
	var out []core.TriangulatedRate
	for _, day := range table.Dates() {
		for _, code := range cfg.Currencies {
			r, err := tri.Rate(day, code, cfg.BaseCurrency)
			if err != nil {
				if core.IsMissingRate(err) {
					continue
				}
				return nil, fmt.Errorf("daily rates: %w", err)
			}
			out = append(out, r)
		}
	}
	return out, nil
}

// AvailableMonths lists months holding data, newest first, flagged complete
// when the month has ended.
func (s *SummaryService) AvailableMonths(ctx context.Context) ([]core.AvailableMonth, error) {
	months, err := s.rates.AvailableMonths(ctx)
	if err != nil {
		return nil, fmt.Errorf("available months: %w", err)
	}
	today := s.now()
	out := make([]core.AvailableMonth, 0, len(months))
	for _, ym := range months {
		out = append(out, core.AvailableMonth{
			YearMonth:           ym,
			Complete:            calendar.IsMonthComplete(ym, today),
			ExpectedPublication: calendar.ExpectedPublication(ym),
		})
	}
	return out, nil
}

// LatestCompleteMonth returns the newest month with data that has ended.
func (s *SummaryService) LatestCompleteMonth(ctx context.Context) (core.YearMonth, bool, error) {
	months, err := s.AvailableMonths(ctx)
	if err != nil {
		return core.YearMonth{}, false, err
	}
	for _, m := range months {
		if m.Complete {
			return m.YearMonth, true, nil
		}
	}
	return core.YearMonth{}, false, nil
}

func (s *SummaryService) loadTable(ctx context.Context, from, to time.Time, cfg core.RateConfig) (*core.RateTable, error) {
	codes := append([]string{cfg.BaseCurrency}, cfg.Currencies...)
	rates, err := s.rates.GetRates(ctx, from, to, codes)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}
	return core.NewRateTable(rates), nil
}
