package charts

import (
	"html/template"
	"sort"

	"fxrates/internal/core"
)

// Dashboard holds the rendered charts of one summary selection. A chart
// with nothing to show is empty.
type Dashboard struct {
	Rates      template.HTML
	Variance   template.HTML
	DataPoints template.HTML
}

// ForRows renders average vs closing, variance % and working-day coverage
// for the currencies of rows. Incomplete summaries are left out of the rate
// charts and show zero coverage.
func ForRows(rows []core.SummaryRow, base string) (Dashboard, error) {
	var (
		d                            Dashboard
		rateLabels, varLabels, codes []string
		avg, closing, pct            []float64
		points, expected             []float64
	)
	for _, r := range rows {
		s := r.Summary
		label := s.CurrencyCode
		codes = append(codes, label)
		points = append(points, float64(s.WorkingDayCount))
		expected = append(expected, float64(s.ExpectedWorkingDays))
		if s.AverageRate != nil && s.ClosingRate != nil {
			rateLabels = append(rateLabels, label)
			avg = append(avg, *s.AverageRate)
			closing = append(closing, *s.ClosingRate)
		}
		if r.Variance.PercentVariance != nil {
			varLabels = append(varLabels, label)
			pct = append(pct, *r.Variance.PercentVariance)
		}
	}

	var err error
	if len(rateLabels) > 0 {
		d.Rates, err = Bars(rateLabels, []Series{
			{Label: "Average", Values: avg},
			{Label: "Closing", Values: closing},
		}, Opts{Title: "Average vs closing", Description: "Units per 1 " + base, Decimals: -1})
		if err != nil {
			return Dashboard{}, err
		}
	}
	if len(varLabels) > 0 {
		d.Variance, err = Bars(varLabels, []Series{{Label: "Variance %", Values: pct}},
			Opts{Title: "Closing vs average variance", Description: "Percent of the average rate", Decimals: 2})
		if err != nil {
			return Dashboard{}, err
		}
	}
	if len(codes) > 0 {
		d.DataPoints, err = Bars(codes, []Series{
			{Label: "Days with data", Values: points},
			{Label: "Working days", Values: expected},
		}, Opts{Title: "Data coverage", Description: "Working days with a published rate", Decimals: 0})
		if err != nil {
			return Dashboard{}, err
		}
	}
	return d, nil
}

// DailyTrend renders one line per currency over the dates of rates. Dates
// where a currency has no rate repeat its previous value.
func DailyTrend(rates []core.TriangulatedRate, base string) (template.HTML, error) {
	if len(rates) == 0 {
		return "", nil
	}
	dateSet := map[string]struct{}{}
	byCode := map[string]map[string]float64{}
	for _, r := range rates {
		d := core.FormatDate(r.Date)
		dateSet[d] = struct{}{}
		if byCode[r.CurrencyCode] == nil {
			byCode[r.CurrencyCode] = map[string]float64{}
		}
		byCode[r.CurrencyCode][d] = r.Rate
	}
	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	codes := make([]string, 0, len(byCode))
	for c := range byCode {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	series := make([]Series, 0, len(codes))
	for _, code := range codes {
		values := make([]float64, len(dates))
		var last float64
		seen := false
		for i, d := range dates {
			if v, ok := byCode[code][d]; ok {
				last, seen = v, true
			} else if !seen {
				// back-fill the leading gap with the first known value
				for _, later := range dates[i:] {
					if v, ok := byCode[code][later]; ok {
						last, seen = v, true
						break
					}
				}
			}
			values[i] = last
		}
		series = append(series, Series{Label: code, Values: values})
	}
	return Lines(dates, series, Opts{Title: "Daily rates", Description: "Units per 1 " + base, Decimals: -1})
}
