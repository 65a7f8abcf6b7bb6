package sheets

import (
	"fmt"
	"strings"

	"fxrates/internal/core"
)

// Header is the first row of every published month tab.
var Header = []string{
	"year_month", "currency_code", "base_currency", "average_rate", "closing_rate",
	"closing_date", "absolute_variance", "percent_variance", "working_days", "data_quality",
}

// Rows renders a report as a string matrix, header first.
func Rows(report core.MonthReport) [][]string {
	out := make([][]string, 0, len(report.Rows)+1)
	out = append(out, append([]string(nil), Header...))
	for _, r := range report.Rows {
		s, v := r.Summary, r.Variance
		out = append(out, []string{
			s.YearMonth.String(),
			s.CurrencyCode,
			s.BaseCurrency,
			core.FormatOptional(s.AverageRate, core.FormatRate),
			core.FormatOptional(s.ClosingRate, core.FormatRate),
			core.FormatDate(s.ClosingDate),
			core.FormatOptional(v.AbsoluteVariance, core.FormatRate),
			core.FormatOptional(v.PercentVariance, core.FormatPercent),
			fmt.Sprintf("%d/%d", s.WorkingDayCount, s.ExpectedWorkingDays),
			string(s.DataQuality),
		})
	}
	return out
}

// TabName is the tab holding ym, e.g. "FX Rates 2024-09".
func TabName(base string, ym core.YearMonth) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "FX Rates"
	}
	return fmt.Sprintf("%s %s", base, ym)
}

// Equal reports whether two matrices hold the same trimmed cell values.
func Equal(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if strings.TrimSpace(a[i][j]) != strings.TrimSpace(b[i][j]) {
				return false
			}
		}
	}
	return true
}
