// Package export renders monthly summaries as files for downstream
// consumers: the standard summary CSV, the OneStream import file and the
// EPM analysis workbook.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"fxrates/internal/core"
)

// SummaryHeader is the column order of the standard summary CSV.
var SummaryHeader = []string{
	"year_month",
	"currency_code",
	"average_rate",
	"closing_rate",
	"closing_date",
	"absolute_variance",
	"percent_variance",
}

// InvalidDataError names the months and currencies whose stored rates are
// invalid. Exports refuse such selections instead of leaving rows out.
type InvalidDataError struct {
	Problems []string
}

func (e *InvalidDataError) Error() string {
	return "stored rates are invalid: " + strings.Join(e.Problems, "; ")
}

// CheckReports returns an *InvalidDataError when any report could not
// summarize a selected currency.
func CheckReports(reports []core.MonthReport) error {
	var problems []string
	for _, r := range reports {
		codes := make([]string, 0, len(r.Errors))
		for code := range r.Errors {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			problems = append(problems, fmt.Sprintf("%s %s (%v)", r.YearMonth, code, r.Errors[code]))
		}
	}
	if len(problems) > 0 {
		return &InvalidDataError{Problems: problems}
	}
	return nil
}

// FlattenReports returns every row of reports sorted by year_month, then
// currency_code.
func FlattenReports(reports []core.MonthReport) []core.SummaryRow {
	var rows []core.SummaryRow
	for _, r := range reports {
		rows = append(rows, r.Rows...)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Summary, rows[j].Summary
		if a.YearMonth != b.YearMonth {
			return a.YearMonth.Before(b.YearMonth)
		}
		return a.CurrencyCode < b.CurrencyCode
	})
	return rows
}

// SummaryRecord renders one row in SummaryHeader order. Missing values are
// empty cells.
func SummaryRecord(row core.SummaryRow) []string {
	s, v := row.Summary, row.Variance
	return []string{
		s.YearMonth.String(),
		s.CurrencyCode,
		core.FormatOptional(s.AverageRate, core.FormatRate),
		core.FormatOptional(s.ClosingRate, core.FormatRate),
		core.FormatDate(s.ClosingDate),
		core.FormatOptional(v.AbsoluteVariance, core.FormatRate),
		core.FormatOptional(v.PercentVariance, core.FormatPercent),
	}
}

// WriteSummaryCSV writes the standard summary export.
func WriteSummaryCSV(w io.Writer, reports []core.MonthReport) error {
	if err := CheckReports(reports); err != nil {
		return err
	}
	records := make([][]string, 0)
	for _, row := range FlattenReports(reports) {
		records = append(records, SummaryRecord(row))
	}
	return writeCSV(w, SummaryHeader, records)
}

// SummaryFilename names a summary export covering from..to.
func SummaryFilename(from, to core.YearMonth) string {
	if from == to {
		return fmt.Sprintf("fx_rates_%s.csv", from)
	}
	return fmt.Sprintf("fx_rates_%s_%s.csv", from, to)
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
