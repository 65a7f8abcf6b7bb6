package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"fxrates/internal/core"
)

const (
	SheetSummary     = "Summary"
	SheetOneStream   = "OneStream"
	SheetVolatility  = "Volatility"
	SheetTranslation = "Translation Impact"
)

// AnalysisPackage is the content of the EPM analysis workbook.
type AnalysisPackage struct {
	BaseCurrency string
	Reports      []core.MonthReport
	Volatility   []core.VolatilityMetric
	Impacts      []core.TranslationImpact
}

// WriteAnalysisPackage writes pkg as an xlsx workbook with one sheet per
// analysis. Rates are stored as numbers, missing values as empty cells.
func WriteAnalysisPackage(w io.Writer, pkg AnalysisPackage) error {
	if err := CheckReports(pkg.Reports); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetOneStream, SheetVolatility, SheetTranslation} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]any
	}{
		{SheetSummary, summarySheetHeader(pkg.BaseCurrency), summarySheetRows(pkg.Reports)},
		{SheetOneStream, OneStreamHeader, oneStreamSheetRows(pkg.Reports)},
		{SheetVolatility, []string{"Currency", "Annualized Volatility %", "Data Points", "Risk", "Period Start", "Period End"}, volatilitySheetRows(pkg.Volatility)},
		{SheetTranslation, []string{"Quarter", "Currency", "Average Rate", "Closing Rate", "Impact %", "Risk"}, translationSheetRows(pkg.Impacts)},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.header, s.rows, header); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// AnalysisFilename names the workbook for a month.
func AnalysisFilename(ym core.YearMonth) string {
	return fmt.Sprintf("EPM_FX_Analysis_%s.xlsx", ym.EPMPeriod())
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &cells); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summarySheetHeader(base string) []string {
	if base == "" {
		base = core.DefaultBaseCurrency
	}
	return []string{
		"Month", "Currency",
		"Average Rate (" + base + ")", "Closing Rate (" + base + ")", "Closing Date",
		"Absolute Variance", "Variance %", "Working Days", "Expected Working Days", "Data Quality",
	}
}

func summarySheetRows(reports []core.MonthReport) [][]any {
	var rows [][]any
	for _, r := range FlattenReports(reports) {
		s, v := r.Summary, r.Variance
		rows = append(rows, []any{
			s.YearMonth.String(),
			s.CurrencyCode,
			optional(s.AverageRate, 6),
			optional(s.ClosingRate, 6),
			core.FormatDate(s.ClosingDate),
			optional(v.AbsoluteVariance, 6),
			optional(v.PercentVariance, 2),
			s.WorkingDayCount,
			s.ExpectedWorkingDays,
			string(s.DataQuality),
		})
	}
	return rows
}

func oneStreamSheetRows(reports []core.MonthReport) [][]any {
	var rows [][]any
	for _, r := range OneStreamRecords(reports) {
		rows = append(rows, []any{r.Entity, r.Account, r.UD1, r.UD2, r.UD3, r.Time, core.Round(r.Value, 6), r.Annotation})
	}
	return rows
}

func volatilitySheetRows(metrics []core.VolatilityMetric) [][]any {
	var rows [][]any
	for _, m := range metrics {
		rows = append(rows, []any{
			m.CurrencyCode,
			core.Round(m.AnnualizedPct, 2),
			m.DataPoints,
			string(m.Risk),
			core.FormatDate(m.PeriodStart),
			core.FormatDate(m.PeriodEnd),
		})
	}
	return rows
}

func translationSheetRows(impacts []core.TranslationImpact) [][]any {
	var rows [][]any
	for _, t := range impacts {
		rows = append(rows, []any{
			t.Label(),
			t.CurrencyCode,
			core.Round(t.AverageRate, 6),
			core.Round(t.ClosingRate, 6),
			core.Round(t.ImpactPct, 2),
			string(t.Risk),
		})
	}
	return rows
}

func optional(v *float64, places int32) any {
	if v == nil {
		return nil
	}
	return core.Round(*v, places)
}
