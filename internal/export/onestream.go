package export

import (
	"fmt"
	"io"

	"fxrates/internal/core"
)

const (
	oneStreamNone    = "[None]"
	oneStreamAccount = "FXRate"

	RateTypeAverage = "Average"
	RateTypeClosing = "Closing"
)

// OneStreamHeader is the column order of the OneStream import file.
var OneStreamHeader = []string{"Entity", "Account", "UD1", "UD2", "UD3", "Time", "Value", "Annotation"}

// OneStreamRecord is one rate line of a OneStream import file.
type OneStreamRecord struct {
	Entity     string
	Account    string
	UD1        string
	UD2        string
	UD3        string
	Time       string
	Value      float64
	Annotation string
}

func (r OneStreamRecord) fields() []string {
	return []string{r.Entity, r.Account, r.UD1, r.UD2, r.UD3, r.Time, core.FormatRate(r.Value), r.Annotation}
}

// OneStreamRecords builds an Average and a Closing record per summary row.
// A rate that could not be computed produces no record.
func OneStreamRecords(reports []core.MonthReport) []OneStreamRecord {
	var out []OneStreamRecord
	for _, row := range FlattenReports(reports) {
		s := row.Summary
		if s.AverageRate != nil {
			out = append(out, oneStreamRecord(s, RateTypeAverage, *s.AverageRate))
		}
		if s.ClosingRate != nil {
			out = append(out, oneStreamRecord(s, RateTypeClosing, *s.ClosingRate))
		}
	}
	return out
}

func oneStreamRecord(s core.MonthlySummary, rateType string, value float64) OneStreamRecord {
	return OneStreamRecord{
		Entity:     oneStreamNone,
		Account:    oneStreamAccount,
		UD1:        s.CurrencyCode,
		UD2:        rateType,
		UD3:        oneStreamNone,
		Time:       s.YearMonth.EPMPeriod(),
		Value:      value,
		Annotation: fmt.Sprintf("%s rate for %s", rateType, s.YearMonth.Label()),
	}
}

// WriteOneStreamCSV writes the OneStream import file.
func WriteOneStreamCSV(w io.Writer, reports []core.MonthReport) error {
	if err := CheckReports(reports); err != nil {
		return err
	}
	recs := OneStreamRecords(reports)
	records := make([][]string, 0, len(recs))
	for _, r := range recs {
		records = append(records, r.fields())
	}
	return writeCSV(w, OneStreamHeader, records)
}

// OneStreamFilename names the import file for a month, e.g.
// "OneStream_FXRates_2024M09.csv".
func OneStreamFilename(ym core.YearMonth) string {
	return fmt.Sprintf("OneStream_FXRates_%s.csv", ym.EPMPeriod())
}
