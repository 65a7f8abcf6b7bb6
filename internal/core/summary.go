package core

import (
	"fmt"
	"time"
)

// DataQuality grades how much of a month's working days produced a rate.
type DataQuality string

const (
	DataQualityComplete   DataQuality = "complete"
	DataQualityPartial    DataQuality = "partial"
	DataQualityIncomplete DataQuality = "incomplete"
)

// GradeCoverage maps observed/expected working days to a DataQuality.
func GradeCoverage(observed, expected int) DataQuality {
	switch {
	case observed <= 0:
		return DataQualityIncomplete
	case observed >= expected:
		return DataQualityComplete
	default:
		return DataQualityPartial
	}
}

// MonthlySummary is the average and closing rate of one currency for a month.
type MonthlySummary struct {
	YearMonth           YearMonth
	CurrencyCode        string
	BaseCurrency        string
	AverageRate         *float64
	ClosingRate         *float64
	ClosingDate         time.Time
	WorkingDayCount     int
	ExpectedWorkingDays int
	DataQuality         DataQuality
}

// Incomplete reports whether no working day contributed a rate.
func (s MonthlySummary) Incomplete() bool {
	return s.DataQuality == DataQualityIncomplete
}

// VarianceRecord is closing minus average for one summary.
type VarianceRecord struct {
	YearMonth        YearMonth
	CurrencyCode     string
	AbsoluteVariance *float64
	PercentVariance  *float64
	Undefined        bool
}

// SummaryRow pairs a summary with its variance for rendering and export.
type SummaryRow struct {
	Summary  MonthlySummary
	Variance VarianceRecord
}

// MonthReport is the outcome of summarizing one month for a selection.
type MonthReport struct {
	YearMonth    YearMonth
	BaseCurrency string
	Rows         []SummaryRow
	// Errors collects currencies whose summary failed on an invalid stored rate.
	Errors map[string]error
}

// RiskLevel buckets a metric into LOW / MEDIUM / HIGH.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// VolatilityMetric is the annualized volatility of one currency.
type VolatilityMetric struct {
	CurrencyCode  string
	AnnualizedPct float64
	DataPoints    int
	Risk          RiskLevel
	PeriodStart   time.Time
	PeriodEnd     time.Time
}

// TranslationImpact compares a quarter's average rate with its closing rate.
type TranslationImpact struct {
	Year         int
	Quarter      int
	CurrencyCode string
	AverageRate  float64
	ClosingRate  float64
	ImpactPct    float64
	Risk         RiskLevel
}

// Label renders the quarter, e.g. "Q3 2024".
func (t TranslationImpact) Label() string {
	return fmt.Sprintf("Q%d %d", t.Quarter, t.Year)
}

// AvailableMonth is a month for which the store holds at least one quote.
type AvailableMonth struct {
	YearMonth YearMonth
	Complete  bool
	// ExpectedPublication is the first working day after month end.
	ExpectedPublication time.Time
}

// StoreStats summarizes the raw rate table.
type StoreStats struct {
	TotalRecords int
	UniqueDates  int
	Currencies   int
	FirstDate    time.Time
	LastDate     time.Time
}

// CurrencyCoverage describes the stored history of one currency.
type CurrencyCoverage struct {
	CurrencyCode string
	DataPoints   int
	FirstDate    time.Time
	LastDate     time.Time
	MinRate      float64
	MaxRate      float64
	AvgRate      float64
}

// MonthCoverage counts the quotes and trading days stored for a month.
type MonthCoverage struct {
	YearMonth   YearMonth
	Records     int
	TradingDays int
	Currencies  int
}

// ImportRun is the journal entry of one import.
type ImportRun struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Inserted   int
	Updated    int
	Skipped    int
	Filtered   int
	Months     []YearMonth
}

// Duration is the wall time of the run.
func (r ImportRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CurrencyInfo joins a configured currency with its stored coverage.
// Coverage is nil when the store holds no quotes for the currency.
type CurrencyInfo struct {
	Currency ApplicationCurrency
	Coverage *CurrencyCoverage
	// Implicit is set for EUR, which is never quoted but always available.
	Implicit bool
}
