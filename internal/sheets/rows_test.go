package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxrates/internal/core"
)

func ptr(v float64) *float64 { return &v }

func TestRows(t *testing.T) {
	ym := core.YearMonth{Year: 2024, Month: time.September}
	report := core.MonthReport{
		YearMonth:    ym,
		BaseCurrency: "GBP",
		Rows: []core.SummaryRow{
			{
				Summary: core.MonthlySummary{
					YearMonth: ym, CurrencyCode: "USD", BaseCurrency: "GBP",
					AverageRate: ptr(1.2), ClosingRate: ptr(1.23),
					ClosingDate:     time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
					WorkingDayCount: 21, ExpectedWorkingDays: 21, DataQuality: core.DataQualityComplete,
				},
				Variance: core.VarianceRecord{YearMonth: ym, CurrencyCode: "USD", AbsoluteVariance: ptr(0.03), PercentVariance: ptr(2.5)},
			},
			{
				Summary: core.MonthlySummary{
					YearMonth: ym, CurrencyCode: "JPY", BaseCurrency: "GBP",
					ExpectedWorkingDays: 21, DataQuality: core.DataQualityIncomplete,
				},
				Variance: core.VarianceRecord{YearMonth: ym, CurrencyCode: "JPY", Undefined: true},
			},
		},
	}

	rows := Rows(report)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"2024-09", "USD", "GBP", "1.200000", "1.230000", "2024-09-30", "0.030000", "2.50", "21/21", "complete"}, rows[1])
	assert.Equal(t, []string{"2024-09", "JPY", "GBP", "", "", "", "", "", "0/21", "incomplete"}, rows[2])
}

func TestTabNameAndEqual(t *testing.T) {
	ym := core.YearMonth{Year: 2024, Month: time.March}
	assert.Equal(t, "FX Rates 2024-03", TabName("", ym))
	assert.Equal(t, "EPM 2024-03", TabName(" EPM ", ym))

	assert.True(t, Equal([][]string{{"a", " b"}}, [][]string{{"a", "b"}}))
	assert.False(t, Equal([][]string{{"a"}}, [][]string{{"a"}, {"b"}}))
	assert.False(t, Equal([][]string{{"a"}}, [][]string{{"c"}}))
}
