package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"usd", "USD", true},
		{" GBP ", "GBP", true},
		{"EUR", "EUR", true},
		{"US", "", false},
		{"XYZ1", "", false},
		{"QQQ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeCurrency(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			assert.ErrorIs(t, err, ErrInvalidCurrency, tc.in)
		}
	}
}

func TestYearMonth(t *testing.T) {
	ym, err := ParseYearMonth("2024-09")
	require.NoError(t, err)
	assert.Equal(t, "2024-09", ym.String())
	assert.Equal(t, "September 2024", ym.Label())
	assert.Equal(t, "2024M09", ym.EPMPeriod())
	assert.Equal(t, 3, ym.Quarter())
	assert.Equal(t, YearMonth{2024, time.October}, ym.Next())
	assert.Equal(t, YearMonth{2025, time.January}, YearMonth{2024, time.December}.Next())
	assert.Equal(t, YearMonth{2023, time.December}, YearMonth{2024, time.January}.Prev())

	_, err = ParseYearMonth("2024-13")
	assert.ErrorIs(t, err, ErrInvalidMonth)
	_, err = NewYearMonth(2024, 0)
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestMonthsBetween(t *testing.T) {
	got := MonthsBetween(YearMonth{2024, time.November}, YearMonth{2025, time.February})
	require.Len(t, got, 4)
	assert.Equal(t, "2024-11", got[0].String())
	assert.Equal(t, "2025-02", got[3].String())
	assert.Empty(t, MonthsBetween(YearMonth{2025, time.March}, YearMonth{2025, time.February}))
}

func TestRawRateValidate(t *testing.T) {
	day := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, RawRate{Date: day, CurrencyCode: "USD", EURRate: 1.1}.Validate())

	bads := []RawRate{
		{Date: time.Time{}, CurrencyCode: "USD", EURRate: 1},
		{Date: day, CurrencyCode: "??", EURRate: 1},
		{Date: day, CurrencyCode: "USD", EURRate: 0},
		{Date: day, CurrencyCode: "USD", EURRate: -2},
	}
	for i, r := range bads {
		assert.Error(t, r.Validate(), "case %d", i)
	}
}

func TestRateConfigNormalized(t *testing.T) {
	cfg, err := RateConfig{Currencies: []string{"usd", "JPY", "USD"}}.Normalized()
	require.NoError(t, err)
	assert.Equal(t, "GBP", cfg.BaseCurrency)
	assert.Equal(t, []string{"USD", "JPY"}, cfg.Currencies)

	_, err = RateConfig{BaseCurrency: "XX"}.Normalized()
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestRateConfigCovers(t *testing.T) {
	cfg := RateConfig{CoverageFrom: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)}
	assert.False(t, cfg.Covers(time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)))
	assert.True(t, cfg.Covers(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, cfg.Covers(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestErrorsAs(t *testing.T) {
	var err error = &MissingRateError{Date: time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), Currency: "USD"}
	wrapped := errors.Join(errors.New("ctx"), err)
	assert.True(t, IsMissingRate(wrapped))
	assert.False(t, IsInvalidRate(wrapped))
	assert.Equal(t, "missing USD rate on 2024-09-02", err.Error())

	m := &MalformedRowError{Line: 4, Field: "eur_rate", Reason: "not a number"}
	assert.Equal(t, "line 4: eur_rate: not a number", m.Error())
}

func TestGradeCoverage(t *testing.T) {
	assert.Equal(t, DataQualityIncomplete, GradeCoverage(0, 21))
	assert.Equal(t, DataQualityPartial, GradeCoverage(20, 21))
	assert.Equal(t, DataQualityComplete, GradeCoverage(21, 21))
}
