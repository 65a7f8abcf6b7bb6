package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxrates/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTriangulateUSDPerGBP(t *testing.T) {
	tbl := core.NewRateTable([]core.RawRate{
		{Date: day(2024, 9, 2), CurrencyCode: "GBP", EURRate: 0.85},
		{Date: day(2024, 9, 2), CurrencyCode: "USD", EURRate: 1.08},
	})
	tri := NewTriangulator(tbl)

	got, err := tri.Triangulate(day(2024, 9, 2), "USD", "GBP")
	require.NoError(t, err)
	assert.InDelta(t, 1.27059, got, 1e-5)
	assert.InDelta(t, 1.08/0.85, got, 1e-15)
}

func TestTriangulateReciprocity(t *testing.T) {
	rates := []core.RawRate{
		{Date: day(2024, 9, 2), CurrencyCode: "GBP", EURRate: 0.8423},
		{Date: day(2024, 9, 2), CurrencyCode: "USD", EURRate: 1.107},
		{Date: day(2024, 9, 2), CurrencyCode: "JPY", EURRate: 161.93},
		{Date: day(2024, 9, 2), CurrencyCode: "CHF", EURRate: 0.9413},
	}
	tri := NewTriangulator(core.NewRateTable(rates))
	codes := []string{"GBP", "USD", "JPY", "CHF", "EUR"}
	for _, a := range codes {
		for _, b := range codes {
			ab, err := tri.Triangulate(day(2024, 9, 2), a, b)
			require.NoError(t, err)
			ba, err := tri.Triangulate(day(2024, 9, 2), b, a)
			require.NoError(t, err)
			assert.InDelta(t, 1/ba, ab, 1e-12, "%s/%s", a, b)
		}
	}
}

func TestTriangulateIdentity(t *testing.T) {
	tri := NewTriangulator(core.NewRateTable([]core.RawRate{
		{Date: day(2024, 9, 2), CurrencyCode: "GBP", EURRate: 0.85},
		{Date: day(2024, 9, 2), CurrencyCode: "USD", EURRate: 1.08},
	}))
	for _, code := range []string{"GBP", "USD", "EUR"} {
		got, err := tri.Triangulate(day(2024, 9, 2), code, code)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got)
	}
}

func TestTriangulateIdentityNeedsQuote(t *testing.T) {
	tri := NewTriangulator(core.NewRateTable([]core.RawRate{
		{Date: day(2024, 9, 2), CurrencyCode: "USD", EURRate: 1.08},
	}))

	tests := []struct {
		name string
		date time.Time
		code string
	}{
		{"no quotes that day", day(2024, 9, 3), "USD"},
		{"EUR on an unpublished day", day(2024, 9, 7), "EUR"},
		{"base not quoted", day(2024, 9, 2), "GBP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tri.Triangulate(tt.date, tt.code, tt.code)
			var missing *core.MissingRateError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.code, missing.Currency)
			assert.Equal(t, tt.date, missing.Date)
		})
	}
}

func TestTriangulateEURIsImplicit(t *testing.T) {
	tri := NewTriangulator(core.NewRateTable([]core.RawRate{
		{Date: day(2024, 9, 2), CurrencyCode: "GBP", EURRate: 0.8},
	}))
	got, err := tri.Triangulate(day(2024, 9, 2), "EUR", "GBP")
	require.NoError(t, err)
	assert.InDelta(t, 1.25, got, 1e-12)

	got, err = tri.Triangulate(day(2024, 9, 2), "GBP", "EUR")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, got, 1e-12)
}

func TestTriangulateMissingRate(t *testing.T) {
	tri := NewTriangulator(core.NewRateTable([]core.RawRate{
		{Date: day(2024, 9, 2), CurrencyCode: "GBP", EURRate: 0.85},
	}))

	_, err := tri.Triangulate(day(2024, 9, 2), "USD", "GBP")
	var missing *core.MissingRateError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "USD", missing.Currency)

	_, err = tri.Triangulate(day(2024, 9, 3), "USD", "GBP")
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "GBP", missing.Currency)
	assert.Equal(t, day(2024, 9, 3), missing.Date)
}

func TestTriangulateInvalidRate(t *testing.T) {
	tri := NewTriangulator(core.NewRateTable([]core.RawRate{
		{Date: day(2024, 9, 2), CurrencyCode: "GBP", EURRate: 0},
		{Date: day(2024, 9, 2), CurrencyCode: "USD", EURRate: 1.08},
	}))
	_, err := tri.Triangulate(day(2024, 9, 2), "USD", "GBP")
	var invalid *core.InvalidRateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "GBP", invalid.Currency)
	assert.False(t, core.IsMissingRate(err))
}

func TestTriangulatorRate(t *testing.T) {
	tri := NewTriangulator(core.NewRateTable([]core.RawRate{
		{Date: day(2024, 9, 2), CurrencyCode: "GBP", EURRate: 0.85},
		{Date: day(2024, 9, 2), CurrencyCode: "USD", EURRate: 1.08},
	}))
	r, err := tri.Rate(day(2024, 9, 2).Add(13*time.Hour), "USD", "GBP")
	require.NoError(t, err)
	assert.Equal(t, day(2024, 9, 2), r.Date)
	assert.Equal(t, "USD", r.CurrencyCode)
	assert.Equal(t, "GBP", r.BaseCurrency)
}
