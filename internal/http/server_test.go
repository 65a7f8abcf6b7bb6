package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxrates/internal/calendar"
	"fxrates/internal/core"
	"fxrates/internal/services"
	"fxrates/internal/storage/memory"
)

var september = core.YearMonth{Year: 2024, Month: time.September}

// septemberRates quotes GBP at 0.85 and USD at usd per EUR on every working
// day of September 2024.
func septemberRates(usd float64) []core.RawRate {
	var out []core.RawRate
	for d := range calendar.WorkingDaysInMonth(september) {
		out = append(out,
			core.RawRate{Date: d, CurrencyCode: "GBP", EURRate: 0.85},
			core.RawRate{Date: d, CurrencyCode: "USD", EURRate: usd},
		)
	}
	return out
}

type testEnv struct {
	srv   *Server
	store *memory.Store
}

func newTestEnv(t *testing.T, override []string, opts Options) testEnv {
	t.Helper()
	store := memory.NewStoreWithRates(septemberRates(1.08))
	summaries := services.NewSummaryService(store)
	deps := Deps{
		Summaries:  summaries,
		Analytics:  services.NewAnalyticsService(summaries),
		Currencies: services.NewCurrencyService(store, store, override),
		Stats:      store,
		Journal:    store,
		Store:      store,
	}
	if opts.VolatilityDays == 0 {
		opts.VolatilityDays = 90
	}
	srv, err := NewServer(":0", deps, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return testEnv{srv: srv, store: store}
}

func (e testEnv) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestNewServer_RequiresServices(t *testing.T) {
	_, err := NewServer(":0", Deps{}, Options{})
	assert.Error(t, err)
}

func TestIndexAndProbes(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	rr := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "September 2024")
	assert.Contains(t, body, `hx-get="/ui/summary?`)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var ready map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready["status"])

	rr = env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "fxrates_http_request_duration_seconds")

	rr = env.do(t, http.MethodGet, "/static/app.css", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSummaryPartial(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	rr := env.do(t, http.MethodGet, "/ui/summary?month=2024-09&currencies=USD,JPY", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "1.270588")
	assert.Contains(t, body, "0.00%")
	assert.Contains(t, body, "incomplete")
	assert.Contains(t, body, "21/21")
}

func TestSummaryPartial_BadSelection(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	for _, q := range []string{"month=2024-13", "base=ZZZ", "from=2024-09&to=2024-08", "currencies=GBP"} {
		rr := env.do(t, http.MethodGet, "/ui/summary?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestSummaryCache_InvalidatedOnImport(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	target := "/ui/summary?month=2024-09&currencies=USD"

	rr := env.do(t, http.MethodGet, target, "")
	require.Contains(t, rr.Body.String(), "1.270588")

	_, err := env.store.UpsertRates(context.Background(), septemberRates(1.105))
	require.NoError(t, err)

	rr = env.do(t, http.MethodGet, target, "")
	assert.Contains(t, rr.Body.String(), "1.270588", "served from cache until invalidated")

	env.srv.InvalidateCache()
	rr = env.do(t, http.MethodGet, target, "")
	assert.Contains(t, rr.Body.String(), "1.300000")
}

func TestChartsAnalyticsRawConfig(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	q := "?month=2024-09&currencies=USD"

	rr := env.do(t, http.MethodGet, "/ui/charts"+q, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<svg")

	rr = env.do(t, http.MethodGet, "/ui/analytics"+q, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Translation impact")

	rr = env.do(t, http.MethodGet, "/ui/raw"+q, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "2024-09-02")
	assert.Contains(t, rr.Body.String(), "2024-09-30")
	assert.NotContains(t, rr.Body.String(), "2024-09-07")

	rr = env.do(t, http.MethodGet, "/ui/config", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "US Dollar")
	assert.Contains(t, body, "implicit 1.0 per EUR")
	assert.Contains(t, body, "Configured without stored rates")
}

func TestExportSummaryCSV(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	rr := env.do(t, http.MethodGet, "/export/summary.csv?month=2024-09&currencies=USD", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, contentTypeCSV, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="fx_rates_2024-09.csv"`)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"2024-09", "USD", "1.270588", "1.270588", "2024-09-30", "0.000000", "0.00"}, records[1])
}

func TestExportOneStreamAndAnalysis(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	rr := env.do(t, http.MethodGet, "/export/onestream.csv?month=2024-09&currencies=USD", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "OneStream_FXRates_2024M09.csv")
	assert.Contains(t, rr.Body.String(), "Average")
	assert.Contains(t, rr.Body.String(), "Closing")

	rr = env.do(t, http.MethodGet, "/export/analysis.xlsx?month=2024-09&currencies=USD", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, contentTypeXLSX, rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "PK"))
}

func TestExportsRefuseInvalidStoredRates(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, err := env.store.UpsertRates(context.Background(), []core.RawRate{
		{Date: time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), CurrencyCode: "JPY", EURRate: -1},
	})
	require.NoError(t, err)

	for _, path := range []string{"/export/summary.csv", "/export/onestream.csv", "/export/analysis.xlsx"} {
		t.Run(path, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, path+"?month=2024-09&currencies=USD,JPY", "")
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assert.Empty(t, rr.Header().Get("Content-Disposition"))
			assert.Contains(t, rr.Body.String(), "2024-09 JPY")
		})
	}

	rr := env.do(t, http.MethodGet, "/export/summary.csv?month=2024-09&currencies=USD", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAPISummary(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	rr := env.do(t, http.MethodGet, "/api/summary?month=2024-09&currencies=USD,JPY", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "GBP", resp.BaseCurrency)
	require.Len(t, resp.Summaries, 2)

	jpy, usd := resp.Summaries[0], resp.Summaries[1]
	assert.Equal(t, "JPY", jpy.CurrencyCode)
	assert.Nil(t, jpy.AverageRate)
	assert.Nil(t, jpy.PercentVariance)
	assert.Equal(t, "incomplete", jpy.DataQuality)

	require.NotNil(t, usd.AverageRate)
	assert.InDelta(t, 1.08/0.85, *usd.AverageRate, 1e-12)
	assert.Equal(t, 21, usd.WorkingDayCount)

	rr = env.do(t, http.MethodGet, "/api/summary?month=nope", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
}

func TestCurrencyManagement(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	rr := env.do(t, http.MethodPost, "/currencies", url.Values{"code": {"sek"}, "name": {"Swedish Krona"}}.Encode())
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "currencies:changed")
	assert.Contains(t, rr.Body.String(), "Swedish Krona")

	codes, err := env.srv.deps.Currencies.Codes(context.Background())
	require.NoError(t, err)
	assert.Contains(t, codes, "SEK")

	rr = env.do(t, http.MethodPost, "/currencies", url.Values{"code": {"XQZ"}}.Encode())
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `<div class="error">Not an ISO 4217 currency code: XQZ</div>`)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"type":"error"`)

	rr = env.do(t, http.MethodPost, "/currencies/SEK/delete", "")
	require.Equal(t, http.StatusOK, rr.Code)
	codes, err = env.srv.deps.Currencies.Codes(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, codes, "SEK")

	rr = env.do(t, http.MethodPost, "/currencies/NOK/delete", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCurrencyManagement_Overridden(t *testing.T) {
	env := newTestEnv(t, []string{"USD"}, Options{})

	rr := env.do(t, http.MethodPost, "/currencies", url.Values{"code": {"SEK"}}.Encode())
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(t, http.MethodPost, "/currencies/USD/delete", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	rr := env.do(t, http.MethodDelete, "/ui/summary", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET", rr.Header().Get("Allow"))
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, nil, Options{RateLimitRPM: 2})

	for i := 0; i < 2; i++ {
		rr := env.do(t, http.MethodGet, "/api/summary?month=2024-09", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := env.do(t, http.MethodGet, "/api/summary?month=2024-09", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// probes are not limited
	rr = env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPivotDaily(t *testing.T) {
	d1 := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	rows := pivotDaily([]string{"USD", "JPY"}, []core.TriangulatedRate{
		{Date: d1, CurrencyCode: "USD", Rate: 1.27},
		{Date: d1, CurrencyCode: "JPY", Rate: 190},
		{Date: d2, CurrencyCode: "JPY", Rate: 191},
	})
	require.Len(t, rows, 2)
	assert.InDelta(t, 190, *rows[0].Cells[1], 1e-12)
	assert.Nil(t, rows[1].Cells[0])
	assert.InDelta(t, 191, *rows[1].Cells[1], 1e-12)
}

func TestBuildStatCards(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	reports := []core.MonthReport{{
		YearMonth: september,
		Rows: []core.SummaryRow{
			{Summary: core.MonthlySummary{CurrencyCode: "USD", DataQuality: core.DataQualityComplete}, Variance: core.VarianceRecord{PercentVariance: f(1.5)}},
			{Summary: core.MonthlySummary{CurrencyCode: "JPY", DataQuality: core.DataQualityPartial}, Variance: core.VarianceRecord{PercentVariance: f(-2.5)}},
			{Summary: core.MonthlySummary{CurrencyCode: "CHF", DataQuality: core.DataQualityIncomplete}},
		},
	}}
	cards := buildStatCards(Selection{Currencies: []string{"USD", "JPY", "CHF"}}, reports)

	assert.Equal(t, 3, cards.Currencies)
	assert.Equal(t, 1, cards.Complete)
	assert.Equal(t, 1, cards.Partial)
	assert.Equal(t, 1, cards.Incomplete)
	require.NotNil(t, cards.AvgAbsVariance)
	assert.InDelta(t, 2.0, *cards.AvgAbsVariance, 1e-12)
	assert.Equal(t, "JPY", cards.MaxVarianceCode)
	assert.InDelta(t, -2.5, *cards.MaxVariance, 1e-12)
}
