package http

import (
	"fmt"
	"html/template"
	"math"
	"net/http"
	"slices"
	"time"

	"fxrates/internal/calendar"
	"fxrates/internal/charts"
	"fxrates/internal/core"
	"fxrates/internal/log"
)

// handleIndex renders the dashboard page. Partials load through HTMX with
// the page's selection.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sel, err := s.parseSelection(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	months, err := s.deps.Summaries.AvailableMonths(ctx)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	available := []string{core.EUR}
	if s.deps.Stats != nil {
		coverage, err := s.deps.Stats.CurrencyCoverage(ctx)
		if err != nil {
			s.fail(w, r, log.OpList, err)
			return
		}
		for _, c := range coverage {
			available = append(available, c.CurrencyCode)
		}
	}
	slices.Sort(available)

	data := struct {
		Selection Selection
		Query     template.URL
		Months    []core.AvailableMonth
		Available []string
		Base      string
	}{
		Selection: sel,
		Query:     template.URL(sel.Query()),
		Months:    months,
		Available: slices.Compact(available),
		Base:      s.opts.BaseCurrency,
	}
	s.render(w, r, "index.html", data)
}

// statCards are the headline numbers above the summary table.
type statCards struct {
	Currencies      int
	Months          int
	Complete        int
	Partial         int
	Incomplete      int
	AvgAbsVariance  *float64
	MaxVariance     *float64
	MaxVarianceCode string
}

func buildStatCards(sel Selection, reports []core.MonthReport) statCards {
	cards := statCards{Currencies: len(sel.Currencies), Months: len(reports)}
	var sum float64
	var n int
	for _, report := range reports {
		for _, row := range report.Rows {
			switch row.Summary.DataQuality {
			case core.DataQualityComplete:
				cards.Complete++
			case core.DataQualityPartial:
				cards.Partial++
			default:
				cards.Incomplete++
			}
			pct := row.Variance.PercentVariance
			if pct == nil {
				continue
			}
			abs := math.Abs(*pct)
			sum += abs
			n++
			if cards.MaxVariance == nil || abs > math.Abs(*cards.MaxVariance) {
				v := *pct
				cards.MaxVariance = &v
				cards.MaxVarianceCode = row.Summary.CurrencyCode
			}
		}
	}
	if n > 0 {
		avg := sum / float64(n)
		cards.AvgAbsVariance = &avg
	}
	return cards
}

// handleSummary renders the summary table with variance and data quality.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sel, err := s.parseSelection(r)
	if err != nil {
		s.fail(w, r, log.OpSummarize, err)
		return
	}
	reports, err := s.monthReports(ctx, sel)
	if err != nil {
		s.fail(w, r, log.OpSummarize, err)
		return
	}

	today := s.now()
	var notices, warnings []string
	for _, report := range reports {
		if !calendar.IsMonthComplete(report.YearMonth, today) {
			notices = append(notices, fmt.Sprintf("%s is in progress; the final rate is expected on %s.",
				report.YearMonth.Label(), core.FormatDate(calendar.ExpectedPublication(report.YearMonth))))
		}
		for _, code := range sortedKeys(report.Errors) {
			warnings = append(warnings, fmt.Sprintf("%s %s: %v", code, report.YearMonth, report.Errors[code]))
		}
	}

	data := struct {
		Selection Selection
		Reports   []core.MonthReport
		Cards     statCards
		Notices   []string
		Warnings  []string
	}{
		Selection: sel,
		Reports:   reports,
		Cards:     buildStatCards(sel, reports),
		Notices:   notices,
		Warnings:  warnings,
	}
	s.render(w, r, "summary.html", data)
}

// handleCharts renders the SVG charts of the last month of the selection and
// the daily trend over the whole selection.
func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sel, err := s.parseSelection(r)
	if err != nil {
		s.fail(w, r, log.OpRender, err)
		return
	}
	reports, err := s.monthReports(ctx, sel)
	if err != nil {
		s.fail(w, r, log.OpSummarize, err)
		return
	}
	last := reports[len(reports)-1]
	dash, err := charts.ForRows(last.Rows, sel.BaseCurrency)
	if err != nil {
		s.fail(w, r, log.OpRender, err)
		return
	}

	daily, err := s.dailyRates(ctx, sel)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	trend, err := charts.DailyTrend(daily, sel.BaseCurrency)
	if err != nil {
		s.fail(w, r, log.OpRender, err)
		return
	}

	data := struct {
		Selection Selection
		Month     core.YearMonth
		Charts    charts.Dashboard
		Trend     template.HTML
	}{
		Selection: sel,
		Month:     last.YearMonth,
		Charts:    dash,
		Trend:     trend,
	}
	s.render(w, r, "charts.html", data)
}

// handleAnalytics renders volatility and translation impact for the
// selection's currencies.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sel, err := s.parseSelection(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	data := struct {
		Selection  Selection
		Enabled    bool
		Days       int
		Year       int
		Volatility []core.VolatilityMetric
		Impacts    []core.TranslationImpact
	}{
		Selection: sel,
		Enabled:   s.deps.Analytics != nil,
		Days:      s.opts.VolatilityDays,
		Year:      sel.To.Year,
	}
	if data.Enabled {
		cfg := sel.RateConfig(s.opts)
		if data.Volatility, err = s.deps.Analytics.Volatility(ctx, cfg, s.opts.VolatilityDays); err != nil {
			s.fail(w, r, log.OpSummarize, err)
			return
		}
		if data.Impacts, err = s.deps.Analytics.TranslationImpact(ctx, cfg, sel.To.Year); err != nil {
			s.fail(w, r, log.OpSummarize, err)
			return
		}
	}
	s.render(w, r, "analytics.html", data)
}

// rawRow is one date of the raw rate table; cells follow the currency order.
type rawRow struct {
	Date  time.Time
	Cells []*float64
}

// pivotDaily lays triangulated rates out as one row per date.
func pivotDaily(currencies []string, rates []core.TriangulatedRate) []rawRow {
	index := make(map[string]int, len(currencies))
	for i, code := range currencies {
		index[code] = i
	}
	var rows []rawRow
	for _, rate := range rates {
		if len(rows) == 0 || !rows[len(rows)-1].Date.Equal(rate.Date) {
			rows = append(rows, rawRow{Date: rate.Date, Cells: make([]*float64, len(currencies))})
		}
		if i, ok := index[rate.CurrencyCode]; ok {
			v := rate.Rate
			rows[len(rows)-1].Cells[i] = &v
		}
	}
	return rows
}

// handleRaw renders the triangulated daily rates of the selection.
func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	sel, err := s.parseSelection(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	daily, err := s.dailyRates(r.Context(), sel)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	data := struct {
		Selection Selection
		Rows      []rawRow
	}{
		Selection: sel,
		Rows:      pivotDaily(sel.Currencies, daily),
	}
	s.render(w, r, "raw.html", data)
}

// configView is the configuration and database analysis tab.
type configView struct {
	Base       string
	Overridden bool
	Currencies []core.CurrencyInfo
	Missing    []string
	Stats      core.StoreStats
	Coverage   []core.MonthCoverage
	Months     []core.AvailableMonth
	Runs       []core.ImportRun
}

func (s *Server) loadConfigView(r *http.Request) (configView, error) {
	ctx := r.Context()
	view := configView{Base: s.opts.BaseCurrency, Overridden: s.deps.Currencies.Overridden()}

	var err error
	if view.Currencies, err = s.deps.Currencies.Info(ctx); err != nil {
		return view, err
	}
	if view.Missing, err = s.deps.Currencies.Missing(ctx); err != nil {
		return view, err
	}
	if view.Months, err = s.deps.Summaries.AvailableMonths(ctx); err != nil {
		return view, err
	}
	if s.deps.Stats != nil {
		if view.Stats, err = s.deps.Stats.Stats(ctx); err != nil {
			return view, err
		}
		if view.Coverage, err = s.deps.Stats.MonthlyCoverage(ctx); err != nil {
			return view, err
		}
	}
	if s.deps.Journal != nil {
		if view.Runs, err = s.deps.Journal.RecentImportRuns(ctx, recentImportRuns); err != nil {
			return view, err
		}
	}
	return view, nil
}

// handleConfig renders application currencies, coverage and store stats.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	view, err := s.loadConfigView(r)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	s.render(w, r, "config.html", view)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
