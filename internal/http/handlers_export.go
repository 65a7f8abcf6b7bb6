package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"fxrates/internal/core"
	"fxrates/internal/export"
	"fxrates/internal/log"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// download sends a generated file as an attachment.
func download(w http.ResponseWriter, filename, contentType string, body *bytes.Buffer) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = body.WriteTo(w)
}

func (s *Server) logExport(r *http.Request, sel Selection, kind string, rows int) {
	fields := log.NewFields().
		WithSelection(sel.From.String()+".."+sel.To.String(), sel.BaseCurrency, sel.Currencies).
		WithOperation(log.OpExport).
		ToSlice()
	fields = append(fields, "export", kind, log.FieldRows, rows)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Export generated", fields...)
}

// handleExportSummary streams the standard CSV export for the selection.
func (s *Server) handleExportSummary(w http.ResponseWriter, r *http.Request) {
	sel, err := s.parseSelection(r)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	reports, err := s.monthReports(r.Context(), sel)
	if err != nil {
		s.fail(w, r, log.OpSummarize, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteSummaryCSV(&buf, reports); err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	s.logExport(r, sel, "summary_csv", len(export.FlattenReports(reports)))
	download(w, export.SummaryFilename(sel.From, sel.To), contentTypeCSV, &buf)
}

// handleExportOneStream streams the OneStream import file.
func (s *Server) handleExportOneStream(w http.ResponseWriter, r *http.Request) {
	sel, err := s.parseSelection(r)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	reports, err := s.monthReports(r.Context(), sel)
	if err != nil {
		s.fail(w, r, log.OpSummarize, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteOneStreamCSV(&buf, reports); err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	s.logExport(r, sel, "onestream_csv", len(export.OneStreamRecords(reports)))
	download(w, export.OneStreamFilename(sel.To), contentTypeCSV, &buf)
}

// handleExportAnalysis builds the EPM analysis workbook.
func (s *Server) handleExportAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sel, err := s.parseSelection(r)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	reports, err := s.monthReports(ctx, sel)
	if err != nil {
		s.fail(w, r, log.OpSummarize, err)
		return
	}

	pkg := export.AnalysisPackage{BaseCurrency: sel.BaseCurrency, Reports: reports}
	if s.deps.Analytics != nil {
		cfg := sel.RateConfig(s.opts)
		if pkg.Volatility, err = s.deps.Analytics.Volatility(ctx, cfg, s.opts.VolatilityDays); err != nil {
			s.fail(w, r, log.OpSummarize, err)
			return
		}
		if pkg.Impacts, err = s.deps.Analytics.TranslationImpact(ctx, cfg, sel.To.Year); err != nil {
			s.fail(w, r, log.OpSummarize, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := export.WriteAnalysisPackage(&buf, pkg); err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	s.logExport(r, sel, "analysis_xlsx", len(export.FlattenReports(reports)))
	download(w, export.AnalysisFilename(sel.To), contentTypeXLSX, &buf)
}

type (
	apiSummary struct {
		YearMonth           string   `json:"year_month"`
		CurrencyCode        string   `json:"currency_code"`
		BaseCurrency        string   `json:"base_currency"`
		AverageRate         *float64 `json:"average_rate"`
		ClosingRate         *float64 `json:"closing_rate"`
		ClosingDate         string   `json:"closing_date,omitempty"`
		WorkingDayCount     int      `json:"working_day_count"`
		ExpectedWorkingDays int      `json:"expected_working_days"`
		DataQuality         string   `json:"data_quality"`
		AbsoluteVariance    *float64 `json:"absolute_variance"`
		PercentVariance     *float64 `json:"percent_variance"`
	}

	apiResponse struct {
		From         string            `json:"from"`
		To           string            `json:"to"`
		BaseCurrency string            `json:"base_currency"`
		Currencies   []string          `json:"currencies"`
		Summaries    []apiSummary      `json:"summaries"`
		Errors       map[string]string `json:"errors,omitempty"`
		GeneratedAt  time.Time         `json:"generated_at"`
	}
)

func toAPISummary(row core.SummaryRow) apiSummary {
	s, v := row.Summary, row.Variance
	return apiSummary{
		YearMonth:           s.YearMonth.String(),
		CurrencyCode:        s.CurrencyCode,
		BaseCurrency:        s.BaseCurrency,
		AverageRate:         s.AverageRate,
		ClosingRate:         s.ClosingRate,
		ClosingDate:         core.FormatDate(s.ClosingDate),
		WorkingDayCount:     s.WorkingDayCount,
		ExpectedWorkingDays: s.ExpectedWorkingDays,
		DataQuality:         string(s.DataQuality),
		AbsoluteVariance:    v.AbsoluteVariance,
		PercentVariance:     v.PercentVariance,
	}
}

// handleAPISummary returns summaries and variances as JSON. Missing values
// are null.
func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	sel, err := s.parseSelection(r)
	if err != nil {
		if isSelectionError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.fail(w, r, log.OpRead, err)
		return
	}
	reports, err := s.monthReports(r.Context(), sel)
	if err != nil {
		s.fail(w, r, log.OpSummarize, err)
		return
	}

	resp := apiResponse{
		From:         sel.From.String(),
		To:           sel.To.String(),
		BaseCurrency: sel.BaseCurrency,
		Currencies:   sel.Currencies,
		Summaries:    []apiSummary{},
		GeneratedAt:  s.now().UTC(),
	}
	for _, row := range export.FlattenReports(reports) {
		resp.Summaries = append(resp.Summaries, toAPISummary(row))
	}
	for _, report := range reports {
		for code, err := range report.Errors {
			if resp.Errors == nil {
				resp.Errors = map[string]string{}
			}
			resp.Errors[report.YearMonth.String()+"/"+code] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
