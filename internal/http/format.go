package http

import (
	"html/template"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fxrates/internal/core"
)

var printer = message.NewPrinter(language.BritishEnglish)

// templateFuncs are the formatting helpers available to every template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"rate":    formatRate,
		"rate6":   core.FormatRate,
		"has":     func(list []string, v string) bool { return slices.Contains(list, v) },
		"pct":     formatPct,
		"date":    core.FormatDate,
		"num":     formatCount,
		"fixed2":  func(v float64) string { return printer.Sprintf("%.2f", v) },
		"quality": qualityClass,
		"risk":    func(r core.RiskLevel) string { return strings.ToLower(string(r)) },
		"join":    strings.Join,
		"month":   func(ym core.YearMonth) string { return ym.Label() },
		"duration": func(d time.Duration) string {
			return d.Round(time.Millisecond).String()
		},
	}
}

// formatRate renders an optional rate with 6 decimals, or a dash when absent.
func formatRate(v *float64) string {
	if v == nil {
		return "—"
	}
	return core.FormatRate(*v)
}

// formatPct renders an optional percentage with a sign and 2 decimals, or a
// dash when absent.
func formatPct(v *float64) string {
	if v == nil {
		return "—"
	}
	s := core.FormatPercent(*v) + "%"
	if *v > 0 {
		s = "+" + s
	}
	return s
}

// formatCount groups thousands, e.g. 12,345.
func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}

func qualityClass(q core.DataQuality) string {
	switch q {
	case core.DataQualityComplete:
		return "ok"
	case core.DataQualityPartial:
		return "warn"
	default:
		return "bad"
	}
}
