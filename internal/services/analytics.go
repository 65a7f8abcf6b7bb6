package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"fxrates/internal/calendar"
	"fxrates/internal/core"
)

const (
	tradingDaysPerYear    = 252
	minVolatilityPoints   = 30
	volatilityHigh        = 15.0
	volatilityMedium      = 8.0
	translationHigh       = 5.0
	translationMedium     = 2.0
	DefaultVolatilityDays = 90
)

// AnalyticsService derives risk metrics from triangulated daily rates.
type AnalyticsService struct {
	summaries *SummaryService
	now       func() time.Time
}

func NewAnalyticsService(summaries *SummaryService) *AnalyticsService {
	return &AnalyticsService{summaries: summaries, now: time.Now}
}

// Volatility returns the annualized volatility of daily returns over the
// last days calendar days. Currencies with 30 or fewer points are omitted.
func (a *AnalyticsService) Volatility(ctx context.Context, cfg core.RateConfig, days int) ([]core.VolatilityMetric, error) {
	if days <= 0 {
		days = DefaultVolatilityDays
	}
	end := core.DateOnly(a.now())
	start := end.AddDate(0, 0, -days)

	rates, err := a.summaries.DailyRates(ctx, start, end, cfg)
	if err != nil {
		return nil, fmt.Errorf("volatility: %w", err)
	}

	series := groupByCurrency(rates)
	out := make([]core.VolatilityMetric, 0, len(series))
	for code, points := range series {
		if len(points) <= minVolatilityPoints {
			continue
		}
		vol := AnnualizedVolatility(points)
		out = append(out, core.VolatilityMetric{
			CurrencyCode:  code,
			AnnualizedPct: core.Round(vol, 2),
			DataPoints:    len(points),
			Risk:          volatilityRisk(vol),
			PeriodStart:   points[0].Date,
			PeriodEnd:     points[len(points)-1].Date,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrencyCode < out[j].CurrencyCode })
	return out, nil
}

// TranslationImpact compares each quarter's average rate with the closing
// rate of its last month, for every quarter of year up to the current one.
func (a *AnalyticsService) TranslationImpact(ctx context.Context, cfg core.RateConfig, year int) ([]core.TranslationImpact, error) {
	today := a.now()
	lastQuarter := 4
	if year == today.Year() {
		lastQuarter = core.YearMonthOf(today).Quarter()
	} else if year > today.Year() {
		return nil, nil
	}

	var out []core.TranslationImpact
	for q := 1; q <= lastQuarter; q++ {
		start, end := calendar.QuarterBounds(core.YearMonth{Year: year, Month: time.Month((q-1)*3 + 1)})
		rates, err := a.summaries.DailyRates(ctx, start, end, cfg)
		if err != nil {
			return nil, fmt.Errorf("translation impact Q%d %d: %w", q, year, err)
		}
		closingMonth := time.Month(q * 3)
		for code, points := range groupByCurrency(rates) {
			var sum, closing float64
			var closingSeen bool
			for _, p := range points {
				sum += p.Rate
				if p.Date.Month() == closingMonth {
					closing = p.Rate
					closingSeen = true
				}
			}
			if !closingSeen || sum == 0 {
				continue
			}
			avg := sum / float64(len(points))
			impact := (closing - avg) / avg * 100
			out = append(out, core.TranslationImpact{
				Year:         year,
				Quarter:      q,
				CurrencyCode: code,
				AverageRate:  avg,
				ClosingRate:  closing,
				ImpactPct:    impact,
				Risk:         translationRisk(impact),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quarter != out[j].Quarter {
			return out[i].Quarter < out[j].Quarter
		}
		return out[i].CurrencyCode < out[j].CurrencyCode
	})
	return out, nil
}

// AnnualizedVolatility is the sample standard deviation of simple daily
// returns scaled by sqrt(252), in percent. points must be date-ordered.
func AnnualizedVolatility(points []core.TriangulatedRate) float64 {
	if len(points) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Rate
		if prev == 0 {
			continue
		}
		returns = append(returns, points[i].Rate/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / float64(len(returns)-1))
	return std * math.Sqrt(tradingDaysPerYear) * 100
}

func volatilityRisk(v float64) core.RiskLevel {
	switch {
	case v > volatilityHigh:
		return core.RiskHigh
	case v > volatilityMedium:
		return core.RiskMedium
	default:
		return core.RiskLow
	}
}

func translationRisk(impact float64) core.RiskLevel {
	switch abs := math.Abs(impact); {
	case abs > translationHigh:
		return core.RiskHigh
	case abs > translationMedium:
		return core.RiskMedium
	default:
		return core.RiskLow
	}
}

func groupByCurrency(rates []core.TriangulatedRate) map[string][]core.TriangulatedRate {
	out := make(map[string][]core.TriangulatedRate)
	for _, r := range rates {
		out[r.CurrencyCode] = append(out[r.CurrencyCode], r)
	}
	return out
}
