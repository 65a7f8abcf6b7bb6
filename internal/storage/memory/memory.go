// Package memory is an in-process RateStore for tests and DATA_BACKEND=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"fxrates/internal/core"
	"fxrates/internal/storage"
)

type rateKey struct {
	date string
	code string
}

type Store struct {
	mu         sync.RWMutex
	rates      map[rateKey]float64
	currencies []core.ApplicationCurrency
	runs       []core.ImportRun
	now        func() time.Time
}

var _ storage.RateStore = (*Store)(nil)

// DefaultCurrencies mirrors the seed applied by the SQLite migration.
var DefaultCurrencies = []core.ApplicationCurrency{
	{Code: "USD", Name: "US Dollar", Active: true},
	{Code: "EUR", Name: "Euro", Active: true},
	{Code: "JPY", Name: "Japanese Yen", Active: true},
	{Code: "CAD", Name: "Canadian Dollar", Active: true},
	{Code: "AUD", Name: "Australian Dollar", Active: true},
	{Code: "CHF", Name: "Swiss Franc", Active: true},
	{Code: "CNY", Name: "Chinese Yuan", Active: true},
}

func NewStore() *Store {
	s := &Store{
		rates: make(map[rateKey]float64),
		now:   time.Now,
	}
	s.currencies = append(s.currencies, DefaultCurrencies...)
	return s
}

// NewStoreWithRates returns a store preloaded with rates.
func NewStoreWithRates(rates []core.RawRate) *Store {
	s := NewStore()
	_, _ = s.UpsertRates(context.Background(), rates)
	return s
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) UpsertRates(_ context.Context, rates []core.RawRate) (storage.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res storage.UpsertResult
	for _, r := range rates {
		k := rateKey{date: core.FormatDate(r.Date), code: strings.ToUpper(r.CurrencyCode)}
		old, ok := s.rates[k]
		switch {
		case !ok:
			res.Inserted++
		case old == r.EURRate:
			res.Unchanged++
			continue
		default:
			res.Updated++
		}
		s.rates[k] = r.EURRate
	}
	return res, nil
}

func (s *Store) GetRates(_ context.Context, from, to time.Time, codes []string) ([]core.RawRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fromS, toS := core.FormatDate(from), core.FormatDate(to)
	want := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		want[strings.ToUpper(c)] = struct{}{}
	}
	var out []core.RawRate
	for k, v := range s.rates {
		if k.date < fromS || k.date > toS {
			continue
		}
		if len(want) > 0 {
			if _, ok := want[k.code]; !ok {
				continue
			}
		}
		d, err := core.ParseDate(k.date)
		if err != nil {
			return nil, err
		}
		out = append(out, core.RawRate{Date: d, CurrencyCode: k.code, EURRate: v})
	}
	core.SortRawRates(out)
	return out, nil
}

func (s *Store) AvailableCurrencies(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	for k := range s.rates {
		seen[k.code] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) AvailableMonths(context.Context) ([]core.YearMonth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	for k := range s.rates {
		seen[k.date[:7]] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for m := range seen {
		keys = append(keys, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	out := make([]core.YearMonth, 0, len(keys))
	for _, k := range keys {
		ym, err := core.ParseYearMonth(k)
		if err != nil {
			return nil, err
		}
		out = append(out, ym)
	}
	return out, nil
}

func (s *Store) ListApplicationCurrencies(context.Context) ([]core.ApplicationCurrency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.ApplicationCurrency
	for _, c := range s.currencies {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) AddApplicationCurrency(_ context.Context, code, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = strings.ToUpper(code)
	for i, c := range s.currencies {
		if c.Code == code {
			s.currencies[i].Active = true
			if name != "" {
				s.currencies[i].Name = name
			}
			return nil
		}
	}
	s.currencies = append(s.currencies, core.ApplicationCurrency{Code: code, Name: name, Active: true, AddedAt: s.now()})
	return nil
}

func (s *Store) RemoveApplicationCurrency(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = strings.ToUpper(code)
	for i, c := range s.currencies {
		if c.Code == code && c.Active {
			s.currencies[i].Active = false
			return nil
		}
	}
	return fmt.Errorf("%w: %s", storage.ErrCurrencyNotFound, code)
}

func (s *Store) Stats(context.Context) (core.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dates := map[string]struct{}{}
	codes := map[string]struct{}{}
	var first, last string
	for k := range s.rates {
		dates[k.date] = struct{}{}
		codes[k.code] = struct{}{}
		if first == "" || k.date < first {
			first = k.date
		}
		if k.date > last {
			last = k.date
		}
	}
	st := core.StoreStats{TotalRecords: len(s.rates), UniqueDates: len(dates), Currencies: len(codes)}
	if first != "" {
		st.FirstDate, _ = core.ParseDate(first)
		st.LastDate, _ = core.ParseDate(last)
	}
	return st, nil
}

func (s *Store) CurrencyCoverage(context.Context) ([]core.CurrencyCoverage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type acc struct {
		n           int
		first, last string
		min, max    float64
		sum         float64
	}
	by := map[string]*acc{}
	for k, v := range s.rates {
		a, ok := by[k.code]
		if !ok {
			a = &acc{first: k.date, last: k.date, min: v, max: v}
			by[k.code] = a
		}
		a.n++
		a.sum += v
		if k.date < a.first {
			a.first = k.date
		}
		if k.date > a.last {
			a.last = k.date
		}
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
	}
	out := make([]core.CurrencyCoverage, 0, len(by))
	for code, a := range by {
		first, _ := core.ParseDate(a.first)
		last, _ := core.ParseDate(a.last)
		out = append(out, core.CurrencyCoverage{
			CurrencyCode: code,
			DataPoints:   a.n,
			FirstDate:    first,
			LastDate:     last,
			MinRate:      a.min,
			MaxRate:      a.max,
			AvgRate:      a.sum / float64(a.n),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DataPoints != out[j].DataPoints {
			return out[i].DataPoints > out[j].DataPoints
		}
		return out[i].CurrencyCode < out[j].CurrencyCode
	})
	return out, nil
}

func (s *Store) MonthlyCoverage(context.Context) ([]core.MonthCoverage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type acc struct {
		records int
		dates   map[string]struct{}
		codes   map[string]struct{}
	}
	by := map[string]*acc{}
	for k := range s.rates {
		m := k.date[:7]
		a, ok := by[m]
		if !ok {
			a = &acc{dates: map[string]struct{}{}, codes: map[string]struct{}{}}
			by[m] = a
		}
		a.records++
		a.dates[k.date] = struct{}{}
		a.codes[k.code] = struct{}{}
	}
	out := make([]core.MonthCoverage, 0, len(by))
	for m, a := range by {
		ym, err := core.ParseYearMonth(m)
		if err != nil {
			return nil, err
		}
		out = append(out, core.MonthCoverage{YearMonth: ym, Records: a.records, TradingDays: len(a.dates), Currencies: len(a.codes)})
	}
	sort.Slice(out, func(i, j int) bool { return out[j].YearMonth.Before(out[i].YearMonth) })
	return out, nil
}

func (s *Store) RecordImportRun(_ context.Context, run core.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *Store) RecentImportRuns(_ context.Context, limit int) ([]core.ImportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	out := make([]core.ImportRun, 0, limit)
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.runs[i])
	}
	return out, nil
}
