package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"fxrates/internal/core"
	"fxrates/internal/storage"
)

type currencyInput struct {
	Code string `validate:"required,len=3,iso4217"`
	Name string `validate:"max=64"`
}

// CurrencyService manages the application currency set.
type CurrencyService struct {
	store    storage.CurrencyConfigStore
	stats    storage.StatsReader
	override []string
	validate *validator.Validate
}

// NewCurrencyService returns a service over store. A non-empty override
// replaces the stored set for reads.
func NewCurrencyService(store storage.CurrencyConfigStore, stats storage.StatsReader, override []string) *CurrencyService {
	return &CurrencyService{
		store:    store,
		stats:    stats,
		override: override,
		validate: validator.New(),
	}
}

// Codes returns the active application currency codes in display order.
func (s *CurrencyService) Codes(ctx context.Context) ([]string, error) {
	if len(s.override) > 0 {
		return append([]string(nil), s.override...), nil
	}
	list, err := s.store.ListApplicationCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list application currencies: %w", err)
	}
	codes := make([]string, 0, len(list))
	for _, c := range list {
		codes = append(codes, c.Code)
	}
	return codes, nil
}

// Overridden reports whether the set comes from configuration.
func (s *CurrencyService) Overridden() bool {
	return len(s.override) > 0
}

func (s *CurrencyService) Add(ctx context.Context, code, name string) error {
	in := currencyInput{Code: strings.ToUpper(strings.TrimSpace(code)), Name: strings.TrimSpace(name)}
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %q", core.ErrInvalidCurrency, code)
	}
	norm, err := core.NormalizeCurrency(in.Code)
	if err != nil {
		return err
	}
	return s.store.AddApplicationCurrency(ctx, norm, in.Name)
}

func (s *CurrencyService) Remove(ctx context.Context, code string) error {
	norm, err := core.NormalizeCurrency(code)
	if err != nil {
		return err
	}
	return s.store.RemoveApplicationCurrency(ctx, norm)
}

// Seed activates every currency of seed, keeping existing names when the
// seed has none.
func (s *CurrencyService) Seed(ctx context.Context, seed []core.ApplicationCurrency) (int, error) {
	n := 0
	for _, c := range seed {
		if err := s.Add(ctx, c.Code, c.Name); err != nil {
			return n, fmt.Errorf("seed %s: %w", c.Code, err)
		}
		n++
	}
	slog.InfoContext(ctx, "Application currencies seeded", "count", n)
	return n, nil
}

// Info joins every active currency with its stored coverage. With an
// override the listed currencies are the override's, named from the store
// where it knows them.
func (s *CurrencyService) Info(ctx context.Context) ([]core.CurrencyInfo, error) {
	list, err := s.store.ListApplicationCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list application currencies: %w", err)
	}
	if s.Overridden() {
		list = s.overrideList(list)
	}
	coverage, err := s.stats.CurrencyCoverage(ctx)
	if err != nil {
		return nil, fmt.Errorf("currency coverage: %w", err)
	}
	byCode := make(map[string]core.CurrencyCoverage, len(coverage))
	for _, c := range coverage {
		byCode[c.CurrencyCode] = c
	}

	out := make([]core.CurrencyInfo, 0, len(list))
	for _, c := range list {
		info := core.CurrencyInfo{Currency: c, Implicit: c.Code == core.EUR}
		if cov, ok := byCode[c.Code]; ok {
			info.Coverage = &cov
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *CurrencyService) overrideList(stored []core.ApplicationCurrency) []core.ApplicationCurrency {
	names := make(map[string]string, len(stored))
	for _, c := range stored {
		names[c.Code] = c.Name
	}
	out := make([]core.ApplicationCurrency, 0, len(s.override))
	for _, code := range s.override {
		out = append(out, core.ApplicationCurrency{Code: code, Name: names[code], Active: true})
	}
	return out
}

// Missing lists configured currencies with no stored quotes. EUR is never
// missing.
func (s *CurrencyService) Missing(ctx context.Context) ([]string, error) {
	info, err := s.Info(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, i := range info {
		if i.Coverage == nil && !i.Implicit {
			out = append(out, i.Currency.Code)
		}
	}
	return out, nil
}
