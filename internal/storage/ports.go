package storage

import (
	"context"
	"errors"
	"time"

	"fxrates/internal/core"
)

var (
	ErrCurrencyNotFound = errors.New("application currency not found")
	ErrNoRates          = errors.New("no rates stored")
)

// UpsertResult counts the outcome of writing a batch of quotes.
type UpsertResult struct {
	Inserted  int
	Updated   int
	Unchanged int
}

// RateReader reads stored ECB quotes.
type RateReader interface {
	// GetRates returns quotes in [from, to] for codes (all codes when empty),
	// ordered by date then currency code.
	GetRates(ctx context.Context, from, to time.Time, codes []string) ([]core.RawRate, error)
	AvailableCurrencies(ctx context.Context) ([]string, error)
	// AvailableMonths lists months holding at least one quote, newest first.
	AvailableMonths(ctx context.Context) ([]core.YearMonth, error)
}

// RateWriter stores ECB quotes. (date, currency) is unique; a repeated key
// overwrites the stored value.
type RateWriter interface {
	UpsertRates(ctx context.Context, rates []core.RawRate) (UpsertResult, error)
}

// CurrencyConfigStore manages the application currency set.
type CurrencyConfigStore interface {
	ListApplicationCurrencies(ctx context.Context) ([]core.ApplicationCurrency, error)
	AddApplicationCurrency(ctx context.Context, code, name string) error
	RemoveApplicationCurrency(ctx context.Context, code string) error
}

// StatsReader describes what the store holds.
type StatsReader interface {
	Stats(ctx context.Context) (core.StoreStats, error)
	CurrencyCoverage(ctx context.Context) ([]core.CurrencyCoverage, error)
	MonthlyCoverage(ctx context.Context) ([]core.MonthCoverage, error)
}

// ImportJournal records import runs.
type ImportJournal interface {
	RecordImportRun(ctx context.Context, run core.ImportRun) error
	RecentImportRuns(ctx context.Context, limit int) ([]core.ImportRun, error)
}

// RateStore is the full store surface shared by the SQLite and memory backends.
type RateStore interface {
	RateReader
	RateWriter
	CurrencyConfigStore
	StatsReader
	ImportJournal
	Ping(ctx context.Context) error
	Close() error
}
