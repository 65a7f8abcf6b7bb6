package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fxrates/internal/core"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339

// SQLiteRepository is the RateStore backed by a single SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ RateStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// UpsertRates writes all quotes in one transaction.
func (r *SQLiteRepository) UpsertRates(ctx context.Context, rates []core.RawRate) (UpsertResult, error) {
	var res UpsertResult
	if len(rates) == 0 {
		return res, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, rate := range rates {
		date := core.FormatDate(rate.Date)
		code := strings.ToUpper(rate.CurrencyCode)

		existing, err := q.GetRate(ctx, date, code)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res.Inserted++
		case err != nil:
			return UpsertResult{}, fmt.Errorf("read rate %s %s: %w", date, code, err)
		case existing == rate.EURRate:
			res.Unchanged++
			continue
		default:
			res.Updated++
		}

		if err := q.UpsertRate(ctx, date, code, rate.EURRate); err != nil {
			return UpsertResult{}, fmt.Errorf("upsert rate %s %s: %w", date, code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("commit upsert: %w", err)
	}

	slog.InfoContext(ctx, "Rates stored in SQLite",
		"inserted", res.Inserted,
		"updated", res.Updated,
		"unchanged", res.Unchanged)

	return res, nil
}

func (r *SQLiteRepository) GetRates(ctx context.Context, from, to time.Time, codes []string) ([]core.RawRate, error) {
	norm := make([]string, 0, len(codes))
	for _, c := range codes {
		norm = append(norm, strings.ToUpper(c))
	}

	rows, err := r.queries.ListRates(ctx, core.FormatDate(from), core.FormatDate(to), norm)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}

	out := make([]core.RawRate, 0, len(rows))
	for _, row := range rows {
		d, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("stored rate %s: %w", row.CurrencyCode, err)
		}
		out = append(out, core.RawRate{Date: d, CurrencyCode: row.CurrencyCode, EURRate: row.EurRate})
	}
	return out, nil
}

func (r *SQLiteRepository) AvailableCurrencies(ctx context.Context) ([]string, error) {
	codes, err := r.queries.ListCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	return codes, nil
}

func (r *SQLiteRepository) AvailableMonths(ctx context.Context) ([]core.YearMonth, error) {
	raw, err := r.queries.ListMonths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	out := make([]core.YearMonth, 0, len(raw))
	for _, s := range raw {
		ym, err := core.ParseYearMonth(s)
		if err != nil {
			return nil, err
		}
		out = append(out, ym)
	}
	return out, nil
}

func (r *SQLiteRepository) ListApplicationCurrencies(ctx context.Context) ([]core.ApplicationCurrency, error) {
	rows, err := r.queries.ListApplicationCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list application currencies: %w", err)
	}
	out := make([]core.ApplicationCurrency, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.ApplicationCurrency{
			Code:    row.Code,
			Name:    row.Name,
			Active:  row.Active == 1,
			AddedAt: parseTimestamp(row.AddedAt),
		})
	}
	return out, nil
}

func (r *SQLiteRepository) AddApplicationCurrency(ctx context.Context, code, name string) error {
	code = strings.ToUpper(code)
	if err := r.queries.UpsertApplicationCurrency(ctx, code, name); err != nil {
		return fmt.Errorf("add application currency %s: %w", code, err)
	}
	slog.InfoContext(ctx, "Application currency added", "currency", code)
	return nil
}

// RemoveApplicationCurrency deactivates a currency; its rates are kept.
func (r *SQLiteRepository) RemoveApplicationCurrency(ctx context.Context, code string) error {
	code = strings.ToUpper(code)
	n, err := r.queries.DeactivateApplicationCurrency(ctx, code)
	if err != nil {
		return fmt.Errorf("remove application currency %s: %w", code, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrCurrencyNotFound, code)
	}
	slog.InfoContext(ctx, "Application currency removed", "currency", code)
	return nil
}

func (r *SQLiteRepository) Stats(ctx context.Context) (core.StoreStats, error) {
	row, err := r.queries.GetStats(ctx)
	if err != nil {
		return core.StoreStats{}, fmt.Errorf("get stats: %w", err)
	}
	stats := core.StoreStats{
		TotalRecords: int(row.TotalRecords),
		UniqueDates:  int(row.UniqueDates),
		Currencies:   int(row.Currencies),
	}
	if row.FirstDate.Valid {
		stats.FirstDate, _ = core.ParseDate(row.FirstDate.String)
	}
	if row.LastDate.Valid {
		stats.LastDate, _ = core.ParseDate(row.LastDate.String)
	}
	return stats, nil
}

func (r *SQLiteRepository) CurrencyCoverage(ctx context.Context) ([]core.CurrencyCoverage, error) {
	rows, err := r.queries.ListCurrencyCoverage(ctx)
	if err != nil {
		return nil, fmt.Errorf("list currency coverage: %w", err)
	}
	out := make([]core.CurrencyCoverage, 0, len(rows))
	for _, row := range rows {
		first, _ := core.ParseDate(row.FirstDate)
		last, _ := core.ParseDate(row.LastDate)
		out = append(out, core.CurrencyCoverage{
			CurrencyCode: row.CurrencyCode,
			DataPoints:   int(row.DataPoints),
			FirstDate:    first,
			LastDate:     last,
			MinRate:      row.MinRate,
			MaxRate:      row.MaxRate,
			AvgRate:      row.AvgRate,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) MonthlyCoverage(ctx context.Context) ([]core.MonthCoverage, error) {
	rows, err := r.queries.ListMonthCoverage(ctx)
	if err != nil {
		return nil, fmt.Errorf("list month coverage: %w", err)
	}
	out := make([]core.MonthCoverage, 0, len(rows))
	for _, row := range rows {
		ym, err := core.ParseYearMonth(row.YearMonth)
		if err != nil {
			return nil, err
		}
		out = append(out, core.MonthCoverage{
			YearMonth:   ym,
			Records:     int(row.Records),
			TradingDays: int(row.TradingDays),
			Currencies:  int(row.Currencies),
		})
	}
	return out, nil
}

func (r *SQLiteRepository) RecordImportRun(ctx context.Context, run core.ImportRun) error {
	months := make([]string, 0, len(run.Months))
	for _, m := range run.Months {
		months = append(months, m.String())
	}
	err := r.queries.InsertImportRun(ctx, ImportRunRow{
		ID:         run.ID,
		Source:     run.Source,
		StartedAt:  run.StartedAt.UTC().Format(timestampLayout),
		FinishedAt: run.FinishedAt.UTC().Format(timestampLayout),
		Inserted:   int64(run.Inserted),
		Updated:    int64(run.Updated),
		Skipped:    int64(run.Skipped),
		Filtered:   int64(run.Filtered),
		Months:     strings.Join(months, ","),
	})
	if err != nil {
		return fmt.Errorf("record import run: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RecentImportRuns(ctx context.Context, limit int) ([]core.ImportRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.queries.ListImportRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	out := make([]core.ImportRun, 0, len(rows))
	for _, row := range rows {
		run := core.ImportRun{
			ID:         row.ID,
			Source:     row.Source,
			StartedAt:  parseTimestamp(row.StartedAt),
			FinishedAt: parseTimestamp(row.FinishedAt),
			Inserted:   int(row.Inserted),
			Updated:    int(row.Updated),
			Skipped:    int(row.Skipped),
			Filtered:   int(row.Filtered),
		}
		if row.Months != "" {
			for _, s := range strings.Split(row.Months, ",") {
				if ym, err := core.ParseYearMonth(s); err == nil {
					run.Months = append(run.Months, ym)
				}
			}
		}
		out = append(out, run)
	}
	return out, nil
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
