package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the SQL used by SQLiteRepository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type ExchangeRate struct {
	Date         string
	CurrencyCode string
	EurRate      float64
}

const getRate = `SELECT eur_rate FROM exchange_rates WHERE date = ? AND currency_code = ?`

func (q *Queries) GetRate(ctx context.Context, date, code string) (float64, error) {
	var v float64
	err := q.db.QueryRowContext(ctx, getRate, date, code).Scan(&v)
	return v, err
}

const upsertRate = `
INSERT INTO exchange_rates (date, currency_code, eur_rate, imported_at)
VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
ON CONFLICT (date, currency_code) DO UPDATE SET
    eur_rate = excluded.eur_rate,
    imported_at = excluded.imported_at`

func (q *Queries) UpsertRate(ctx context.Context, date, code string, rate float64) error {
	_, err := q.db.ExecContext(ctx, upsertRate, date, code, rate)
	return err
}

const listRatesBase = `
SELECT date, currency_code, eur_rate FROM exchange_rates
WHERE date >= ? AND date <= ?`

func (q *Queries) ListRates(ctx context.Context, from, to string, codes []string) ([]ExchangeRate, error) {
	query := listRatesBase
	args := []interface{}{from, to}
	if len(codes) > 0 {
		query += " AND currency_code IN (" + strings.TrimSuffix(strings.Repeat("?,", len(codes)), ",") + ")"
		for _, c := range codes {
			args = append(args, c)
		}
	}
	query += " ORDER BY date ASC, currency_code ASC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExchangeRate
	for rows.Next() {
		var i ExchangeRate
		if err := rows.Scan(&i.Date, &i.CurrencyCode, &i.EurRate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listCurrencies = `SELECT DISTINCT currency_code FROM exchange_rates ORDER BY currency_code`

func (q *Queries) ListCurrencies(ctx context.Context) ([]string, error) {
	return q.strings(ctx, listCurrencies)
}

const listMonths = `SELECT DISTINCT substr(date, 1, 7) AS ym FROM exchange_rates ORDER BY ym DESC`

func (q *Queries) ListMonths(ctx context.Context) ([]string, error) {
	return q.strings(ctx, listMonths)
}

func (q *Queries) strings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

type ApplicationCurrency struct {
	Code    string
	Name    string
	Active  int64
	AddedAt string
}

const listApplicationCurrencies = `
SELECT code, name, active, added_at FROM application_currencies
WHERE active = 1 ORDER BY added_at, rowid`

func (q *Queries) ListApplicationCurrencies(ctx context.Context) ([]ApplicationCurrency, error) {
	rows, err := q.db.QueryContext(ctx, listApplicationCurrencies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ApplicationCurrency
	for rows.Next() {
		var i ApplicationCurrency
		if err := rows.Scan(&i.Code, &i.Name, &i.Active, &i.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertApplicationCurrency = `
INSERT INTO application_currencies (code, name, active)
VALUES (?, ?, 1)
ON CONFLICT (code) DO UPDATE SET
    active = 1,
    name = CASE WHEN excluded.name = '' THEN application_currencies.name ELSE excluded.name END`

func (q *Queries) UpsertApplicationCurrency(ctx context.Context, code, name string) error {
	_, err := q.db.ExecContext(ctx, upsertApplicationCurrency, code, name)
	return err
}

const deactivateApplicationCurrency = `UPDATE application_currencies SET active = 0 WHERE code = ? AND active = 1`

func (q *Queries) DeactivateApplicationCurrency(ctx context.Context, code string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deactivateApplicationCurrency, code)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type StatsRow struct {
	TotalRecords int64
	UniqueDates  int64
	Currencies   int64
	FirstDate    sql.NullString
	LastDate     sql.NullString
}

const getStats = `
SELECT COUNT(*), COUNT(DISTINCT date), COUNT(DISTINCT currency_code), MIN(date), MAX(date)
FROM exchange_rates`

func (q *Queries) GetStats(ctx context.Context) (StatsRow, error) {
	var s StatsRow
	err := q.db.QueryRowContext(ctx, getStats).Scan(&s.TotalRecords, &s.UniqueDates, &s.Currencies, &s.FirstDate, &s.LastDate)
	return s, err
}

type CurrencyCoverageRow struct {
	CurrencyCode string
	DataPoints   int64
	FirstDate    string
	LastDate     string
	MinRate      float64
	MaxRate      float64
	AvgRate      float64
}

const listCurrencyCoverage = `
SELECT currency_code, COUNT(*), MIN(date), MAX(date), MIN(eur_rate), MAX(eur_rate), AVG(eur_rate)
FROM exchange_rates
GROUP BY currency_code
ORDER BY COUNT(*) DESC, currency_code`

func (q *Queries) ListCurrencyCoverage(ctx context.Context) ([]CurrencyCoverageRow, error) {
	rows, err := q.db.QueryContext(ctx, listCurrencyCoverage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CurrencyCoverageRow
	for rows.Next() {
		var i CurrencyCoverageRow
		if err := rows.Scan(&i.CurrencyCode, &i.DataPoints, &i.FirstDate, &i.LastDate, &i.MinRate, &i.MaxRate, &i.AvgRate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type MonthCoverageRow struct {
	YearMonth   string
	Records     int64
	TradingDays int64
	Currencies  int64
}

const listMonthCoverage = `
SELECT substr(date, 1, 7) AS ym, COUNT(*), COUNT(DISTINCT date), COUNT(DISTINCT currency_code)
FROM exchange_rates
GROUP BY ym
ORDER BY ym DESC`

func (q *Queries) ListMonthCoverage(ctx context.Context) ([]MonthCoverageRow, error) {
	rows, err := q.db.QueryContext(ctx, listMonthCoverage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthCoverageRow
	for rows.Next() {
		var i MonthCoverageRow
		if err := rows.Scan(&i.YearMonth, &i.Records, &i.TradingDays, &i.Currencies); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type ImportRunRow struct {
	ID         string
	Source     string
	StartedAt  string
	FinishedAt string
	Inserted   int64
	Updated    int64
	Skipped    int64
	Filtered   int64
	Months     string
}

const insertImportRun = `
INSERT INTO import_runs (id, source, started_at, finished_at, inserted, updated, skipped, filtered, months)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertImportRun(ctx context.Context, r ImportRunRow) error {
	_, err := q.db.ExecContext(ctx, insertImportRun,
		r.ID, r.Source, r.StartedAt, r.FinishedAt, r.Inserted, r.Updated, r.Skipped, r.Filtered, r.Months)
	return err
}

const listImportRuns = `
SELECT id, source, started_at, finished_at, inserted, updated, skipped, filtered, months
FROM import_runs ORDER BY started_at DESC LIMIT ?`

func (q *Queries) ListImportRuns(ctx context.Context, limit int64) ([]ImportRunRow, error) {
	rows, err := q.db.QueryContext(ctx, listImportRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ImportRunRow
	for rows.Next() {
		var i ImportRunRow
		if err := rows.Scan(&i.ID, &i.Source, &i.StartedAt, &i.FinishedAt, &i.Inserted, &i.Updated, &i.Skipped, &i.Filtered, &i.Months); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
