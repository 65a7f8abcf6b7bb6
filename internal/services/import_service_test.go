package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxrates/internal/core"
	"fxrates/internal/storage/memory"
)

type fakePublisher struct {
	calls  int
	months []string
	rows   int
	err    error
}

func (f *fakePublisher) PublishRatesImported(_ context.Context, _ string, months []string, rows int) error {
	f.calls++
	f.months = months
	f.rows = rows
	return f.err
}

func importRows() []core.ImportRow {
	return []core.ImportRow{
		{Line: 2, Date: "2024-09-02", CurrencyCode: "USD", EURRate: "1.1070"},
		{Line: 3, Date: "2024-09-02", CurrencyCode: "gbp", EURRate: "0.8423"},
		{Line: 4, Date: "2024-10-01", CurrencyCode: "USD", EURRate: "1.1133"},
		{Line: 5, Date: "2024-13-01", CurrencyCode: "USD", EURRate: "1.1"},
		{Line: 6, Date: "2024-09-03", CurrencyCode: "XXQ", EURRate: "1.1"},
		{Line: 7, Date: "2024-09-03", CurrencyCode: "USD", EURRate: "N/A"},
		{Line: 8, Date: "2024-09-03", CurrencyCode: "USD", EURRate: "-1"},
		{Line: 9, Date: "2024-09-03", CurrencyCode: "EUR", EURRate: "1"},
		{Line: 10, Date: "2024-07-31", CurrencyCode: "USD", EURRate: "1.08"},
	}
}

func coverage() core.RateConfig {
	return core.RateConfig{BaseCurrency: "GBP", CoverageFrom: day(2024, 8, 1)}
}

func TestImportSkipsMalformedRows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	pub := &fakePublisher{}
	svc := NewImportService(store, pub)

	run, err := svc.Import(ctx, "test.csv", importRows(), coverage())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 3, run.Inserted)
	assert.Equal(t, 5, run.Skipped)
	assert.Equal(t, 1, run.Filtered)
	assert.Equal(t, []core.YearMonth{{Year: 2024, Month: time.September}, {Year: 2024, Month: time.October}}, run.Months)

	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, []string{"2024-09", "2024-10"}, pub.months)
	assert.Equal(t, 3, pub.rows)

	runs, err := store.RecentImportRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	pub := &fakePublisher{}
	svc := NewImportService(store, pub)

	_, err := svc.Import(ctx, "a", importRows(), coverage())
	require.NoError(t, err)
	before, err := store.GetRates(ctx, day(2000, 1, 1), day(2100, 1, 1), nil)
	require.NoError(t, err)

	run, err := svc.Import(ctx, "a", importRows(), coverage())
	require.NoError(t, err)
	assert.Zero(t, run.Inserted)
	assert.Zero(t, run.Updated)
	assert.Equal(t, 1, pub.calls, "unchanged re-import is not announced")

	after, err := store.GetRates(ctx, day(2000, 1, 1), day(2100, 1, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestImportPublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewImportService(memory.NewStore(), pub)

	run, err := svc.Import(context.Background(), "a", importRows()[:1], core.RateConfig{})
	require.NoError(t, err)
	assert.Equal(t, 1, run.Inserted)
	assert.Equal(t, 1, pub.calls)
}

func TestImportWithoutPublisher(t *testing.T) {
	svc := NewImportService(memory.NewStore(), nil)
	run, err := svc.Import(context.Background(), "a", importRows()[:2], core.RateConfig{})
	require.NoError(t, err)
	assert.Equal(t, 2, run.Inserted)
}

func TestValidateRowReportsField(t *testing.T) {
	svc := NewImportService(memory.NewStore(), nil)

	_, err := svc.validateRow(core.ImportRow{Line: 7, Date: "2024-09-03", CurrencyCode: "USD", EURRate: "abc"})
	var malformed *core.MalformedRowError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 7, malformed.Line)
	assert.Equal(t, "rate", malformed.Field)

	_, err = svc.validateRow(core.ImportRow{Line: 8, Date: "02/09/2024", CurrencyCode: "USD", EURRate: "1"})
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "date", malformed.Field)

	r, err := svc.validateRow(core.ImportRow{Line: 9, Date: " 2024-09-03 ", CurrencyCode: " jpy", EURRate: "161,93"})
	require.NoError(t, err)
	assert.Equal(t, "JPY", r.CurrencyCode)
	assert.InDelta(t, 161.93, r.EURRate, 1e-12)
}
