package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxrates/internal/core"
	sheetsmem "fxrates/internal/sheets/memory"
	"fxrates/internal/storage/memory"
)

func newTestPublisher(t *testing.T) (*PublishProcessor, *sheetsmem.Store) {
	t.Helper()
	sep := core.YearMonth{Year: 2024, Month: time.September}
	rates := append(monthRates(sep, 0.85, 1.08, nil), monthRates(sep.Next(), 0.84, 1.09, nil)...)
	store := memory.NewStoreWithRates(rates)
	summaries := NewSummaryService(store)
	summaries.now = func() time.Time { return day(2024, 10, 15) }
	currencies := NewCurrencyService(store, store, []string{"USD"})
	sink := sheetsmem.New("FX")

	cfg := DefaultPublishProcessorConfig()
	cfg.Interval = time.Hour
	cfg.RetryDelay = time.Millisecond
	return NewPublishProcessor(summaries, currencies, sink, cfg), sink
}

func TestDefaultPublishProcessorConfig(t *testing.T) {
	cfg := DefaultPublishProcessorConfig()
	assert.Equal(t, 6*time.Hour, cfg.Interval)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "GBP", cfg.BaseCurrency)
}

func TestHandleRatesImportedPublishesMonths(t *testing.T) {
	p, sink := newTestPublisher(t)
	ctx := context.Background()

	require.NoError(t, p.HandleRatesImported(ctx, []string{"2024-09", "2024-10", "garbage"}))
	assert.ElementsMatch(t, []string{"FX 2024-09", "FX 2024-10"}, sink.Tabs())
	assert.Equal(t, 2, sink.Writes())

	rows, err := sink.ReadMonth(ctx, core.YearMonth{Year: 2024, Month: time.September})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "USD", rows[1][1])

	// unchanged content is not rewritten
	require.NoError(t, p.HandleRatesImported(ctx, []string{"2024-09"}))
	assert.Equal(t, 2, sink.Writes())
}

func TestPublishProcessorStartPublishesLatestCompleteMonth(t *testing.T) {
	p, sink := newTestPublisher(t)
	ctx := context.Background()

	require.NoError(t, p.Start(ctx))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(ctx))

	assert.Eventually(t, func() bool { return sink.Writes() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"FX 2024-09"}, sink.Tabs())

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, p.Stop(stopCtx))
	assert.False(t, p.IsRunning())
}

func TestPublishLatest(t *testing.T) {
	p, sink := newTestPublisher(t)

	require.NoError(t, p.PublishLatest(context.Background()))
	assert.Equal(t, []string{"FX 2024-09"}, sink.Tabs())
}

func TestPublishLatest_NoCompleteMonth(t *testing.T) {
	store := memory.NewStore()
	summaries := NewSummaryService(store)
	sink := sheetsmem.New("FX")
	p := NewPublishProcessor(summaries, NewCurrencyService(store, store, nil), sink, DefaultPublishProcessorConfig())

	require.NoError(t, p.PublishLatest(context.Background()))
	assert.Zero(t, sink.Writes())
}

type flakySink struct {
	*sheetsmem.Store
	mu       sync.Mutex
	failures int
}

func (f *flakySink) PublishMonth(ctx context.Context, report core.MonthReport) (string, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return "", errors.New("quota exceeded")
	}
	f.mu.Unlock()
	return f.Store.PublishMonth(ctx, report)
}

func TestPublishRetries(t *testing.T) {
	p, _ := newTestPublisher(t)
	sink := &flakySink{Store: sheetsmem.New("FX"), failures: 2}
	p.sink = sink

	require.NoError(t, p.PublishMonths(context.Background(), []core.YearMonth{{Year: 2024, Month: time.September}}))
	assert.Equal(t, 1, sink.Writes())

	sink.failures = 5
	err := p.PublishMonths(context.Background(), []core.YearMonth{{Year: 2024, Month: time.October}})
	assert.ErrorContains(t, err, "quota exceeded")
}
