package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fxrates/internal/core"
	"fxrates/internal/metrics"
	"fxrates/internal/sheets"
)

// PublishProcessorConfig holds configuration for the publish processor
type PublishProcessorConfig struct {
	// Interval is how often the latest complete month is republished (default: 6h)
	Interval time.Duration

	// Concurrency bounds parallel month pushes (default: 2)
	Concurrency int

	// MaxRetries is the number of attempts per month (default: 3)
	MaxRetries int

	// RetryDelay is the first backoff delay, doubled per attempt (default: 2s)
	RetryDelay time.Duration

	// BaseCurrency is the triangulation target of published summaries
	BaseCurrency string
}

func DefaultPublishProcessorConfig() PublishProcessorConfig {
	return PublishProcessorConfig{
		Interval:     6 * time.Hour,
		Concurrency:  2,
		MaxRetries:   3,
		RetryDelay:   2 * time.Second,
		BaseCurrency: core.DefaultBaseCurrency,
	}
}

// PublishProcessor pushes monthly summaries to the spreadsheet sink.
type PublishProcessor struct {
	summaries  *SummaryService
	currencies *CurrencyService
	sink       sheets.SummarySink
	config     PublishProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewPublishProcessor(
	summaries *SummaryService,
	currencies *CurrencyService,
	sink sheets.SummarySink,
	config PublishProcessorConfig,
) *PublishProcessor {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 1
	}
	return &PublishProcessor{
		summaries:  summaries,
		currencies: currencies,
		sink:       sink,
		config:     config,
	}
}

// Start publishes the latest complete month, then republishes it every
// Interval. Returns an error if already running.
func (p *PublishProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("publish processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Publish processor started",
		"interval", p.config.Interval,
		"concurrency", p.config.Concurrency)
	return nil
}

// Stop signals the loop and waits for it to finish.
func (p *PublishProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Publish processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Publish processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *PublishProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *PublishProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.publishLatest(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishLatest(ctx)
		}
	}
}

// PublishLatest pushes the latest complete month. Having none is not an
// error.
func (p *PublishProcessor) PublishLatest(ctx context.Context) error {
	ym, ok, err := p.summaries.LatestCompleteMonth(ctx)
	if err != nil {
		return fmt.Errorf("find latest complete month: %w", err)
	}
	if !ok {
		slog.InfoContext(ctx, "No complete month to publish yet")
		return nil
	}
	return p.PublishMonths(ctx, []core.YearMonth{ym})
}

func (p *PublishProcessor) publishLatest(ctx context.Context) {
	if err := p.PublishLatest(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to publish latest month", "error", err)
	}
}

// HandleRatesImported republishes the months named by an import notification.
func (p *PublishProcessor) HandleRatesImported(ctx context.Context, months []string) error {
	parsed := make([]core.YearMonth, 0, len(months))
	for _, m := range months {
		ym, err := core.ParseYearMonth(m)
		if err != nil {
			slog.WarnContext(ctx, "Ignoring malformed month in notification", "year_month", m)
			continue
		}
		parsed = append(parsed, ym)
	}
	return p.PublishMonths(ctx, parsed)
}

// PublishMonths pushes each month with bounded concurrency. Months whose
// published content is already current are left untouched.
func (p *PublishProcessor) PublishMonths(ctx context.Context, months []core.YearMonth) error {
	codes, err := p.currencies.Codes(ctx)
	if err != nil {
		return err
	}
	cfg := core.RateConfig{BaseCurrency: p.config.BaseCurrency, Currencies: codes}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for _, ym := range months {
		g.Go(func() error {
			return p.publishWithRetry(gctx, ym, cfg)
		})
	}
	return g.Wait()
}

func (p *PublishProcessor) publishWithRetry(ctx context.Context, ym core.YearMonth, cfg core.RateConfig) error {
	delay := p.config.RetryDelay
	var err error
	for attempt := 1; attempt <= p.config.MaxRetries; attempt++ {
		err = p.publishMonth(ctx, ym, cfg)
		metrics.ObserveSheetsPush(err)
		if err == nil {
			return nil
		}
		slog.WarnContext(ctx, "Publish attempt failed",
			"year_month", ym.String(),
			"attempt", attempt,
			"error", err)
		if attempt == p.config.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("publish %s: %w", ym, err)
}

func (p *PublishProcessor) publishMonth(ctx context.Context, ym core.YearMonth, cfg core.RateConfig) error {
	report, err := p.summaries.MonthReport(ctx, ym, cfg)
	if err != nil {
		return err
	}

	current, err := p.sink.ReadMonth(ctx, ym)
	if err != nil {
		return fmt.Errorf("read published month: %w", err)
	}
	if current != nil && sheets.Equal(current, sheets.Rows(report)) {
		slog.DebugContext(ctx, "Published month already current", "year_month", ym.String())
		return nil
	}

	tab, err := p.sink.PublishMonth(ctx, report)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published month summary", "year_month", ym.String(), "tab", tab)
	return nil
}
