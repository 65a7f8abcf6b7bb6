package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"fxrates/internal/core"
	"fxrates/internal/metrics"
	"fxrates/internal/storage"
)

// RatesPublisher announces completed imports.
type RatesPublisher interface {
	PublishRatesImported(ctx context.Context, runID string, months []string, rows int) error
}

// ImportStore is the write side used by the importer.
type ImportStore interface {
	storage.RateWriter
	storage.ImportJournal
}

type importRow struct {
	Date     string `validate:"required,datetime=2006-01-02"`
	Currency string `validate:"required,iso4217"`
	Rate     string `validate:"required"`
}

// ImportService validates input rows and writes them to the rate store.
type ImportService struct {
	store     ImportStore
	publisher RatesPublisher
	validate  *validator.Validate
	now       func() time.Time
}

func NewImportService(store ImportStore, publisher RatesPublisher) *ImportService {
	return &ImportService{
		store:     store,
		publisher: publisher,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// Import validates rows, skips and counts malformed ones, drops rows outside
// the coverage range of cfg and upserts the rest. The run is journaled and
// announced when any row changed.
func (s *ImportService) Import(ctx context.Context, source string, rows []core.ImportRow, cfg core.RateConfig) (core.ImportRun, error) {
	run := core.ImportRun{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: s.now().UTC(),
	}

	accepted := make([]core.RawRate, 0, len(rows))
	months := make(map[core.YearMonth]struct{})
	for _, row := range rows {
		rate, err := s.validateRow(row)
		if err != nil {
			run.Skipped++
			slog.DebugContext(ctx, "Skipping malformed row", "error", err)
			continue
		}
		if !cfg.Covers(rate.Date) {
			run.Filtered++
			continue
		}
		accepted = append(accepted, rate)
		months[core.YearMonthOf(rate.Date)] = struct{}{}
	}

	res, err := s.store.UpsertRates(ctx, accepted)
	if err != nil {
		metrics.ObserveImportRun(err)
		return run, fmt.Errorf("store rates: %w", err)
	}
	run.Inserted = res.Inserted
	run.Updated = res.Updated
	run.Months = sortedMonths(months)
	run.FinishedAt = s.now().UTC()

	metrics.AddImportRows("inserted", res.Inserted)
	metrics.AddImportRows("updated", res.Updated)
	metrics.AddImportRows("unchanged", res.Unchanged)
	metrics.AddImportRows("skipped", run.Skipped)
	metrics.AddImportRows("filtered", run.Filtered)
	metrics.ObserveImportRun(nil)

	if err := s.store.RecordImportRun(ctx, run); err != nil {
		slog.ErrorContext(ctx, "Failed to record import run", "run_id", run.ID, "error", err)
	}

	slog.InfoContext(ctx, "Import finished",
		"run_id", run.ID,
		"source", source,
		"rows", len(rows),
		"inserted", run.Inserted,
		"updated", run.Updated,
		"skipped", run.Skipped,
		"filtered", run.Filtered,
		"duration", run.Duration())

	if run.Inserted+run.Updated > 0 {
		if err := s.publish(ctx, run); err != nil {
			slog.ErrorContext(ctx, "Failed to publish import notification",
				"run_id", run.ID, "error", err)
		}
	}

	return run, nil
}

func (s *ImportService) validateRow(row core.ImportRow) (core.RawRate, error) {
	in := importRow{
		Date:     strings.TrimSpace(row.Date),
		Currency: strings.ToUpper(strings.TrimSpace(row.CurrencyCode)),
		Rate:     strings.TrimSpace(row.EURRate),
	}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return core.RawRate{}, &core.MalformedRowError{
				Line:   row.Line,
				Field:  strings.ToLower(verrs[0].Field()),
				Reason: "failed " + verrs[0].Tag(),
			}
		}
		return core.RawRate{}, &core.MalformedRowError{Line: row.Line, Reason: err.Error()}
	}
	if in.Currency == core.EUR {
		return core.RawRate{}, &core.MalformedRowError{Line: row.Line, Field: "currency", Reason: "EUR is the quotation base"}
	}
	if _, err := core.NormalizeCurrency(in.Currency); err != nil {
		return core.RawRate{}, &core.MalformedRowError{Line: row.Line, Field: "currency", Reason: err.Error()}
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.RawRate{}, &core.MalformedRowError{Line: row.Line, Field: "date", Reason: err.Error()}
	}
	rate, err := core.ParseRate(in.Rate)
	if err != nil {
		return core.RawRate{}, &core.MalformedRowError{Line: row.Line, Field: "rate", Reason: err.Error()}
	}
	return core.RawRate{Date: date, CurrencyCode: in.Currency, EURRate: rate}, nil
}

func (s *ImportService) publish(ctx context.Context, run core.ImportRun) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping import notification")
		return nil
	}
	months := make([]string, 0, len(run.Months))
	for _, m := range run.Months {
		months = append(months, m.String())
	}
	return s.publisher.PublishRatesImported(ctx, run.ID, months, run.Inserted+run.Updated)
}

func sortedMonths(set map[core.YearMonth]struct{}) []core.YearMonth {
	out := make([]core.YearMonth, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
