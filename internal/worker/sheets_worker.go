// Package worker turns import notifications into Google Sheets pushes.
package worker

import (
	"context"
	"fmt"

	"fxrates/internal/amqp"
	"fxrates/internal/log"
)

// MonthPublisher republishes the named months ("YYYY-MM").
type MonthPublisher interface {
	HandleRatesImported(ctx context.Context, months []string) error
}

// SheetsWorker handles RatesImported messages from AMQP.
type SheetsWorker struct {
	publisher MonthPublisher
	logger    *log.Logger
}

func NewSheetsWorker(publisher MonthPublisher, logger *log.Logger) *SheetsWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SheetsWorker{
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleRatesImported pushes the months of one import. A failed push is
// returned so the broker redelivers the message.
func (w *SheetsWorker) HandleRatesImported(ctx context.Context, msg *amqp.RatesImportedMessage) error {
	if len(msg.Months) == 0 {
		w.logger.DebugContext(ctx, "Import notification without months", log.FieldRunID, msg.RunID)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing import notification",
		log.FieldRunID, msg.RunID,
		log.FieldRows, msg.Rows,
		"months", msg.Months)

	if err := w.publisher.HandleRatesImported(ctx, msg.Months); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish imported months",
			log.FieldRunID, msg.RunID,
			log.FieldError, err)
		return fmt.Errorf("publish run %s: %w", msg.RunID, err)
	}

	w.logger.InfoContext(ctx, "Imported months published",
		log.FieldRunID, msg.RunID,
		"count", len(msg.Months))
	return nil
}
