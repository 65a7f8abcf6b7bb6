// Command fx-sheets-worker pushes monthly summaries to Google Sheets. It
// republishes the latest complete month on a timer and the months named by
// every import notification.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"fxrates/internal/amqp"
	"fxrates/internal/cli"
	"fxrates/internal/log"
	"fxrates/internal/services"
	"fxrates/internal/sheets"
	gsheet "fxrates/internal/sheets/google"
	"fxrates/internal/sheets/memory"
	"fxrates/internal/worker"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "publish to an in-process sheet instead of Google Sheets")
	once := flag.Bool("once", false, "publish the latest complete month and exit")
	flag.Parse()

	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig("fx-sheets-worker")
	logger.Info("Starting fx-sheets-worker", "dry_run", *dryRun)

	rates, err := cfg.RateConfig()
	if err != nil {
		logger.Error("Invalid reporting configuration", log.FieldError, err)
		os.Exit(1)
	}

	var sink sheets.SummarySink
	switch {
	case *dryRun:
		sink = memory.New(cfg.GoogleSheetName)
	case cfg.SheetsEnabled():
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		sink = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	default:
		logger.Error("GOOGLE_SPREADSHEET_ID is required unless -dry-run is set")
		os.Exit(1)
	}

	backend := cli.OpenStore(context.Background(), logger, cfg)
	store := backend.Store

	pcfg := services.DefaultPublishProcessorConfig()
	pcfg.Interval = cfg.PublishInterval
	pcfg.Concurrency = cfg.PublishConcurrency
	pcfg.BaseCurrency = rates.BaseCurrency
	processor := services.NewPublishProcessor(
		services.NewSummaryService(store),
		services.NewCurrencyService(store, store, cfg.AppCurrencies),
		sink,
		pcfg,
	)

	if *once {
		err := processor.PublishLatest(context.Background())
		_ = backend.Cleanup()
		if err != nil {
			logger.Error("Publish failed", log.FieldError, err)
			os.Exit(1)
		}
		return
	}

	var notifications *amqp.Client
	if cfg.AMQPEnabled() {
		notifications, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
	} else {
		logger.Info("AMQP disabled, publishing on the timer only")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Publish processor did not stop cleanly", log.FieldError, err)
		}
		if notifications != nil {
			_ = notifications.Close()
		}
		if err := backend.Cleanup(); err != nil {
			logger.Error("Failed to close rate store", log.FieldError, err)
		}
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start publish processor", log.FieldError, err)
		os.Exit(1)
	}

	if notifications != nil {
		handler := worker.NewSheetsWorker(processor, logger)
		go func() {
			err := notifications.ConsumeRatesImported(ctx, handler.HandleRatesImported)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	}

	<-done
}
