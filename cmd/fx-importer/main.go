// Command fx-importer loads ECB reference rates into the rate store.
//
// Usage:
//
//	fx-importer                    fetch ECB_HIST_URL and import it
//	fx-importer -file hist.zip     import a local csv or zip file
//	fx-importer -seed-currencies   apply CURRENCIES_FILE before importing
//	fx-importer -summary           print the store analysis and exit
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"fxrates/internal/amqp"
	"fxrates/internal/cli"
	"fxrates/internal/config"
	"fxrates/internal/core"
	"fxrates/internal/ecb"
	"fxrates/internal/log"
	"fxrates/internal/services"
	"fxrates/internal/storage"
)

func main() {
	file := flag.String("file", "", "import a local ECB csv or zip file instead of fetching ECB_HIST_URL")
	summary := flag.Bool("summary", false, "print the store analysis and exit")
	seed := flag.Bool("seed-currencies", false, "apply the CURRENCIES_FILE seed to the application currency set")
	flag.Parse()

	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig("fx-importer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := cli.OpenStore(ctx, logger, cfg)
	defer backend.Cleanup()
	store := backend.Store
	currencies := services.NewCurrencyService(store, store, cfg.AppCurrencies)

	if *seed {
		if err := seedCurrencies(ctx, logger, cfg, currencies); err != nil {
			logger.Error("Currency seed failed", log.FieldError, err, "file", cfg.CurrenciesFile)
			os.Exit(1)
		}
	}

	if *summary {
		if err := writeSummary(ctx, os.Stdout, store, currencies); err != nil {
			logger.Error("Store analysis failed", log.FieldError, err)
			os.Exit(1)
		}
		return
	}

	if err := runImport(ctx, logger, cfg, *file, store); err != nil {
		logger.Error("Import failed", log.FieldError, err)
		os.Exit(1)
	}

	if missing, err := currencies.Missing(ctx); err == nil && len(missing) > 0 {
		logger.Warn("Configured currencies have no stored rates", log.FieldCurrencies, missing)
	}
}

func seedCurrencies(ctx context.Context, logger *log.Logger, cfg *config.Config, currencies *services.CurrencyService) error {
	if cfg.CurrenciesFile == "" {
		logger.Warn("No CURRENCIES_FILE configured, nothing to seed")
		return nil
	}
	list, err := config.LoadCurrencyFile(cfg.CurrenciesFile)
	if err != nil {
		return err
	}
	n, err := currencies.Seed(ctx, list)
	if err != nil {
		return err
	}
	logger.Info("Applied currency seed", "file", cfg.CurrenciesFile, "count", n)
	return nil
}

func runImport(ctx context.Context, logger *log.Logger, cfg *config.Config, file string, store storage.RateStore) error {
	rates, err := cfg.RateConfig()
	if err != nil {
		return err
	}

	var (
		rows   []core.ImportRow
		source string
	)
	ecbLogger := logger.WithComponent(log.ComponentECB)
	if file != "" {
		source = file
		ecbLogger.Info("Reading ECB file", log.FieldSource, source)
		rows, err = ecb.ReadFile(file)
	} else {
		client := ecb.NewClient(cfg.ECBHistURL, cfg.ECBTimeout)
		source = client.URL()
		ecbLogger.Info("Fetching ECB history", log.FieldSource, source)
		rows, err = client.Fetch(ctx)
	}
	if err != nil {
		return err
	}

	// A nil *amqp.Client must not reach the interface.
	var publisher services.RatesPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without notifications", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	run, err := services.NewImportService(store, publisher).Import(ctx, source, rows, rates)
	if err != nil {
		return err
	}
	log.NewStructuredLogger(logger.WithComponent(log.ComponentImport)).LogImportRun(ctx, run)
	return nil
}
