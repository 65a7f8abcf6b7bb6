// Command fxrates serves the FX dashboard, its exports and the JSON API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fxrates/internal/amqp"
	"fxrates/internal/cli"
	apphttp "fxrates/internal/http"
	"fxrates/internal/log"
	"fxrates/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig("fxrates")

	rates, err := cfg.RateConfig()
	if err != nil {
		logger.Error("Invalid reporting configuration", log.FieldError, err)
		os.Exit(1)
	}

	backend := cli.OpenStore(context.Background(), logger, cfg)
	store := backend.Store

	summaries := services.NewSummaryService(store)
	srv, err := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
		Summaries:  summaries,
		Analytics:  services.NewAnalyticsService(summaries),
		Currencies: services.NewCurrencyService(store, store, cfg.AppCurrencies),
		Stats:      store,
		Journal:    store,
		Store:      store,
	}, apphttp.Options{
		BaseCurrency:   rates.BaseCurrency,
		CoverageFrom:   rates.CoverageFrom,
		CoverageTo:     rates.CoverageTo,
		VolatilityDays: cfg.VolatilityDays,
		CacheTTL:       cfg.CacheTTL,
		CacheSize:      cfg.CacheSize,
		RateLimitRPM:   cfg.RateLimitRPM,
		Logger:         logger.WithComponent(log.ComponentHTTP),
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	var notifications *amqp.Client
	if cfg.AMQPEnabled() {
		notifications, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, "")
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, cached summaries expire by TTL only", log.FieldError, err)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if notifications != nil {
			_ = notifications.Close()
		}
		if err := backend.Cleanup(); err != nil {
			logger.Error("Failed to close rate store", log.FieldError, err)
		}
	})

	if notifications != nil {
		go consumeImports(ctx, logger, notifications, srv)
	}

	logger.Info("Starting fxrates server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		log.FieldBaseCurrency, rates.BaseCurrency,
		"amqp_enabled", notifications != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}

// consumeImports drops cached summaries whenever the importer announces new
// rates. The dashboard binds its own server-named queue so every replica
// sees every notification.
func consumeImports(ctx context.Context, logger *log.Logger, client *amqp.Client, srv *apphttp.Server) {
	amqpLogger := logger.WithComponent(log.ComponentAMQP)
	err := client.ConsumeRatesImported(ctx, func(ctx context.Context, msg *amqp.RatesImportedMessage) error {
		amqpLogger.InfoContext(ctx, "Rates imported, invalidating cache",
			log.FieldRunID, msg.RunID,
			log.FieldRows, msg.Rows,
			"months", msg.Months)
		srv.InvalidateCache()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		amqpLogger.Error("Import notification consumer stopped", log.FieldError, err)
	}
}
