// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"fxrates/internal/core"
)

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port         string `envconfig:"PORT" default:"8081"`
	RateLimitRPM int    `envconfig:"RATE_LIMIT_RPM" default:"120"`

	// Rate store
	DataBackend  string `envconfig:"DATA_BACKEND" default:"sqlite"`
	SQLiteDBPath string `envconfig:"SQLITE_DB_PATH" default:"./data/fx_rates.db"`
	// MemorySeedFile is an ECB csv or zip imported when DATA_BACKEND=memory.
	MemorySeedFile string `envconfig:"MEMORY_SEED_FILE"`

	// Reporting selection
	BaseCurrency   string   `envconfig:"BASE_CURRENCY" default:"GBP"`
	AppCurrencies  []string `envconfig:"APP_CURRENCIES"`
	CoverageFrom   string   `envconfig:"COVERAGE_FROM" default:"2024-08-01"`
	CoverageTo     string   `envconfig:"COVERAGE_TO"`
	CurrenciesFile string   `envconfig:"CURRENCIES_FILE"`
	VolatilityDays int      `envconfig:"VOLATILITY_DAYS" default:"90"`

	// ECB source
	ECBHistURL string        `envconfig:"ECB_HIST_URL" default:"https://www.ecb.europa.eu/stats/eurofxref/eurofxref-hist.zip"`
	ECBTimeout time.Duration `envconfig:"ECB_TIMEOUT" default:"30s"`

	// AMQP, optional
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"fx_rates"`
	AMQPQueue    string `envconfig:"AMQP_QUEUE" default:"fx_sheets_publish"`

	// Google Sheets, optional
	GoogleSpreadsheetID string `envconfig:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName     string `envconfig:"GOOGLE_SHEET_NAME" default:"FX Rates"`

	// Sheets worker
	PublishInterval    time.Duration `envconfig:"PUBLISH_INTERVAL" default:"6h"`
	PublishConcurrency int           `envconfig:"PUBLISH_CONCURRENCY" default:"2"`

	// Summary cache
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	CacheSize int           `envconfig:"CACHE_SIZE" default:"256"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load reads the configuration from the environment. It does not validate.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return &cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// AMQPEnabled reports whether import notifications are configured.
func (c *Config) AMQPEnabled() bool {
	return strings.TrimSpace(c.AMQPURL) != ""
}

// SheetsEnabled reports whether the Google Sheets push is configured.
func (c *Config) SheetsEnabled() bool {
	return strings.TrimSpace(c.GoogleSpreadsheetID) != ""
}

// RateConfig builds the reporting selection. Currencies are the
// APP_CURRENCIES override and may be empty, in which case callers use the
// stored application currency set.
func (c *Config) RateConfig() (core.RateConfig, error) {
	from, to, err := c.coverage()
	if err != nil {
		return core.RateConfig{}, err
	}
	return core.RateConfig{
		BaseCurrency: c.BaseCurrency,
		Currencies:   c.AppCurrencies,
		CoverageFrom: from,
		CoverageTo:   to,
	}.Normalized()
}

func (c *Config) coverage() (from, to time.Time, err error) {
	if strings.TrimSpace(c.CoverageFrom) != "" {
		if from, err = core.ParseDate(c.CoverageFrom); err != nil {
			return from, to, fmt.Errorf("COVERAGE_FROM: %w", err)
		}
	}
	if strings.TrimSpace(c.CoverageTo) != "" {
		if to, err = core.ParseDate(c.CoverageTo); err != nil {
			return from, to, fmt.Errorf("COVERAGE_TO: %w", err)
		}
	}
	return from, to, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == BackendMemory && c.MemorySeedFile != "" {
		if _, err := os.Stat(c.MemorySeedFile); err != nil {
			errors = append(errors, fmt.Sprintf("memory seed file not readable: %s", c.MemorySeedFile))
		}
	}

	if _, err := core.NormalizeCurrency(c.BaseCurrency); err != nil {
		errors = append(errors, fmt.Sprintf("invalid base currency: %v", err))
	}
	for _, code := range c.AppCurrencies {
		if _, err := core.NormalizeCurrency(code); err != nil {
			errors = append(errors, fmt.Sprintf("invalid application currency: %v", err))
		}
	}

	if from, to, err := c.coverage(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid coverage range: %v", err))
	} else if !from.IsZero() && !to.IsZero() && to.Before(from) {
		errors = append(errors, fmt.Sprintf("invalid coverage range: %s is before %s", c.CoverageTo, c.CoverageFrom))
	}

	if c.CurrenciesFile != "" {
		if _, err := os.Stat(c.CurrenciesFile); err != nil {
			errors = append(errors, fmt.Sprintf("currencies file not readable: %s", c.CurrenciesFile))
		}
	}

	if c.VolatilityDays < 31 || c.VolatilityDays > 3650 {
		errors = append(errors, fmt.Sprintf("invalid volatility window %d: must be between 31 and 3650 days", c.VolatilityDays))
	}

	if u, err := url.Parse(c.ECBHistURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errors = append(errors, fmt.Sprintf("invalid ECB URL '%s': must be an http or https URL", c.ECBHistURL))
	}
	if c.ECBTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid ECB timeout %v: must be positive", c.ECBTimeout))
	}

	if c.AMQPEnabled() {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
	}

	if c.PublishInterval < time.Minute || c.PublishInterval > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid publish interval %v: must be between 1 minute and 7 days", c.PublishInterval))
	}
	if c.PublishConcurrency < 1 || c.PublishConcurrency > 16 {
		errors = append(errors, fmt.Sprintf("invalid publish concurrency %d: must be between 1 and 16", c.PublishConcurrency))
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.RateLimitRPM < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitRPM))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
