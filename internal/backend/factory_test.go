package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxrates/internal/config"
	"fxrates/internal/core"
)

const seedCSV = `Date,USD,GBP,
2024-09-03,1.1048,0.84,
2024-09-02,1.1060,0.8427,
2024-07-31,1.0800,0.8400,
`

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.NoError(t, Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: "sheets"}.Validate())
	assert.Len(t, GetBackendTypes(), 2)
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  config.BackendSQLite,
		SQLiteDBPath: "fx.db",
		BaseCurrency: "usd",
		CoverageFrom: "2024-08-01",
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "USD", cfg.Rates.BaseCurrency)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), cfg.Rates.CoverageFrom)

	_, err = FromAppConfig(&config.Config{DataBackend: "postgres"})
	assert.Error(t, err)
}

func TestCreateBackend_MemorySeeded(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "eurofxref-hist.csv")
	require.NoError(t, os.WriteFile(seed, []byte(seedCSV), 0o644))

	f := NewFactory(nil)
	res, err := f.CreateBackend(context.Background(), Config{
		Type:     MemoryBackend,
		SeedFile: seed,
		Rates:    core.RateConfig{BaseCurrency: "GBP", CoverageFrom: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	defer res.Cleanup()

	stats, err := res.Store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalRecords, "the July row is outside coverage")

	runs, err := res.Store.RecentImportRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Filtered)
}

func TestCreateBackend_MemoryMissingSeed(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:     MemoryBackend,
		SeedFile: filepath.Join(t.TempDir(), "missing.csv"),
	})
	assert.Error(t, err)
}

func TestCreateBackend_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fx.db")

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	defer res.Cleanup()

	require.NoError(t, res.Store.Ping(context.Background()))
	currencies, err := res.Store.ListApplicationCurrencies(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, currencies, "migration seeds the default currency set")
}
