package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAddImportRows(t *testing.T) {
	before := testutil.ToFloat64(importRows.WithLabelValues("inserted"))
	AddImportRows("inserted", 3)
	AddImportRows("inserted", 0)
	AddImportRows("inserted", -1)
	assert.Equal(t, before+3, testutil.ToFloat64(importRows.WithLabelValues("inserted")))
}

func TestObserveImportRun(t *testing.T) {
	ok := testutil.ToFloat64(importRuns.WithLabelValues("ok"))
	failed := testutil.ToFloat64(importRuns.WithLabelValues("error"))

	ObserveImportRun(nil)
	ObserveImportRun(errors.New("boom"))

	assert.Equal(t, ok+1, testutil.ToFloat64(importRuns.WithLabelValues("ok")))
	assert.Equal(t, failed+1, testutil.ToFloat64(importRuns.WithLabelValues("error")))
}

func TestObserveCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(cacheLookups.WithLabelValues("test_cache", "hit"))
	misses := testutil.ToFloat64(cacheLookups.WithLabelValues("test_cache", "miss"))

	ObserveCacheLookup("test_cache", true)
	ObserveCacheLookup("test_cache", false)
	ObserveCacheLookup("test_cache", false)

	assert.Equal(t, hits+1, testutil.ToFloat64(cacheLookups.WithLabelValues("test_cache", "hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(cacheLookups.WithLabelValues("test_cache", "miss")))
}

func TestObserveHTTPRequest(t *testing.T) {
	ObserveHTTPRequest("/test", "GET", 200, 5*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(httpRequestDuration), 1)
}

func TestObserveSheetsPush(t *testing.T) {
	before := testutil.ToFloat64(sheetsPushes.WithLabelValues("error"))
	ObserveSheetsPush(errors.New("quota"))
	assert.Equal(t, before+1, testutil.ToFloat64(sheetsPushes.WithLabelValues("error")))
}
