package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

func TestHeadersMiddleware_Defaults(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(okHandler)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "script-src 'self' https://unpkg.com")
	assert.Equal(t, "same-origin", w.Header().Get("Cross-Origin-Opener-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "no HSTS over plain HTTP")
}

func TestHeadersMiddleware_HSTS(t *testing.T) {
	cfg := DefaultHeadersConfig()
	cfg.HSTSPreload = true
	h := NewHeadersMiddleware(cfg).Middleware(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "max-age=31536000; includeSubDomains; preload", w.Header().Get("Strict-Transport-Security"))
}

func TestHeadersMiddleware_EmptyValuesSkipped(t *testing.T) {
	h := NewHeadersMiddleware(HeadersConfig{XFrameOptions: "SAMEORIGIN"}).Middleware(okHandler)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
	_, ok := w.Header()["Content-Security-Policy"]
	assert.False(t, ok)
}

func TestCacheControl(t *testing.T) {
	w := httptest.NewRecorder()
	StaticAssetMiddleware(3600)(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	StaticAssetMiddleware(0)(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	assert.Empty(t, w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	NoStore(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export/summary.csv", nil))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
