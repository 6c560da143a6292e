package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func serveHeaders(h Headers, req *http.Request) http.Header {
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=60")
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr.Result().Header
}

func TestHeadersOverTLS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://pos.example.com/api/v1/policies", nil)
	req.TLS = &tls.ConnectionState{}

	headers := serveHeaders(Headers{HSTS: 24 * time.Hour, HSTSSubdomains: true}, req)
	require.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", headers.Get("X-Frame-Options"))
	require.Contains(t, headers.Get("Content-Security-Policy"), "default-src 'none'")
	require.Equal(t, "max-age=86400; includeSubDomains", headers.Get("Strict-Transport-Security"))
	// Handlers may still set their own cache policy after the middleware.
	require.Equal(t, "max-age=60", headers.Get("Cache-Control"))
}

func TestHeadersBehindProxy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://pos.internal/health/live", nil)
	require.Empty(t, serveHeaders(Headers{HSTS: time.Hour}, req).Get("Strict-Transport-Security"))

	req.Header.Set("X-Forwarded-Proto", "HTTPS")
	require.Equal(t, "max-age=3600", serveHeaders(Headers{HSTS: time.Hour}, req).Get("Strict-Transport-Security"))
}

func TestHeadersNoStoreDefault(t *testing.T) {
	handler := Headers{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))

	rr = httptest.NewRecorder()
	Headers{AllowCaching: true}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Empty(t, rr.Header().Get("Cache-Control"))
}
