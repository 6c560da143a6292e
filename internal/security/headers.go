package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// apiHeaders is the fixed set sent with every JSON response. Nothing served
// here is meant to be framed, sniffed or run as a document.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
}

// Headers adds hardening headers to API responses.
type Headers struct {
	// HSTS is the Strict-Transport-Security max-age; zero disables it.
	HSTS           time.Duration
	HSTSSubdomains bool

	// AllowCaching keeps handler Cache-Control values. Quotes depend on live
	// policies so the API defaults to no-store.
	AllowCaching bool
}

func (h Headers) hstsValue() string {
	if h.HSTS <= 0 {
		return ""
	}
	value := "max-age=" + strconv.FormatInt(int64(h.HSTS/time.Second), 10)
	if h.HSTSSubdomains {
		value += "; includeSubDomains"
	}
	return value
}

// Middleware attaches the headers before the handler runs.
func (h Headers) Middleware(next http.Handler) http.Handler {
	hsts := h.hstsValue()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for _, kv := range apiHeaders {
			headers.Set(kv[0], kv[1])
		}
		if !h.AllowCaching {
			headers.Set("Cache-Control", "no-store")
		}
		if hsts != "" && isHTTPS(r) {
			headers.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
