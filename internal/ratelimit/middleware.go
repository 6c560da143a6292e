package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Allower decides whether one more event for key fits in limit events per
// window.
type Allower interface {
	Allow(ctx context.Context, key string, window time.Duration, limit int) (allowed bool, remaining int, reset time.Time, err error)
}

// Config derives the limit key for a request and sets the budget.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Limit  int
}

// Handler enforces Config in front of a handler. Limiter failures let the
// request through and are reported to OnError.
type Handler struct {
	Limiter Allower
	Config  Config
	OnError func(error)
}

// Middleware sets the X-RateLimit-* headers and answers 429 with Retry-After
// once the budget is spent.
func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil || h.Config.Key == nil || h.Config.Limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Limit)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(h.Config.Limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if allowed {
			next.ServeHTTP(w, r)
			return
		}
		// Round up so clients never retry a moment too early.
		retryAfter := int((time.Until(resetAt) + time.Second - 1) / time.Second)
		headers.Set("Retry-After", strconv.Itoa(max(retryAfter, 1)))
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many quote requests from this terminal", nil)
	})
}

// TerminalKey limits per calling terminal, falling back to the client IP.
func TerminalKey(r *http.Request) string {
	if id, ok := common.TerminalID(r.Context()); ok && strings.TrimSpace(id) != "" {
		return "terminal:" + strings.TrimSpace(id)
	}
	return "ip:" + common.ClientIP(r)
}
