package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/common"
)

func TestMemoryLimiterAllow(t *testing.T) {
	lim := NewMemoryLimiter("test")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, remaining, _, err := lim.Allow(ctx, "terminal:1", time.Minute, 2)
		require.NoError(t, err)
		require.True(t, allowed)
		require.Equal(t, 1-i, remaining)
	}
	allowed, remaining, reset, err := lim.Allow(ctx, "terminal:1", time.Minute, 2)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)
	require.True(t, reset.After(time.Now()))

	allowed, _, _, err = lim.Allow(ctx, "terminal:2", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestTerminalKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	require.Equal(t, "ip:192.0.2.10", TerminalKey(req))

	req = req.WithContext(common.WithTerminalID(req.Context(), " till-4 "))
	require.Equal(t, "terminal:till-4", TerminalKey(req))
}

func TestHandlerRejectsWithJSONBody(t *testing.T) {
	handler := Handler{
		Limiter: NewMemoryLimiter("json"),
		Config:  Config{Key: TerminalKey, Window: time.Minute, Limit: 1},
	}
	next := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	first := httptest.NewRecorder()
	next.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	next.ServeHTTP(second, req)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Contains(t, second.Body.String(), "RATE_LIMITED")
	require.NotEmpty(t, second.Header().Get("Retry-After"))
}
