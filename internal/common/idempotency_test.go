package common_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/common"
)

func newIdem(t *testing.T) (common.Idem, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return common.Idem{R: client, TTL: time.Minute}, mr
}

func refresh(h http.Handler, key, terminal string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/policies/refresh", nil)
	if key != "" {
		req.Header.Set(common.IdempotencyHeader, key)
	}
	if terminal != "" {
		req = req.WithContext(common.WithTerminalID(req.Context(), terminal))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIdemReplaysFirstResponse(t *testing.T) {
	idem, _ := newIdem(t)
	var calls atomic.Int32
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		common.Data(w, http.StatusOK, map[string]int32{"run": n})
	}))

	first := refresh(h, "k1", "till-1")
	require.Equal(t, http.StatusOK, first.Code)
	require.Empty(t, first.Header().Get(common.ReplayHeader))

	second := refresh(h, "k1", "till-1")
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "true", second.Header().Get(common.ReplayHeader))
	require.Equal(t, "application/json", second.Header().Get("Content-Type"))
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.EqualValues(t, 1, calls.Load())

	// Another terminal reusing the key gets its own execution.
	other := refresh(h, "k1", "till-2")
	require.JSONEq(t, `{"data":{"run":2}}`, other.Body.String())

	refresh(h, "", "till-1")
	require.EqualValues(t, 3, calls.Load())
}

func TestIdemRejectsConcurrentDuplicate(t *testing.T) {
	idem, _ := newIdem(t)
	started := make(chan struct{})
	release := make(chan struct{})
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusNoContent)
	}))

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- refresh(h, "k2", "") }()
	<-started

	dup := refresh(h, "k2", "")
	require.Equal(t, http.StatusConflict, dup.Code)
	require.Contains(t, dup.Body.String(), "IDEMPOTENT_IN_PROGRESS")

	close(release)
	require.Equal(t, http.StatusNoContent, (<-done).Code)
}

func TestIdemReleasesKeyOnServerError(t *testing.T) {
	idem, mr := newIdem(t)
	var calls atomic.Int32
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "policy source failed", nil)
			return
		}
		common.Data(w, http.StatusOK, "ok")
	}))

	require.Equal(t, http.StatusBadGateway, refresh(h, "k3", "").Code)
	require.Empty(t, mr.Keys())

	require.Equal(t, http.StatusOK, refresh(h, "k3", "").Code)
	require.Len(t, mr.Keys(), 1)
	require.EqualValues(t, 2, calls.Load())
}

func TestIdemPassesThroughWithoutRedis(t *testing.T) {
	h := common.Idem{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	require.Equal(t, http.StatusAccepted, refresh(h, "k4", "").Code)
	require.Equal(t, http.StatusAccepted, refresh(h, "k4", "").Code)
}
