package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"
)

// ErrDisabled marks an optional dependency that is not configured.
var ErrDisabled = errors.New("disabled")

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
	PolicyStatus() (origin, version string)
}

// SourceReporter is implemented by checkers that can describe the policy
// source connection, e.g. its circuit breaker position.
type SourceReporter interface {
	PolicySourceState() string
}

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady toggles readiness, e.g. while draining during shutdown.
func SetReady(v bool) { ready.Store(v) }

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	RedisTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes. A terminal can always
// price with default policies, so the policy origin is reported but never
// fails readiness.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil || !ready.Load() {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	redisStatus := "ok"
	if err := h.Checker.PingRedis(r.Context(), h.redisTimeout()); err != nil {
		redisStatus = err.Error()
	}
	origin, version := h.Checker.PolicyStatus()
	status := map[string]string{
		"redis":          redisStatus,
		"policies":       origin,
		"policy_version": version,
	}
	if reporter, ok := h.Checker.(SourceReporter); ok {
		status["policy_source"] = reporter.PolicySourceState()
	}
	w.Header().Set("Content-Type", "application/json")
	if redisStatus != "ok" && redisStatus != ErrDisabled.Error() {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}
