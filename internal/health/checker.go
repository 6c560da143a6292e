package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/policy"
	"github.com/noah-isme/backend-pos/internal/resilience"
)

// Deps probes the service's runtime dependencies.
type Deps struct {
	Redis    *redis.Client
	Policies interface{ Current() policy.Snapshot }
	// Breaker guards the configuration API client; nil when no API is configured.
	Breaker *resilience.Breaker
}

// PingRedis implements Checker.
func (d Deps) PingRedis(ctx context.Context, timeout time.Duration) error {
	if d.Redis == nil {
		return ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}

// PolicyStatus implements Checker.
func (d Deps) PolicyStatus() (string, string) {
	if d.Policies == nil {
		return "unavailable", ""
	}
	snap := d.Policies.Current()
	return string(snap.Origin), snap.Version
}

// PolicySourceState implements SourceReporter.
func (d Deps) PolicySourceState() string {
	if d.Breaker == nil {
		return ErrDisabled.Error()
	}
	return d.Breaker.State().String()
}
