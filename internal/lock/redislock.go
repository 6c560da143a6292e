package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured is returned when the locker has no redis client.
var ErrNotConfigured = errors.New("lock: redis client not configured")

// Locker hands out Redis leases shared by every API instance. It keeps
// periodic policy refreshes from stampeding the configuration API.
type Locker struct {
	Client *redis.Client
}

// Lease claims key for ttl. Leases are never released early; whoever holds
// one owns the work for the whole period. acquired is false when a peer
// already holds the key.
func (l Locker) Lease(ctx context.Context, key string, ttl time.Duration) (acquired bool, err error) {
	if l.Client == nil {
		return false, ErrNotConfigured
	}
	if key == "" {
		return false, errors.New("lock: key is required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return l.Client.SetNX(ctx, key, uuid.NewString(), ttl).Result()
}
