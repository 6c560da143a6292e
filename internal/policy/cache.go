package policy

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps the last successfully fetched document in Redis so terminals
// can keep pricing while the configuration API is unreachable.
type Cache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewCache constructs a cache helper. A zero ttl stores without expiry.
func NewCache(client *redis.Client, key string, ttl time.Duration) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{client: client, key: key, ttl: ttl}
}

type cachedDocument struct {
	Document  Document  `json:"document"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Load returns the cached document and when it was originally fetched. It
// reports whether an entry existed.
func (c *Cache) Load(ctx context.Context) (Document, time.Time, bool, error) {
	if c == nil || c.client == nil || c.key == "" {
		return Document{}, time.Time{}, false, nil
	}
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Document{}, time.Time{}, false, nil
		}
		return Document{}, time.Time{}, false, err
	}
	var entry cachedDocument
	if err := json.Unmarshal(data, &entry); err != nil {
		return Document{}, time.Time{}, false, err
	}
	return entry.Document, entry.FetchedAt, true, nil
}

// Store writes the document with the configured TTL.
func (c *Cache) Store(ctx context.Context, doc Document, fetchedAt time.Time) error {
	if c == nil || c.client == nil || c.key == "" {
		return nil
	}
	data, err := json.Marshal(cachedDocument{Document: doc, FetchedAt: fetchedAt.UTC()})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, data, c.ttl).Err()
}
