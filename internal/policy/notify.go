package policy

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Notifier broadcasts policy version changes between service instances.
type Notifier struct {
	client  *redis.Client
	channel string
}

// NewNotifier returns nil when Redis is not configured.
func NewNotifier(client *redis.Client, channel string) *Notifier {
	channel = strings.TrimSpace(channel)
	if client == nil || channel == "" {
		return nil
	}
	return &Notifier{client: client, channel: channel}
}

// Publish announces a new policy version.
func (n *Notifier) Publish(ctx context.Context, version string) error {
	if n == nil {
		return nil
	}
	return n.client.Publish(ctx, n.channel, version).Err()
}

func (n *Notifier) subscribe(ctx context.Context) (*redis.PubSub, error) {
	sub := n.client.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	return sub, nil
}
