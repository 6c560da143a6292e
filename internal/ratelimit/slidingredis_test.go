package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLimiterSlidingWindow(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	limiter := Limiter{Client: client, Prefix: "test:", Now: func() time.Time { return clock }}
	ctx := context.Background()
	window := 10 * time.Second

	allowed, remaining, reset, err := limiter.Allow(ctx, "terminal:till-1", window, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 1, remaining)
	require.Equal(t, clock.Add(window), reset)

	clock = clock.Add(4 * time.Second)
	allowed, remaining, _, err = limiter.Allow(ctx, "terminal:till-1", window, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Zero(t, remaining)

	// Rejections are not recorded, so retries do not push the reset out.
	for i := 0; i < 3; i++ {
		allowed, remaining, reset, err = limiter.Allow(ctx, "terminal:till-1", window, 2)
		require.NoError(t, err)
		require.False(t, allowed)
		require.Zero(t, remaining)
		require.Equal(t, clock.Add(-4*time.Second).Add(window), reset)
	}

	// The first event slides out; the second still counts.
	clock = clock.Add(7 * time.Second)
	allowed, remaining, _, err = limiter.Allow(ctx, "terminal:till-1", window, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Zero(t, remaining)

	allowed, _, _, err = limiter.Allow(ctx, "terminal:till-2", window, 2)
	require.NoError(t, err)
	require.True(t, allowed, "terminals are limited independently")
}

func TestLimiterWithoutClientAllows(t *testing.T) {
	allowed, remaining, _, err := Limiter{}.Allow(context.Background(), "k", time.Second, 5)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 5, remaining)
}
