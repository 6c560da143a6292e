package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-pos/internal/config"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/policy"
	"github.com/noah-isme/backend-pos/internal/quote"
	"github.com/noah-isme/backend-pos/internal/ratelimit"
	"github.com/noah-isme/backend-pos/internal/receipt"
	"github.com/noah-isme/backend-pos/internal/resilience"
)

// Dependencies enumerates the services shared by the HTTP surface.
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Redis     *redis.Client
	Validator *validator.Validate
	Limiter   ratelimit.Allower
	Policies  *policy.Provider
	Quotes    *quote.Service

	// SourceBreaker guards the configuration API; nil when none is configured.
	SourceBreaker *resilience.Breaker
}

// Options tweaks how dependencies are built.
type Options struct {
	// RedisMetrics enables redisotel metric instrumentation.
	RedisMetrics bool
	// Source overrides the configuration API source.
	Source policy.Source
}

// Build wires dependencies from configuration. Redis is optional; without it
// policies are not cached or broadcast and rate limits are kept in memory.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	deps := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Validator: validator.New(),
	}

	if cfg.RedisURL != "" {
		client, err := newRedis(ctx, cfg.RedisURL, logger, opts.RedisMetrics)
		if err != nil {
			return nil, err
		}
		deps.Redis = client
	}

	limiter, err := newLimiter(cfg, deps.Redis)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	deps.Limiter = limiter

	source := opts.Source
	if source == nil && cfg.PolicyAPIURL != "" {
		httpSource := NewPolicySource(cfg, logger)
		deps.SourceBreaker = httpSource.Client.Breaker
		source = httpSource
	}
	var (
		cache    *policy.Cache
		notifier *policy.Notifier
		lease    policy.RefreshLock
	)
	if deps.Redis != nil {
		cache = policy.NewCache(deps.Redis, cfg.PolicyCacheKey, cfg.PolicyCacheTTL)
		notifier = policy.NewNotifier(deps.Redis, cfg.PolicyChannel)
		lease = lock.Locker{Client: deps.Redis}
	}
	deps.Policies = policy.NewProvider(policy.Options{
		Source:   source,
		Cache:    cache,
		Notifier: notifier,
		Lock:     lease,
		LockKey:  cfg.PolicyCacheKey + ":refresh",
		Defaults: policy.Defaults(policy.DefaultsConfig{TaxName: cfg.DefaultTaxName, TaxRate: cfg.DefaultTaxRate}),
		Logger:   logger.With().Str("component", "policy").Logger(),
	})

	formatter, err := receipt.NewFormatter(receipt.Options{Locale: cfg.ReceiptLocale, Currency: cfg.ReceiptCurrency})
	if err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("receipt settings: %w", err)
	}
	deps.Quotes = quote.NewService(deps.Policies, formatter, logger.With().Str("component", "quote").Logger())
	return deps, nil
}

// NewPolicySource builds the configuration API client with retries and a
// circuit breaker.
func NewPolicySource(cfg *config.Config, logger zerolog.Logger) policy.HTTPSource {
	breaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("policy_api").
		WithLogger(logger)
	return policy.HTTPSource{
		BaseURL: cfg.PolicyAPIURL,
		Token:   cfg.PolicyAPIToken,
		Client: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     breaker,
			BaseBackoff: 200 * time.Millisecond,
			MaxAttempts: 3,
			Jitter:      0.2,
			Timeout:     cfg.PolicyAPITimeout,
		},
	}
}

func newRedis(ctx context.Context, url string, logger zerolog.Logger, metrics bool) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func newLimiter(cfg *config.Config, client *redis.Client) (ratelimit.Allower, error) {
	if client == nil {
		return ratelimit.NewMemoryLimiter("pos-quotes"), nil
	}
	if cfg.RateLimitStrategy == "fixed" {
		return ratelimit.NewRedisStoreLimiter(client, "pos-quotes")
	}
	return ratelimit.Limiter{Client: client, Prefix: "pos:ratelimit:"}, nil
}

// Start launches the background policy refresh and change watcher.
func (d *Dependencies) Start(ctx context.Context) {
	go d.Policies.Run(ctx, d.Config.PolicyRefreshInterval)
	go func() {
		if err := d.Policies.Watch(ctx); err != nil {
			d.Logger.Error().Err(err).Msg("policy watch stopped")
		}
	}()
}

// Close releases external connections.
func (d *Dependencies) Close() error {
	if d == nil || d.Redis == nil {
		return nil
	}
	return d.Redis.Close()
}
