package policy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Origin records where the active policy set came from.
type Origin string

const (
	OriginRemote  Origin = "remote"
	OriginCache   Origin = "cache"
	OriginDefault Origin = "default"
)

// Snapshot is an immutable view of the policies used for pricing.
type Snapshot struct {
	Document  Document
	Set       pricing.PolicySet
	Origin    Origin
	Version   string
	FetchedAt time.Time
}

func newSnapshot(doc Document, origin Origin, fetchedAt time.Time) *Snapshot {
	return &Snapshot{
		Document:  doc,
		Set:       doc.PolicySet(),
		Origin:    origin,
		Version:   doc.Version(),
		FetchedAt: fetchedAt,
	}
}

// RefreshLock elects one instance per interval to run the periodic refresh.
type RefreshLock interface {
	Lease(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Options configures a Provider. Every collaborator is optional.
type Options struct {
	Source   Source
	Cache    *Cache
	Notifier *Notifier
	Lock     RefreshLock
	LockKey  string
	Defaults Document
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Provider owns the active policy snapshot. Readers never block on refreshes.
type Provider struct {
	source   Source
	cache    *Cache
	notifier *Notifier
	lock     RefreshLock
	lockKey  string
	logger   zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// NewProvider starts out serving the defaults until the first Refresh.
func NewProvider(opts Options) *Provider {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	p := &Provider{
		source:   opts.Source,
		cache:    opts.Cache,
		notifier: opts.Notifier,
		lock:     opts.Lock,
		lockKey:  opts.LockKey,
		logger:   opts.Logger,
		now:      now,
	}
	p.current.Store(newSnapshot(opts.Defaults, OriginDefault, now()))
	return p
}

// Current returns the active snapshot.
func (p *Provider) Current() Snapshot {
	return *p.current.Load()
}

// Refresh pulls the authoritative document. When the source fails the
// freshest of the cached document and the active snapshot is kept and the
// fetch error is returned alongside it.
func (p *Provider) Refresh(ctx context.Context) (snap Snapshot, err error) {
	ctx, span := obs.StartSpan(ctx, "policy", "policy.refresh")
	defer func() {
		span.SetAttributes(
			attribute.String("policy.origin", string(snap.Origin)),
			attribute.String("policy.version", snap.Version),
		)
		obs.EndSpan(span, err)
	}()

	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.Current()
	if p.source != nil {
		doc, fetchErr := p.source.Fetch(ctx)
		if fetchErr == nil {
			next := newSnapshot(doc, OriginRemote, p.now())
			p.install(next)
			if err := p.cache.Store(ctx, doc, next.FetchedAt); err != nil {
				p.logger.Warn().Err(err).Msg("policy_cache_store_failed")
			}
			if next.Version != prev.Version {
				p.logger.Info().Str("version", next.Version).Str("previous", prev.Version).Msg("policy_version_changed")
				if err := p.notifier.Publish(ctx, next.Version); err != nil {
					p.logger.Warn().Err(err).Msg("policy_publish_failed")
				}
			}
			recordRefresh(OriginRemote, "ok")
			return *next, nil
		}
		err = fetchErr
		p.logger.Warn().Err(fetchErr).Str("origin", string(prev.Origin)).Msg("policy_fetch_failed")
	}

	doc, fetchedAt, ok, cacheErr := p.cache.Load(ctx)
	if cacheErr != nil {
		p.logger.Warn().Err(cacheErr).Msg("policy_cache_load_failed")
		if err == nil {
			err = cacheErr
		}
	}
	if ok && (prev.Origin == OriginDefault || fetchedAt.After(prev.FetchedAt)) {
		p.install(newSnapshot(doc, OriginCache, fetchedAt))
	}
	current := p.Current()
	result := "fallback"
	if err == nil {
		result = "ok"
	}
	recordRefresh(current.Origin, result)
	return current, err
}

func (p *Provider) install(snap *Snapshot) {
	p.current.Store(snap)
	if obs.PolicySnapshotAge != nil {
		obs.PolicySnapshotAge.Set(p.now().Sub(snap.FetchedAt).Seconds())
	}
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
func (p *Provider) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	_, _ = p.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, interval)
			if obs.PolicySnapshotAge != nil {
				obs.PolicySnapshotAge.Set(p.now().Sub(p.Current().FetchedAt).Seconds())
			}
		}
	}
}

// tick refreshes from the source when this instance holds the refresh lease.
// Other instances pick up the holder's document from the shared cache.
func (p *Provider) tick(ctx context.Context, interval time.Duration) {
	if p.lock == nil || p.lockKey == "" {
		_, _ = p.Refresh(ctx)
		return
	}
	// Slightly shorter than the interval so the holder can renew on its next tick.
	acquired, err := p.lock.Lease(ctx, p.lockKey, interval*9/10)
	switch {
	case acquired:
		_, _ = p.Refresh(ctx)
	case err != nil:
		p.logger.Warn().Err(err).Msg("policy_refresh_lock_failed")
		_, _ = p.Refresh(ctx)
	default:
		p.logger.Debug().Msg("policy_refresh_held_by_peer")
		p.syncFromCache(ctx)
	}
}

// syncFromCache installs the cached document when it is newer than the
// active snapshot.
func (p *Provider) syncFromCache(ctx context.Context) {
	if p.cache == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, fetchedAt, ok, err := p.cache.Load(ctx)
	if err != nil || !ok {
		return
	}
	cur := p.current.Load()
	if !fetchedAt.After(cur.FetchedAt) || doc.Version() == cur.Version {
		return
	}
	p.install(newSnapshot(doc, OriginCache, fetchedAt))
	recordRefresh(OriginCache, "ok")
}

// Watch refreshes whenever another instance announces a version that differs
// from the active one. It returns when ctx is cancelled.
func (p *Provider) Watch(ctx context.Context) error {
	if p.notifier == nil {
		return nil
	}
	sub, err := p.notifier.subscribe(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	defer sub.Close()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if msg.Payload == p.Current().Version {
				continue
			}
			p.logger.Debug().Str("version", msg.Payload).Msg("policy_change_notified")
			_, _ = p.Refresh(ctx)
		}
	}
}

func recordRefresh(origin Origin, result string) {
	if obs.PolicyRefreshTotal == nil {
		return
	}
	obs.PolicyRefreshTotal.WithLabelValues(string(origin), result).Inc()
}
