// Package fetchcache memoizes a fetch function in the key-value store for a
// fixed TTL and counts how often each resource is actually fetched.
//
// Keys used per resource:
//
//	cache:<id>   the fetched content, expiring after the TTL
//	count:<id>   the access counter
//
// The check-then-set in Fetch is not atomic. Without WithSingleFlight two
// concurrent misses for the same resource may both fetch and both count.
package fetchcache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vyrodovalexey/kvcache/internal/observability"
	"github.com/vyrodovalexey/kvcache/internal/store"
	"github.com/vyrodovalexey/kvcache/internal/value"
)

// DefaultTTL is how long fetched content stays cached.
const DefaultTTL = 10 * time.Second

// CountMode selects when the access counter is incremented.
type CountMode int

const (
	// CountOnFetch increments the counter once per cache miss that fetched
	// successfully. Hits never count.
	CountOnFetch CountMode = iota

	// CountEveryAccess increments the counter on every Fetch call, hit or
	// miss, before the cache is consulted.
	CountEveryAccess
)

// String returns the configuration name of the mode.
func (m CountMode) String() string {
	switch m {
	case CountEveryAccess:
		return "access"
	default:
		return "fetch"
	}
}

// ParseCountMode maps a configuration value to a CountMode.
func ParseCountMode(s string) (CountMode, error) {
	switch s {
	case "", "fetch":
		return CountOnFetch, nil
	case "access":
		return CountEveryAccess, nil
	default:
		return CountOnFetch, fmt.Errorf("unknown count mode %q", s)
	}
}

// Fetcher retrieves the content of a resource.
type Fetcher interface {
	Fetch(ctx context.Context, resourceID string) (string, error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc func(ctx context.Context, resourceID string) (string, error)

// Fetch calls f.
func (f FetchFunc) Fetch(ctx context.Context, resourceID string) (string, error) {
	return f(ctx, resourceID)
}

// CacheKey returns the key holding cached content for resourceID.
func CacheKey(resourceID string) string { return "cache:" + resourceID }

// CountKey returns the key holding the access counter for resourceID.
func CountKey(resourceID string) string { return "count:" + resourceID }

// PageCache wraps a Fetcher with a TTL cache and an access counter.
type PageCache struct {
	kv        store.Store
	fetcher   Fetcher
	ttl       time.Duration
	countMode CountMode
	group     *singleflight.Group
	logger    observability.Logger
}

// Option configures a PageCache.
type Option func(*PageCache)

// WithTTL sets how long fetched content is cached. Non-positive values are
// ignored.
func WithTTL(ttl time.Duration) Option {
	return func(p *PageCache) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithCountMode sets when the access counter is incremented.
func WithCountMode(mode CountMode) Option {
	return func(p *PageCache) {
		p.countMode = mode
	}
}

// WithSingleFlight collapses concurrent misses for the same resource within
// this process into one fetch. Waiting callers share the result and the
// context of the caller that started the fetch.
func WithSingleFlight() Option {
	return func(p *PageCache) {
		p.group = &singleflight.Group{}
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(p *PageCache) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a PageCache that fetches through fetcher and caches in kv.
func New(kv store.Store, fetcher Fetcher, opts ...Option) *PageCache {
	p := &PageCache{
		kv:      kv,
		fetcher: fetcher,
		ttl:     DefaultTTL,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TTL returns the configured cache lifetime.
func (p *PageCache) TTL() time.Duration {
	return p.ttl
}

// Fetch returns the content for resourceID, from the cache when an entry
// exists and from the fetcher otherwise. A fetch failure is returned as a
// *FetchError and leaves both the cached entry and the counter untouched.
// Nothing is retried here.
func (p *PageCache) Fetch(ctx context.Context, resourceID string) (string, error) {
	if p.countMode == CountEveryAccess {
		if err := p.count(ctx, resourceID); err != nil {
			return "", err
		}
	}

	content, found, err := p.cached(ctx, resourceID)
	if err != nil {
		return "", err
	}
	if found {
		return content, nil
	}

	observability.GetMetrics().FetchMisses.Inc()
	if p.group == nil {
		return p.load(ctx, resourceID)
	}

	v, err, shared := p.group.Do(resourceID, func() (any, error) {
		// A caller that missed just before another one stored the entry
		// finds it here instead of fetching again. The miss is already
		// counted, so this lookup records no hit.
		content, found, err := p.lookup(ctx, resourceID)
		if err != nil || found {
			return content, err
		}
		return p.load(ctx, resourceID)
	})
	if shared {
		p.logger.Debug("fetch shared", observability.String("resource", resourceID))
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// cached looks up the cached entry and records a hit when found.
func (p *PageCache) cached(ctx context.Context, resourceID string) (string, bool, error) {
	content, found, err := p.lookup(ctx, resourceID)
	if err != nil || !found {
		return "", false, err
	}

	observability.GetMetrics().FetchHits.Inc()
	p.logger.Debug("fetch cache hit", observability.String("resource", resourceID))
	return content, true, nil
}

// lookup reads the cached entry. An empty entry is still found.
func (p *PageCache) lookup(ctx context.Context, resourceID string) (string, bool, error) {
	raw, found, err := p.kv.Get(ctx, CacheKey(resourceID))
	if err != nil {
		return "", false, fmt.Errorf("read cached %s: %w", resourceID, err)
	}
	if !found {
		return "", false, nil
	}
	return string(raw), true, nil
}

func (p *PageCache) load(ctx context.Context, resourceID string) (string, error) {
	metrics := observability.GetMetrics()

	start := time.Now()
	content, err := p.fetcher.Fetch(ctx, resourceID)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchErrors.Inc()
		p.logger.Warn("fetch failed",
			observability.String("resource", resourceID),
			observability.Error(err))
		return "", &FetchError{ResourceID: resourceID, Cause: err}
	}

	// The entry is written before the fetch is counted, so a failed write
	// never leaves a count for content that was thrown away.
	if err := p.kv.SetWithExpiry(ctx, CacheKey(resourceID), []byte(content), p.ttl); err != nil {
		return "", fmt.Errorf("cache %s: %w", resourceID, err)
	}

	if p.countMode == CountOnFetch {
		if err := p.count(ctx, resourceID); err != nil {
			return "", err
		}
	}

	p.logger.Debug("fetched and cached",
		observability.String("resource", resourceID),
		observability.Int("bytes", len(content)),
		observability.Duration("ttl", p.ttl))

	return content, nil
}

func (p *PageCache) count(ctx context.Context, resourceID string) error {
	if _, err := p.kv.Incr(ctx, CountKey(resourceID)); err != nil {
		return fmt.Errorf("count access to %s: %w", resourceID, err)
	}
	return nil
}

// AccessCount returns the access counter for resourceID, or 0 if the
// resource was never counted.
func (p *PageCache) AccessCount(ctx context.Context, resourceID string) (int64, error) {
	raw, found, err := p.kv.Get(ctx, CountKey(resourceID))
	if err != nil {
		return 0, fmt.Errorf("read access count of %s: %w", resourceID, err)
	}
	if !found {
		return 0, nil
	}
	n, err := value.DecodeInt(raw)
	if err != nil {
		return 0, fmt.Errorf("access count of %s: %w", resourceID, err)
	}
	return n, nil
}
