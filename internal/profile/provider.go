// Package profile supplies display metadata for player handles appearing in
// the feed. Lookups happen off the hot path; the pipeline tolerates a
// provider that is slow, failing or absent.
package profile

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/kravein/starfeed/internal/model"
)

// Provider resolves a player handle to profile metadata. Implementations
// must be safe for concurrent use.
type Provider interface {
	Lookup(ctx context.Context, handle string) (model.Profile, error)
}

// Noop is the provider used when enrichment is disabled; every lookup
// returns an empty profile.
type Noop struct{}

func (Noop) Lookup(ctx context.Context, handle string) (model.Profile, error) {
	return model.Profile{}, nil
}

// Cached wraps a provider with a TTL cache so a handle appearing in many
// events is fetched once per window. Errors are not cached.
type Cached struct {
	inner Provider
	c     *cache.Cache
}

// NewCached wraps inner with the given cache TTL.
func NewCached(inner Provider, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		c:     cache.New(ttl, 2*ttl),
	}
}

func (p *Cached) Lookup(ctx context.Context, handle string) (model.Profile, error) {
	if v, ok := p.c.Get(handle); ok {
		return v.(model.Profile), nil
	}
	prof, err := p.inner.Lookup(ctx, handle)
	if err != nil {
		return model.Profile{}, err
	}
	p.c.SetDefault(handle, prof)
	return prof, nil
}
