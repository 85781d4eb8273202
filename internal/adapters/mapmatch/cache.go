package mapmatch

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// coordinate precision of cache keys, roughly 11 m.
const cacheKeyPrecision = 4

// Cached memoizes speed limit lookups of another provider. Matching is
// passed through untouched.
type Cached struct {
	next  Provider
	cache *cache.Cache
}

// NewCached wraps next with a TTL cache.
func NewCached(next Provider, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: cache.New(ttl, ttl*2),
	}
}

// MatchToRoads delegates to the wrapped provider.
func (c *Cached) MatchToRoads(ctx context.Context, points []Point) ([]MatchResult, error) {
	return c.next.MatchToRoads(ctx, points)
}

// SpeedLimit returns a cached limit or asks the wrapped provider. Unknown
// limits are cached too; errors are not.
func (c *Cached) SpeedLimit(ctx context.Context, lat, lon float64) (*float64, error) {
	key := fmt.Sprintf("%.*f:%.*f", cacheKeyPrecision, lat, cacheKeyPrecision, lon)
	if cached, found := c.cache.Get(key); found {
		if limit, ok := cached.(*float64); ok {
			return limit, nil
		}
	}
	limit, err := c.next.SpeedLimit(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, limit, cache.DefaultExpiration)
	return limit, nil
}

// Len returns the number of cached positions.
func (c *Cached) Len() int {
	return c.cache.ItemCount()
}
