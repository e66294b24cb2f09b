package pool

import (
	"fmt"
	"time"

	"github.com/orbitintent/core/infrastructure/cache"
	"github.com/orbitintent/core/types"
)

// QuoteCache memoizes Quote results for a short TTL, for pools fielding a
// high rate of identical quote requests (spec §4.1 treats Quote as pure,
// so memoizing it changes no semantics, only request latency).
type QuoteCache struct {
	pool  *Pool
	cache *cache.TTLCache
}

// NewQuoteCache wraps p with a cache of the given TTL. A TTL of zero uses
// cache.TTLCache's default.
func NewQuoteCache(p *Pool, ttl time.Duration) *QuoteCache {
	return &QuoteCache{pool: p, cache: cache.NewTTLCache(ttl)}
}

// Quote returns a cached amount_out if one was computed within the TTL for
// this exact (token_in, token_out, amount_in) triple, else delegates to the
// underlying Pool and caches the result.
func (c *QuoteCache) Quote(tokenIn, tokenOut types.Address, amountIn *types.U256) (*types.U256, error) {
	key := quoteCacheKey(tokenIn, tokenOut, amountIn)
	if v, ok := c.cache.Get(nil, key); ok {
		if cached, ok := v.(*types.U256); ok {
			return new(types.U256).Set(cached), nil
		}
	}
	out, err := c.pool.Quote(tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, err
	}
	c.cache.Set(nil, key, new(types.U256).Set(out))
	return out, nil
}

// Invalidate drops every cached quote for this pool, called after any Swap
// mutates reserves (spec §4.1's invariant no longer matches a stale quote).
func (c *QuoteCache) Invalidate() {
	c.cache.InvalidateAll()
}

func quoteCacheKey(tokenIn, tokenOut types.Address, amountIn *types.U256) string {
	return fmt.Sprintf("%s:%s:%s", tokenIn.Hex(), tokenOut.Hex(), amountIn.Dec())
}
