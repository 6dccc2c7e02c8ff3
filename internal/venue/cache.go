package venue

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blackarb/arbengine/internal/types"
)

// QuoteCache fronts the adapters with a per-block memo: a pool's price
// cannot change within a block, so a second quote request for the same
// (pool, blockNumber) pair is served from memory instead of round-tripping
// to an RPC endpoint again.
type QuoteCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]types.Quote
}

type cacheKey struct {
	pool  common.Address
	block uint64
}

func NewQuoteCache() *QuoteCache {
	return &QuoteCache{entries: make(map[cacheKey]types.Quote)}
}

// Get returns a cached quote for pool at block, if present.
func (c *QuoteCache) Get(pool common.Address, block uint64) (types.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.entries[cacheKey{pool, block}]
	return q, ok
}

// Put stores a freshly sampled quote, and evicts any entries for the same
// pool at older blocks since they can never be served again.
func (c *QuoteCache) Put(pool common.Address, block uint64, q types.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.pool == pool && k.block < block {
			delete(c.entries, k)
		}
	}
	c.entries[cacheKey{pool, block}] = q
}
