package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/blackarb/arbengine/internal/chainpool"
	"github.com/blackarb/arbengine/internal/execution"
	"github.com/blackarb/arbengine/internal/flashloan"
	"github.com/blackarb/arbengine/internal/types"
	"github.com/blackarb/arbengine/internal/venue"
)

// engineCache lazily builds and memoizes one execution.Engine per distinct
// (chain, buy-model, sell-model) combination actually observed, since a
// flashloan.Planner is bound to one fixed buy adapter and one fixed sell
// adapter instance. Opportunities pairing the same two pricing models reuse
// the same engine rather than rebuilding one per submission.
type engineCache struct {
	mu        sync.Mutex
	cache     map[string]*execution.Engine
	pools     map[types.ChainId]*chainpool.Pool
	adapters  map[types.ChainId]map[types.PricingModel]venue.Adapter
	providers map[types.ChainId][]flashloan.Provider
	signer    *execution.KeySigner
	dryRun    bool
}

func (c *engineCache) get(opp types.Opportunity) (*execution.Engine, error) {
	key := fmt.Sprintf("%s:%s:%s", opp.Chain, opp.Buy.Venue.Model, opp.Sell.Venue.Model)

	c.mu.Lock()
	defer c.mu.Unlock()
	if eng, ok := c.cache[key]; ok {
		return eng, nil
	}

	pool, ok := c.pools[opp.Chain]
	if !ok {
		return nil, fmt.Errorf("no chain pool for %s", opp.Chain)
	}
	buyAdapter, ok := c.adapters[opp.Chain][opp.Buy.Venue.Model]
	if !ok {
		return nil, fmt.Errorf("no adapter for buy venue model %s on %s", opp.Buy.Venue.Model, opp.Chain)
	}
	sellAdapter, ok := c.adapters[opp.Chain][opp.Sell.Venue.Model]
	if !ok {
		return nil, fmt.Errorf("no adapter for sell venue model %s on %s", opp.Sell.Venue.Model, opp.Chain)
	}

	planner := &flashloan.Planner{
		Chain:     pool,
		Providers: c.providers[opp.Chain],
		Buy:       buyAdapter,
		Sell:      sellAdapter,
	}
	signerAddr := c.signer.Address()
	eng := execution.NewEngine(pool, planner, signerAddr, c.signer, c.dryRun, execution.DefaultLimits())
	c.cache[key] = eng
	return eng, nil
}

// totalInFlight sums every cached engine's in-flight execution count, for
// the periodic stats snapshot.
func (c *engineCache) totalInFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, eng := range c.cache {
		total += eng.InFlight()
	}
	return total
}

// currentGasGwei reads the chain's current gas price for the risk filter's
// gas-ceiling check, converting from wei to (possibly fractional) gwei.
func (c *engineCache) currentGasGwei(ctx context.Context, chain types.ChainId) decimal.Decimal {
	pool, ok := c.pools[chain]
	if !ok {
		return decimal.Zero
	}
	wei, err := pool.GasPrice(ctx)
	if err != nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, 0).Div(decimal.New(1, 9))
}
