package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/blackarb/arbengine/internal/chainpool"
	"github.com/blackarb/arbengine/internal/types"
)

// gasUnitsBudget is the fixed §4.C step 5 gas-unit budget for one flash-loan
// arbitrage sequence (borrow, two swaps, repay), applied uniformly across
// chains absent a per-chain calibration.
const gasUnitsBudget = 450_000

// nativeTokenPriceUSD is a static, approximate native-token/USD conversion
// table used only to express an opportunity's gas cost in the same currency
// as its profit figures. It is not a live price feed; no price oracle is
// wired into this engine.
var nativeTokenPriceUSD = map[types.ChainId]decimal.Decimal{
	types.Ethereum:  decimal.NewFromInt(3000),
	types.Polygon:   decimal.NewFromFloat(0.7),
	types.Arbitrum:  decimal.NewFromInt(3000),
	types.BSC:       decimal.NewFromInt(550),
	types.Avalanche: decimal.NewFromInt(30),
	types.Base:      decimal.NewFromInt(3000),
}

// defaultGasBudgetUnits assigns gasUnitsBudget to every chain with a dialed
// pool, feeding scanner.Scanner.GasBudgetUnits.
func defaultGasBudgetUnits(pools map[types.ChainId]*chainpool.Pool) map[types.ChainId]uint64 {
	out := make(map[types.ChainId]uint64, len(pools))
	for chain := range pools {
		out[chain] = gasUnitsBudget
	}
	return out
}

// poolGasSource implements scanner.GasSource over the dialed chain pools,
// reusing the same wei-to-gwei conversion engineCache.currentGasGwei applies
// for the risk filter's gas-ceiling check.
type poolGasSource struct {
	pools map[types.ChainId]*chainpool.Pool
}

func (g poolGasSource) GasPriceGwei(ctx context.Context, chain types.ChainId) (decimal.Decimal, error) {
	pool, ok := g.pools[chain]
	if !ok {
		return decimal.Zero, fmt.Errorf("no chain pool for %s", chain)
	}
	wei, err := pool.GasPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(wei, 0).Div(decimal.New(1, 9)), nil
}
