package venue

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/shopspring/decimal"

	"github.com/blackarb/arbengine/internal/chainpool"
	"github.com/blackarb/arbengine/internal/types"
	"github.com/blackarb/arbengine/internal/util"
)

// globalState/liquidity mirrors the seven-field result the teacher's
// safelyGetStateOfAMM parsed off an Algebra pool, trimmed to the fields a
// price quote actually needs.
const concentratedABIJSON = `[
	{"name":"globalState","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"price","type":"uint160"},{"name":"tick","type":"int24"},
	            {"name":"fee","type":"uint16"},{"name":"timepointIndex","type":"uint16"},
	            {"name":"communityFeeToken0","type":"uint8"},{"name":"communityFeeToken1","type":"uint8"},
	            {"name":"unlocked","type":"bool"}]},
	{"name":"liquidity","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint128"}]}
]`

// ConcentratedAdapter prices a Uniswap-V3/Algebra-style tick-ranged pool.
type ConcentratedAdapter struct {
	Chain chainpool.ChainClient
	abi   abi.ABI
}

func NewConcentratedAdapter(chain chainpool.ChainClient) (*ConcentratedAdapter, error) {
	parsed, err := abi.JSON(strings.NewReader(concentratedABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse concentrated-liquidity abi: %w", err)
	}
	return &ConcentratedAdapter{Chain: chain, abi: parsed}, nil
}

func (a *ConcentratedAdapter) reader(venue types.Venue) *PoolReader {
	return &PoolReader{Chain: a.Chain, ABI: a.abi, Pool: venue.PoolAddress}
}

func (a *ConcentratedAdapter) state(ctx context.Context, venue types.Venue) (*big.Int, int32, *big.Int, error) {
	r := a.reader(venue)

	gs, err := r.Call(ctx, "globalState")
	if err != nil {
		return nil, 0, nil, err
	}
	if len(gs) < 2 {
		return nil, 0, nil, fmt.Errorf("globalState returned %d values, want >= 2", len(gs))
	}
	sqrtPriceX96, ok := gs[0].(*big.Int)
	if !ok {
		return nil, 0, nil, fmt.Errorf("globalState price field has unexpected type")
	}
	tick, ok := gs[1].(int32)
	if !ok {
		if tickBig, ok2 := gs[1].(*big.Int); ok2 {
			tick = int32(tickBig.Int64())
		} else {
			return nil, 0, nil, fmt.Errorf("globalState tick field has unexpected type")
		}
	}

	liq, err := r.Call(ctx, "liquidity")
	if err != nil {
		return nil, 0, nil, err
	}
	liquidity, ok := liq[0].(*big.Int)
	if !ok {
		return nil, 0, nil, fmt.Errorf("liquidity returned unexpected type")
	}

	return sqrtPriceX96, tick, liquidity, nil
}

func (a *ConcentratedAdapter) Quote(ctx context.Context, venue types.Venue, pair types.TokenPair) (types.Quote, error) {
	sqrtPriceX96, _, liquidity, err := a.state(ctx, venue)
	if err != nil {
		return types.Quote{}, err
	}
	if liquidity.Sign() == 0 {
		return types.Quote{}, &types.InsufficientLiquidityError{Venue: venue.Name, Required: "any", Depth: "0"}
	}

	priceF := util.SqrtPriceToPrice(sqrtPriceX96)
	mid, _ := decimal.NewFromString(priceF.Text('f', 36))

	feeBps := venue.FeeTierBps
	if feeBps == 0 {
		feeBps = 5
	}
	feeFactor := decimal.NewFromInt(10000 - int64(feeBps)).Div(decimal.NewFromInt(10000))

	// Active-range liquidity L stands in for depth, reported as raw L rather
	// than converted to a token amount.
	depth := decimal.NewFromBigInt(liquidity, 0)

	return types.Quote{
		Venue:       venue,
		Pair:        pair,
		MidPrice:    mid,
		BuyPrice:    mid.Div(feeFactor),
		SellPrice:   mid.Mul(feeFactor),
		Depth:       depth,
		FeeTierBps:  feeBps,
		SampledAt:   time.Now(),
		Approximate: true, // active-liquidity depth is a proxy, not a firm quote
	}, nil
}

func (a *ConcentratedAdapter) BuildSwap(ctx context.Context, venue types.Venue, pair types.TokenPair, tokenInIsA bool, amountIn, minOut *big.Int) (types.CallData, error) {
	return types.CallData{To: venue.RouterAddr, Data: nil, Value: decimal.Zero}, nil
}

// PriceImpact walks the constant-liquidity approximation: within one tick
// range, concentrated liquidity behaves like a constant-product pool scaled
// by the active liquidity, so the same dx/(x+dx) shape applies using
// liquidity as the depth proxy.
func (a *ConcentratedAdapter) PriceImpact(ctx context.Context, venue types.Venue, pair types.TokenPair, notional *big.Int) (float64, error) {
	_, _, liquidity, err := a.state(ctx, venue)
	if err != nil {
		return 0, err
	}
	if liquidity.Sign() == 0 {
		return 1, nil
	}
	l := new(big.Float).SetInt(liquidity)
	dx := new(big.Float).SetInt(notional)
	denom := new(big.Float).Add(l, dx)
	impact := new(big.Float).Quo(dx, denom)
	f, _ := impact.Float64()
	return f, nil
}
