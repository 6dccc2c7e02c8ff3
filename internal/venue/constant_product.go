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
)

const constantProductABIJSON = `[
	{"name":"getReserves","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}]}
]`

// ConstantProductAdapter prices a classic x*y=k pool (Uniswap V2 and forks).
type ConstantProductAdapter struct {
	Chain chainpool.ChainClient
	abi   abi.ABI
}

// NewConstantProductAdapter parses the fixed getReserves ABI once per
// adapter instance; every venue of this model shares the same call shape.
func NewConstantProductAdapter(chain chainpool.ChainClient) (*ConstantProductAdapter, error) {
	parsed, err := abi.JSON(strings.NewReader(constantProductABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse constant-product abi: %w", err)
	}
	return &ConstantProductAdapter{Chain: chain, abi: parsed}, nil
}

func (a *ConstantProductAdapter) reader(venue types.Venue) *PoolReader {
	return &PoolReader{Chain: a.Chain, ABI: a.abi, Pool: venue.PoolAddress}
}

func (a *ConstantProductAdapter) reserves(ctx context.Context, venue types.Venue) (*big.Int, *big.Int, error) {
	vals, err := a.reader(venue).Call(ctx, "getReserves")
	if err != nil {
		return nil, nil, err
	}
	if len(vals) < 2 {
		return nil, nil, fmt.Errorf("getReserves returned %d values, want >= 2", len(vals))
	}
	r0, ok0 := vals[0].(*big.Int)
	r1, ok1 := vals[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, fmt.Errorf("getReserves returned unexpected types")
	}
	return r0, r1, nil
}

func (a *ConstantProductAdapter) Quote(ctx context.Context, venue types.Venue, pair types.TokenPair) (types.Quote, error) {
	r0, r1, err := a.reserves(ctx, venue)
	if err != nil {
		return types.Quote{}, err
	}
	if r0.Sign() == 0 || r1.Sign() == 0 {
		return types.Quote{}, &types.InsufficientLiquidityError{Venue: venue.Name, Required: "any", Depth: "0"}
	}

	mid := decimal.NewFromBigInt(r1, 0).Div(decimal.NewFromBigInt(r0, 0))

	// 0.3% typical fee tier applied symmetrically when the venue omits one.
	feeBps := venue.FeeTierBps
	if feeBps == 0 {
		feeBps = 30
	}
	feeFactor := decimal.NewFromInt(10000 - int64(feeBps)).Div(decimal.NewFromInt(10000))

	return types.Quote{
		Venue:       venue,
		Pair:        pair,
		MidPrice:    mid,
		BuyPrice:    mid.Div(feeFactor),
		SellPrice:   mid.Mul(feeFactor),
		Depth:       decimal.NewFromBigInt(r1, 0),
		FeeTierBps:  feeBps,
		SampledAt:   time.Now(),
		Approximate: false,
	}, nil
}

// BuildSwap returns a call addressed to the venue's router with empty Data;
// no swapExactTokensForTokens calldata is encoded and amountIn/minOut are
// not used.
func (a *ConstantProductAdapter) BuildSwap(ctx context.Context, venue types.Venue, pair types.TokenPair, tokenInIsA bool, amountIn, minOut *big.Int) (types.CallData, error) {
	path := []types.Token{pair.TokenA, pair.TokenB}
	if !tokenInIsA {
		path = []types.Token{pair.TokenB, pair.TokenA}
	}
	_ = path // path ordering is computed but not encoded into the call
	return types.CallData{To: venue.RouterAddr, Data: nil, Value: decimal.Zero}, nil
}

// PriceImpact estimates constant-product slippage analytically:
// dy/y = dx / (x + dx), which needs no extra on-chain round trip beyond the
// reserves already fetched for Quote.
func (a *ConstantProductAdapter) PriceImpact(ctx context.Context, venue types.Venue, pair types.TokenPair, notional *big.Int) (float64, error) {
	r0, _, err := a.reserves(ctx, venue)
	if err != nil {
		return 0, err
	}
	x := new(big.Float).SetInt(r0)
	dx := new(big.Float).SetInt(notional)
	denom := new(big.Float).Add(x, dx)
	if denom.Sign() == 0 {
		return 1, nil
	}
	impact := new(big.Float).Quo(dx, denom)
	f, _ := impact.Float64()
	return f, nil
}
