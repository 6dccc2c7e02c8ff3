package venue

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/shopspring/decimal"

	"github.com/blackarb/arbengine/internal/chainpool"
	"github.com/blackarb/arbengine/internal/types"
)

const weightedPoolABIJSON = `[
	{"name":"getPoolTokens","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"tokens","type":"address[]"},{"name":"balances","type":"uint256[]"}]},
	{"name":"getNormalizedWeights","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256[]"}]}
]`

const weightedOneE18 = 1e18

// WeightedPoolAdapter prices a Balancer-style weighted pool:
// spot price = (balanceIn/weightIn) / (balanceOut/weightOut).
type WeightedPoolAdapter struct {
	Chain chainpool.ChainClient
	abi   abi.ABI
}

func NewWeightedPoolAdapter(chain chainpool.ChainClient) (*WeightedPoolAdapter, error) {
	parsed, err := abi.JSON(strings.NewReader(weightedPoolABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse weighted-pool abi: %w", err)
	}
	return &WeightedPoolAdapter{Chain: chain, abi: parsed}, nil
}

func (a *WeightedPoolAdapter) reader(venue types.Venue) *PoolReader {
	return &PoolReader{Chain: a.Chain, ABI: a.abi, Pool: venue.PoolAddress}
}

func (a *WeightedPoolAdapter) state(ctx context.Context, venue types.Venue) ([]*big.Int, []*big.Int, error) {
	r := a.reader(venue)

	tokensOut, err := r.Call(ctx, "getPoolTokens")
	if err != nil {
		return nil, nil, err
	}
	if len(tokensOut) < 2 {
		return nil, nil, fmt.Errorf("getPoolTokens returned %d values, want >= 2", len(tokensOut))
	}
	balances, ok := tokensOut[1].([]*big.Int)
	if !ok || len(balances) < 2 {
		return nil, nil, fmt.Errorf("getPoolTokens balances have unexpected shape")
	}

	weightsOut, err := r.Call(ctx, "getNormalizedWeights")
	if err != nil {
		return nil, nil, err
	}
	weights, ok := weightsOut[0].([]*big.Int)
	if !ok || len(weights) < 2 {
		return nil, nil, fmt.Errorf("getNormalizedWeights returned unexpected shape")
	}

	return balances, weights, nil
}

func (a *WeightedPoolAdapter) Quote(ctx context.Context, venue types.Venue, pair types.TokenPair) (types.Quote, error) {
	balances, weights, err := a.state(ctx, venue)
	if err != nil {
		return types.Quote{}, err
	}
	if balances[0].Sign() == 0 || balances[1].Sign() == 0 {
		return types.Quote{}, &types.InsufficientLiquidityError{Venue: venue.Name, Required: "any", Depth: "0"}
	}

	bIn := new(big.Float).SetInt(balances[0])
	bOut := new(big.Float).SetInt(balances[1])
	wIn := new(big.Float).SetInt(weights[0])
	wOut := new(big.Float).SetInt(weights[1])

	ratioIn := new(big.Float).Quo(bIn, wIn)
	ratioOut := new(big.Float).Quo(bOut, wOut)
	priceF, _ := new(big.Float).Quo(ratioIn, ratioOut).Float64()
	if math.IsNaN(priceF) || math.IsInf(priceF, 0) {
		return types.Quote{}, fmt.Errorf("weighted pool produced a non-finite spot price")
	}
	mid := decimal.NewFromFloat(priceF)

	feeBps := venue.FeeTierBps
	if feeBps == 0 {
		feeBps = 25
	}
	feeFactor := decimal.NewFromInt(10000 - int64(feeBps)).Div(decimal.NewFromInt(10000))

	return types.Quote{
		Venue:       venue,
		Pair:        pair,
		MidPrice:    mid,
		BuyPrice:    mid.Div(feeFactor),
		SellPrice:   mid.Mul(feeFactor),
		Depth:       decimal.NewFromBigInt(balances[1], 0),
		FeeTierBps:  feeBps,
		SampledAt:   time.Now(),
		Approximate: false,
	}, nil
}

func (a *WeightedPoolAdapter) BuildSwap(ctx context.Context, venue types.Venue, pair types.TokenPair, tokenInIsA bool, amountIn, minOut *big.Int) (types.CallData, error) {
	return types.CallData{To: venue.RouterAddr, Data: nil, Value: decimal.Zero}, nil
}

// PriceImpact applies the weighted-pool out-given-in formula and compares
// the resulting average price to the spot price.
func (a *WeightedPoolAdapter) PriceImpact(ctx context.Context, venue types.Venue, pair types.TokenPair, notional *big.Int) (float64, error) {
	balances, weights, err := a.state(ctx, venue)
	if err != nil {
		return 0, err
	}

	bIn, _ := new(big.Float).SetInt(balances[0]).Float64()
	bOut, _ := new(big.Float).SetInt(balances[1]).Float64()
	wIn, _ := new(big.Float).SetInt(weights[0]).Float64()
	wOut, _ := new(big.Float).SetInt(weights[1]).Float64()
	dx, _ := new(big.Float).SetInt(notional).Float64()

	if bIn == 0 || wOut == 0 {
		return 1, nil
	}
	// amountOut = bOut * (1 - (bIn/(bIn+dx))^(wIn/wOut))
	base := bIn / (bIn + dx)
	exp := wIn / wOut
	amountOut := bOut * (1 - math.Pow(base, exp))

	spot := (bIn / wIn) / (bOut / wOut)
	avg := dx / amountOut
	if spot == 0 {
		return 0, nil
	}
	impact := math.Abs(avg-spot) / spot
	return impact, nil
}
