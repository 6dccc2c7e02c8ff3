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

const stableCurveABIJSON = `[
	{"name":"getBalances","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256[]"}]},
	{"name":"A","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const stableNewtonIterations = 64

// StableCurveAdapter prices a Curve-style StableSwap pool using the
// invariant A*n^n*sum(x) + D = A*D*n^n + D^(n+1)/(n^n*prod(x)), solved for D
// by Newton iteration capped at
// stableNewtonIterations so a pathological pool can never hang the scanner.
type StableCurveAdapter struct {
	Chain chainpool.ChainClient
	abi   abi.ABI
}

func NewStableCurveAdapter(chain chainpool.ChainClient) (*StableCurveAdapter, error) {
	parsed, err := abi.JSON(strings.NewReader(stableCurveABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse stable-curve abi: %w", err)
	}
	return &StableCurveAdapter{Chain: chain, abi: parsed}, nil
}

func (a *StableCurveAdapter) reader(venue types.Venue) *PoolReader {
	return &PoolReader{Chain: a.Chain, ABI: a.abi, Pool: venue.PoolAddress}
}

func (a *StableCurveAdapter) balancesAndAmp(ctx context.Context, venue types.Venue) ([]*big.Int, *big.Int, error) {
	r := a.reader(venue)

	bal, err := r.Call(ctx, "getBalances")
	if err != nil {
		return nil, nil, err
	}
	balances, ok := bal[0].([]*big.Int)
	if !ok || len(balances) < 2 {
		return nil, nil, fmt.Errorf("getBalances returned unexpected shape")
	}

	ampOut, err := r.Call(ctx, "A")
	if err != nil {
		return nil, nil, err
	}
	amp, ok := ampOut[0].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("A returned unexpected type")
	}

	return balances, amp, nil
}

// stableD solves the StableSwap invariant for D given n balances and
// amplification coefficient amp, via Newton iteration.
func stableD(balances []*big.Int, amp *big.Int) *big.Int {
	n := int64(len(balances))
	sum := new(big.Int)
	for _, b := range balances {
		sum.Add(sum, b)
	}
	if sum.Sign() == 0 {
		return big.NewInt(0)
	}

	ann := new(big.Int).Mul(amp, big.NewInt(n))
	d := new(big.Int).Set(sum)

	for i := 0; i < stableNewtonIterations; i++ {
		dP := new(big.Int).Set(d)
		for _, b := range balances {
			denom := new(big.Int).Mul(b, big.NewInt(n))
			if denom.Sign() == 0 {
				return d
			}
			dP.Mul(dP, d)
			dP.Div(dP, denom)
		}

		numerator := new(big.Int).Mul(ann, sum)
		numerator.Add(numerator, new(big.Int).Mul(dP, big.NewInt(n)))
		numerator.Mul(numerator, d)

		denominator := new(big.Int).Sub(ann, big.NewInt(1))
		denominator.Mul(denominator, d)
		denominator.Add(denominator, new(big.Int).Mul(big.NewInt(n+1), dP))

		if denominator.Sign() == 0 {
			return d
		}
		dNext := new(big.Int).Div(numerator, denominator)

		diff := new(big.Int).Sub(dNext, d)
		d = dNext
		if diff.CmpAbs(big.NewInt(1)) <= 0 {
			break
		}
	}
	return d
}

func (a *StableCurveAdapter) Quote(ctx context.Context, venue types.Venue, pair types.TokenPair) (types.Quote, error) {
	balances, _, err := a.balancesAndAmp(ctx, venue)
	if err != nil {
		return types.Quote{}, err
	}
	if balances[0].Sign() == 0 || balances[1].Sign() == 0 {
		return types.Quote{}, &types.InsufficientLiquidityError{Venue: venue.Name, Required: "any", Depth: "0"}
	}

	// Near the peg a StableSwap pool's marginal price is close to 1:1;
	// depth is reported as the smaller leg's balance.
	mid := decimal.NewFromBigInt(balances[1], 0).Div(decimal.NewFromBigInt(balances[0], 0))
	depth := decimal.NewFromBigInt(balances[0], 0)
	if balances[1].Cmp(balances[0]) < 0 {
		depth = decimal.NewFromBigInt(balances[1], 0)
	}

	feeBps := venue.FeeTierBps
	if feeBps == 0 {
		feeBps = 4
	}
	feeFactor := decimal.NewFromInt(10000 - int64(feeBps)).Div(decimal.NewFromInt(10000))

	return types.Quote{
		Venue:       venue,
		Pair:        pair,
		MidPrice:    mid,
		BuyPrice:    mid.Div(feeFactor),
		SellPrice:   mid.Mul(feeFactor),
		Depth:       depth,
		FeeTierBps:  feeBps,
		SampledAt:   time.Now(),
		Approximate: true, // mid is the plain balance ratio, not the invariant's marginal price
	}, nil
}

func (a *StableCurveAdapter) BuildSwap(ctx context.Context, venue types.Venue, pair types.TokenPair, tokenInIsA bool, amountIn, minOut *big.Int) (types.CallData, error) {
	return types.CallData{To: venue.RouterAddr, Data: nil, Value: decimal.Zero}, nil
}

// PriceImpact re-solves D with notional added to the input leg and returns
// the absolute relative change in D against the untouched invariant.
func (a *StableCurveAdapter) PriceImpact(ctx context.Context, venue types.Venue, pair types.TokenPair, notional *big.Int) (float64, error) {
	balances, amp, err := a.balancesAndAmp(ctx, venue)
	if err != nil {
		return 0, err
	}

	before := stableD(balances, amp)
	bumped := []*big.Int{new(big.Int).Add(balances[0], notional), new(big.Int).Set(balances[1])}
	after := stableD(bumped, amp)

	if before.Sign() == 0 {
		return 0, nil
	}
	deltaF := new(big.Float).SetInt(new(big.Int).Sub(after, before))
	beforeF := new(big.Float).SetInt(before)
	impact := new(big.Float).Quo(deltaF, beforeF)
	f, _ := impact.Float64()
	if f < 0 {
		f = -f
	}
	return f, nil
}
