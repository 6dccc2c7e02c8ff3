package venue

import (
	"context"
	"math/big"

	"github.com/blackarb/arbengine/internal/types"
)

// Adapter is the uniform contract every pricing-model implementation
// satisfies. The scanner and flash-loan planner only ever talk to this
// interface, never to a model-specific type.
type Adapter interface {
	// Quote samples the venue's current price/depth for pair.
	Quote(ctx context.Context, venue types.Venue, pair types.TokenPair) (types.Quote, error)

	// BuildSwap returns the call for a swap of amountIn units of tokenIn for
	// at least minOut units of the other leg. Every adapter in this package
	// returns a CallData addressed to venue.RouterAddr with empty Data; no
	// swap calldata is encoded.
	BuildSwap(ctx context.Context, venue types.Venue, pair types.TokenPair, tokenInIsA bool, amountIn, minOut *big.Int) (types.CallData, error)

	// PriceImpact estimates the fractional price movement a trade of
	// notional size would cause. The scanner, risk filter and flash-loan
	// planner do not call it.
	PriceImpact(ctx context.Context, venue types.Venue, pair types.TokenPair, notional *big.Int) (float64, error)
}
