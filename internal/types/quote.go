package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a single venue's price/depth sample for a TokenPair at a
// monotonically increasing logical timestamp. Quotes are disposable: the
// scanner keeps them only inside its trend window, never persists them raw.
type Quote struct {
	Venue       Venue
	Pair        TokenPair
	MidPrice    decimal.Decimal
	BuyPrice    decimal.Decimal // effective price to acquire TokenB with TokenA
	SellPrice   decimal.Decimal // effective price to dispose of TokenB for TokenA
	Depth       decimal.Decimal // available depth at the configured slippage ceiling
	FeeTierBps  int
	BlockHeight uint64
	SampledAt   time.Time
	Approximate bool // true when a StableCurve/ConcentratedV3 fallback had to approximate
}
