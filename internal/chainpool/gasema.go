package chainpool

import (
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
)

// decimalFromWei converts a wei-denominated *big.Int gas price sample into
// a decimal.Decimal suitable for GasEMA.Observe.
func decimalFromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, 0)
}

// GasEMA smooths successive gas-price samples with an exponential moving
// average, damping single-block spikes the way §4.A requires.
type GasEMA struct {
	mu      sync.Mutex
	alpha   decimal.Decimal
	value   decimal.Decimal
	primed  bool
}

// NewGasEMA builds a smoother with smoothing factor alpha in (0, 1].
func NewGasEMA(alpha float64) *GasEMA {
	return &GasEMA{alpha: decimal.NewFromFloat(alpha)}
}

// Observe folds a new gas-price sample into the average and returns the
// smoothed value.
func (g *GasEMA) Observe(sample decimal.Decimal) decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.primed {
		g.value = sample
		g.primed = true
		return g.value
	}
	// value = alpha*sample + (1-alpha)*value
	g.value = g.alpha.Mul(sample).Add(decimal.NewFromInt(1).Sub(g.alpha).Mul(g.value))
	return g.value
}

// Value returns the current smoothed estimate without observing a new sample.
func (g *GasEMA) Value() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}
