// Package flashloan selects a flash-loan provider, assembles the
// borrow/swap/swap-back/repay plan, and simulates it before the execution
// engine ever broadcasts anything, per §4.E.
package flashloan

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Provider describes one flash-loan source available on a chain: its fee
// and the liquidity it can currently supply for a given asset.
type Provider struct {
	Name        string
	PoolAddress common.Address
	FeeBps      int
	Liquidity   decimal.Decimal
}

// SelectProvider picks the zero-fee provider with sufficient liquidity if
// one exists, otherwise the cheapest-fee provider that still clears the
// required notional. Providers with insufficient liquidity are never
// selected regardless of fee.
func SelectProvider(providers []Provider, required decimal.Decimal) (Provider, bool) {
	var best Provider
	found := false

	for _, p := range providers {
		if p.Liquidity.LessThan(required) {
			continue
		}
		if !found {
			best = p
			found = true
			continue
		}
		if p.FeeBps < best.FeeBps {
			best = p
		}
	}
	return best, found
}

// Fee computes the flash-loan fee in the borrowed asset's units.
func (p Provider) Fee(notional decimal.Decimal) decimal.Decimal {
	return notional.Mul(decimal.NewFromInt(int64(p.FeeBps))).Div(decimal.NewFromInt(10000))
}
