package flashloan

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSelectProvider_PrefersZeroFeeWithLiquidity(t *testing.T) {
	providers := []Provider{
		{Name: "aave", FeeBps: 9, Liquidity: decimal.NewFromInt(10_000)},
		{Name: "balancer", FeeBps: 0, Liquidity: decimal.NewFromInt(10_000)},
	}
	chosen, ok := SelectProvider(providers, decimal.NewFromInt(5_000))
	assert.True(t, ok)
	assert.Equal(t, "balancer", chosen.Name)
}

func TestSelectProvider_SkipsInsufficientLiquidity(t *testing.T) {
	providers := []Provider{
		{Name: "thin", FeeBps: 0, Liquidity: decimal.NewFromInt(100)},
		{Name: "deep", FeeBps: 9, Liquidity: decimal.NewFromInt(10_000)},
	}
	chosen, ok := SelectProvider(providers, decimal.NewFromInt(5_000))
	assert.True(t, ok)
	assert.Equal(t, "deep", chosen.Name)
}

func TestSelectProvider_NoneSufficientReturnsFalse(t *testing.T) {
	providers := []Provider{
		{Name: "thin", FeeBps: 0, Liquidity: decimal.NewFromInt(100)},
	}
	_, ok := SelectProvider(providers, decimal.NewFromInt(5_000))
	assert.False(t, ok)
}

func TestProvider_Fee(t *testing.T) {
	p := Provider{FeeBps: 9}
	fee := p.Fee(decimal.NewFromInt(10_000))
	assert.True(t, fee.Equal(decimal.NewFromFloat(9)))
}
