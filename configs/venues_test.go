package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackarb/arbengine/internal/types"
)

func TestLoadVenueCatalog_ParsesEntries(t *testing.T) {
	path := writeTempConfig(t, `
venues:
  - chain: ethereum
    name: UniswapV2
    model: constant_product_v2
    pool_address: "0x0000000000000000000000000000000000aaa1"
    router_address: "0x0000000000000000000000000000000000bbb1"
    fee_tier_bps: 30
    token_a: "0x0000000000000000000000000000000000c001"
    token_a_decimals: 18
    token_a_symbol: WETH
    token_b: "0x0000000000000000000000000000000000c002"
    token_b_decimals: 6
    token_b_symbol: USDC
`)
	entries, err := LoadVenueCatalog(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.Ethereum, entries[0].Venue.Chain)
	assert.Equal(t, types.ConstantProductV2, entries[0].Venue.Model)
	assert.Equal(t, "WETH", entries[0].Pair.TokenA.Symbol)
}

func TestLoadVenueCatalog_RejectsUnknownModel(t *testing.T) {
	path := writeTempConfig(t, `
venues:
  - chain: ethereum
    name: Weird
    model: not_a_model
    pool_address: "0x0000000000000000000000000000000000aaa1"
    token_a: "0x0000000000000000000000000000000000c001"
    token_b: "0x0000000000000000000000000000000000c002"
`)
	_, err := LoadVenueCatalog(path)
	assert.Error(t, err)
}
