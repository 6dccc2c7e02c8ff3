package venue

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackarb/arbengine/internal/types"
	"github.com/blackarb/arbengine/internal/util"
)

func TestConcentratedAdapter_Quote(t *testing.T) {
	client := newFakeChainClient()
	adapter, err := NewConcentratedAdapter(client)
	require.NoError(t, err)

	sqrtPriceX96 := util.TickToSqrtPriceX96(0) // tick 0 => price 1.0

	gsPacked, _ := adapter.abi.Pack("globalState")
	var gsSel [4]byte
	copy(gsSel[:], gsPacked[:4])
	gsEncoded, err := adapter.abi.Methods["globalState"].Outputs.Pack(
		sqrtPriceX96, int32(0), uint16(500), uint16(0), uint8(0), uint8(0), true,
	)
	require.NoError(t, err)
	client.set(gsSel, gsEncoded)

	liqPacked, _ := adapter.abi.Pack("liquidity")
	var liqSel [4]byte
	copy(liqSel[:], liqPacked[:4])
	liqEncoded, err := adapter.abi.Methods["liquidity"].Outputs.Pack(big.NewInt(5_000_000))
	require.NoError(t, err)
	client.set(liqSel, liqEncoded)

	q, err := adapter.Quote(context.Background(), testVenue(types.ConcentratedV3), testPair())
	require.NoError(t, err)
	assert.True(t, q.Approximate)
	assert.True(t, q.MidPrice.GreaterThan(q.MidPrice.Sub(q.MidPrice)), "mid price must be positive")
}

func TestConcentratedAdapter_ZeroLiquidityIsInsufficientLiquidity(t *testing.T) {
	client := newFakeChainClient()
	adapter, err := NewConcentratedAdapter(client)
	require.NoError(t, err)

	sqrtPriceX96 := util.TickToSqrtPriceX96(0)
	gsPacked, _ := adapter.abi.Pack("globalState")
	var gsSel [4]byte
	copy(gsSel[:], gsPacked[:4])
	gsEncoded, _ := adapter.abi.Methods["globalState"].Outputs.Pack(
		sqrtPriceX96, int32(0), uint16(500), uint16(0), uint8(0), uint8(0), true,
	)
	client.set(gsSel, gsEncoded)

	liqPacked, _ := adapter.abi.Pack("liquidity")
	var liqSel [4]byte
	copy(liqSel[:], liqPacked[:4])
	liqEncoded, _ := adapter.abi.Methods["liquidity"].Outputs.Pack(big.NewInt(0))
	client.set(liqSel, liqEncoded)

	_, err = adapter.Quote(context.Background(), testVenue(types.ConcentratedV3), testPair())
	require.Error(t, err)
	var insufficient *types.InsufficientLiquidityError
	assert.ErrorAs(t, err, &insufficient)
}
