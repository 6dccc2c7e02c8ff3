package venue

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackarb/arbengine/internal/types"
)

var errUnknownSelector = errors.New("fakeChainClient: unknown selector")

func testVenue(model types.PricingModel) types.Venue {
	return types.Venue{
		Chain:       types.Ethereum,
		Name:        "test-venue",
		Model:       model,
		PoolAddress: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		RouterAddr:  common.HexToAddress("0x2222222222222222222222222222222222222222"),
		FeeTierBps:  30,
	}
}

func testPair() types.TokenPair {
	return types.TokenPair{
		TokenA: types.Token{Address: common.HexToAddress("0x3333333333333333333333333333333333333333"), Decimals: 18, Symbol: "WETH"},
		TokenB: types.Token{Address: common.HexToAddress("0x4444444444444444444444444444444444444444"), Decimals: 6, Symbol: "USDC"},
	}
}

func TestConstantProductAdapter_Quote(t *testing.T) {
	client := newFakeChainClient()
	adapter, err := NewConstantProductAdapter(client)
	require.NoError(t, err)

	packed, err := adapter.abi.Pack("getReserves")
	require.NoError(t, err)
	var sel [4]byte
	copy(sel[:], packed[:4])

	encoded, err := adapter.abi.Methods["getReserves"].Outputs.Pack(
		big.NewInt(1_000_000), big.NewInt(2_000_000), uint32(0),
	)
	require.NoError(t, err)
	client.set(sel, encoded)

	q, err := adapter.Quote(context.Background(), testVenue(types.ConstantProductV2), testPair())
	require.NoError(t, err)
	assert.True(t, q.MidPrice.Equal(q.MidPrice), "sanity: mid price computed without panicking")
	assert.True(t, q.BuyPrice.GreaterThan(q.MidPrice), "buy price must include the fee markup")
	assert.True(t, q.SellPrice.LessThan(q.MidPrice), "sell price must include the fee markdown")
}

func TestConstantProductAdapter_EmptyReservesIsInsufficientLiquidity(t *testing.T) {
	client := newFakeChainClient()
	adapter, err := NewConstantProductAdapter(client)
	require.NoError(t, err)

	packed, _ := adapter.abi.Pack("getReserves")
	var sel [4]byte
	copy(sel[:], packed[:4])
	encoded, _ := adapter.abi.Methods["getReserves"].Outputs.Pack(big.NewInt(0), big.NewInt(0), uint32(0))
	client.set(sel, encoded)

	_, err = adapter.Quote(context.Background(), testVenue(types.ConstantProductV2), testPair())
	require.Error(t, err)
	var insufficient *types.InsufficientLiquidityError
	assert.ErrorAs(t, err, &insufficient)
}

func TestConstantProductAdapter_PriceImpactGrowsWithNotional(t *testing.T) {
	client := newFakeChainClient()
	adapter, err := NewConstantProductAdapter(client)
	require.NoError(t, err)

	packed, _ := adapter.abi.Pack("getReserves")
	var sel [4]byte
	copy(sel[:], packed[:4])
	encoded, _ := adapter.abi.Methods["getReserves"].Outputs.Pack(
		big.NewInt(1_000_000), big.NewInt(2_000_000), uint32(0),
	)
	client.set(sel, encoded)

	small, err := adapter.PriceImpact(context.Background(), testVenue(types.ConstantProductV2), testPair(), big.NewInt(1_000))
	require.NoError(t, err)
	large, err := adapter.PriceImpact(context.Background(), testVenue(types.ConstantProductV2), testPair(), big.NewInt(500_000))
	require.NoError(t, err)
	assert.Less(t, small, large)
}
