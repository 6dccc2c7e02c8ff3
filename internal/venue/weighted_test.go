package venue

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackarb/arbengine/internal/types"
)

func TestWeightedPoolAdapter_Quote8020(t *testing.T) {
	client := newFakeChainClient()
	adapter, err := NewWeightedPoolAdapter(client)
	require.NoError(t, err)

	tokens := []common.Address{testPair().TokenA.Address, testPair().TokenB.Address}
	balances := []*big.Int{big.NewInt(800_000), big.NewInt(200_000)}
	weights := []*big.Int{big.NewInt(8e17), big.NewInt(2e17)} // 80/20, 1e18-scaled

	ptPacked, _ := adapter.abi.Pack("getPoolTokens")
	var ptSel [4]byte
	copy(ptSel[:], ptPacked[:4])
	ptEncoded, err := adapter.abi.Methods["getPoolTokens"].Outputs.Pack(tokens, balances)
	require.NoError(t, err)
	client.set(ptSel, ptEncoded)

	wPacked, _ := adapter.abi.Pack("getNormalizedWeights")
	var wSel [4]byte
	copy(wSel[:], wPacked[:4])
	wEncoded, err := adapter.abi.Methods["getNormalizedWeights"].Outputs.Pack(weights)
	require.NoError(t, err)
	client.set(wSel, wEncoded)

	q, err := adapter.Quote(context.Background(), testVenue(types.WeightedPool), testPair())
	require.NoError(t, err)
	assert.False(t, q.Approximate)
	assert.True(t, q.MidPrice.IsPositive())
}

func TestWeightedPoolAdapter_PriceImpactIsPositive(t *testing.T) {
	client := newFakeChainClient()
	adapter, err := NewWeightedPoolAdapter(client)
	require.NoError(t, err)

	tokens := []common.Address{testPair().TokenA.Address, testPair().TokenB.Address}
	balances := []*big.Int{big.NewInt(800_000), big.NewInt(200_000)}
	weights := []*big.Int{big.NewInt(5e17), big.NewInt(5e17)}

	ptPacked, _ := adapter.abi.Pack("getPoolTokens")
	var ptSel [4]byte
	copy(ptSel[:], ptPacked[:4])
	ptEncoded, _ := adapter.abi.Methods["getPoolTokens"].Outputs.Pack(tokens, balances)
	client.set(ptSel, ptEncoded)

	wPacked, _ := adapter.abi.Pack("getNormalizedWeights")
	var wSel [4]byte
	copy(wSel[:], wPacked[:4])
	wEncoded, _ := adapter.abi.Methods["getNormalizedWeights"].Outputs.Pack(weights)
	client.set(wSel, wEncoded)

	impact, err := adapter.PriceImpact(context.Background(), testVenue(types.WeightedPool), testPair(), big.NewInt(100_000))
	require.NoError(t, err)
	assert.Greater(t, impact, 0.0)
}
