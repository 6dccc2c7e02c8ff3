package venue

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackarb/arbengine/internal/types"
)

func TestStableCurveAdapter_QuoteNearPeg(t *testing.T) {
	client := newFakeChainClient()
	adapter, err := NewStableCurveAdapter(client)
	require.NoError(t, err)

	balPacked, _ := adapter.abi.Pack("getBalances")
	var balSel [4]byte
	copy(balSel[:], balPacked[:4])
	balEncoded, err := adapter.abi.Methods["getBalances"].Outputs.Pack(
		[]*big.Int{big.NewInt(1_000_000), big.NewInt(1_010_000)},
	)
	require.NoError(t, err)
	client.set(balSel, balEncoded)

	ampPacked, _ := adapter.abi.Pack("A")
	var ampSel [4]byte
	copy(ampSel[:], ampPacked[:4])
	ampEncoded, err := adapter.abi.Methods["A"].Outputs.Pack(big.NewInt(100))
	require.NoError(t, err)
	client.set(ampSel, ampEncoded)

	q, err := adapter.Quote(context.Background(), testVenue(types.StableCurve), testPair())
	require.NoError(t, err)
	assert.True(t, q.Approximate)
	assert.True(t, q.MidPrice.GreaterThan(decimal.Zero), "near-peg mid price must be positive")
	assert.True(t, q.MidPrice.LessThan(decimal.NewFromInt(2)), "near-peg mid price must stay close to 1:1")
}

func TestStableD_BalancedPoolIsStable(t *testing.T) {
	balances := []*big.Int{big.NewInt(1_000_000), big.NewInt(1_000_000)}
	d := stableD(balances, big.NewInt(100))
	assert.True(t, d.Sign() > 0)
	// For a perfectly balanced pool D should land close to the sum of balances.
	sum := new(big.Int).Add(balances[0], balances[1])
	diff := new(big.Int).Sub(d, sum)
	assert.True(t, diff.CmpAbs(big.NewInt(10)) <= 0, "D should approximate sum(balances) when balanced, got D=%s sum=%s", d, sum)
}
