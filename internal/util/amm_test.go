package util

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickToSqrtPriceX96_MonotonicInTick(t *testing.T) {
	lower := TickToSqrtPriceX96(-252000)
	upper := TickToSqrtPriceX96(-250800)
	assert.True(t, lower.Cmp(upper) < 0, "sqrtPrice must increase with tick")
}

func TestTickToSqrtPriceX96_ZeroTickIsUnitPrice(t *testing.T) {
	sqrtPrice := TickToSqrtPriceX96(0)
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	diff := new(big.Int).Sub(sqrtPrice, q96)
	diff.Abs(diff)
	// tick 0 represents price 1.0, so sqrtPriceX96 should equal 2^96 within rounding.
	tolerance := big.NewInt(1 << 20)
	assert.True(t, diff.Cmp(tolerance) < 0)
}

func TestComputeAmounts_WithinBudget(t *testing.T) {
	sqrtPriceX96, _ := big.NewInt(0).SetString("275467826341246019486853", 10)
	tick := -251400
	tickLower := -252000
	tickUpper := -250800
	amount0Max, _ := big.NewInt(0).SetString("99999309985252461722", 10)
	amount1Max, _ := big.NewInt(0).SetString("1208870000", 10)

	amount0, amount1, liquidity := ComputeAmounts(sqrtPriceX96, tick, tickLower, tickUpper, amount0Max, amount1Max)

	assert.True(t, liquidity.Sign() > 0, "liquidity should be positive")
	assert.True(t, amount0.Cmp(big.NewInt(0)) >= 0)
	assert.True(t, amount1.Cmp(big.NewInt(0)) >= 0)
	assert.True(t, amount0.Cmp(amount0Max) <= 0, "amount0 must not exceed budget")
	assert.True(t, amount1.Cmp(amount1Max) <= 0, "amount1 must not exceed budget")
}

func TestCalculateTokenAmountsFromLiquidity_RoundTrip(t *testing.T) {
	sqrtPriceX96, _ := big.NewInt(0).SetString("275467826341246019486853", 10)
	tickLower := int32(-252000)
	tickUpper := int32(-240800)

	amount0Max := big.NewInt(1_000_000_000_000_000_000)
	amount1Max := big.NewInt(1_000_000_000)
	_, _, liquidity := ComputeAmounts(sqrtPriceX96, -251000, int(tickLower), int(tickUpper), amount0Max, amount1Max)

	amount0, amount1, err := CalculateTokenAmountsFromLiquidity(liquidity, sqrtPriceX96, tickLower, tickUpper)
	assert.NoError(t, err)
	assert.True(t, amount0.Sign() >= 0)
	assert.True(t, amount1.Sign() >= 0)
}

func TestCalculateTickBounds(t *testing.T) {
	tickLower, tickUpper, err := CalculateTickBounds(-249587, 2, 200)
	assert.NoError(t, err)
	assert.Equal(t, int32(0), (tickUpper-tickLower)%200, "bounds must align to tick spacing")
	assert.True(t, tickLower < tickUpper)
}

func TestCalculateTickBounds_RejectsNonPositiveInputs(t *testing.T) {
	_, _, err := CalculateTickBounds(-249587, 0, 200)
	assert.Error(t, err)

	_, _, err = CalculateTickBounds(-249587, 2, 0)
	assert.Error(t, err)
}

func TestCalculateMinAmount(t *testing.T) {
	amount := big.NewInt(1000)
	min := CalculateMinAmount(amount, 5)
	assert.Equal(t, big.NewInt(950), min)
}

func TestCalculateRebalanceAmounts(t *testing.T) {
	sqrtPrice, _ := big.NewInt(0).SetString("280057970020625981233062", 0)

	t.Run("token_a_overweight_swaps_to_b", func(t *testing.T) {
		balanceA := big.NewInt(5 * 1_000_000_000_000_000_000)
		balanceB := big.NewInt(50_000_000)

		tokenToSwap, swapAmount, err := CalculateRebalanceAmounts(balanceA, balanceB, sqrtPrice)
		assert.NoError(t, err)
		assert.Equal(t, 0, tokenToSwap)
		assert.True(t, swapAmount.Sign() > 0)
	})

	t.Run("token_b_overweight_swaps_to_a", func(t *testing.T) {
		balanceA := big.NewInt(0)
		balanceB := big.NewInt(50_000_000)

		tokenToSwap, swapAmount, err := CalculateRebalanceAmounts(balanceA, balanceB, sqrtPrice)
		assert.NoError(t, err)
		assert.Equal(t, 1, tokenToSwap)
		assert.True(t, swapAmount.Sign() > 0)
	})
}
