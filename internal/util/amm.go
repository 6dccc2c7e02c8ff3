// Package util holds small numeric and ABI helpers shared by the venue
// adapters and the contract-client layer: concentrated-liquidity tick math,
// ABI/artifact loading, and signer-key decryption. It consolidates what the
// teacher split, inconsistently, across an internal/util and a pkg/util
// package (see DESIGN.md) into one package with one set of signatures.
package util

import (
	"fmt"
	"math/big"
)

var (
	q96        = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))
	tickBaseF  = 1.0001
	sqrtOneE18 = new(big.Float).SetPrec(200)
)

func init() {
	sqrtOneE18.SetFloat64(1.0)
}

// TickToSqrtPriceX96 converts a tick index to its Q64.96 fixed-point square
// root price, the same representation returned by an Algebra/Uniswap V3
// pool's slot0/safelyGetStateOfAMM.
func TickToSqrtPriceX96(tick int) *big.Int {
	// price = 1.0001^tick ; sqrtPriceX96 = sqrt(price) * 2^96
	logPrice := new(big.Float).SetPrec(200).SetFloat64(tickBaseF)
	price := bigPow(logPrice, tick)
	sqrtPrice := bigSqrt(price)
	scaled := new(big.Float).SetPrec(200).Mul(sqrtPrice, q96)
	result, _ := scaled.Int(nil)
	return result
}

// SqrtPriceToPrice converts a Q64.96 square root price back to a plain
// price ratio (token1 per token0), undoing TickToSqrtPriceX96's scaling.
func SqrtPriceToPrice(sqrtPriceX96 *big.Int) *big.Float {
	ratio := new(big.Float).SetPrec(200).Quo(new(big.Float).SetInt(sqrtPriceX96), q96)
	return new(big.Float).SetPrec(200).Mul(ratio, ratio)
}

// bigPow raises base to an integer (possibly negative) exponent using
// repeated squaring over big.Float.
func bigPow(base *big.Float, exp int) *big.Float {
	neg := exp < 0
	if neg {
		exp = -exp
	}
	result := new(big.Float).SetPrec(200).SetFloat64(1.0)
	b := new(big.Float).SetPrec(200).Copy(base)
	for exp > 0 {
		if exp&1 == 1 {
			result.Mul(result, b)
		}
		b.Mul(b, b)
		exp >>= 1
	}
	if neg {
		one := new(big.Float).SetPrec(200).SetFloat64(1.0)
		result.Quo(one, result)
	}
	return result
}

// bigSqrt computes a square root over big.Float via Newton's method, precise
// enough for the Q64.96 fixed-point conversions used throughout this package.
func bigSqrt(x *big.Float) *big.Float {
	if x.Sign() <= 0 {
		return new(big.Float).SetPrec(200)
	}
	z := new(big.Float).SetPrec(200).Copy(x)
	guess := new(big.Float).SetPrec(200).Quo(x, big.NewFloat(2))
	for i := 0; i < 60; i++ {
		// guess = (guess + x/guess) / 2
		xOverGuess := new(big.Float).SetPrec(200).Quo(x, guess)
		next := new(big.Float).SetPrec(200).Add(guess, xOverGuess)
		next.Quo(next, big.NewFloat(2))
		if next.Cmp(guess) == 0 {
			break
		}
		guess = next
	}
	_ = z
	return guess
}

// CalculateTickBounds derives a symmetric [tickLower, tickUpper] range
// rangeWidth tick-spacings wide around currentTick, rounded to the pool's
// tickSpacing grid.
func CalculateTickBounds(currentTick int32, rangeWidth, tickSpacing int) (int32, int32, error) {
	if rangeWidth <= 0 {
		return 0, 0, fmt.Errorf("rangeWidth must be positive, got %d", rangeWidth)
	}
	if tickSpacing <= 0 {
		return 0, 0, fmt.Errorf("tickSpacing must be positive, got %d", tickSpacing)
	}
	aligned := (int(currentTick) / tickSpacing) * tickSpacing
	half := (rangeWidth * tickSpacing) / 2
	lower := aligned - half
	upper := aligned + half
	return int32(lower), int32(upper), nil
}

// ComputeAmounts derives the actual (amount0, amount1, liquidity) a mint can
// use given a maximum token budget and a tick range, following the standard
// concentrated-liquidity three-region formula (below range, in range, above
// range).
func ComputeAmounts(sqrtPriceX96 *big.Int, tick, tickLower, tickUpper int, amount0Max, amount1Max *big.Int) (*big.Int, *big.Int, *big.Int) {
	sqrtLower := TickToSqrtPriceX96(tickLower)
	sqrtUpper := TickToSqrtPriceX96(tickUpper)
	sqrtCurrent := sqrtPriceX96
	if tick <= tickLower {
		sqrtCurrent = sqrtLower
	} else if tick >= tickUpper {
		sqrtCurrent = sqrtUpper
	}

	l0 := liquidityForAmount0(sqrtCurrent, sqrtUpper, amount0Max)
	l1 := liquidityForAmount1(sqrtLower, sqrtCurrent, amount1Max)

	var liquidity *big.Int
	switch {
	case tick < tickLower:
		liquidity = l0
	case tick >= tickUpper:
		liquidity = l1
	default:
		if l0.Cmp(l1) < 0 {
			liquidity = l0
		} else {
			liquidity = l1
		}
	}

	amount0, amount1, err := CalculateTokenAmountsFromLiquidity(liquidity, sqrtCurrent, int32(tickLower), int32(tickUpper))
	if err != nil {
		return big.NewInt(0), big.NewInt(0), big.NewInt(0)
	}
	if amount0.Cmp(amount0Max) > 0 {
		amount0 = new(big.Int).Set(amount0Max)
	}
	if amount1.Cmp(amount1Max) > 0 {
		amount1 = new(big.Int).Set(amount1Max)
	}
	return amount0, amount1, liquidity
}

// CalculateTokenAmountsFromLiquidity returns the (amount0, amount1) a given
// liquidity value represents at sqrtPriceX96 within [tickLower, tickUpper].
func CalculateTokenAmountsFromLiquidity(liquidity, sqrtPriceX96 *big.Int, tickLower, tickUpper int32) (*big.Int, *big.Int, error) {
	if liquidity == nil || liquidity.Sign() <= 0 {
		return big.NewInt(0), big.NewInt(0), fmt.Errorf("liquidity must be positive")
	}
	sqrtLower := TickToSqrtPriceX96(int(tickLower))
	sqrtUpper := TickToSqrtPriceX96(int(tickUpper))
	sqrtCurrent := sqrtPriceX96

	var amount0, amount1 *big.Int
	switch {
	case sqrtCurrent.Cmp(sqrtLower) <= 0:
		amount0 = amount0ForLiquidity(liquidity, sqrtLower, sqrtUpper)
		amount1 = big.NewInt(0)
	case sqrtCurrent.Cmp(sqrtUpper) >= 0:
		amount0 = big.NewInt(0)
		amount1 = amount1ForLiquidity(liquidity, sqrtLower, sqrtUpper)
	default:
		amount0 = amount0ForLiquidity(liquidity, sqrtCurrent, sqrtUpper)
		amount1 = amount1ForLiquidity(liquidity, sqrtLower, sqrtCurrent)
	}
	return amount0, amount1, nil
}

func liquidityForAmount0(sqrtA, sqrtB *big.Int, amount0 *big.Int) *big.Int {
	lo, hi := orderSqrt(sqrtA, sqrtB)
	if hi.Cmp(lo) == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(amount0, lo)
	num.Mul(num, hi)
	denom := new(big.Int).Sub(hi, lo)
	denom.Mul(denom, q96Int())
	if denom.Sign() == 0 {
		return big.NewInt(0)
	}
	return num.Div(num, denom)
}

func liquidityForAmount1(sqrtA, sqrtB *big.Int, amount1 *big.Int) *big.Int {
	lo, hi := orderSqrt(sqrtA, sqrtB)
	diff := new(big.Int).Sub(hi, lo)
	if diff.Sign() == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(amount1, q96Int())
	return num.Div(num, diff)
}

func amount0ForLiquidity(liquidity, sqrtA, sqrtB *big.Int) *big.Int {
	lo, hi := orderSqrt(sqrtA, sqrtB)
	if hi.Cmp(lo) == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(liquidity, q96Int())
	num.Mul(num, new(big.Int).Sub(hi, lo))
	denom := new(big.Int).Mul(hi, lo)
	if denom.Sign() == 0 {
		return big.NewInt(0)
	}
	return num.Div(num, denom)
}

func amount1ForLiquidity(liquidity, sqrtA, sqrtB *big.Int) *big.Int {
	lo, hi := orderSqrt(sqrtA, sqrtB)
	num := new(big.Int).Mul(liquidity, new(big.Int).Sub(hi, lo))
	return num.Div(num, q96Int())
}

func orderSqrt(a, b *big.Int) (*big.Int, *big.Int) {
	if a.Cmp(b) <= 0 {
		return a, b
	}
	return b, a
}

func q96Int() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), 96)
}

// CalculateMinAmount applies a slippage tolerance percentage to a desired
// amount, returning the minimum acceptable amount for a swap or mint.
func CalculateMinAmount(amount *big.Int, slippagePct int) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(amount, big.NewInt(int64(100-slippagePct)))
	return numerator.Div(numerator, big.NewInt(100))
}

// CalculateRebalanceAmounts decides which side of a two-token balance needs
// to be swapped down, and by how much, to reach a 50/50 value split at the
// given pool price. tokenToSwap is 0 for tokenA (too much tokenA), 1 for
// tokenB (too much tokenB).
func CalculateRebalanceAmounts(balanceA, balanceB, sqrtPriceX96 *big.Int) (int, *big.Int, error) {
	if balanceA == nil || balanceB == nil || sqrtPriceX96 == nil {
		return 0, nil, fmt.Errorf("nil input to CalculateRebalanceAmounts")
	}
	price := SqrtPriceToPrice(sqrtPriceX96)
	valueAInB := new(big.Float).SetPrec(200).Mul(new(big.Float).SetInt(balanceA), price)
	valueB := new(big.Float).SetPrec(200).SetInt(balanceB)

	diff := new(big.Float).SetPrec(200).Sub(valueAInB, valueB)
	half := new(big.Float).SetPrec(200).Quo(diff, big.NewFloat(2))

	if half.Sign() > 0 {
		// tokenA overweight: swap half the excess (denominated in tokenA) to tokenB
		swapAmountA := new(big.Float).SetPrec(200).Quo(half, price)
		out := new(big.Int)
		swapAmountA.Int(out)
		return 0, out, nil
	}
	// tokenB overweight: swap half the excess (denominated in tokenB) to tokenA
	swapAmountB := new(big.Float).SetPrec(200).Neg(half)
	out := new(big.Int)
	swapAmountB.Int(out)
	return 1, out, nil
}
