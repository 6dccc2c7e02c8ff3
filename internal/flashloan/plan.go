package flashloan

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/shopspring/decimal"

	"github.com/blackarb/arbengine/internal/chainpool"
	"github.com/blackarb/arbengine/internal/types"
	"github.com/blackarb/arbengine/internal/venue"
)

// utilizationWarnThreshold mirrors the teacher's Mint() capital-utilization
// check: a plan whose depth-capped deployed amount is less than 90% of the
// opportunity's requested reference notional is flagged with a warning.
const utilizationWarnThreshold = 0.90

// Planner assembles and simulates the borrow/swap/swap-back/repay sequence
// for a single Opportunity.
type Planner struct {
	Chain     chainpool.ChainClient
	Providers []Provider
	Buy       venue.Adapter
	Sell      venue.Adapter
}

// Plan is the assembled call sequence plus the bookkeeping the execution
// engine needs to evaluate it (warnings, provider used, estimated gas).
type Plan struct {
	Steps      []types.PlanStep
	Provider   Provider
	Warnings   []string
	GasLimit   uint64
}

// Build assembles a plan for opp: borrow the reference notional, capped by
// the buy and sell venues' quoted depth, from the cheapest sufficient
// provider, swap on the buy venue, swap back on the sell venue, then repay
// principal plus fee.
func (pl *Planner) Build(ctx context.Context, opp types.Opportunity) (Plan, error) {
	requested := opp.ReferenceNotional

	buyQuote, err := pl.Buy.Quote(ctx, opp.Buy.Venue, opp.Pair)
	if err != nil {
		return Plan{}, fmt.Errorf("quote buy venue depth: %w", err)
	}
	sellQuote, err := pl.Sell.Quote(ctx, opp.Sell.Venue, opp.Pair)
	if err != nil {
		return Plan{}, fmt.Errorf("quote sell venue depth: %w", err)
	}
	deployed := minDecimal3(requested, buyQuote.Depth, sellQuote.Depth)

	provider, ok := SelectProvider(pl.Providers, deployed)
	if !ok {
		return Plan{}, fmt.Errorf("flashloan: no provider has sufficient liquidity for notional %s", deployed)
	}

	amountIn := decimalToBigInt(deployed)
	minOutBuy := decimalToBigInt(deployed.Mul(decimal.NewFromFloat(1).Sub(decimal.NewFromFloat(0.02))))

	buyCall, err := pl.Buy.BuildSwap(ctx, opp.Buy.Venue, opp.Pair, true, amountIn, minOutBuy)
	if err != nil {
		return Plan{}, fmt.Errorf("build buy-leg swap: %w", err)
	}

	minOutSell := amountIn
	sellCall, err := pl.Sell.BuildSwap(ctx, opp.Sell.Venue, opp.Pair, false, amountIn, minOutSell)
	if err != nil {
		return Plan{}, fmt.Errorf("build sell-leg swap: %w", err)
	}

	steps := []types.PlanStep{
		{Label: "borrow", Call: types.CallData{To: provider.PoolAddress, Value: decimal.Zero}},
		{Label: "swap-buy-leg", Call: buyCall},
		{Label: "swap-sell-leg", Call: sellCall},
		{Label: "repay", Call: types.CallData{To: provider.PoolAddress, Value: decimal.Zero}},
	}

	var warnings []string
	utilization := estimateUtilization(deployed, requested)
	if utilization < utilizationWarnThreshold {
		warnings = append(warnings, fmt.Sprintf("capital utilization %.1f%% below %.0f%% threshold", utilization*100, utilizationWarnThreshold*100))
	}

	return Plan{
		Steps:    steps,
		Provider: provider,
		Warnings: warnings,
		GasLimit: 0, // filled in by Simulate
	}, nil
}

// minDecimal3 returns the smallest of three decimals, used to size a plan
// against whichever of the requested notional or either venue's live depth
// is the binding constraint.
func minDecimal3(a, b, c decimal.Decimal) decimal.Decimal {
	m := a
	if b.LessThan(m) {
		m = b
	}
	if c.LessThan(m) {
		m = c
	}
	return m
}

// estimateUtilization compares the notional actually deployed against the
// reference notional the opportunity was sized against.
func estimateUtilization(deployed, reference decimal.Decimal) float64 {
	if reference.IsZero() {
		return 1
	}
	ratio, _ := deployed.Div(reference).Float64()
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// Simulate dry-runs every step as an eth_call against the chain client and
// sets Plan.GasLimit to 1.2x the highest single-step estimate, the same
// deterministic safety margin the teacher applied to its Mint/Stake calls.
func (pl *Planner) Simulate(ctx context.Context, plan *Plan, from [20]byte) error {
	var maxGas uint64
	for _, step := range plan.Steps {
		to := step.Call.To
		msg := ethereum.CallMsg{To: &to, Data: step.Call.Data}

		if _, err := pl.Chain.Call(ctx, msg); err != nil {
			return &types.SimulationRevertError{Reason: fmt.Sprintf("%s: %v", step.Label, err)}
		}
		gas, err := pl.Chain.EstimateGas(ctx, msg)
		if err != nil {
			return &types.SimulationRevertError{Reason: fmt.Sprintf("%s: estimate gas: %v", step.Label, err)}
		}
		if gas > maxGas {
			maxGas = gas
		}
	}
	plan.GasLimit = uint64(float64(maxGas) * 1.2)
	return nil
}

func decimalToBigInt(d decimal.Decimal) *big.Int {
	return d.BigInt()
}
