// Package scanner continuously samples every configured venue for every
// configured pair on every chain, computes cross-venue spreads, scores them,
// and maintains the live opportunity map described in §4.C.
package scanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/blackarb/arbengine/internal/flashloan"
	"github.com/blackarb/arbengine/internal/types"
	"github.com/blackarb/arbengine/internal/venue"
)

// GasSource supplies a chain's current gas price, letting the scanner cost
// an opportunity's gas leg (§4.C step 5) without depending on
// chainpool.ChainClient directly.
type GasSource interface {
	GasPriceGwei(ctx context.Context, chain types.ChainId) (decimal.Decimal, error)
}

// Weights are the confidence-score component weights. They sum to 1.0.
type Weights struct {
	DepthHeadroom    float64
	InvertedVolatility float64
	VenueClassPenalty  float64
	StalenessPenalty   float64
}

// DefaultWeights resolves the confidence-weighting Open Question.
func DefaultWeights() Weights {
	return Weights{
		DepthHeadroom:      0.35,
		InvertedVolatility: 0.30,
		VenueClassPenalty:  0.20,
		StalenessPenalty:   0.15,
	}
}

// Source is one (chain, venue, pair) sampling target.
type Source struct {
	Chain  types.ChainId
	Venue  types.Venue
	Pair   types.TokenPair
	Adapter venue.Adapter
}

// Scanner owns the live opportunity map for a set of sources and refreshes
// it every Interval.
type Scanner struct {
	Sources  []Source
	Interval time.Duration
	Weights  Weights
	MaxTrend int

	// MinProfitUSD gates emission per §4.C step 8: a tick's candidate is
	// dropped from the live map unless its NetProfit clears this floor.
	MinProfitUSD decimal.Decimal
	// SlippageTolerance is the configured fraction of gross profit reserved
	// against execution slippage (§4.C step 5).
	SlippageTolerance decimal.Decimal
	// UseFlashLoans gates the eligibility predicate; when false every
	// opportunity is marked flash-loan ineligible and non-executable.
	UseFlashLoans bool
	// Gas samples each chain's current gas price once per tick. Nil means
	// every opportunity is costed with zero gas.
	Gas GasSource
	// GasBudgetUnits is the fixed per-chain gas-unit budget for one
	// borrow/swap/swap/repay sequence, per §4.C step 5.
	GasBudgetUnits map[types.ChainId]uint64
	// NativeTokenPriceUSD converts a chain's native gas token into USD so
	// GasCostUSD is comparable to GrossProfit/NetProfit.
	NativeTokenPriceUSD map[types.ChainId]decimal.Decimal
	// FlashProviders lists the flash-loan providers available on each
	// chain, consulted by the eligibility predicate.
	FlashProviders map[types.ChainId][]flashloan.Provider

	mu   sync.RWMutex
	live map[string]types.Opportunity // keyed by pair.Key()
}

func NewScanner(sources []Source, interval time.Duration, weights Weights) *Scanner {
	return &Scanner{
		Sources:  sources,
		Interval: interval,
		Weights:  weights,
		MaxTrend: 20,
		live:     make(map[string]types.Opportunity),
	}
}

// Tick samples every source once (bounded fan-out via errgroup), groups
// quotes by pair, finds the best buy/sell spread per pair, and upserts the
// live opportunity map.
func (s *Scanner) Tick(ctx context.Context) error {
	quotes := make([]types.Quote, len(s.Sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)
	for i, src := range s.Sources {
		i, src := i, src
		g.Go(func() error {
			q, err := src.Adapter.Quote(gctx, src.Venue, src.Pair)
			if err != nil {
				return nil // a single venue's failure never aborts the whole tick
			}
			quotes[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	byPair := make(map[string][]types.Quote)
	for _, q := range quotes {
		if q.SampledAt.IsZero() {
			continue // zero-value slot from a failed/skipped source
		}
		key := q.Pair.Key()
		byPair[key] = append(byPair[key], q)
	}

	now := time.Now()
	gasPrices := s.sampleGasPrices(ctx, byPair)
	for key, pairQuotes := range byPair {
		opp, ok := s.bestSpread(pairQuotes, now)
		if !ok {
			continue
		}
		s.costOpportunity(&opp, gasPrices[opp.Chain])
		if opp.NetProfit.LessThan(s.MinProfitUSD) {
			continue
		}
		s.upsert(key, opp)
	}
	return nil
}

// sampleGasPrices fetches one gas-price sample per distinct chain present in
// byPair's quotes, skipping the fetch entirely when no GasSource is wired.
func (s *Scanner) sampleGasPrices(ctx context.Context, byPair map[string][]types.Quote) map[types.ChainId]decimal.Decimal {
	prices := make(map[types.ChainId]decimal.Decimal)
	if s.Gas == nil {
		return prices
	}

	seen := make(map[types.ChainId]bool)
	for _, quotes := range byPair {
		for _, q := range quotes {
			chain := q.Venue.Chain
			if seen[chain] {
				continue
			}
			seen[chain] = true
			price, err := s.Gas.GasPriceGwei(ctx, chain)
			if err != nil {
				continue
			}
			prices[chain] = price
		}
	}
	return prices
}

// costOpportunity fills in the §4.C step 5-7 cost stack onto opp (gas,
// slippage reserve, flash-loan fee) and derives NetProfit from it. An
// opportunity that fails the flash-loan eligibility predicate stays in the
// live map but is marked non-executable (scenario 6).
func (s *Scanner) costOpportunity(opp *types.Opportunity, gasPriceGwei decimal.Decimal) {
	opp.GasCostUSD = s.estimateGasCostUSD(opp.Chain, gasPriceGwei)
	opp.SlippageReserve = opp.GrossProfit.Mul(s.SlippageTolerance)

	eligible, flashFee := s.flashLoanEligibility(*opp)
	opp.FlashLoanEligible = eligible
	opp.FlashFee = flashFee

	opp.NetProfit = types.ComputeNetProfit(opp.GrossProfit, opp.GasCostUSD, opp.SlippageReserve, opp.FlashFee)

	if !eligible {
		opp.Executable = false
		if opp.RejectReason == "" {
			opp.RejectReason = "flash-loan ineligible: no configured provider has sufficient liquidity"
		}
	}
}

// estimateGasCostUSD converts chain's fixed gas-unit budget at the sampled
// gwei price into USD via its native token's price. Any missing input
// (no sample, no budget, no price) costs the opportunity zero gas rather
// than blocking it.
func (s *Scanner) estimateGasCostUSD(chain types.ChainId, gasPriceGwei decimal.Decimal) decimal.Decimal {
	if gasPriceGwei.IsZero() {
		return decimal.Zero
	}
	units, ok := s.GasBudgetUnits[chain]
	if !ok || units == 0 {
		return decimal.Zero
	}
	nativePrice, ok := s.NativeTokenPriceUSD[chain]
	if !ok {
		return decimal.Zero
	}
	gasCostNative := gasPriceGwei.Mul(decimal.NewFromInt(int64(units))).Div(decimal.New(1, 9))
	return gasCostNative.Mul(nativePrice)
}

// flashLoanEligibility implements the §4.C step 5 predicate: a provider
// configured for opp's chain must cover the reference notional. UseFlashLoans
// gates the predicate off entirely, since this engine's only execution path
// is the flash-loan planner.
func (s *Scanner) flashLoanEligibility(opp types.Opportunity) (bool, decimal.Decimal) {
	if !s.UseFlashLoans {
		return false, decimal.Zero
	}
	providers := s.FlashProviders[opp.Chain]
	if len(providers) == 0 {
		return false, decimal.Zero
	}
	provider, ok := flashloan.SelectProvider(providers, opp.ReferenceNotional)
	if !ok {
		return false, decimal.Zero
	}
	return true, provider.Fee(opp.ReferenceNotional)
}

// bestSpread finds the (buy, sell) venue pair maximizing gross spread
// within pairQuotes, where buy is the cheapest ask and sell is the highest bid.
func (s *Scanner) bestSpread(quotes []types.Quote, now time.Time) (types.Opportunity, bool) {
	if len(quotes) < 2 {
		return types.Opportunity{}, false
	}

	buy := quotes[0]
	sell := quotes[0]
	for _, q := range quotes[1:] {
		if q.BuyPrice.LessThan(buy.BuyPrice) {
			buy = q
		}
		if q.SellPrice.GreaterThan(sell.SellPrice) {
			sell = q
		}
	}
	if buy.Venue.PoolAddress == sell.Venue.PoolAddress {
		return types.Opportunity{}, false
	}
	if !sell.SellPrice.GreaterThan(buy.BuyPrice) {
		return types.Opportunity{}, false
	}

	spread := sell.SellPrice.Sub(buy.BuyPrice).Div(buy.BuyPrice).Mul(decimal.NewFromInt(10000))
	referenceNotional := minDecimal(buy.Depth, sell.Depth)
	grossProfit := sell.SellPrice.Sub(buy.BuyPrice).Mul(referenceNotional)

	id := types.StableId(buy.Pair, buy.Venue, sell.Venue, buy.Venue.Chain, now)

	opp := types.Opportunity{
		Id:                id,
		Chain:             buy.Venue.Chain,
		Pair:              buy.Pair,
		Buy:               types.OpportunitySide{Venue: buy.Venue, Price: buy.BuyPrice},
		Sell:              types.OpportunitySide{Venue: sell.Venue, Price: sell.SellPrice},
		GrossSpreadBps:    spread,
		ReferenceNotional: referenceNotional,
		GrossProfit:       grossProfit,
		FreshnessAt:       now,
		Executable:        true,
	}
	return opp, true
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// upsert merges a newly computed opportunity into the live map, carrying
// forward the prior entry's trend so confidence/volatility track history
// across ticks rather than resetting every time.
func (s *Scanner) upsert(key string, opp types.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, existed := s.live[key]
	trend := []types.QuoteSample{}
	if existed {
		trend = prior.Trend
	}
	trend = types.AppendTrend(trend, types.QuoteSample{Price: opp.Sell.Price, At: opp.FreshnessAt}, s.MaxTrend)
	opp.Trend = trend
	opp.Volatility = volatility(trend)
	opp.Confidence = score(opp, s.Weights)
	opp.Risk = classify(opp)

	s.live[key] = opp
}

// Live returns a stable-sorted snapshot of the current opportunity map, per
// §4.C's tie-break chain: net profit descending, then confidence
// descending, then lower gas cost, then lexicographic pair id.
func (s *Scanner) Live() []types.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Opportunity, 0, len(s.live))
	for _, o := range s.live {
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].NetProfit.Equal(out[j].NetProfit) {
			return out[i].NetProfit.GreaterThan(out[j].NetProfit)
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if !out[i].GasCostUSD.Equal(out[j].GasCostUSD) {
			return out[i].GasCostUSD.LessThan(out[j].GasCostUSD)
		}
		return out[i].Pair.Key() < out[j].Pair.Key()
	})
	return out
}

// volatility is the coefficient of variation of recent trend prices, a
// cheap stand-in for a full realized-volatility estimator.
func volatility(trend []types.QuoteSample) float64 {
	if len(trend) < 2 {
		return 0
	}
	var sum, sumSq float64
	for _, s := range trend {
		f, _ := s.Price.Float64()
		sum += f
		sumSq += f * f
	}
	n := float64(len(trend))
	mean := sum / n
	if mean == 0 {
		return 0
	}
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return sqrtFloat(variance) / mean
}

func sqrtFloat(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 20; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// score combines depth headroom, inverted volatility, venue-class penalty,
// and staleness penalty into a single [0,100] confidence figure using the
// resolved component weights.
func score(opp types.Opportunity, w Weights) float64 {
	depthHeadroom := clamp01(opp.ReferenceNotional.InexactFloat64() / 10000.0)
	invertedVolatility := clamp01(1 - opp.Volatility)
	venueClassPenalty := 1.0 // both venues treated as equally trusted absent a reputation table
	stalenessPenalty := clamp01(1 - time.Since(opp.FreshnessAt).Seconds()/30.0)

	raw := w.DepthHeadroom*depthHeadroom +
		w.InvertedVolatility*invertedVolatility +
		w.VenueClassPenalty*venueClassPenalty +
		w.StalenessPenalty*stalenessPenalty

	return clamp01(raw) * 100
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// classify buckets an opportunity's risk by combined confidence and volatility.
func classify(opp types.Opportunity) types.RiskClass {
	switch {
	case opp.Confidence >= 70 && opp.Volatility < 0.05:
		return types.RiskLow
	case opp.Confidence >= 40:
		return types.RiskMedium
	default:
		return types.RiskHigh
	}
}
