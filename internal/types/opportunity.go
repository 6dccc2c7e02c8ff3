package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RiskClass buckets an Opportunity by its combined confidence/volatility/impact profile.
type RiskClass int

const (
	RiskLow RiskClass = iota
	RiskMedium
	RiskHigh
)

func (r RiskClass) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// QuoteSample is one entry in an Opportunity's bounded trend ring buffer.
type QuoteSample struct {
	Price decimal.Decimal
	At    time.Time
}

// OpportunitySide snapshots the venue and price used on one leg of a trade.
type OpportunitySide struct {
	Venue Venue
	Price decimal.Decimal
}

// Opportunity is the fundamental unit produced by the scanner. Its Id is a
// deterministic content hash: two opportunities with identical
// (pair, buyVenue, sellVenue, chain, 1-second-bucketed timestamp) always
// produce the same Id, which is what makes upserts under the same logical
// opportunity possible across scan ticks.
type Opportunity struct {
	Id     string
	Chain  ChainId
	Pair   TokenPair
	Buy    OpportunitySide
	Sell   OpportunitySide

	GrossSpreadBps    decimal.Decimal
	ReferenceNotional decimal.Decimal
	GrossProfit       decimal.Decimal
	GasCostUSD        decimal.Decimal
	SlippageReserve   decimal.Decimal
	FlashFee          decimal.Decimal
	NetProfit         decimal.Decimal

	Confidence float64 // [0,100]
	Risk       RiskClass

	FlashLoanEligible bool
	Executable        bool
	RejectReason      string

	Trend      []QuoteSample // bounded ring buffer, most recent last
	Volatility float64
	Impact     float64

	FreshnessAt time.Time
}

// StableId computes the deterministic content hash identifying an
// opportunity. The timestamp is bucketed to the second so that successive
// scan ticks within the same second upsert the same logical opportunity.
func StableId(pair TokenPair, buy, sell Venue, chain ChainId, ts time.Time) string {
	bucket := ts.Truncate(time.Second).Unix()
	raw := fmt.Sprintf("%s|%s|%s|%s|%d", pair.Key(), buy.Name, sell.Name, chain.String(), bucket)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}

// ComputeNetProfit applies the profit identity mandated for every Opportunity:
// netProfit = grossProfit - gasCost - slippageReserve - flashFee.
func ComputeNetProfit(gross, gasCostUSD, slippageReserve, flashFee decimal.Decimal) decimal.Decimal {
	return gross.Sub(gasCostUSD).Sub(slippageReserve).Sub(flashFee)
}

// AppendTrend appends a sample to the bounded ring buffer, dropping the
// oldest entry once maxLen is exceeded.
func AppendTrend(trend []QuoteSample, sample QuoteSample, maxLen int) []QuoteSample {
	trend = append(trend, sample)
	if len(trend) > maxLen {
		trend = trend[len(trend)-maxLen:]
	}
	return trend
}
