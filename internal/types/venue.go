package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PricingModel identifies which formula class a Venue's pool follows.
type PricingModel int

const (
	ConstantProductV2 PricingModel = iota
	ConcentratedV3
	StableCurve
	WeightedPool
)

func (m PricingModel) String() string {
	switch m {
	case ConstantProductV2:
		return "constant_product_v2"
	case ConcentratedV3:
		return "concentrated_v3"
	case StableCurve:
		return "stable_curve"
	case WeightedPool:
		return "weighted_pool"
	default:
		return "unknown"
	}
}

// VenueName is an opaque tag identifying a DEX deployment, e.g. "UniswapV3".
type VenueName string

// Venue identifies a single pool/router deployment on a single chain.
type Venue struct {
	Chain        ChainId
	Name         VenueName
	Model        PricingModel
	PoolAddress  common.Address
	RouterAddr   common.Address
	FeeTierBps   int
}

// Token describes one leg of a TokenPair.
type Token struct {
	Address  common.Address
	Decimals uint8
	Symbol   string
}

// TokenPair is an unordered pair of tokens pinned at configuration time.
type TokenPair struct {
	TokenA Token
	TokenB Token
}

// Key returns a deterministic, order-independent identifier for the pair.
func (p TokenPair) Key() string {
	a, b := p.TokenA.Address.Hex(), p.TokenB.Address.Hex()
	if a > b {
		a, b = b, a
	}
	return a + "-" + b
}

// CallData is a venue-agnostic on-chain call as described by the plan. The
// engine never constructs EVM bytecode itself; adapters emit this instead.
type CallData struct {
	To    common.Address
	Data  []byte
	Value decimal.Decimal
}
