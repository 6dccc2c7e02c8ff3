// Package risk decides which scanned opportunities are allowed to reach the
// flash-loan planner, applying the admission rules of §4.D: gas ceiling,
// position-size cap, minimum confidence, risk-class allow-list, and a
// per-pair cool-down modeled on the liquidity-repositioning strategy's
// StabilityWindow.
package risk

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackarb/arbengine/internal/types"
)

// Limits is the admission-rule configuration. cmd starts from DefaultLimits
// and takes the gas ceiling and position-size cap from the validated Config.
type Limits struct {
	MaxGasPriceGwei  decimal.Decimal
	MaxPositionSize  decimal.Decimal
	MinConfidence    float64
	AllowedRisk      map[types.RiskClass]bool
	CoolDown         time.Duration
}

// DefaultLimits mirrors the §6 configuration defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxGasPriceGwei: decimal.NewFromInt(150),
		MaxPositionSize: decimal.NewFromFloat(5000.00),
		MinConfidence:   50, // Confidence is expressed on a [0,100] scale
		AllowedRisk: map[types.RiskClass]bool{
			types.RiskLow:    true,
			types.RiskMedium: true,
			types.RiskHigh:   false,
		},
		CoolDown: 5 * time.Second,
	}
}

// coolDown is a StabilityWindow-style per-pair guard: once a pair has been
// admitted, it is ineligible again until CoolDown has elapsed, preventing
// the planner from re-entering the same spread repeatedly while it decays.
type coolDown struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// Filter evaluates opportunities against Limits and a live gas-price read.
type Filter struct {
	limits Limits
	cool   *coolDown
}

func NewFilter(limits Limits) *Filter {
	return &Filter{limits: limits, cool: &coolDown{lastSeen: make(map[string]time.Time)}}
}

// Admit reports whether opp may proceed to planning, and if not, the reason
// that should be attached to opp.RejectReason.
func (f *Filter) Admit(opp types.Opportunity, currentGasPriceGwei decimal.Decimal, now time.Time) (bool, string) {
	if currentGasPriceGwei.GreaterThan(f.limits.MaxGasPriceGwei) {
		return false, "gas price above ceiling"
	}
	if opp.ReferenceNotional.GreaterThan(f.limits.MaxPositionSize) {
		return false, "reference notional exceeds max position size"
	}
	if opp.Confidence < f.limits.MinConfidence {
		return false, "confidence below minimum"
	}
	if allowed, known := f.limits.AllowedRisk[opp.Risk]; !known || !allowed {
		return false, "risk class not admitted"
	}
	if !opp.Executable {
		return false, "opportunity not marked executable"
	}

	key := opp.Pair.Key()
	f.cool.mu.Lock()
	defer f.cool.mu.Unlock()
	if last, ok := f.cool.lastSeen[key]; ok && now.Sub(last) < f.limits.CoolDown {
		return false, "pair in cool-down"
	}
	f.cool.lastSeen[key] = now
	return true, ""
}
