package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/blackarb/arbengine/internal/types"
)

func admittableOpportunity() types.Opportunity {
	return types.Opportunity{
		Pair:              types.TokenPair{},
		ReferenceNotional: decimal.NewFromInt(1000),
		Confidence:        80,
		Risk:              types.RiskLow,
		Executable:        true,
	}
}

func TestFilter_AdmitsAWithinLimitsOpportunity(t *testing.T) {
	f := NewFilter(DefaultLimits())
	ok, reason := f.Admit(admittableOpportunity(), decimal.NewFromInt(50), time.Now())
	assert.True(t, ok, reason)
}

func TestFilter_RejectsOnGasCeiling(t *testing.T) {
	f := NewFilter(DefaultLimits())
	ok, reason := f.Admit(admittableOpportunity(), decimal.NewFromInt(500), time.Now())
	assert.False(t, ok)
	assert.Equal(t, "gas price above ceiling", reason)
}

func TestFilter_RejectsOnPositionSize(t *testing.T) {
	f := NewFilter(DefaultLimits())
	opp := admittableOpportunity()
	opp.ReferenceNotional = decimal.NewFromInt(1_000_000)
	ok, reason := f.Admit(opp, decimal.NewFromInt(50), time.Now())
	assert.False(t, ok)
	assert.Equal(t, "reference notional exceeds max position size", reason)
}

func TestFilter_RejectsHighRisk(t *testing.T) {
	f := NewFilter(DefaultLimits())
	opp := admittableOpportunity()
	opp.Risk = types.RiskHigh
	ok, _ := f.Admit(opp, decimal.NewFromInt(50), time.Now())
	assert.False(t, ok)
}

func TestFilter_CoolDownRejectsRepeatWithinWindow(t *testing.T) {
	limits := DefaultLimits()
	limits.CoolDown = time.Minute
	f := NewFilter(limits)

	now := time.Now()
	opp := admittableOpportunity()

	ok, _ := f.Admit(opp, decimal.NewFromInt(50), now)
	assert.True(t, ok)

	ok, reason := f.Admit(opp, decimal.NewFromInt(50), now.Add(time.Second))
	assert.False(t, ok)
	assert.Equal(t, "pair in cool-down", reason)

	ok, _ = f.Admit(opp, decimal.NewFromInt(50), now.Add(2*time.Minute))
	assert.True(t, ok, "cool-down should lift once the window elapses")
}
