package store

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackarb/arbengine/internal/types"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	rec, err := NewSQLiteRecorder(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })
	return rec
}

func testOpportunity() types.Opportunity {
	pair := types.TokenPair{
		TokenA: types.Token{Address: common.HexToAddress("0x1111"), Decimals: 18, Symbol: "WETH"},
		TokenB: types.Token{Address: common.HexToAddress("0x2222"), Decimals: 6, Symbol: "USDC"},
	}
	return types.Opportunity{
		Id:             "opp-1",
		Chain:          types.ChainId(1),
		Pair:           pair,
		Buy:            types.OpportunitySide{Venue: types.Venue{Name: "cheap"}},
		Sell:           types.OpportunitySide{Venue: types.Venue{Name: "expensive"}},
		GrossSpreadBps: decimal.NewFromInt(50),
		NetProfit:      decimal.NewFromInt(10),
		Confidence:     80,
		Risk:           types.RiskLow,
		Executable:     true,
		FreshnessAt:    time.Now(),
	}
}

func TestRecorder_RecordAndQueryOpportunity(t *testing.T) {
	rec := newTestRecorder(t)
	require.NoError(t, rec.RecordOpportunity(testOpportunity()))

	var got OpportunityRecord
	require.NoError(t, rec.DB().First(&got).Error)
	assert.Equal(t, "opp-1", got.OpportunityId)
	assert.Equal(t, "cheap", got.BuyVenue)
}

func TestRecorder_RecordExecutionUpsertsById(t *testing.T) {
	rec := newTestRecorder(t)
	opp := testOpportunity()
	exec := types.Execution{
		Id:              "exec-1",
		OpportunitySnap: opp,
		Chain:           opp.Chain,
		State:           types.New,
		GasPaid:         decimal.Zero,
		StartedAt:       time.Now(),
	}
	require.NoError(t, rec.RecordExecution(exec))

	exec.State = types.Confirmed
	profit := decimal.NewFromInt(5)
	exec.RealizedProfit = &profit
	require.NoError(t, rec.RecordExecution(exec))

	var rows []ExecutionRecord
	require.NoError(t, rec.DB().Where("execution_id = ?", "exec-1").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, int(types.Confirmed), rows[0].State)
	require.NotNil(t, rows[0].RealizedProfit)
	assert.Equal(t, "5", *rows[0].RealizedProfit)
}

func TestRecorder_NonTerminalExecutions(t *testing.T) {
	rec := newTestRecorder(t)
	opp := testOpportunity()

	pending := types.Execution{Id: "exec-pending", OpportunitySnap: opp, Chain: opp.Chain, State: types.Pending, GasPaid: decimal.Zero, StartedAt: time.Now()}
	done := types.Execution{Id: "exec-done", OpportunitySnap: opp, Chain: opp.Chain, State: types.Confirmed, GasPaid: decimal.Zero, StartedAt: time.Now()}
	require.NoError(t, rec.RecordExecution(pending))
	require.NoError(t, rec.RecordExecution(done))

	nonTerminal, err := rec.NonTerminalExecutions()
	require.NoError(t, err)
	require.Len(t, nonTerminal, 1)
	assert.Equal(t, "exec-pending", nonTerminal[0].ExecutionId)
}

func TestRecorder_SweepDeletesRowsPastRetention(t *testing.T) {
	rec := newTestRecorder(t)
	now := time.Now()

	old := OpportunityRecord{OpportunityId: "old", SampledAt: now.Add(-8 * 24 * time.Hour)}
	fresh := OpportunityRecord{OpportunityId: "fresh", SampledAt: now.Add(-1 * time.Hour)}
	require.NoError(t, rec.DB().Create(&old).Error)
	require.NoError(t, rec.DB().Create(&fresh).Error)

	require.NoError(t, rec.Sweep(now))

	var remaining []OpportunityRecord
	require.NoError(t, rec.DB().Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].OpportunityId)
}

func TestRecorder_SweepKeepsExecutionsIndefinitely(t *testing.T) {
	rec := newTestRecorder(t)
	ancient := types.Execution{Id: "exec-ancient", Chain: types.ChainId(1), State: types.Confirmed, GasPaid: decimal.Zero, StartedAt: time.Now().Add(-365 * 24 * time.Hour)}
	require.NoError(t, rec.RecordExecution(ancient))

	require.NoError(t, rec.Sweep(time.Now()))

	var rows []ExecutionRecord
	require.NoError(t, rec.DB().Find(&rows).Error)
	assert.Len(t, rows, 1)
}
