package telemetry

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackarb/arbengine/internal/scanner"
	"github.com/blackarb/arbengine/internal/types"
)

type fakeAdapter struct{ quote types.Quote }

func (f *fakeAdapter) Quote(ctx context.Context, v types.Venue, p types.TokenPair) (types.Quote, error) {
	return f.quote, nil
}
func (f *fakeAdapter) BuildSwap(ctx context.Context, v types.Venue, p types.TokenPair, tokenInIsA bool, amountIn, minOut *big.Int) (types.CallData, error) {
	return types.CallData{}, nil
}
func (f *fakeAdapter) PriceImpact(ctx context.Context, v types.Venue, p types.TokenPair, notional *big.Int) (float64, error) {
	return 0, nil
}

func testPair() types.TokenPair {
	return types.TokenPair{
		TokenA: types.Token{Address: common.HexToAddress("0x1111"), Decimals: 18, Symbol: "WETH"},
		TokenB: types.Token{Address: common.HexToAddress("0x2222"), Decimals: 6, Symbol: "USDC"},
	}
}

func newTestPublisher(t *testing.T) *Publisher {
	t.Helper()
	pair := testPair()
	cheap := types.Venue{Name: "cheap", PoolAddress: common.HexToAddress("0xaaa1")}
	expensive := types.Venue{Name: "expensive", PoolAddress: common.HexToAddress("0xaaa2")}

	sc := scanner.NewScanner([]scanner.Source{
		{Venue: cheap, Pair: pair, Adapter: &fakeAdapter{quote: types.Quote{
			Venue: cheap, Pair: pair, BuyPrice: decimal.NewFromInt(100), SellPrice: decimal.NewFromInt(99),
			Depth: decimal.NewFromInt(5000), SampledAt: time.Now(),
		}}},
		{Venue: expensive, Pair: pair, Adapter: &fakeAdapter{quote: types.Quote{
			Venue: expensive, Pair: pair, BuyPrice: decimal.NewFromInt(105), SellPrice: decimal.NewFromInt(104),
			Depth: decimal.NewFromInt(5000), SampledAt: time.Now(),
		}}},
	}, time.Second, scanner.DefaultWeights())
	require.NoError(t, sc.Tick(context.Background()))

	m := NewMetrics(prometheus.NewRegistry())
	return NewPublisher(sc, m)
}

func TestPublisher_SnapshotReturnsLiveOpportunities(t *testing.T) {
	p := newTestPublisher(t)
	snap := p.Snapshot(SnapshotFilter{})
	require.Len(t, snap, 1)
	assert.Equal(t, "cheap", snap[0].Buy.Venue.Name)
}

func TestPublisher_SnapshotFilterByMinProfitExcludesAll(t *testing.T) {
	p := newTestPublisher(t)
	tooHigh := decimal.NewFromInt(1_000_000)
	snap := p.Snapshot(SnapshotFilter{MinProfit: &tooHigh})
	assert.Empty(t, snap)
}

func TestPublisher_RecordSettlementUpdatesStats(t *testing.T) {
	p := newTestPublisher(t)
	profit := decimal.NewFromInt(10)
	now := time.Now()
	p.RecordSettlement(types.Execution{State: types.Confirmed, RealizedProfit: &profit, EndedAt: &now})

	stats := p.Stats()
	assert.True(t, stats.TotalPnL.Equal(profit))
	assert.Equal(t, 1, stats.ConfirmedCount)
	assert.Equal(t, 1.0, stats.WinRate)
}

func TestPublisher_SubscribeReplaysBacklogSinceLastSeq(t *testing.T) {
	p := newTestPublisher(t)
	f1 := p.PublishSnapshotFrame()
	f2 := p.PublishStatsFrame()

	unsubscribe, frames := p.Subscribe(f1.Seq)
	defer unsubscribe()

	select {
	case got := <-frames:
		assert.Equal(t, f2.Seq, got.Seq)
		assert.Equal(t, "stats", got.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for replayed frame")
	}
}

func TestPublisher_ControlEndpointsAreIdempotent(t *testing.T) {
	p := newTestPublisher(t)
	p.Start()
	p.Start()
	assert.True(t, p.Running())

	p.ArmAutoExecute()
	p.ArmAutoExecute()
	assert.True(t, p.AutoExecuteArmed())

	p.DisarmAutoExecute()
	p.DisarmAutoExecute()
	assert.False(t, p.AutoExecuteArmed())

	p.Stop()
	p.Stop()
	assert.False(t, p.Running())
}

func TestPublisher_ChainStatusReflectsLatestSample(t *testing.T) {
	p := newTestPublisher(t)
	p.SetChainHealth(ChainHealth{Chain: types.Ethereum, Healthy: 2, BlockHeight: 100})

	status := p.ChainStatus()
	require.Contains(t, status, types.Ethereum)
	assert.Equal(t, 2, status[types.Ethereum].Healthy)
}
