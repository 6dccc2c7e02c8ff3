package telemetry

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackarb/arbengine/internal/scanner"
	"github.com/blackarb/arbengine/internal/types"
)

// ChainHealth is one chain's RPC-pool and block-height sample, the read
// model backing ChainStatus().
type ChainHealth struct {
	Chain       types.ChainId
	Healthy     int
	Degraded    int
	Down        int
	BlockHeight uint64
	GasPriceGwei decimal.Decimal
	SampledAt   time.Time
}

// PortfolioStats aggregates realized performance across every settled
// execution, the read model backing Stats().
type PortfolioStats struct {
	TotalPnL       decimal.Decimal
	TodayPnL       decimal.Decimal
	WinRate        float64
	AverageProfit  decimal.Decimal
	Sharpe         float64
	MaxDrawdown    decimal.Decimal
	ActiveCapital  decimal.Decimal
	ConfirmedCount int
	RevertedCount  int
}

// SnapshotFilter narrows Snapshot() to opportunities matching every set field.
type SnapshotFilter struct {
	Chain      *types.ChainId
	MinProfit  *decimal.Decimal
	Risk       *types.RiskClass
}

// Publisher is the read model and broadcast point for one bot instance: a
// snapshot of live opportunities, aggregate stats, per-chain health, and a
// resumable push feed, per §4.H.
type Publisher struct {
	Scanner *scanner.Scanner
	Metrics *Metrics

	hub *hub

	mu          sync.RWMutex
	chainHealth map[types.ChainId]ChainHealth
	stats       PortfolioStats

	running bool
	armed   bool
}

// NewPublisher wires a Publisher to a Scanner's live opportunity map and a
// Metrics collector set.
func NewPublisher(sc *scanner.Scanner, m *Metrics) *Publisher {
	return &Publisher{
		Scanner:     sc,
		Metrics:     m,
		hub:         newHub(),
		chainHealth: make(map[types.ChainId]ChainHealth),
	}
}

// Snapshot returns the live opportunity set, narrowed by filter.
func (p *Publisher) Snapshot(filter SnapshotFilter) []types.Opportunity {
	live := p.Scanner.Live()
	out := make([]types.Opportunity, 0, len(live))
	for _, opp := range live {
		if filter.Chain != nil && opp.Chain != *filter.Chain {
			continue
		}
		if filter.MinProfit != nil && opp.NetProfit.LessThan(*filter.MinProfit) {
			continue
		}
		if filter.Risk != nil && opp.Risk != *filter.Risk {
			continue
		}
		out = append(out, opp)
	}
	return out
}

// Stats returns the current aggregate portfolio statistics.
func (p *Publisher) Stats() PortfolioStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// RecordSettlement folds one terminal execution into the running portfolio
// stats and invalidates nothing else — callers re-read Stats() on demand.
// The Executor worker in cmd calls it with every execution Submit returns,
// whatever its terminal state.
func (p *Publisher) RecordSettlement(exec types.Execution) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if exec.RealizedProfit != nil {
		p.stats.TotalPnL = p.stats.TotalPnL.Add(*exec.RealizedProfit)
		if exec.EndedAt != nil && isToday(*exec.EndedAt) {
			p.stats.TodayPnL = p.stats.TodayPnL.Add(*exec.RealizedProfit)
		}
	}

	switch exec.State {
	case types.Confirmed:
		p.stats.ConfirmedCount++
	case types.Reverted:
		p.stats.RevertedCount++
	}

	total := p.stats.ConfirmedCount + p.stats.RevertedCount
	if total > 0 {
		p.stats.WinRate = float64(p.stats.ConfirmedCount) / float64(total)
		p.stats.AverageProfit = p.stats.TotalPnL.Div(decimal.NewFromInt(int64(total)))
	}
	if p.stats.TotalPnL.LessThan(p.stats.MaxDrawdown) {
		p.stats.MaxDrawdown = p.stats.TotalPnL
	}

	if p.Metrics != nil {
		p.Metrics.ExecutionOutcomes.WithLabelValues(exec.State.String()).Inc()
	}
}

func isToday(t time.Time) bool {
	now := time.Now()
	y1, m1, d1 := now.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// SetChainHealth records one chain's latest RPC-pool sample, used by
// ChainStatus() and surfaced to observers on the next published frame.
func (p *Publisher) SetChainHealth(h ChainHealth) {
	h.SampledAt = time.Now()
	p.mu.Lock()
	prior, existed := p.chainHealth[h.Chain]
	p.chainHealth[h.Chain] = h
	p.mu.Unlock()

	if p.Metrics != nil && (!existed || prior.Healthy != h.Healthy || prior.Degraded != h.Degraded || prior.Down != h.Down) {
		state := "healthy"
		if h.Down > 0 && h.Healthy == 0 {
			state = "down"
		} else if h.Degraded > 0 {
			state = "degraded"
		}
		p.Metrics.ChainHealthTransitions.WithLabelValues(h.Chain.String(), state).Inc()
	}
}

// ChainStatus returns the latest known health sample for every chain.
func (p *Publisher) ChainStatus() map[types.ChainId]ChainHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[types.ChainId]ChainHealth, len(p.chainHealth))
	for k, v := range p.chainHealth {
		out[k] = v
	}
	return out
}

// PublishSnapshotFrame broadcasts the current live opportunity set as a
// "snapshot" frame to every subscriber. Called once per scan tick.
func (p *Publisher) PublishSnapshotFrame() Frame {
	return p.hub.publish("snapshot", p.Snapshot(SnapshotFilter{}))
}

// PublishStatsFrame broadcasts the current portfolio stats as a "stats"
// frame to every subscriber.
func (p *Publisher) PublishStatsFrame() Frame {
	return p.hub.publish("stats", p.Stats())
}

// PublishChainStatusFrame broadcasts the current per-chain health map as a
// "chain_status" frame to every subscriber.
func (p *Publisher) PublishChainStatusFrame() Frame {
	return p.hub.publish("chain_status", p.ChainStatus())
}

// Subscribe registers a new observer and returns a channel of frames
// (replaying any missed since lastSeq) plus an unsubscribe func. Delivery is
// at-least-once: a frame already seen may be replayed if the subscriber
// reconnects with a lastSeq older than its true last-seen sequence.
func (p *Publisher) Subscribe(lastSeq uint64) (func(), <-chan Frame) {
	s := p.hub.subscribe(lastSeq)
	if p.Metrics != nil {
		p.Metrics.SubscriberGauge.Set(float64(p.hub.subscriberCount()))
	}
	unsubscribe := func() {
		p.hub.removeSubscriber(s)
		if p.Metrics != nil {
			p.Metrics.SubscriberGauge.Set(float64(p.hub.subscriberCount()))
		}
	}
	return unsubscribe, s.send
}

// Start, Stop, ArmAutoExecute, and DisarmAutoExecute are the idempotent
// control endpoints from §4.H: calling an already-applied transition is a
// no-op, not an error.

func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = true
}

func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
}

func (p *Publisher) ArmAutoExecute() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = true
}

func (p *Publisher) DisarmAutoExecute() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = false
}

func (p *Publisher) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *Publisher) AutoExecuteArmed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.armed
}
