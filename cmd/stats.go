package main

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/blackarb/arbengine/internal/store"
	"github.com/blackarb/arbengine/internal/types"
)

// statsAggregator accumulates the running totals runExecutor observes on
// every settled execution, feeding the periodic StatsSnapshotRecord the
// ApiPublisher worker journals.
type statsAggregator struct {
	mu                 sync.Mutex
	cumulativeRealized decimal.Decimal
	cumulativeGasSpent decimal.Decimal
	confirmedCount     int
	revertedCount      int
}

func (s *statsAggregator) observe(exec types.Execution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cumulativeGasSpent = s.cumulativeGasSpent.Add(exec.GasPaid)
	if exec.RealizedProfit != nil {
		s.cumulativeRealized = s.cumulativeRealized.Add(*exec.RealizedProfit)
	}
	switch exec.State {
	case types.Confirmed:
		s.confirmedCount++
	case types.Reverted:
		s.revertedCount++
	}
}

func (s *statsAggregator) snapshot(openOpportunities, inFlight int) store.StatsSnapshotRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.StatsSnapshotRecord{
		OpenOpportunities:  openOpportunities,
		InFlightExecutions: inFlight,
		CumulativeRealized: s.cumulativeRealized.String(),
		CumulativeGasSpent: s.cumulativeGasSpent.String(),
		ConfirmedCount:     s.confirmedCount,
		RevertedCount:      s.revertedCount,
	}
}
