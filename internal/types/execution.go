package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ExecutionState is the closed set of states an Execution passes through.
// The engine moves an execution only along legalNext's edges; the store does
// not check transitions and upserts whatever state it is given.
type ExecutionState int

const (
	New ExecutionState = iota
	Planned
	Simulated
	Submitted
	Pending
	Confirmed
	Reverted
	Failed
	Cancelled
)

func (s ExecutionState) String() string {
	switch s {
	case New:
		return "New"
	case Planned:
		return "Planned"
	case Simulated:
		return "Simulated"
	case Submitted:
		return "Submitted"
	case Pending:
		return "Pending"
	case Confirmed:
		return "Confirmed"
	case Reverted:
		return "Reverted"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further transitions are legal from this state.
func (s ExecutionState) IsTerminal() bool {
	switch s {
	case Confirmed, Reverted, Failed, Cancelled:
		return true
	default:
		return false
	}
}

// legalNext enumerates, for every state, the states it may transition into.
// The engine consults it (via CanTransition) to reject illegal transitions.
var legalNext = map[ExecutionState][]ExecutionState{
	New:       {Planned, Cancelled},
	Planned:   {Simulated, Cancelled},
	Simulated: {Submitted, Cancelled},
	Submitted: {Pending, Failed, Cancelled},
	Pending:   {Confirmed, Reverted, Failed, Pending}, // Pending->Pending models a reorg re-wait
}

// CanTransition reports whether moving from `from` to `to` is a legal edge
// in the state machine.
func CanTransition(from, to ExecutionState) bool {
	for _, s := range legalNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransactionRecord tracks one broadcast transaction belonging to an
// Execution, generalizing the teacher's TransactionRecord/StakingResult
// ledger (approvals, the flash-loan call, repayment) to arbitrary plan steps.
type TransactionRecord struct {
	TxHash    common.Hash
	GasUsed   uint64
	GasPrice  decimal.Decimal
	GasCost   decimal.Decimal
	Timestamp time.Time
	Operation string // plan step label: "borrow", "swap-buy-leg", "swap-sell-leg", "repay"
}

// PlanStep is one venue-agnostic call in a Flash-Loan Planner's assembled plan.
type PlanStep struct {
	Label string
	Call  CallData
}

// Execution is one attempted trade, created once and mutated only by legal
// state transitions until it reaches a terminal state.
type Execution struct {
	Id              string
	OpportunitySnap Opportunity
	Plan            []PlanStep
	Chain           ChainId
	Signer          common.Address
	Nonce           uint64

	State         ExecutionState
	SubmittedTxes []common.Hash
	Transactions  []TransactionRecord

	RealizedProfit *decimal.Decimal // nil until settled
	GasPaid        decimal.Decimal
	RevertReason   string

	StartedAt time.Time
	EndedAt   *time.Time
}

// TotalGasCost sums the gas cost of every recorded transaction.
func (e *Execution) TotalGasCost() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range e.Transactions {
		total = total.Add(tx.GasCost)
	}
	return total
}
