package execution

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/google/uuid"

	"github.com/blackarb/arbengine/internal/chainpool"
	"github.com/blackarb/arbengine/internal/flashloan"
	"github.com/blackarb/arbengine/internal/types"
	"github.com/blackarb/arbengine/internal/util"
)

// executionDeadline bounds how long confirmLeg waits for a receipt before
// issuing a cancel-replacement, per §4.F.
const executionDeadline = 2 * time.Minute

// confirmationPollInterval is the spacing between receipt polls within one
// executionDeadline window.
const confirmationPollInterval = 2 * time.Second

// Limits bounds how many executions may be in flight at once, per §5's
// concurrency model: a global cap across every chain, and a per-pair cap so
// one hot pair cannot starve the rest of the book.
type Limits struct {
	MaxGlobalInFlight  int
	MaxPerPairInFlight int
	MaxReplacements    int
}

func DefaultLimits() Limits {
	return Limits{MaxGlobalInFlight: 8, MaxPerPairInFlight: 1, MaxReplacements: 2}
}

// TxSigner signs an assembled transaction with the engine's configured
// private key material, kept behind an interface so the engine never
// touches key bytes directly.
type TxSigner interface {
	SignTx(tx *gethtypes.Transaction, chain types.ChainId) (*gethtypes.Transaction, error)
}

// Engine drives executions through the state machine defined by
// types.CanTransition, from New through to a terminal state.
type Engine struct {
	Chain   chainpool.ChainClient
	Planner *flashloan.Planner
	Signer  common.Address
	TxSign  TxSigner
	DryRun  bool
	Limits  Limits

	nonces *NonceAllocator

	mu          sync.Mutex
	globalCount int
	perPair     map[string]int
}

func NewEngine(chain chainpool.ChainClient, planner *flashloan.Planner, signer common.Address, txSign TxSigner, dryRun bool, limits Limits) *Engine {
	return &Engine{
		Chain:   chain,
		Planner: planner,
		Signer:  signer,
		TxSign:  txSign,
		DryRun:  dryRun,
		Limits:  limits,
		nonces:  NewNonceAllocator(),
		perPair: make(map[string]int),
	}
}

// RefuseResumeIfNonTerminal implements the startup Open Question resolution:
// the engine never resumes while any persisted execution is non-terminal.
// The caller should treat this as fatal and exit with a non-zero status.
func RefuseResumeIfNonTerminal(existing []types.Execution) error {
	for _, e := range existing {
		if !e.State.IsTerminal() {
			return &types.FatalError{
				Chain:  e.Chain,
				Reason: fmt.Sprintf("execution %s is non-terminal (state %s); refusing to resume", e.Id, e.State),
			}
		}
	}
	return nil
}

// admit enforces the global/per-pair concurrency caps, returning false if
// opp cannot be admitted right now.
func (eng *Engine) admit(pairKey string) bool {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if eng.globalCount >= eng.Limits.MaxGlobalInFlight {
		return false
	}
	if eng.perPair[pairKey] >= eng.Limits.MaxPerPairInFlight {
		return false
	}
	eng.globalCount++
	eng.perPair[pairKey]++
	return true
}

func (eng *Engine) release(pairKey string) {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	eng.globalCount--
	eng.perPair[pairKey]--
}

// InFlight reports how many executions this engine currently has admitted,
// across every pair, for the stats snapshot's InFlightExecutions figure.
func (eng *Engine) InFlight() int {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	return eng.globalCount
}

// Submit drives opp from New through planning, simulation, submission, and
// (unless DryRun) on-chain confirmation, returning the terminal Execution.
func (eng *Engine) Submit(ctx context.Context, opp types.Opportunity) (*types.Execution, error) {
	pairKey := opp.Pair.Key()
	if !eng.admit(pairKey) {
		return nil, &types.BudgetError{Reason: "concurrency limit reached for this pair or globally"}
	}
	defer eng.release(pairKey)

	exec := &types.Execution{
		Id:              uuid.NewString(),
		OpportunitySnap: opp,
		Chain:           opp.Chain,
		Signer:          eng.Signer,
		State:           types.New,
		StartedAt:       time.Now(),
	}

	if err := eng.transition(exec, types.Planned); err != nil {
		return exec, err
	}
	plan, err := eng.Planner.Build(ctx, opp)
	if err != nil {
		// pre-Submitted: no network side effect occurred, so the execution
		// retires as Cancelled rather than Failed (§7 SimulationRevert).
		if cErr := eng.cancel(exec, err.Error()); cErr != nil {
			return exec, cErr
		}
		return exec, err
	}
	exec.Plan = plan.Steps

	if err := eng.transition(exec, types.Simulated); err != nil {
		return exec, err
	}
	if err := eng.Planner.Simulate(ctx, &plan, eng.Signer); err != nil {
		if cErr := eng.cancel(exec, err.Error()); cErr != nil {
			return exec, cErr
		}
		return exec, err
	}

	if err := eng.transition(exec, types.Submitted); err != nil {
		return exec, err
	}
	stepCount := uint64(len(plan.Steps))
	exec.Nonce = eng.nonces.AllocateRange(opp.Chain, eng.Signer, stepCount)
	defer eng.nonces.ReleaseRange(opp.Chain, eng.Signer, exec.Nonce, stepCount)

	if eng.DryRun {
		if err := eng.cancel(exec, "dry-run"); err != nil {
			return exec, err
		}
		return exec, nil
	}

	legs, err := eng.broadcast(ctx, exec, plan)
	if err != nil {
		if fErr := eng.fail(exec, err.Error()); fErr != nil {
			return exec, fErr
		}
		return exec, err
	}

	if err := eng.transition(exec, types.Pending); err != nil {
		return exec, err
	}

	return eng.awaitConfirmation(ctx, exec, legs)
}

// txLeg tracks one plan step's nonce, call, and current gas price across any
// cancel-replacements issued while waiting for its receipt.
type txLeg struct {
	label    string
	nonce    uint64
	call     types.CallData
	gasLimit uint64
	gasPrice *big.Int
	hash     common.Hash
}

// signAndSend signs leg's current transaction and broadcasts it, recording
// the resulting hash on leg.
func (eng *Engine) signAndSend(ctx context.Context, exec *types.Execution, leg *txLeg) error {
	to := leg.call.To
	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    leg.nonce,
		To:       &to,
		Data:     leg.call.Data,
		Gas:      leg.gasLimit,
		GasPrice: leg.gasPrice,
	})

	signed := tx
	if eng.TxSign != nil {
		var err error
		signed, err = eng.TxSign.SignTx(tx, exec.Chain)
		if err != nil {
			return fmt.Errorf("sign %s: %w", leg.label, err)
		}
	}

	if err := eng.Chain.SendRawTransaction(ctx, signed); err != nil {
		return fmt.Errorf("broadcast %s: %w", leg.label, err)
	}
	leg.hash = signed.Hash()
	return nil
}

// broadcast signs and sends every plan step in order, using one nonce per
// step starting at exec.Nonce and the chain's current gas price, and
// records the resulting hashes.
func (eng *Engine) broadcast(ctx context.Context, exec *types.Execution, plan flashloan.Plan) ([]*txLeg, error) {
	gasPrice, err := eng.Chain.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch gas price: %w", err)
	}

	legs := make([]*txLeg, len(plan.Steps))
	for i, step := range plan.Steps {
		leg := &txLeg{
			label:    step.Label,
			nonce:    exec.Nonce + uint64(i),
			call:     step.Call,
			gasLimit: plan.GasLimit,
			gasPrice: new(big.Int).Set(gasPrice),
		}
		if err := eng.signAndSend(ctx, exec, leg); err != nil {
			return nil, err
		}
		exec.SubmittedTxes = append(exec.SubmittedTxes, leg.hash)
		legs[i] = leg
	}
	return legs, nil
}

// confirmLeg polls for leg's receipt until executionDeadline elapses; each
// time the deadline lapses with no receipt, it replaces the transaction at
// the same nonce with a higher gas price, up to Limits.MaxReplacements
// times, before giving up.
func (eng *Engine) confirmLeg(ctx context.Context, exec *types.Execution, leg *txLeg) (*gethtypes.Receipt, error) {
	for attempt := 0; ; attempt++ {
		deadline := time.Now().Add(executionDeadline)
		for time.Now().Before(deadline) {
			receipt, err := eng.Chain.TransactionReceipt(ctx, [32]byte(leg.hash))
			if err != nil {
				return nil, fmt.Errorf("%s: receipt fetch failed: %w", leg.label, err)
			}
			if receipt != nil {
				return receipt, nil
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(confirmationPollInterval):
			}
		}

		if attempt >= eng.Limits.MaxReplacements {
			return nil, fmt.Errorf("%s: no receipt after %d replacements", leg.label, eng.Limits.MaxReplacements)
		}
		leg.gasPrice = bumpGasPrice(leg.gasPrice)
		if err := eng.signAndSend(ctx, exec, leg); err != nil {
			return nil, fmt.Errorf("%s: cancel-replacement: %w", leg.label, err)
		}
	}
}

// bumpGasPrice raises a replacement transaction's gas price by 25%,
// comfortably above the minimum most mempools require to replace a pending
// transaction at the same nonce.
func bumpGasPrice(price *big.Int) *big.Int {
	bumped := new(big.Int).Mul(price, big.NewInt(5))
	return bumped.Div(bumped, big.NewInt(4))
}

// awaitConfirmation waits out every leg's confirmLeg in order, recording
// each leg's realized gas cost, and settles the execution once: Reverted on
// the first failing leg, Confirmed if every leg succeeds.
func (eng *Engine) awaitConfirmation(ctx context.Context, exec *types.Execution, legs []*txLeg) (*types.Execution, error) {
	for _, leg := range legs {
		receipt, err := eng.confirmLeg(ctx, exec, leg)
		if err != nil {
			if fErr := eng.fail(exec, err.Error()); fErr != nil {
				return exec, fErr
			}
			return exec, err
		}

		gasCost, gcErr := util.ExtractGasCost(receipt)
		if gcErr == nil {
			exec.Transactions = append(exec.Transactions, types.TransactionRecord{
				TxHash:    leg.hash,
				GasUsed:   receipt.GasUsed,
				GasPrice:  decimal.NewFromBigInt(leg.gasPrice, 0),
				GasCost:   gasCost,
				Timestamp: time.Now(),
				Operation: leg.label,
			})
		}

		if receipt.Status != gethtypes.ReceiptStatusSuccessful {
			if err := eng.transition(exec, types.Reverted); err != nil {
				return exec, err
			}
			eng.settle(exec, false)
			return exec, nil
		}
	}

	if err := eng.transition(exec, types.Confirmed); err != nil {
		return exec, err
	}
	eng.settle(exec, true)
	return exec, nil
}

func (eng *Engine) transition(exec *types.Execution, to types.ExecutionState) error {
	if !types.CanTransition(exec.State, to) {
		return fmt.Errorf("illegal transition %s -> %s for execution %s", exec.State, to, exec.Id)
	}
	exec.State = to
	return nil
}

func (eng *Engine) fail(exec *types.Execution, reason string) error {
	if err := eng.transition(exec, types.Failed); err != nil {
		return err
	}
	exec.RevertReason = reason
	now := time.Now()
	exec.EndedAt = &now
	return nil
}

func (eng *Engine) cancel(exec *types.Execution, reason string) error {
	if err := eng.transition(exec, types.Cancelled); err != nil {
		return err
	}
	exec.RevertReason = reason
	now := time.Now()
	exec.EndedAt = &now
	return nil
}

// settle computes realized profit on confirmation (the opportunity's expected
// net profit less actual gas paid) or records the loss of gas alone on revert.
func (eng *Engine) settle(exec *types.Execution, confirmed bool) {
	gasPaid := exec.TotalGasCost()
	exec.GasPaid = gasPaid
	now := time.Now()
	exec.EndedAt = &now

	if confirmed {
		profit := exec.OpportunitySnap.NetProfit.Sub(gasPaid)
		exec.RealizedProfit = &profit
		return
	}
	loss := decimal.Zero.Sub(gasPaid)
	exec.RealizedProfit = &loss
	exec.RevertReason = "transaction reverted on-chain"
}
