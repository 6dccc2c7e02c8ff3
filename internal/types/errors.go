package types

import "fmt"

// RetryableTransportError wraps an RPC timeout, 5xx, or connection reset.
// chainpool.Pool returns it after trying each viable endpoint once, in
// order; no retry with backoff is made.
type RetryableTransportError struct {
	Endpoint string
	Err      error
}

func (e *RetryableTransportError) Error() string {
	return fmt.Sprintf("retryable transport error on %s: %v", e.Endpoint, e.Err)
}

func (e *RetryableTransportError) Unwrap() error { return e.Err }

// NonRetryableTransportError signals a transport failure that is not worth
// retrying; chainpool.Pool returns it when no endpoint is viable. No retry is
// attempted.
type NonRetryableTransportError struct {
	Endpoint string
	Err      error
}

func (e *NonRetryableTransportError) Error() string {
	return fmt.Sprintf("non-retryable transport error on %s: %v", e.Endpoint, e.Err)
}

func (e *NonRetryableTransportError) Unwrap() error { return e.Err }

// ChainReorgError signals that a confirmation height regressed. The
// execution engine neither produces nor handles it; no reorg detection or
// re-wait is performed.
type ChainReorgError struct {
	Chain       ChainId
	ObservedAt  uint64
	DroppedDepth uint64
}

func (e *ChainReorgError) Error() string {
	return fmt.Sprintf("chain reorg on %s: observed block %d dropped at depth %d", e.Chain, e.ObservedAt, e.DroppedDepth)
}

// SimulationRevertError means the planner's simulated plan is unusable; the
// execution engine cancels the execution with this reason. The opportunity
// itself stays in the scanner's live set.
type SimulationRevertError struct {
	Reason string
}

func (e *SimulationRevertError) Error() string {
	return fmt.Sprintf("simulation reverted: %s", e.Reason)
}

// InsufficientLiquidityError means quoted depth fell below the reference
// notional; the candidate is rejected with this reason.
type InsufficientLiquidityError struct {
	Venue    VenueName
	Required string
	Depth    string
}

func (e *InsufficientLiquidityError) Error() string {
	return fmt.Sprintf("insufficient liquidity at %s: required %s, depth %s", e.Venue, e.Required, e.Depth)
}

// BudgetError covers gas-ceiling, position-size, or cool-down violations.
type BudgetError struct {
	Reason string
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("budget violation: %s", e.Reason)
}

// FatalError signals a condition that cannot be recovered from on its own.
// Its only producer is execution.RefuseResumeIfNonTerminal, which returns it
// at startup; nothing halts an individual chain on it.
type FatalError struct {
	Chain  ChainId
	Reason string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error on %s: %s", e.Chain, e.Reason)
}
