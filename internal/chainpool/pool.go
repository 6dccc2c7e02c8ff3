package chainpool

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/blackarb/arbengine/internal/types"
)

// Pool owns a chain's bounded set of RPC endpoints and routes every call
// through the least-loaded healthy one, failing over to the next candidate
// when a call comes back as a transport error. It satisfies ChainClient so
// callers never need to know how many endpoints back a chain.
type Pool struct {
	Chain types.ChainId

	mu        sync.RWMutex
	endpoints []*Endpoint
}

// NewPool builds a pool for chain from already-constructed endpoints.
func NewPool(chain types.ChainId, endpoints []*Endpoint) *Pool {
	return &Pool{Chain: chain, endpoints: endpoints}
}

var errNoHealthyEndpoint = errors.New("chainpool: no healthy endpoint available")

// pick returns endpoints ordered best-first: Healthy endpoints by ascending
// in-flight count, then Degraded ones (cool-down candidates for re-probing),
// never Down ones.
func (p *Pool) pick(now time.Time) []*Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var healthy, degraded []*Endpoint
	for _, e := range p.endpoints {
		switch e.Health(now) {
		case types.Healthy:
			healthy = append(healthy, e)
		case types.Degraded:
			degraded = append(degraded, e)
		}
	}
	sortByLoad(healthy)
	sortByLoad(degraded)
	return append(healthy, degraded...)
}

func sortByLoad(eps []*Endpoint) {
	for i := 1; i < len(eps); i++ {
		j := i
		for j > 0 && eps[j-1].InFlight() > eps[j].InFlight() {
			eps[j-1], eps[j] = eps[j], eps[j-1]
			j--
		}
	}
}

// do runs fn against each viable endpoint in order until one succeeds or the
// candidates are exhausted, classifying the final error per §7.
func (p *Pool) do(ctx context.Context, op string, fn func(context.Context, *Endpoint) error) error {
	candidates := p.pick(time.Now())
	if len(candidates) == 0 {
		return &types.NonRetryableTransportError{Endpoint: "", Err: errNoHealthyEndpoint}
	}

	var lastErr error
	for _, ep := range candidates {
		if err := ep.wait(ctx); err != nil {
			return &types.RetryableTransportError{Endpoint: ep.URL, Err: err}
		}

		ep.begin()
		err := fn(ctx, ep)
		ep.end()

		if err == nil {
			ep.recordSuccess()
			return nil
		}

		critical := errors.Is(err, context.DeadlineExceeded)
		ep.recordFailure(time.Now(), critical)
		lastErr = fmt.Errorf("%s via %s: %w", op, ep.URL, err)
	}
	return &types.RetryableTransportError{Endpoint: "", Err: lastErr}
}

// HealthSummary reports how many endpoints are Healthy, Degraded, and Down
// right now, feeding the chain-health metrics worker.
func (p *Pool) HealthSummary(now time.Time) (healthy, degraded, down int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, e := range p.endpoints {
		switch e.Health(now) {
		case types.Healthy:
			healthy++
		case types.Degraded:
			degraded++
		default:
			down++
		}
	}
	return
}

// SmoothedGasPrice averages each endpoint's independent EMA-smoothed gas
// price, giving one pool-level figure for the gas sample journal.
func (p *Pool) SmoothedGasPrice() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.endpoints) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, e := range p.endpoints {
		sum = sum.Add(e.GasEMA.Value())
	}
	return sum.Div(decimal.NewFromInt(int64(len(p.endpoints))))
}

func (p *Pool) BlockNumber(ctx context.Context) (uint64, error) {
	var out uint64
	err := p.do(ctx, "BlockNumber", func(ctx context.Context, ep *Endpoint) error {
		n, err := ep.Client.BlockNumber(ctx)
		if err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

func (p *Pool) GasPrice(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := p.do(ctx, "GasPrice", func(ctx context.Context, ep *Endpoint) error {
		price, err := ep.Client.SuggestGasPrice(ctx)
		if err != nil {
			return err
		}
		ep.GasEMA.Observe(decimalFromWei(price))
		out = price
		return nil
	})
	return out, err
}

func (p *Pool) FeeHistory(ctx context.Context, blockCount uint64) (*gethtypes.Header, error) {
	var out *gethtypes.Header
	err := p.do(ctx, "FeeHistory", func(ctx context.Context, ep *Endpoint) error {
		hdr, err := ep.Client.HeaderByNumber(ctx, nil)
		if err != nil {
			return err
		}
		out = hdr
		return nil
	})
	return out, err
}

func (p *Pool) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	var out []byte
	err := p.do(ctx, "Call", func(ctx context.Context, ep *Endpoint) error {
		res, err := ep.Client.CallContract(ctx, msg, nil)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

func (p *Pool) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	var out uint64
	err := p.do(ctx, "EstimateGas", func(ctx context.Context, ep *Endpoint) error {
		gas, err := ep.Client.EstimateGas(ctx, msg)
		if err != nil {
			return err
		}
		out = gas
		return nil
	})
	return out, err
}

func (p *Pool) SendRawTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	return p.do(ctx, "SendRawTransaction", func(ctx context.Context, ep *Endpoint) error {
		return ep.Client.SendTransaction(ctx, tx)
	})
}

func (p *Pool) TransactionReceipt(ctx context.Context, txHash [32]byte) (*gethtypes.Receipt, error) {
	var out *gethtypes.Receipt
	err := p.do(ctx, "TransactionReceipt", func(ctx context.Context, ep *Endpoint) error {
		receipt, err := ep.Client.TransactionReceipt(ctx, common.Hash(txHash))
		if err != nil {
			return err
		}
		out = receipt
		return nil
	})
	return out, err
}

func (p *Pool) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error) {
	var out []gethtypes.Log
	err := p.do(ctx, "FilterLogs", func(ctx context.Context, ep *Endpoint) error {
		logs, err := ep.Client.FilterLogs(ctx, q)
		if err != nil {
			return err
		}
		out = logs
		return nil
	})
	return out, err
}

// Batch runs every request concurrently against the pool, returning results
// in the same order as reqs. One request's failure never aborts the rest.
func (p *Pool) Batch(ctx context.Context, reqs []BatchRequest) []BatchResult {
	results := make([]BatchResult, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req BatchRequest) {
			defer wg.Done()
			out, err := p.Call(ctx, req.Msg)
			results[i] = BatchResult{Output: out, Err: err}
		}(i, req)
	}
	wg.Wait()
	return results
}
