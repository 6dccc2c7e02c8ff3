package chainpool

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/blackarb/arbengine/internal/types"
)

// Endpoint wraps a single RPC URL's client with the bookkeeping the pool
// needs to rank and fail over between sibling endpoints on the same chain:
// a token-bucket limiter, an error-window circuit breaker, a smoothed gas
// price, and a coarse health state.
type Endpoint struct {
	URL    string
	Client *ethclient.Client

	Limiter  *rate.Limiter
	Breaker  *CircuitBreaker
	GasEMA   *GasEMA

	mu         sync.Mutex
	health     types.EndpointHealth
	inFlight   int
	degradedAt time.Time
}

// NewEndpoint wraps an already-dialed client. ratePerSec is the sustained
// token-bucket rate; burst allows short spikes above it.
func NewEndpoint(url string, client *ethclient.Client, ratePerSec float64, burst int) *Endpoint {
	return &Endpoint{
		URL:     url,
		Client:  client,
		Limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		Breaker: NewCircuitBreaker(2*time.Minute, 5),
		GasEMA:  NewGasEMA(0.2),
		health:  types.Healthy,
	}
}

// Health reports the endpoint's current coarse state. A Degraded endpoint is
// reported as Degraded whether or not its 30-second cool-down has elapsed at
// now; the result does not depend on now.
func (e *Endpoint) Health(now time.Time) types.EndpointHealth {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.health == types.Degraded && now.Sub(e.degradedAt) > 30*time.Second {
		return types.Degraded // cool-down elapsed; caller may probe it
	}
	return e.health
}

// InFlight returns the number of requests currently outstanding against
// this endpoint, used by the pool to pick the least-loaded one.
func (e *Endpoint) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}

func (e *Endpoint) begin() {
	e.mu.Lock()
	e.inFlight++
	e.mu.Unlock()
}

func (e *Endpoint) end() {
	e.mu.Lock()
	e.inFlight--
	e.mu.Unlock()
}

// recordSuccess resets the breaker and restores Healthy state.
func (e *Endpoint) recordSuccess() {
	e.mu.Lock()
	e.health = types.Healthy
	e.mu.Unlock()
	e.Breaker.Reset()
}

// recordFailure feeds the breaker and demotes the endpoint if it trips.
func (e *Endpoint) recordFailure(now time.Time, critical bool) {
	tripped := e.Breaker.RecordError(now, critical)
	e.mu.Lock()
	defer e.mu.Unlock()
	if tripped {
		if e.health == types.Degraded {
			e.health = types.Down
		} else {
			e.health = types.Degraded
		}
		e.degradedAt = now
	}
}

// wait blocks until the token bucket allows one more request, or ctx is
// cancelled first.
func (e *Endpoint) wait(ctx context.Context) error {
	return e.Limiter.Wait(ctx)
}
