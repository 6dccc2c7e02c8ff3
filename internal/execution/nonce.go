package execution

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blackarb/arbengine/internal/types"
)

type signerKey struct {
	chain  types.ChainId
	signer common.Address
}

// NonceAllocator hands out strictly increasing nonces per (chain, signer)
// and never reuses one still held by a non-terminal execution, the
// invariant §5 requires to avoid two in-flight transactions colliding on
// the same nonce.
type NonceAllocator struct {
	mu      sync.Mutex
	next    map[signerKey]uint64
	inUse   map[signerKey]map[uint64]bool
}

func NewNonceAllocator() *NonceAllocator {
	return &NonceAllocator{
		next:  make(map[signerKey]uint64),
		inUse: make(map[signerKey]map[uint64]bool),
	}
}

// Seed sets the starting nonce for a signer the first time it's seen,
// typically from an eth_getTransactionCount(pending) read at startup.
func (n *NonceAllocator) Seed(chain types.ChainId, signer common.Address, startAt uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	k := signerKey{chain, signer}
	if _, ok := n.next[k]; !ok {
		n.next[k] = startAt
	}
}

// Allocate returns the next free nonce for (chain, signer) and marks it in use.
func (n *NonceAllocator) Allocate(chain types.ChainId, signer common.Address) uint64 {
	return n.AllocateRange(chain, signer, 1)
}

// AllocateRange reserves count consecutive nonces for (chain, signer) — one
// per plan step in a multi-transaction execution — and returns the first.
func (n *NonceAllocator) AllocateRange(chain types.ChainId, signer common.Address, count uint64) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	k := signerKey{chain, signer}
	start := n.next[k]
	n.next[k] = start + count
	if n.inUse[k] == nil {
		n.inUse[k] = make(map[uint64]bool)
	}
	for i := uint64(0); i < count; i++ {
		n.inUse[k][start+i] = true
	}
	return start
}

// Release marks nonce free once its execution reaches a terminal state.
func (n *NonceAllocator) Release(chain types.ChainId, signer common.Address, nonce uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	k := signerKey{chain, signer}
	delete(n.inUse[k], nonce)
}

// ReleaseRange releases count consecutive nonces starting at start.
func (n *NonceAllocator) ReleaseRange(chain types.ChainId, signer common.Address, start, count uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	k := signerKey{chain, signer}
	for i := uint64(0); i < count; i++ {
		delete(n.inUse[k], start+i)
	}
}

// InUseCount reports how many nonces are currently held open for (chain, signer).
func (n *NonceAllocator) InUseCount(chain types.ChainId, signer common.Address) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.inUse[signerKey{chain, signer}])
}
