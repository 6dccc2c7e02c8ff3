package execution

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/blackarb/arbengine/internal/types"
)

func TestNonceAllocator_SeedThenAllocateIsMonotonic(t *testing.T) {
	n := NewNonceAllocator()
	signer := common.HexToAddress("0xabc")
	n.Seed(types.Ethereum, signer, 42)

	first := n.Allocate(types.Ethereum, signer)
	second := n.Allocate(types.Ethereum, signer)
	assert.Equal(t, uint64(42), first)
	assert.Equal(t, uint64(43), second)
}

func TestNonceAllocator_AllocateRangeReservesConsecutive(t *testing.T) {
	n := NewNonceAllocator()
	signer := common.HexToAddress("0xdef")

	start := n.AllocateRange(types.Polygon, signer, 4)
	assert.Equal(t, 4, n.InUseCount(types.Polygon, signer))

	next := n.Allocate(types.Polygon, signer)
	assert.Equal(t, start+4, next)
}

func TestNonceAllocator_ReleaseRangeFreesSlots(t *testing.T) {
	n := NewNonceAllocator()
	signer := common.HexToAddress("0x123")

	start := n.AllocateRange(types.Arbitrum, signer, 3)
	assert.Equal(t, 3, n.InUseCount(types.Arbitrum, signer))

	n.ReleaseRange(types.Arbitrum, signer, start, 3)
	assert.Equal(t, 0, n.InUseCount(types.Arbitrum, signer))
}
