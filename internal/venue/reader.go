// Package venue adapts each pricing model's on-chain state into the
// engine's uniform Quote/CallData vocabulary, the same role the teacher's
// GetAMMState/safelyGetStateOfAMM pairing played for a single Algebra pool,
// generalized here across four pricing models and many venues.
package venue

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/blackarb/arbengine/internal/chainpool"
)

// PoolReader issues read-only calls against one pool contract and unpacks
// the ABI-described return values, mirroring how the teacher's ContractClient
// wrapped a single Call+Abi.Unpack round trip.
type PoolReader struct {
	Chain chainpool.ChainClient
	ABI   abi.ABI
	Pool  common.Address
}

// Call packs method(args...), executes it as an eth_call against the pool,
// and unpacks the result into its declared output types.
func (r *PoolReader) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := r.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	to := r.Pool
	out, err := r.Chain.Call(ctx, ethereum.CallMsg{To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, r.Pool.Hex(), err)
	}

	vals, err := r.ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return vals, nil
}
