package chainpool

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// ChainClient is the typed RPC surface every venue adapter and the
// execution engine use, irrespective of which endpoint within a chain's
// pool actually served the request.
type ChainClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	FeeHistory(ctx context.Context, blockCount uint64) (*gethtypes.Header, error)
	Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendRawTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash [32]byte) (*gethtypes.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error)
}

// BatchRequest is a single call within a multi-call batch.
type BatchRequest struct {
	Msg ethereum.CallMsg
}

// BatchResult pairs a batch request's output with any per-call error.
type BatchResult struct {
	Output []byte
	Err    error
}
