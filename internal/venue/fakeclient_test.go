package venue

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/blackarb/arbengine/internal/chainpool"
)

// fakeChainClient answers every Call with a pre-packed response keyed by the
// 4-byte method selector, letting adapter tests run without a real RPC peer.
type fakeChainClient struct {
	responses map[[4]byte][]byte
}

var _ chainpool.ChainClient = (*fakeChainClient)(nil)

func newFakeChainClient() *fakeChainClient {
	return &fakeChainClient{responses: make(map[[4]byte][]byte)}
}

func (f *fakeChainClient) set(selector [4]byte, data []byte) {
	f.responses[selector] = data
}

func (f *fakeChainClient) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	var sel [4]byte
	copy(sel[:], msg.Data[:4])
	out, ok := f.responses[sel]
	if !ok {
		return nil, errUnknownSelector
	}
	return out, nil
}

func (f *fakeChainClient) BlockNumber(ctx context.Context) (uint64, error) { return 0, nil }
func (f *fakeChainClient) GasPrice(ctx context.Context) (*big.Int, error)  { return big.NewInt(0), nil }
func (f *fakeChainClient) FeeHistory(ctx context.Context, blockCount uint64) (*gethtypes.Header, error) {
	return nil, nil
}
func (f *fakeChainClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 0, nil
}
func (f *fakeChainClient) SendRawTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	return nil
}
func (f *fakeChainClient) TransactionReceipt(ctx context.Context, txHash [32]byte) (*gethtypes.Receipt, error) {
	return nil, nil
}
func (f *fakeChainClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error) {
	return nil, nil
}
