package execution

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackarb/arbengine/internal/types"
)

func TestKeySigner_SignTxProducesValidSignature(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	signer := NewKeySigner(priv, map[types.ChainId]*big.Int{types.Ethereum: big.NewInt(1)})

	to := common.HexToAddress("0xabc")
	tx := gethtypes.NewTx(&gethtypes.LegacyTx{Nonce: 0, To: &to, Gas: 21000})

	signed, err := signer.SignTx(tx, types.Ethereum)
	require.NoError(t, err)

	from, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(big.NewInt(1)), signed)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(priv.PublicKey), from)
}

func TestKeySigner_UnknownChainErrors(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := NewKeySigner(priv, map[types.ChainId]*big.Int{})

	to := common.HexToAddress("0xabc")
	tx := gethtypes.NewTx(&gethtypes.LegacyTx{Nonce: 0, To: &to, Gas: 21000})

	_, err = signer.SignTx(tx, types.Polygon)
	assert.Error(t, err)
}
