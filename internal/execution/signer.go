package execution

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/blackarb/arbengine/internal/types"
)

// KeySigner signs transactions with a single in-process ECDSA key, the same
// key material shape the teacher's Blackhole holds as privateKey. Unlike the
// teacher, which only ever submits to one chain, KeySigner picks an
// EIP-155-or-later signer per chain ID so one key can be reused across every
// configured chain.
type KeySigner struct {
	PrivateKey *ecdsa.PrivateKey
	ChainIDs   map[types.ChainId]*big.Int
}

// NewKeySigner builds a KeySigner for a single private key shared across
// every chain in chainIDs.
func NewKeySigner(priv *ecdsa.PrivateKey, chainIDs map[types.ChainId]*big.Int) *KeySigner {
	return &KeySigner{PrivateKey: priv, ChainIDs: chainIDs}
}

// Address returns the signer's on-chain address, derived from its public key.
func (s *KeySigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.PrivateKey.PublicKey)
}

// SignTx implements execution.TxSigner.
func (s *KeySigner) SignTx(tx *gethtypes.Transaction, chain types.ChainId) (*gethtypes.Transaction, error) {
	chainID, ok := s.ChainIDs[chain]
	if !ok {
		return nil, fmt.Errorf("no chain ID configured for %s", chain)
	}
	signer := gethtypes.LatestSignerForChainID(chainID)
	signed, err := gethtypes.SignTx(tx, signer, s.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("sign transaction for %s: %w", chain, err)
	}
	return signed, nil
}
