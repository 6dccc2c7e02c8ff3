package util

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

func newReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// hardhatArtifact is the subset of a Hardhat/Foundry build artifact this
// engine needs: the compiled contract's ABI fragment.
type hardhatArtifact struct {
	ABI json.RawMessage `json:"abi"`
}

// LoadABIFromHardhatArtifact loads a contract ABI embedded in a Hardhat-style
// build artifact JSON file (the file's top-level "abi" key).
func LoadABIFromHardhatArtifact(path string) (abi.ABI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to read hardhat artifact %s: %w", path, err)
	}
	var artifact hardhatArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse hardhat artifact %s: %w", path, err)
	}
	parsed, err := abi.JSON(newReader(artifact.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI from artifact %s: %w", path, err)
	}
	return parsed, nil
}

// LoadABI loads a bare ABI JSON file (just the array of ABI fragments, no
// surrounding artifact metadata) such as a standard ERC20 ABI.
func LoadABI(path string) (abi.ABI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to read ABI file %s: %w", path, err)
	}
	parsed, err := abi.JSON(newReader(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI file %s: %w", path, err)
	}
	return parsed, nil
}

// Hex2Bytes decodes a hex string, tolerating an optional "0x" prefix.
func Hex2Bytes(s string) []byte {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// Decrypt decrypts an AES-GCM-encrypted, hex-encoded signer private key
// using the supplied key material. The encrypted payload is
// nonce||ciphertext, hex-encoded, matching how the teacher's deployment
// scripts seal ENC_PK before it reaches the process environment.
func Decrypt(key []byte, encryptedHex string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to build AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to build GCM mode: %w", err)
	}
	raw := Hex2Bytes(encryptedHex)
	if len(raw) < gcm.NonceSize() {
		return "", fmt.Errorf("encrypted payload shorter than nonce size")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt signer key: %w", err)
	}
	return string(plaintext), nil
}
