package util

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const erc20TransferABI = `[{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

func TestLoadABI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "erc20.json")
	writeFile(t, path, erc20TransferABI)

	parsed, err := LoadABI(path)
	assert.NoError(t, err)
	_, ok := parsed.Methods["transfer"]
	assert.True(t, ok, "transfer method should be present")
}

func TestLoadABIFromHardhatArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Router.json")
	writeFile(t, path, `{"contractName":"Router","abi":`+erc20TransferABI+`,"bytecode":"0x"}`)

	parsed, err := LoadABIFromHardhatArtifact(path)
	assert.NoError(t, err)
	_, ok := parsed.Methods["transfer"]
	assert.True(t, ok, "transfer method should be present")
}

func TestHex2Bytes(t *testing.T) {
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, Hex2Bytes("0xdeadbeef"))
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, Hex2Bytes("deadbeef"))
}

func TestDecryptRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef") // 32 bytes? trimmed below
	key = key[:32]

	plaintext := "super-secret-private-key"
	encryptedHex := encryptForTest(t, key, plaintext)

	decrypted, err := Decrypt(key, encryptedHex)
	assert.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := writeFileContents(path, content); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
}
