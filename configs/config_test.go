package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
CHAIN_RPC:
  ethereum: "https://eth.example"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.DryRunMode)
	assert.True(t, cfg.UseFlashLoans)
	assert.Equal(t, "10", cfg.MinProfitUSD.String())
	assert.Equal(t, "150", cfg.MaxGasPriceGwei.String())
}

func TestLoadConfig_RejectsUnknownKey(t *testing.T) {
	path := writeTempConfig(t, `
CHAIN_RPC:
  ethereum: "https://eth.example"
NOT_A_REAL_KEY: true
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_RejectsMissingRPC(t *testing.T) {
	path := writeTempConfig(t, `MIN_PROFIT_USD: 5`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_RejectsUnrecognizedChain(t *testing.T) {
	path := writeTempConfig(t, `
CHAIN_RPC:
  not_a_chain: "https://example"
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_RejectsBadSlippage(t *testing.T) {
	path := writeTempConfig(t, `
CHAIN_RPC:
  ethereum: "https://eth.example"
SLIPPAGE_TOLERANCE: 2.0
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
