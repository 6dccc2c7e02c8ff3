// Package configs loads and validates the engine's configuration, the way
// the teacher's config.go unmarshals config.yml into a raw struct before
// projecting it into the types the rest of the engine depends on — except
// every option here has a default and unrecognized keys are rejected rather
// than silently ignored.
package configs

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/blackarb/arbengine/internal/types"
)

// rawDocument mirrors the on-disk YAML shape exactly; every field is a
// pointer so LoadConfig can tell "absent" from "explicitly zero" and apply
// defaults only to the former.
type rawDocument struct {
	MinProfitUSD     *float64          `yaml:"MIN_PROFIT_USD"`
	MaxGasPriceGwei  *float64          `yaml:"MAX_GAS_PRICE_GWEI"`
	SlippageTolerance *float64         `yaml:"SLIPPAGE_TOLERANCE"`
	UseFlashLoans    *bool             `yaml:"USE_FLASH_LOANS"`
	DryRunMode       *bool             `yaml:"DRY_RUN_MODE"`
	MaxPositionSize  *float64          `yaml:"MAX_POSITION_SIZE"`
	ChainRPCs        map[string]string `yaml:"CHAIN_RPC"`
	ScanInterval     *int              `yaml:"SCAN_INTERVAL_SEC"`
	StorePath        *string           `yaml:"STORE_PATH"`
}

// Config is the validated, fully-defaulted configuration the rest of the
// engine depends on — the single projection every component reads from,
// mirroring the teacher's Config/StrategyConfig split but flattened since
// every field here is a leaf value rather than a nested strategy tree.
type Config struct {
	MinProfitUSD      decimal.Decimal
	MaxGasPriceGwei   decimal.Decimal
	SlippageTolerance float64
	UseFlashLoans     bool
	DryRunMode        bool
	MaxPositionSize   decimal.Decimal
	ChainRPCs         map[types.ChainId]string
	ScanInterval      time.Duration
	StorePath         string
}

// Default values for every optional key, per §6.
const (
	defaultMinProfitUSD      = 10.00
	defaultMaxGasPriceGwei   = 150.0
	defaultSlippageTolerance = 0.005
	defaultUseFlashLoans     = true
	defaultDryRunMode        = true
	defaultMaxPositionSize   = 5000.00
	defaultScanIntervalSec   = 5
	defaultStorePath         = "arbengine.db"
)

// LoadConfig reads path, rejects unrecognized top-level keys, applies
// defaults to every absent one, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc rawDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg, err := doc.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (d rawDocument) withDefaults() (*Config, error) {
	cfg := &Config{
		MinProfitUSD:      decimal.NewFromFloat(defaultMinProfitUSD),
		MaxGasPriceGwei:   decimal.NewFromFloat(defaultMaxGasPriceGwei),
		SlippageTolerance: defaultSlippageTolerance,
		UseFlashLoans:     defaultUseFlashLoans,
		DryRunMode:        defaultDryRunMode,
		MaxPositionSize:   decimal.NewFromFloat(defaultMaxPositionSize),
		ChainRPCs:         make(map[types.ChainId]string),
		ScanInterval:      defaultScanIntervalSec * time.Second,
		StorePath:         defaultStorePath,
	}

	if d.MinProfitUSD != nil {
		cfg.MinProfitUSD = decimal.NewFromFloat(*d.MinProfitUSD)
	}
	if d.MaxGasPriceGwei != nil {
		cfg.MaxGasPriceGwei = decimal.NewFromFloat(*d.MaxGasPriceGwei)
	}
	if d.SlippageTolerance != nil {
		cfg.SlippageTolerance = *d.SlippageTolerance
	}
	if d.UseFlashLoans != nil {
		cfg.UseFlashLoans = *d.UseFlashLoans
	}
	if d.DryRunMode != nil {
		cfg.DryRunMode = *d.DryRunMode
	}
	if d.MaxPositionSize != nil {
		cfg.MaxPositionSize = decimal.NewFromFloat(*d.MaxPositionSize)
	}
	if d.ScanInterval != nil {
		cfg.ScanInterval = time.Duration(*d.ScanInterval) * time.Second
	}
	if d.StorePath != nil {
		cfg.StorePath = *d.StorePath
	}

	for name, rpc := range d.ChainRPCs {
		chain, ok := chainByName(name)
		if !ok {
			return nil, fmt.Errorf("unrecognized chain %q in CHAIN_RPC", name)
		}
		cfg.ChainRPCs[chain] = rpc
	}

	return cfg, nil
}

// Validate enforces the invariants §6 promises every loaded Config meets:
// at least one chain RPC configured, and every numeric option sane.
func (c *Config) Validate() error {
	if len(c.ChainRPCs) == 0 {
		return fmt.Errorf("config invalid: at least one CHAIN_RPC entry is required")
	}
	if c.MinProfitUSD.IsNegative() {
		return fmt.Errorf("config invalid: MIN_PROFIT_USD must be non-negative")
	}
	if c.MaxGasPriceGwei.IsNegative() || c.MaxGasPriceGwei.IsZero() {
		return fmt.Errorf("config invalid: MAX_GAS_PRICE_GWEI must be positive")
	}
	if c.SlippageTolerance < 0 || c.SlippageTolerance > 1 {
		return fmt.Errorf("config invalid: SLIPPAGE_TOLERANCE must be in [0,1]")
	}
	if c.MaxPositionSize.IsNegative() || c.MaxPositionSize.IsZero() {
		return fmt.Errorf("config invalid: MAX_POSITION_SIZE must be positive")
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("config invalid: SCAN_INTERVAL_SEC must be positive")
	}
	return nil
}

func chainByName(name string) (types.ChainId, bool) {
	for id, meta := range types.DefaultChainMeta() {
		if id.String() == name {
			_ = meta
			return id, true
		}
	}
	return 0, false
}
