package configs

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/blackarb/arbengine/internal/types"
)

// venueEntryYAML mirrors the teacher's ContractClientYAMLData (a named
// address plus metadata), generalized from one contract per chain to one
// venue deployment per chain/pricing-model/pool.
type venueEntryYAML struct {
	Chain      string `yaml:"chain"`
	Name       string `yaml:"name"`
	Model      string `yaml:"model"`
	PoolAddress string `yaml:"pool_address"`
	RouterAddr string `yaml:"router_address"`
	FeeTierBps int    `yaml:"fee_tier_bps"`
	TokenA     string `yaml:"token_a"`
	TokenADecimals uint8 `yaml:"token_a_decimals"`
	TokenASymbol   string `yaml:"token_a_symbol"`
	TokenB     string `yaml:"token_b"`
	TokenBDecimals uint8 `yaml:"token_b_decimals"`
	TokenBSymbol   string `yaml:"token_b_symbol"`
}

type venueCatalogYAML struct {
	Venues []venueEntryYAML `yaml:"venues"`
}

// VenueEntry is one fully-resolved (chain, venue, pair) sampling target,
// ready to be paired with a pricing-model adapter and handed to the scanner.
type VenueEntry struct {
	Venue types.Venue
	Pair  types.TokenPair
}

// LoadVenueCatalog reads the venue/pair catalog the scanner's Source list is
// built from. Unlike LoadConfig, unknown keys are tolerated here since this
// document is expected to grow per-chain additions independently of the
// rest of the configuration surface.
func LoadVenueCatalog(path string) ([]VenueEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read venue catalog: %w", err)
	}

	var doc venueCatalogYAML
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse venue catalog YAML: %w", err)
	}

	entries := make([]VenueEntry, 0, len(doc.Venues))
	for _, v := range doc.Venues {
		chain, ok := chainByName(v.Chain)
		if !ok {
			return nil, fmt.Errorf("venue %q: unrecognized chain %q", v.Name, v.Chain)
		}
		model, ok := modelByName(v.Model)
		if !ok {
			return nil, fmt.Errorf("venue %q: unrecognized pricing model %q", v.Name, v.Model)
		}

		entries = append(entries, VenueEntry{
			Venue: types.Venue{
				Chain:       chain,
				Name:        types.VenueName(v.Name),
				Model:       model,
				PoolAddress: common.HexToAddress(v.PoolAddress),
				RouterAddr:  common.HexToAddress(v.RouterAddr),
				FeeTierBps:  v.FeeTierBps,
			},
			Pair: types.TokenPair{
				TokenA: types.Token{Address: common.HexToAddress(v.TokenA), Decimals: v.TokenADecimals, Symbol: v.TokenASymbol},
				TokenB: types.Token{Address: common.HexToAddress(v.TokenB), Decimals: v.TokenBDecimals, Symbol: v.TokenBSymbol},
			},
		})
	}
	return entries, nil
}

func modelByName(name string) (types.PricingModel, bool) {
	for _, m := range []types.PricingModel{types.ConstantProductV2, types.ConcentratedV3, types.StableCurve, types.WeightedPool} {
		if m.String() == name {
			return m, true
		}
	}
	return 0, false
}
