package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"termswap/native/termswap/curve"
)

// Genesis seeds a fresh store: the factory owner, the pairs to create and
// development balances to credit.
type Genesis struct {
	Owner    string           `yaml:"owner"`
	Fees     *curve.Fees      `yaml:"fees"`
	Pairs    []GenesisPair    `yaml:"pairs"`
	Balances []GenesisBalance `yaml:"balances"`
}

type GenesisPair struct {
	Asset      string `yaml:"asset"`
	Collateral string `yaml:"collateral"`
}

type GenesisBalance struct {
	Account string `yaml:"account"`
	Token   string `yaml:"token"`
	Amount  string `yaml:"amount"`
}

// Credit is a parsed genesis balance.
type Credit struct {
	Account common.Address
	Token   common.Address
	Amount  *uint256.Int
}

// LoadGenesis reads and validates a YAML genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genesis: %w", err)
	}
	defer file.Close()

	genesis := &Genesis{}
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(genesis); err != nil {
		return nil, fmt.Errorf("decode genesis: %w", err)
	}
	if err := genesis.Validate(); err != nil {
		return nil, err
	}
	return genesis, nil
}

func parseAddress(field, value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("genesis: %s %q is not a hex address", field, value)
	}
	addr := common.HexToAddress(trimmed)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("genesis: %s is the zero address", field)
	}
	return addr, nil
}

// Validate checks every address and amount in the file.
func (g *Genesis) Validate() error {
	if strings.TrimSpace(g.Owner) != "" {
		if _, err := parseAddress("owner", g.Owner); err != nil {
			return err
		}
	}
	if _, err := g.PairTokens(); err != nil {
		return err
	}
	if _, err := g.Credits(); err != nil {
		return err
	}
	return nil
}

// OwnerAddress returns the configured owner or the zero address.
func (g *Genesis) OwnerAddress() common.Address {
	if g == nil || strings.TrimSpace(g.Owner) == "" {
		return common.Address{}
	}
	return common.HexToAddress(strings.TrimSpace(g.Owner))
}

// PairTokens returns the (asset, collateral) of every genesis pair.
func (g *Genesis) PairTokens() ([][2]common.Address, error) {
	out := make([][2]common.Address, 0, len(g.Pairs))
	for i, p := range g.Pairs {
		asset, err := parseAddress(fmt.Sprintf("pairs[%d].asset", i), p.Asset)
		if err != nil {
			return nil, err
		}
		collateral, err := parseAddress(fmt.Sprintf("pairs[%d].collateral", i), p.Collateral)
		if err != nil {
			return nil, err
		}
		if asset == collateral {
			return nil, fmt.Errorf("genesis: pairs[%d] uses the same token twice", i)
		}
		out = append(out, [2]common.Address{asset, collateral})
	}
	return out, nil
}

// Credits returns the parsed development balances.
func (g *Genesis) Credits() ([]Credit, error) {
	out := make([]Credit, 0, len(g.Balances))
	for i, b := range g.Balances {
		account, err := parseAddress(fmt.Sprintf("balances[%d].account", i), b.Account)
		if err != nil {
			return nil, err
		}
		token, err := parseAddress(fmt.Sprintf("balances[%d].token", i), b.Token)
		if err != nil {
			return nil, err
		}
		amount, err := uint256.FromDecimal(strings.TrimSpace(b.Amount))
		if err != nil {
			return nil, fmt.Errorf("genesis: balances[%d].amount: %w", i, err)
		}
		out = append(out, Credit{Account: account, Token: token, Amount: amount})
	}
	return out, nil
}
