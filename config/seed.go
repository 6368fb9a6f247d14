package config

import (
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/honehone12/token-objects-marketplace/crypto"
	"github.com/honehone12/token-objects-marketplace/native/fees"
)

// Seed describes the initial marketplace state applied on first boot:
// funded accounts and registered objects.
type Seed struct {
	Accounts []SeedAccount `yaml:"accounts"`
	Objects  []SeedObject  `yaml:"objects"`
}

// SeedAccount funds one address with an initial balance.
type SeedAccount struct {
	Address string `yaml:"address"`
	Balance string `yaml:"balance"`
}

// SeedObject registers one object, optionally with royalty terms.
type SeedObject struct {
	Address string       `yaml:"address"`
	Kind    string       `yaml:"kind"`
	Owner   string       `yaml:"owner"`
	Royalty *SeedRoyalty `yaml:"royalty,omitempty"`
}

// SeedRoyalty is an optional royalty fraction on a seeded object.
type SeedRoyalty struct {
	Numerator   uint64 `yaml:"numerator"`
	Denominator uint64 `yaml:"denominator"`
	Payee       string `yaml:"payee"`
}

// LoadSeed reads and validates a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	seed := &Seed{}
	if err := yaml.Unmarshal(data, seed); err != nil {
		return nil, fmt.Errorf("seed: parse %s: %w", path, err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return seed, nil
}

// Validate checks every address encoding and amount in the seed.
func (s *Seed) Validate() error {
	for i, acc := range s.Accounts {
		if _, err := crypto.DecodeAddress(acc.Address); err != nil {
			return fmt.Errorf("seed: account %d: %w", i, err)
		}
		if _, err := parseAmount(acc.Balance); err != nil {
			return fmt.Errorf("seed: account %d: %w", i, err)
		}
	}
	for i, obj := range s.Objects {
		if _, err := crypto.DecodeAddress(obj.Address); err != nil {
			return fmt.Errorf("seed: object %d: %w", i, err)
		}
		if _, err := crypto.DecodeAddress(obj.Owner); err != nil {
			return fmt.Errorf("seed: object %d owner: %w", i, err)
		}
		if _, err := obj.Fraction(); err != nil {
			return fmt.Errorf("seed: object %d: %w", i, err)
		}
	}
	return nil
}

// Fraction converts the optional royalty block into a fraction value.
func (o SeedObject) Fraction() (fees.Fraction, error) {
	if o.Royalty == nil || o.Royalty.Numerator == 0 {
		return fees.NoFee, nil
	}
	payee, err := crypto.DecodeAddress(o.Royalty.Payee)
	if err != nil {
		return fees.NoFee, fmt.Errorf("royalty payee: %w", err)
	}
	return fees.NewFraction(o.Royalty.Numerator, o.Royalty.Denominator, payee.Array())
}

// Amount parses the account's balance string.
func (a SeedAccount) Amount() (*big.Int, error) {
	return parseAmount(a.Balance)
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}
