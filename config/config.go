package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/honehone12/token-objects-marketplace/crypto"
	"github.com/honehone12/token-objects-marketplace/native/fees"
	"github.com/honehone12/token-objects-marketplace/native/market"
)

// Config is the daemon configuration loaded from TOML. Addresses are
// bech32-encoded; durations and windows are seconds.
type Config struct {
	RPCAddress   string `toml:"RPCAddress"`
	DataDir      string `toml:"DataDir"`
	SeedFile     string `toml:"SeedFile,omitempty"`
	HostAddress  string `toml:"HostAddress"`
	VaultAddress string `toml:"VaultAddress"`

	Fee       FeeConfig       `toml:"fee"`
	Policy    PolicyConfig    `toml:"policy"`
	Auth      AuthConfig      `toml:"auth"`
	Log       LogConfig       `toml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Audit     AuditConfig     `toml:"audit"`
}

// FeeConfig describes the market fee taken from every settlement.
type FeeConfig struct {
	Numerator   uint64 `toml:"Numerator"`
	Denominator uint64 `toml:"Denominator"`
	Payee       string `toml:"Payee"`
}

// PolicyConfig bounds listing creation parameters.
type PolicyConfig struct {
	MinListingDuration int64 `toml:"MinListingDuration"`
	MaxListingDuration int64 `toml:"MaxListingDuration"`
	MaxStartDelay      int64 `toml:"MaxStartDelay"`
	GraceWindow        int64 `toml:"GraceWindow"`
}

// AuthConfig controls RPC bearer authentication and rate limiting.
type AuthConfig struct {
	JWTSecretEnv    string  `toml:"JWTSecretEnv"`
	RatePerSecond   float64 `toml:"RatePerSecond"`
	RateBurst       int     `toml:"RateBurst"`
	AllowUnauthRead bool    `toml:"AllowUnauthRead"`
}

// LogConfig controls structured log output and rotation.
type LogConfig struct {
	Level      string `toml:"Level"`
	Path       string `toml:"Path,omitempty"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Enabled      bool   `toml:"Enabled"`
	OTLPEndpoint string `toml:"OTLPEndpoint"`
	ServiceName  string `toml:"ServiceName"`
}

// AuditConfig controls the periodic escrow audit export.
type AuditConfig struct {
	Enabled         bool   `toml:"Enabled"`
	Dir             string `toml:"Dir"`
	IntervalSeconds int64  `toml:"IntervalSeconds"`
}

// Load reads the configuration at path, writing a default file first when
// none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./marketdata"
	}
	if cfg.Policy == (PolicyConfig{}) {
		def := market.DefaultPolicy()
		cfg.Policy = PolicyConfig{
			MinListingDuration: def.MinListingDuration,
			MaxListingDuration: def.MaxListingDuration,
			MaxStartDelay:      def.MaxStartDelay,
			GraceWindow:        def.GraceWindow,
		}
	}
	if strings.TrimSpace(cfg.Auth.JWTSecretEnv) == "" {
		cfg.Auth.JWTSecretEnv = "MARKETD_JWT_SECRET"
	}
	if cfg.Auth.RatePerSecond <= 0 {
		cfg.Auth.RatePerSecond = 50
	}
	if cfg.Auth.RateBurst <= 0 {
		cfg.Auth.RateBurst = 100
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = 28
	}
	if strings.TrimSpace(cfg.Telemetry.ServiceName) == "" {
		cfg.Telemetry.ServiceName = "marketd"
	}
	if cfg.Audit.IntervalSeconds <= 0 {
		cfg.Audit.IntervalSeconds = 3600
	}
}

// Validate checks address encodings, fee bounds and policy ordering.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HostAddress) != "" {
		if _, err := crypto.DecodeAddress(c.HostAddress); err != nil {
			return fmt.Errorf("config: HostAddress: %w", err)
		}
	}
	if strings.TrimSpace(c.VaultAddress) != "" {
		if _, err := crypto.DecodeAddress(c.VaultAddress); err != nil {
			return fmt.Errorf("config: VaultAddress: %w", err)
		}
	}
	if c.Fee.Numerator != 0 {
		if c.Fee.Denominator == 0 {
			return fmt.Errorf("config: fee denominator must be nonzero")
		}
		if c.Fee.Numerator > c.Fee.Denominator {
			return fmt.Errorf("config: fee fraction %d/%d exceeds 1", c.Fee.Numerator, c.Fee.Denominator)
		}
		if _, err := crypto.DecodeAddress(c.Fee.Payee); err != nil {
			return fmt.Errorf("config: fee payee: %w", err)
		}
	}
	if c.Policy.MinListingDuration < 0 || c.Policy.MaxListingDuration < 0 ||
		c.Policy.MaxStartDelay < 0 || c.Policy.GraceWindow < 0 {
		return fmt.Errorf("config: policy windows must be non-negative")
	}
	if c.Policy.MaxListingDuration != 0 && c.Policy.MinListingDuration > c.Policy.MaxListingDuration {
		return fmt.Errorf("config: MinListingDuration %d exceeds MaxListingDuration %d",
			c.Policy.MinListingDuration, c.Policy.MaxListingDuration)
	}
	return nil
}

// MarketPolicy converts the configured bounds into the ledger policy type.
func (c *Config) MarketPolicy() market.Policy {
	return market.Policy{
		MinListingDuration: c.Policy.MinListingDuration,
		MaxListingDuration: c.Policy.MaxListingDuration,
		MaxStartDelay:      c.Policy.MaxStartDelay,
		GraceWindow:        c.Policy.GraceWindow,
	}
}

// MarketFee converts the configured fee into a validated fraction. A zero
// numerator yields no fee.
func (c *Config) MarketFee() (fees.Fraction, error) {
	if c.Fee.Numerator == 0 {
		return fees.NoFee, nil
	}
	payee, err := crypto.DecodeAddress(c.Fee.Payee)
	if err != nil {
		return fees.NoFee, fmt.Errorf("config: fee payee: %w", err)
	}
	return fees.NewFraction(c.Fee.Numerator, c.Fee.Denominator, payee.Array())
}
