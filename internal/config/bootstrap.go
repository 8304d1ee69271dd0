package config

import (
	"context"
	"fmt"
	"os"
	"sort"

	sdkmath "cosmossdk.io/math"
	"gopkg.in/yaml.v3"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/idhash"
	"weighted-oracle/internal/registry"
	"weighted-oracle/internal/token"
)

// DefaultFactory is the deployment name used when the bootstrap file names none.
const DefaultFactory = "weighted-oracle"

// Bootstrap describes the tokens, genesis balances and oracles a fresh process starts with.
//
//	factory: weighted-oracle
//	native:
//	  symbol: NATIVE
//	  balances: {<address>: "1000000"}
//	tokens:
//	  - symbol: WGT
//	    balances: {<address>: "500"}
//	oracles:
//	  - creator: <address>
//	    token: WGT
//	    name: ETH/USD
//	    halfLifeSeconds: 3600
type Bootstrap struct {
	Factory string            `yaml:"factory"`
	Native  TokenGenesis      `yaml:"native"`
	Tokens  []TokenGenesis    `yaml:"tokens"`
	Oracles []OracleBootstrap `yaml:"oracles"`
}

// TokenGenesis is one token ledger and its initial balances (decimal strings).
type TokenGenesis struct {
	Symbol   string            `yaml:"symbol"`
	Balances map[string]string `yaml:"balances"`
}

// OracleBootstrap is an oracle created at boot when the registry is empty.
// Unset numeric parameters take the defaults of domain.DefaultOracleConfig.
type OracleBootstrap struct {
	Creator domain.Address `yaml:"creator"`
	Token   string         `yaml:"token"` // weight token symbol
	Fund    string         `yaml:"fund"`  // native amount moved from the creator into the oracle

	Config domain.OracleConfig `yaml:",inline"`
}

// LoadBootstrap reads and validates a bootstrap file.
func LoadBootstrap(path string) (*Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bootstrap %s: %w", path, err)
	}
	return ParseBootstrap(data)
}

// ParseBootstrap decodes and validates a bootstrap document.
func ParseBootstrap(data []byte) (*Bootstrap, error) {
	var b Bootstrap
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bootstrap: %w", err)
	}
	if b.Factory == "" {
		b.Factory = DefaultFactory
	}
	if b.Native.Symbol == "" {
		b.Native.Symbol = "NATIVE"
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate checks addresses, amounts and token references.
func (b *Bootstrap) Validate() error {
	symbols := make(map[string]bool)
	for _, t := range append([]TokenGenesis{b.Native}, b.Tokens...) {
		if t.Symbol == "" {
			return fmt.Errorf("token without symbol")
		}
		if symbols[t.Symbol] {
			return fmt.Errorf("duplicate token %s", t.Symbol)
		}
		symbols[t.Symbol] = true
		for addr, amount := range t.Balances {
			if _, err := domain.ParseAddress(addr); err != nil {
				return fmt.Errorf("token %s: %w", t.Symbol, err)
			}
			if _, err := ParseAmount(amount); err != nil {
				return fmt.Errorf("token %s balance of %s: %w", t.Symbol, addr, err)
			}
		}
	}

	for i, o := range b.Oracles {
		if _, err := domain.ParseAddress(string(o.Creator)); err != nil {
			return fmt.Errorf("oracle %d creator: %w", i, err)
		}
		if o.Token == "" || o.Token == b.Native.Symbol || !symbols[o.Token] {
			return fmt.Errorf("oracle %d: unknown weight token %q", i, o.Token)
		}
		if o.Config.Name == "" {
			return fmt.Errorf("oracle %d: name is required", i)
		}
		if o.Fund != "" {
			if _, err := ParseAmount(o.Fund); err != nil {
				return fmt.Errorf("oracle %d fund: %w", i, err)
			}
		}
	}
	return nil
}

// NewBank builds the token ledgers described by b with their genesis balances.
// Token addresses are derived from the factory address and the symbol.
func (b *Bootstrap) NewBank() (*token.Bank, domain.Address, error) {
	factory, err := idhash.FactoryAddress(b.Factory)
	if err != nil {
		return nil, "", fmt.Errorf("derive factory address: %w", err)
	}

	nativeAddr, err := idhash.NativeAddress(factory)
	if err != nil {
		return nil, "", fmt.Errorf("derive native address: %w", err)
	}
	native := token.NewLedger(nativeAddr, b.Native.Symbol)
	if err := mintAll(native, b.Native.Balances); err != nil {
		return nil, "", err
	}
	bank := token.NewBank(native)

	for _, t := range b.Tokens {
		addr, err := idhash.TokenAddress(factory, t.Symbol)
		if err != nil {
			return nil, "", fmt.Errorf("derive %s address: %w", t.Symbol, err)
		}
		l := token.NewLedger(addr, t.Symbol)
		if err := mintAll(l, t.Balances); err != nil {
			return nil, "", err
		}
		if err := bank.Add(l); err != nil {
			return nil, "", err
		}
	}
	return bank, factory, nil
}

// CreateOracles creates the configured oracles through reg and funds them.
func (b *Bootstrap) CreateOracles(ctx context.Context, reg *registry.Registry) ([]domain.OracleInfo, error) {
	bySymbol := make(map[string]domain.Address)
	for _, l := range reg.Bank().Ledgers() {
		bySymbol[l.Symbol()] = l.Address()
	}

	var created []domain.OracleInfo
	for i, ob := range b.Oracles {
		cfg := ApplyDefaults(ob.Config)
		cfg.WeightToken = bySymbol[ob.Token]

		info, err := reg.CreateOracle(ctx, ob.Creator, cfg)
		if err != nil {
			return created, fmt.Errorf("create oracle %d (%s): %w", i, cfg.Name, err)
		}
		created = append(created, info)

		if ob.Fund == "" {
			continue
		}
		amount, _ := ParseAmount(ob.Fund)
		o, err := reg.Get(info.Oracle)
		if err != nil {
			return created, err
		}
		if err := o.Fund(ctx, ob.Creator, amount); err != nil {
			return created, fmt.Errorf("fund oracle %s: %w", info.Oracle, err)
		}
	}
	return created, nil
}

// ApplyDefaults fills every unset numeric parameter of cfg from domain.DefaultOracleConfig.
func ApplyDefaults(cfg domain.OracleConfig) domain.OracleConfig {
	def := domain.DefaultOracleConfig(cfg.Owner, cfg.WeightToken, cfg.Name)
	def.Description = cfg.Description
	for _, f := range []struct {
		dst *uint64
		src uint64
	}{
		{&def.Reward, cfg.Reward},
		{&def.HalfLifeSeconds, cfg.HalfLifeSeconds},
		{&def.Quorum, cfg.Quorum},
		{&def.DepositLockingPeriod, cfg.DepositLockingPeriod},
		{&def.WithdrawalLockingPeriod, cfg.WithdrawalLockingPeriod},
		{&def.Alpha, cfg.Alpha},
	} {
		if f.src != 0 {
			*f.dst = f.src
		}
	}
	return def
}

func mintAll(l *token.Ledger, balances map[string]string) error {
	addrs := make([]string, 0, len(balances))
	for addr := range balances {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		amount, err := ParseAmount(balances[addr])
		if err != nil {
			return err
		}
		if err := l.Mint(domain.Address(addr), amount); err != nil {
			return fmt.Errorf("mint %s to %s: %w", l.Symbol(), addr, err)
		}
	}
	return nil
}

// ParseAmount parses a positive decimal token amount.
func ParseAmount(s string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(s)
	if !ok || !v.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
