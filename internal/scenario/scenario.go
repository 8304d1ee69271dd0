// Package scenario runs scripted oracle histories against an in-memory
// registry driven by a manual clock.
//
// A scenario names its accounts, mints their genesis balances, creates
// oracles and then applies timed steps:
//
//	name: ewma
//	accounts: [alice, bob]
//	tokens:
//	  - symbol: WGT
//	    balances: {alice: "100"}
//	oracles:
//	  - id: eth
//	    creator: alice
//	    token: WGT
//	    halfLifeSeconds: 3600
//	steps:
//	  - {actor: alice, op: approve, oracle: eth, amount: "100"}
//	  - {actor: alice, op: deposit, oracle: eth, amount: "100"}
//	  - {wait: 3600, actor: alice, op: submit, oracle: eth, value: "2500", expect: {aggregate: "2500"}}
package scenario

import (
	"crypto/sha256"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"weighted-oracle/internal/config"
	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/signing"
)

// DefaultStart is the clock value, in unix seconds, a scenario starts at unless it sets one.
const DefaultStart uint64 = 1_700_000_000

// Op is a scenario step operation.
type Op string

// Operations.
const (
	OpAdvance           Op = "advance"
	OpApprove           Op = "approve"
	OpDeposit           Op = "deposit"
	OpWithdraw          Op = "withdraw"
	OpFund              Op = "fund"
	OpSubmit            Op = "submit"
	OpRead              Op = "read"
	OpReadLatest        Op = "readLatest"
	OpVoteBlacklist     Op = "voteBlacklist"
	OpVoteWhitelist     Op = "voteWhitelist"
	OpTransferOwnership Op = "transferOwnership"
	OpRenounceOwnership Op = "renounceOwnership"
	OpPause             Op = "pause"
	OpUnpause           Op = "unpause"
)

var (
	amountOps = map[Op]bool{OpApprove: true, OpDeposit: true, OpWithdraw: true, OpFund: true}
	targetOps = map[Op]bool{OpVoteBlacklist: true, OpVoteWhitelist: true, OpTransferOwnership: true}
	knownOps  = map[Op]bool{
		OpAdvance: true, OpSubmit: true, OpRead: true, OpReadLatest: true,
		OpRenounceOwnership: true, OpPause: true, OpUnpause: true,
	}
)

func init() {
	for op := range amountOps {
		knownOps[op] = true
	}
	for op := range targetOps {
		knownOps[op] = true
	}
}

// Scenario is a scripted oracle history.
type Scenario struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Start       uint64            `yaml:"start"` // unix seconds
	Accounts    []string          `yaml:"accounts"`
	Native      map[string]string `yaml:"native"` // account name to native balance
	Tokens      []Token           `yaml:"tokens"`
	Oracles     []Oracle          `yaml:"oracles"`
	Steps       []Step            `yaml:"steps"`
}

// Token is a weight token and the genesis balances of named accounts.
type Token struct {
	Symbol   string            `yaml:"symbol"`
	Balances map[string]string `yaml:"balances"`
}

// Oracle is an oracle created before the first step. The creator becomes the owner.
type Oracle struct {
	ID      string `yaml:"id"`      // name steps refer to
	Creator string `yaml:"creator"` // account name
	Token   string `yaml:"token"`   // weight token symbol
	Fund    string `yaml:"fund"`    // native amount moved from the creator at creation

	Config domain.OracleConfig `yaml:",inline"`
}

// Step is one operation. The clock moves to Start+At when At is set and then
// advances by Wait seconds before the operation runs.
type Step struct {
	At     *uint64 `yaml:"at"`
	Wait   uint64  `yaml:"wait"`
	Actor  string  `yaml:"actor"`
	Op     Op      `yaml:"op"`
	Oracle string  `yaml:"oracle"`
	Amount string  `yaml:"amount"`
	Value  string  `yaml:"value"`
	Target string  `yaml:"target"` // account name
	Note   string  `yaml:"note"`
	Expect Expect  `yaml:"expect"`
}

// Expect lists the outcomes a step is checked against. Empty fields are not checked.
// A step without an expected error must succeed.
type Expect struct {
	Error     string `yaml:"error"`     // error name, see ErrorNames
	Aggregate string `yaml:"aggregate"` // aggregated price after the step
	Value     string `yaml:"value"`     // value returned by a read
	Final     *bool  `yaml:"final"`     // quorum flag of a submission
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if sc.Name == "" {
		sc.Name = "scenario"
	}
	if sc.Start == 0 {
		sc.Start = DefaultStart
	}
	for i := range sc.Oracles {
		if sc.Oracles[i].Config.Name == "" {
			sc.Oracles[i].Config.Name = sc.Oracles[i].ID
		}
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks that every name a step or balance uses is declared.
func (sc *Scenario) Validate() error {
	accounts := make(map[string]bool, len(sc.Accounts))
	for _, a := range sc.Accounts {
		if a == "" || accounts[a] {
			return fmt.Errorf("invalid or duplicate account %q", a)
		}
		accounts[a] = true
	}
	checkBalances := func(symbol string, balances map[string]string) error {
		for name, amount := range balances {
			if !accounts[name] {
				return fmt.Errorf("token %s: unknown account %q", symbol, name)
			}
			if _, err := config.ParseAmount(amount); err != nil {
				return fmt.Errorf("token %s balance of %s: %w", symbol, name, err)
			}
		}
		return nil
	}
	if err := checkBalances("native", sc.Native); err != nil {
		return err
	}
	symbols := make(map[string]bool)
	for _, t := range sc.Tokens {
		if err := checkBalances(t.Symbol, t.Balances); err != nil {
			return err
		}
		symbols[t.Symbol] = true
	}

	oracles := make(map[string]bool, len(sc.Oracles))
	for i, o := range sc.Oracles {
		if o.ID == "" || oracles[o.ID] {
			return fmt.Errorf("oracle %d: invalid or duplicate id %q", i, o.ID)
		}
		oracles[o.ID] = true
		if !accounts[o.Creator] {
			return fmt.Errorf("oracle %s: unknown creator %q", o.ID, o.Creator)
		}
		if !symbols[o.Token] {
			return fmt.Errorf("oracle %s: unknown token %q", o.ID, o.Token)
		}
		if o.Config.Owner != "" || o.Config.WeightToken != "" {
			return fmt.Errorf("oracle %s: owner and weightToken are derived from creator and token", o.ID)
		}
	}

	var offset uint64
	for i, s := range sc.Steps {
		if !knownOps[s.Op] {
			return fmt.Errorf("step %d: unknown op %q", i, s.Op)
		}
		if s.At != nil {
			if *s.At < offset {
				return fmt.Errorf("step %d: at %d is before %d", i, *s.At, offset)
			}
			offset = *s.At
		}
		offset += s.Wait
		if s.Op == OpAdvance {
			continue
		}
		if !accounts[s.Actor] {
			return fmt.Errorf("step %d: unknown actor %q", i, s.Actor)
		}
		if !oracles[s.Oracle] {
			return fmt.Errorf("step %d: unknown oracle %q", i, s.Oracle)
		}
		if amountOps[s.Op] && s.Amount == "" {
			return fmt.Errorf("step %d: %s needs an amount", i, s.Op)
		}
		if s.Op == OpSubmit && s.Value == "" {
			return fmt.Errorf("step %d: submit needs a value", i)
		}
		if targetOps[s.Op] && !accounts[s.Target] {
			return fmt.Errorf("step %d: unknown target %q", i, s.Target)
		}
		if s.Expect.Error != "" {
			if _, ok := ErrorNames[s.Expect.Error]; !ok {
				return fmt.Errorf("step %d: unknown error name %q", i, s.Expect.Error)
			}
		}
	}
	return nil
}

// Account is a named scenario account.
type Account struct {
	Name string
	Key  *signing.KeyPair
}

// AccountKey derives the deterministic key of a named account.
func AccountKey(scenario, name string) (*signing.KeyPair, error) {
	seed := sha256.Sum256([]byte(scenario + "/" + name))
	return signing.KeyPairFromSeed(seed[:])
}

// bootstrap translates the scenario setup into a config.Bootstrap over derived addresses.
func (sc *Scenario) bootstrap(addrs map[string]domain.Address) *config.Bootstrap {
	resolve := func(balances map[string]string) map[string]string {
		out := make(map[string]string, len(balances))
		for name, amount := range balances {
			out[string(addrs[name])] = amount
		}
		return out
	}

	b := &config.Bootstrap{
		Factory: "scenario/" + sc.Name,
		Native:  config.TokenGenesis{Symbol: "NATIVE", Balances: resolve(sc.Native)},
	}
	for _, t := range sc.Tokens {
		b.Tokens = append(b.Tokens, config.TokenGenesis{Symbol: t.Symbol, Balances: resolve(t.Balances)})
	}
	for _, o := range sc.Oracles {
		b.Oracles = append(b.Oracles, config.OracleBootstrap{
			Creator: addrs[o.Creator],
			Token:   o.Token,
			Fund:    o.Fund,
			Config:  o.Config,
		})
	}
	return b
}
