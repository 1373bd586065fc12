package network

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/contractkit/deployer/pkg/logger"
)

// ErrUnknownNetwork is returned when a network name is not one of the supported networks.
var ErrUnknownNetwork = errors.New("unknown network")

// Name identifies one of the supported networks. The set is closed; use ParseName to convert
// user input.
type Name string

const (
	Hardhat Name = "hardhat"
	Fork    Name = "fork"
	Goerli  Name = "goerli"
	Sepolia Name = "sepolia"
	Mainnet Name = "mainnet"
)

// Kind classifies how a network is reached and how its accounts are derived.
type Kind int

const (
	// KindLocal is an in-process development chain.
	KindLocal Kind = iota
	// KindFork is a local node replaying mainnet state at a pinned block.
	KindFork
	// KindPublic is a remote chain reached through the RPC provider.
	KindPublic
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindFork:
		return "fork"
	case KindPublic:
		return "public"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// variant is the static definition of a supported network.
type variant struct {
	chainID uint64
	kind    Kind
}

// variants is the static chain id table. Fork always carries mainnet semantics; the in-process
// hardhat chain never shares an id with a public network.
var variants = map[Name]variant{
	Hardhat: {chainID: 31337, kind: KindLocal},
	Fork:    {chainID: 1, kind: KindFork},
	Goerli:  {chainID: 5, kind: KindPublic},
	Sepolia: {chainID: 11155111, kind: KindPublic},
	Mainnet: {chainID: 1, kind: KindPublic},
}

// Names returns every supported network name, sorted.
func Names() []Name {
	names := make([]Name, 0, len(variants))
	for n := range variants {
		names = append(names, n)
	}
	slices.Sort(names)

	return names
}

// ParseName converts s to a Name, failing with ErrUnknownNetwork when s is not supported.
func ParseName(s string) (Name, error) {
	n := Name(s)
	if _, ok := variants[n]; !ok {
		return "", fmt.Errorf("%w %q: supported networks are %v", ErrUnknownNetwork, s, Names())
	}

	return n, nil
}

// ChainID returns the chain id of the network from the static table.
func (n Name) ChainID() (uint64, error) {
	v, ok := variants[n]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownNetwork, string(n))
	}

	return v.chainID, nil
}

// Kind returns the kind of the network.
func (n Name) Kind() (Kind, error) {
	v, ok := variants[n]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownNetwork, string(n))
	}

	return v.kind, nil
}

// Accounts describes how the deployer derives its accounts from the mnemonic.
//
// WARNING: This data type contains sensitive fields and should not be logged.
type Accounts struct {
	Mnemonic string `yaml:"mnemonic"`
	// Bare is set for local networks: only the mnemonic is fixed and the derivation defaults of
	// the provider apply.
	Bare         bool   `yaml:"bare,omitempty"`
	Path         string `yaml:"path,omitempty"`
	InitialIndex uint32 `yaml:"initial_index,omitempty"`
	Count        uint32 `yaml:"count,omitempty"`
}

// Forking pins a local network to the state of an upstream chain at a fixed block.
type Forking struct {
	URL         string `yaml:"url"`
	BlockNumber uint64 `yaml:"block_number"`
}

// Descriptor is the connection and account configuration of one network.
//
// WARNING: This data type contains sensitive fields. Log the result of Redacted instead.
type Descriptor struct {
	Name     Name     `yaml:"name"`
	Kind     Kind     `yaml:"-"`
	ChainID  uint64   `yaml:"chain_id"`
	RPCURL   string   `yaml:"rpc_url,omitempty"`
	Accounts Accounts `yaml:"accounts"`
	Forking  *Forking `yaml:"forking,omitempty"`
}

// ChainSelector returns the chain-selectors selector of the network, falling back to the chain id
// for development chains that are not registered.
func (d Descriptor) ChainSelector() uint64 {
	sel, err := chainsel.SelectorFromChainId(d.ChainID)
	if err != nil {
		return d.ChainID
	}

	return sel
}

// IsLocal reports whether the network runs on the developer's machine.
func (d Descriptor) IsLocal() bool {
	return d.Kind == KindLocal || d.Kind == KindFork
}

// Validate checks that the descriptor is complete.
func (d Descriptor) Validate() error {
	if d.ChainID == 0 {
		return errors.New("chain id is required")
	}

	if d.Kind != KindLocal && d.RPCURL == "" {
		return errors.New("rpc url is required")
	}

	if d.Accounts.Mnemonic == "" {
		return errors.New("accounts mnemonic is required")
	}

	if !d.Accounts.Bare && (d.Accounts.Path == "" || d.Accounts.Count == 0) {
		return errors.New("accounts path and count are required")
	}

	if d.Forking != nil {
		if d.Forking.URL == "" {
			return errors.New("forking url is required")
		}
		if d.Forking.BlockNumber == 0 {
			return errors.New("forking block number is required")
		}
	}

	return nil
}

// Redacted returns a copy of the descriptor with the mnemonic and the provider token masked.
func (d Descriptor) Redacted(token string) Descriptor {
	out := d
	out.Accounts.Mnemonic = logger.Redact(d.Accounts.Mnemonic)
	out.RPCURL = redactToken(d.RPCURL, token)
	if d.Forking != nil {
		f := *d.Forking
		f.URL = redactToken(f.URL, token)
		out.Forking = &f
	}

	return out
}
