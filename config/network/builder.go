// Package network builds the connection and account descriptors of the supported networks from
// the resolved secrets.
package network

import (
	"fmt"
	"strings"

	"github.com/contractkit/deployer/config/secrets"
)

const (
	// DefaultDerivationPath is the BIP44 Ethereum path used by every non-local network.
	DefaultDerivationPath = "m/44'/60'/0'/0"
	// DefaultAccountCount is the number of accounts derived for non-local networks.
	DefaultAccountCount = 10

	// ForkBlockNumber is the mainnet block the fork network replays.
	ForkBlockNumber = 15632583
	// ForkNodeURL is where the local forking node listens.
	ForkNodeURL = "http://localhost:8545"

	providerURLPattern = "https://eth-%s.g.alchemy.com/v2/%s"
)

// Builder composes Descriptors from the secrets resolved at startup.
type Builder struct {
	secrets secrets.Secrets
}

// NewBuilder returns a Builder for the given secrets.
func NewBuilder(s secrets.Secrets) *Builder {
	return &Builder{secrets: s}
}

// Build returns the descriptor of the network.
func (b *Builder) Build(name Name) (Descriptor, error) {
	v, ok := variants[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w %q", ErrUnknownNetwork, string(name))
	}

	d := Descriptor{
		Name:    name,
		Kind:    v.kind,
		ChainID: v.chainID,
	}

	switch v.kind {
	case KindLocal:
		d.Accounts = b.bareAccounts()
	case KindFork:
		d.RPCURL = ForkNodeURL
		d.Accounts = b.bareAccounts()
		d.Forking = &Forking{
			URL:         b.providerURL(Mainnet),
			BlockNumber: ForkBlockNumber,
		}
	case KindPublic:
		d.RPCURL = b.providerURL(name)
		d.Accounts = Accounts{
			Mnemonic:     b.secrets.Mnemonic,
			Path:         DefaultDerivationPath,
			InitialIndex: 0,
			Count:        DefaultAccountCount,
		}
	}

	return d, nil
}

// BuildAll returns the descriptors of every supported network, keyed by name.
func (b *Builder) BuildAll() (map[Name]Descriptor, error) {
	out := make(map[Name]Descriptor, len(variants))
	for _, n := range Names() {
		d, err := b.Build(n)
		if err != nil {
			return nil, err
		}
		out[n] = d
	}

	return out, nil
}

// Token returns the provider access token, used to redact descriptors.
func (b *Builder) Token() string {
	return b.secrets.RPCToken
}

func (b *Builder) bareAccounts() Accounts {
	return Accounts{Mnemonic: b.secrets.Mnemonic, Bare: true}
}

func (b *Builder) providerURL(name Name) string {
	return fmt.Sprintf(providerURLPattern, name, b.secrets.RPCToken)
}

func redactToken(url, token string) string {
	if token == "" {
		return url
	}

	return strings.ReplaceAll(url, token, "<RPC_TOKEN>")
}
