// Package accounts derives the deployer's accounts from the configured mnemonic and maps named
// roles such as "deployer" onto them.
package accounts

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cosmos/go-bip39"
	gethaccounts "github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/contractkit/deployer/config/network"
)

// DefaultBareCount is the number of accounts derived for networks with a bare accounts
// descriptor.
const DefaultBareCount = 20

// Deployer is the canonical role that signs deployments.
const Deployer = "deployer"

var (
	// ErrInvalidMnemonic is returned when the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	// ErrUnknownRole is returned when a named account is not registered.
	ErrUnknownRole = errors.New("unknown named account")
)

// Account is a derived key pair.
type Account struct {
	Index   uint32
	Address common.Address
	key     *ecdsa.PrivateKey
}

// PrivateKey returns the signing key of the account.
func (a Account) PrivateKey() *ecdsa.PrivateKey {
	return a.key
}

// String returns the address of the account.
func (a Account) String() string {
	return a.Address.Hex()
}

// Derive returns the account at path/index derived from the mnemonic.
func Derive(mnemonic, path string, index uint32) (Account, error) {
	master, err := masterKey(mnemonic)
	if err != nil {
		return Account{}, err
	}

	return deriveFrom(master, path, index)
}

func masterKey(mnemonic string) (*hdkeychain.ExtendedKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	return master, nil
}

func deriveFrom(master *hdkeychain.ExtendedKey, path string, index uint32) (Account, error) {
	dp, err := gethaccounts.ParseDerivationPath(path)
	if err != nil {
		return Account{}, fmt.Errorf("invalid derivation path %q: %w", path, err)
	}

	key := master
	for _, n := range append(dp, index) {
		key, err = key.Derive(n)
		if err != nil {
			return Account{}, fmt.Errorf("failed to derive %s/%d: %w", path, index, err)
		}
	}

	ecKey, err := key.ECPrivKey()
	if err != nil {
		return Account{}, fmt.Errorf("failed to extract private key: %w", err)
	}
	priv := ecKey.ToECDSA()

	return Account{
		Index:   index,
		Address: crypto.PubkeyToAddress(priv.PublicKey),
		key:     priv,
	}, nil
}

// Wallet is the ordered list of accounts derived for one network.
type Wallet struct {
	accounts []Account
}

// NewWallet derives the accounts described by the network's accounts descriptor. Bare
// descriptors use the default path and DefaultBareCount accounts.
func NewWallet(desc network.Accounts) (*Wallet, error) {
	path, first, count := desc.Path, desc.InitialIndex, desc.Count
	if desc.Bare {
		path, first, count = network.DefaultDerivationPath, 0, DefaultBareCount
	}
	if count == 0 {
		return nil, errors.New("account count must be positive")
	}

	master, err := masterKey(desc.Mnemonic)
	if err != nil {
		return nil, err
	}

	accounts := make([]Account, 0, count)
	for i := first; i < first+count; i++ {
		acc, err := deriveFrom(master, path, i)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}

	return &Wallet{accounts: accounts}, nil
}

// Accounts returns a copy of the derived accounts.
func (w *Wallet) Accounts() []Account {
	return slices.Clone(w.accounts)
}

// At returns the account at position i of the wallet.
func (w *Wallet) At(i uint32) (Account, error) {
	if int(i) >= len(w.accounts) {
		return Account{}, fmt.Errorf("account %d out of range: wallet holds %d accounts", i, len(w.accounts))
	}

	return w.accounts[i], nil
}

// NamedAccounts maps roles onto positions of a Wallet.
type NamedAccounts struct {
	wallet *Wallet
	roles  map[string]uint32
}

// NewNamedAccounts returns a registry over wallet. The deployer role defaults to position 0
// unless roles overrides it.
func NewNamedAccounts(wallet *Wallet, roles map[string]uint32) *NamedAccounts {
	r := map[string]uint32{Deployer: 0}
	maps.Copy(r, roles)

	return &NamedAccounts{wallet: wallet, roles: r}
}

// Resolve returns the account bound to role.
func (n *NamedAccounts) Resolve(role string) (Account, error) {
	idx, ok := n.roles[role]
	if !ok {
		return Account{}, fmt.Errorf("%w %q", ErrUnknownRole, role)
	}

	acc, err := n.wallet.At(idx)
	if err != nil {
		return Account{}, fmt.Errorf("named account %q: %w", role, err)
	}

	return acc, nil
}

// Roles returns the registered role names, sorted.
func (n *NamedAccounts) Roles() []string {
	return slices.Sorted(maps.Keys(n.roles))
}

// NewMnemonic generates a fresh 24 word BIP39 mnemonic.
func NewMnemonic() (string, error) {
	const entropySize = 256

	entropy, err := bip39.NewEntropy(entropySize)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}

	return bip39.NewMnemonic(entropy)
}
