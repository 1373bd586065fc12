package cli

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/contractkit/deployer/accounts"
	"github.com/contractkit/deployer/chain/evm"
	"github.com/contractkit/deployer/compile"
	"github.com/contractkit/deployer/config/network"
	"github.com/contractkit/deployer/deployments"
	"github.com/contractkit/deployer/pkg/logger"
)

// CompilerFunc returns the compiler for the project rooted at root.
type CompilerFunc func(root string) compile.Compiler

// ConnectFunc connects to the chain of a network. Local networks fund the wallet's accounts.
type ConnectFunc func(
	ctx context.Context, desc network.Descriptor, wallet *accounts.Wallet, timeout time.Duration, lggr logger.Logger,
) (*evm.Chain, error)

// OpenStoreFunc opens the deployment record store of a network. dsn is the optional database
// URL. The returned function releases the store.
type OpenStoreFunc func(
	ctx context.Context, dir string, desc network.Descriptor, dsn string,
) (deployments.Store, func(), error)

// Deps holds the injectable dependencies of the commands.
// All fields are optional; nil values use production defaults.
type Deps struct {
	// Logger replaces the logger built from --log-level.
	Logger logger.Logger
	// Compiler default: solc on PATH.
	Compiler CompilerFunc
	// Connect default: simulated backend for local networks, JSON-RPC otherwise.
	Connect ConnectFunc
	// OpenStore default: memory for local networks, SQL when a database URL is set, files
	// otherwise.
	OpenStore OpenStoreFunc
}

func (d *Deps) applyDefaults() {
	if d.Compiler == nil {
		d.Compiler = defaultCompiler
	}
	if d.Connect == nil {
		d.Connect = defaultConnect
	}
	if d.OpenStore == nil {
		d.OpenStore = defaultOpenStore
	}
}

func defaultCompiler(root string) compile.Compiler {
	return compile.NewSolcCompiler(root)
}

func defaultConnect(
	ctx context.Context, desc network.Descriptor, wallet *accounts.Wallet, timeout time.Duration, lggr logger.Logger,
) (*evm.Chain, error) {
	if desc.Kind == network.KindLocal {
		funded := make([]common.Address, 0)
		for _, a := range wallet.Accounts() {
			funded = append(funded, a.Address)
		}

		return evm.NewSimulated(desc.ChainID, funded, timeout), nil
	}

	return evm.DialRPC(ctx, evm.RPCConfig{
		URL:            desc.RPCURL,
		ChainID:        desc.ChainID,
		ConfirmTimeout: timeout,
		Logger:         lggr,
	})
}

// defaultOpenStore keeps records of the in-process network in memory, as its chain does not
// outlive the command.
func defaultOpenStore(
	ctx context.Context, dir string, desc network.Descriptor, dsn string,
) (deployments.Store, func(), error) {
	noop := func() {}

	switch {
	case desc.Kind == network.KindLocal:
		return deployments.NewMemoryStore(), noop, nil
	case dsn != "":
		s, err := deployments.OpenSQLStore(ctx, dsn, string(desc.Name))
		if err != nil {
			return nil, nil, err
		}

		return s, func() { _ = s.Close() }, nil
	default:
		s, err := deployments.NewFileStore(dir, string(desc.Name), desc.ChainID)
		if err != nil {
			return nil, nil, err
		}

		return s, noop, nil
	}
}
