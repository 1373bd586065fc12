package evm

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/contractkit/deployer/compile"
	"github.com/contractkit/deployer/deploy"
	"github.com/contractkit/deployer/pkg/logger"
)

// ArtifactLoader loads compiled contracts by name.
type ArtifactLoader interface {
	Load(name string) (compile.Artifact, error)
}

var _ deploy.Executor = (*Executor)(nil)

// Executor deploys compiled artifacts to a chain.
type Executor struct {
	chain     *Chain
	artifacts ArtifactLoader
	lggr      logger.Logger
}

// NewExecutor returns an Executor deploying artifacts to chain.
func NewExecutor(chain *Chain, artifacts ArtifactLoader, lggr logger.Logger) *Executor {
	if lggr == nil {
		lggr = logger.Nop()
	}

	return &Executor{
		chain:     chain,
		artifacts: artifacts,
		lggr:      lggr.Named("evm"),
	}
}

// DeployIfAbsent sends the creation transaction of the requested contract signed by req.From and
// waits for it to be mined. It never skips: recorded deployments are filtered out before it is
// called.
func (e *Executor) DeployIfAbsent(ctx context.Context, req deploy.Request) (deploy.Response, error) {
	art, err := e.artifacts.Load(req.ContractName)
	if err != nil {
		return deploy.Response{}, err
	}

	parsed, err := abi.JSON(bytes.NewReader(art.ABI))
	if err != nil {
		return deploy.Response{}, fmt.Errorf("failed to parse ABI of %s: %w", req.ContractName, err)
	}

	key := req.From.PrivateKey()
	if key == nil {
		return deploy.Response{}, errors.New("deployer account has no signing key")
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, e.chain.ChainID)
	if err != nil {
		return deploy.Response{}, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx

	addr, tx, _, err := bind.DeployContract(opts, parsed, art.Bytecode, e.chain.Client)
	if err != nil {
		return deploy.Response{}, fmt.Errorf("failed to send deployment of %s: %w", req.ContractName, err)
	}
	if req.Log {
		e.lggr.Infof("deploying %q (tx: %s)...", req.ContractName, tx.Hash().Hex())
	}

	block, err := e.chain.Confirm(ctx, tx)
	if err != nil {
		return deploy.Response{}, err
	}
	if req.Log {
		e.lggr.Infof("deployed %q at %s in block %d", req.ContractName, addr.Hex(), block)
	}

	return deploy.Response{
		Address:     addr,
		TxHash:      tx.Hash(),
		BlockNumber: block,
	}, nil
}
