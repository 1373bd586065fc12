// Package evm connects the deployer to EVM chains. A Chain is either a remote node reached over
// JSON-RPC or an in-process simulated backend, and the Executor deploys compiled artifacts to it.
package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ConfirmFunc waits for tx to be mined and returns its block number. A reverted transaction is
// an error.
type ConfirmFunc func(ctx context.Context, tx *types.Transaction) (uint64, error)

// OnchainClient is an EVM chain client.
// The geth binding interfaces cover everything deployments need.
type OnchainClient interface {
	bind.ContractBackend
	bind.DeployBackend

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
}

// Chain is a connected EVM chain.
type Chain struct {
	ChainID *big.Int
	Client  OnchainClient
	Confirm ConfirmFunc

	close func()
}

// Close releases the chain's connection or backend.
func (c *Chain) Close() {
	if c.close != nil {
		c.close()
	}
}
