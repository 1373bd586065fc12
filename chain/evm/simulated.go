package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/eth/ethconfig"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/node"
	"github.com/ethereum/go-ethereum/params"
)

var (
	// prefundAmountWei is the balance of every funded account: 1,000,000 ether.
	prefundAmountWei = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))
	simBlockGasLimit = uint64(50_000_000)
)

// SimClient wraps a simulated backend. It implements OnchainClient and serializes block
// production.
type SimClient struct {
	mu sync.Mutex

	simulated.Client
	sim *simulated.Backend
}

// Commit mines a block with the pending transactions.
func (c *SimClient) Commit() common.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sim.Commit()
}

// NewSimulated starts an in-process chain with the given chain id and pre-funds funded. Every
// confirmation mines a block, so transactions are confirmed immediately.
func NewSimulated(chainID uint64, funded []common.Address, confirmTimeout time.Duration) *Chain {
	alloc := make(types.GenesisAlloc, len(funded))
	for _, addr := range funded {
		alloc[addr] = types.Account{Balance: prefundAmountWei}
	}

	chainCfg := *params.AllDevChainProtocolChanges
	chainCfg.ChainID = new(big.Int).SetUint64(chainID)

	backend := simulated.NewBackend(alloc,
		simulated.WithBlockGasLimit(simBlockGasLimit),
		func(_ *node.Config, ethConf *ethconfig.Config) {
			ethConf.Genesis.Config = &chainCfg
		},
	)
	backend.Commit()

	client := &SimClient{Client: backend.Client(), sim: backend}

	return &Chain{
		ChainID: chainCfg.ChainID,
		Client:  client,
		Confirm: func(ctx context.Context, tx *types.Transaction) (uint64, error) {
			if tx == nil {
				return 0, fmt.Errorf("tx was nil, nothing to confirm on chain %d", chainID)
			}

			client.Commit()

			ctxTimeout, cancel := context.WithTimeout(ctx, confirmTimeout)
			defer cancel()

			receipt, err := bind.WaitMined(ctxTimeout, client, tx)
			if err != nil {
				return 0, fmt.Errorf("tx %s failed to confirm on chain %d: %w", tx.Hash().Hex(), chainID, err)
			}

			return checkReceipt(ctxTimeout, client, chainCfg.ChainID, tx, receipt)
		},
		close: func() { _ = backend.Close() },
	}
}
