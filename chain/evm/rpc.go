package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/contractkit/deployer/pkg/logger"
)

// RPCConfig holds the configuration to connect to a chain over JSON-RPC.
type RPCConfig struct {
	// Required: URL is the node's HTTP or websocket endpoint.
	URL string
	// Required: ChainID is the chain the node must report.
	ChainID uint64
	// Required: ConfirmTimeout bounds the wait for each transaction receipt.
	ConfirmTimeout time.Duration
	// Optional: DialAttempts defaults to 3.
	DialAttempts uint
	// Optional: RetryDelay defaults to 1s.
	RetryDelay time.Duration
	// Optional: TickInterval is the receipt polling interval. Defaults to 1s.
	TickInterval time.Duration
	// Optional: Logger defaults to a no-op logger.
	Logger logger.Logger
}

func (c RPCConfig) validate() error {
	if c.URL == "" {
		return errors.New("rpc url is required")
	}
	if c.ChainID == 0 {
		return errors.New("chain id is required")
	}
	if c.ConfirmTimeout <= 0 {
		return errors.New("confirm timeout must be positive")
	}

	return nil
}

// DialRPC connects to the node at cfg.URL and checks that it serves cfg.ChainID. Connection
// failures are retried.
func DialRPC(ctx context.Context, cfg RPCConfig) (*Chain, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid rpc config: %w", err)
	}
	if cfg.DialAttempts == 0 {
		cfg.DialAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	lggr := cfg.Logger.Named("rpc")

	var client *ethclient.Client
	remoteID, err := retry.DoWithData(
		func() (*big.Int, error) {
			c, err := ethclient.DialContext(ctx, cfg.URL)
			if err != nil {
				return nil, err
			}

			id, err := c.ChainID(ctx)
			if err != nil {
				c.Close()
				return nil, err
			}
			client = c

			return id, nil
		},
		retry.Context(ctx),
		retry.Attempts(cfg.DialAttempts),
		retry.Delay(cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			lggr.Warnw("Failed to reach node, retrying", "attempt", attempt+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain %d: %w", cfg.ChainID, err)
	}

	chainID := new(big.Int).SetUint64(cfg.ChainID)
	if remoteID.Cmp(chainID) != 0 {
		client.Close()
		return nil, fmt.Errorf("node reports chain id %s, expected %s", remoteID, chainID)
	}

	return &Chain{
		ChainID: chainID,
		Client:  client,
		Confirm: ConfirmFuncGeth(client, chainID, cfg.ConfirmTimeout, cfg.TickInterval),
		close:   client.Close,
	}, nil
}
