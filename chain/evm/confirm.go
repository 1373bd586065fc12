package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// defaultTickInterval matches the polling interval hardcoded in bind.WaitMined.
const defaultTickInterval = 1 * time.Second

// ConfirmFuncGeth returns a ConfirmFunc that polls client for the receipt of a transaction for at
// most waitMinedTimeout.
func ConfirmFuncGeth(
	client OnchainClient, chainID *big.Int, waitMinedTimeout, tickInterval time.Duration,
) ConfirmFunc {
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}

	return func(ctx context.Context, tx *types.Transaction) (uint64, error) {
		if tx == nil {
			return 0, fmt.Errorf("tx was nil, nothing to confirm on chain %s", chainID)
		}

		ctxTimeout, cancel := context.WithTimeout(ctx, waitMinedTimeout)
		defer cancel()

		receipt, err := WaitMinedWithInterval(ctxTimeout, tickInterval, client, tx.Hash())
		if err != nil {
			return 0, fmt.Errorf("tx %s failed to confirm on chain %s: %w", tx.Hash().Hex(), chainID, err)
		}

		return checkReceipt(ctxTimeout, client, chainID, tx, receipt)
	}
}

// checkReceipt returns the block number of a successful receipt, or the revert reason of a
// failed one.
func checkReceipt(
	ctx context.Context, caller ContractCaller, chainID *big.Int, tx *types.Transaction, receipt *types.Receipt,
) (uint64, error) {
	if receipt == nil {
		return 0, fmt.Errorf("receipt was nil for tx %s on chain %s", tx.Hash().Hex(), chainID)
	}

	blockNum := receipt.BlockNumber.Uint64()
	if receipt.Status == types.ReceiptStatusSuccessful {
		return blockNum, nil
	}

	from, err := types.Sender(types.LatestSignerForChainID(chainID), tx)
	if err != nil {
		return blockNum, fmt.Errorf("tx %s reverted on chain %s", tx.Hash().Hex(), chainID)
	}

	reason, err := getErrorReasonFromTx(ctx, caller, from, tx, receipt)
	if err == nil && reason != "" {
		return 0, fmt.Errorf("tx %s reverted on chain %s: %s", tx.Hash().Hex(), chainID, reason)
	}

	return blockNum, fmt.Errorf("tx %s reverted, could not decode error reason on chain %s",
		tx.Hash().Hex(), chainID,
	)
}

// WaitMinedWithInterval polls b for the receipt of txHash every tick until it exists or ctx is
// done. Networks with instant blocks confirm faster with a short tick.
func WaitMinedWithInterval(
	ctx context.Context, tick time.Duration, b bind.DeployBackend, txHash common.Hash,
) (*types.Receipt, error) {
	return retry.DoWithData(
		func() (*types.Receipt, error) {
			return b.TransactionReceipt(ctx, txHash)
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(tick),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

// ContractCaller is the CallContract method of go-ethereum's clients, kept narrow for the revert
// reason lookup.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// getErrorReasonFromTx replays a reverted transaction as a call at its block and extracts the
// revert reason from the returned error.
func getErrorReasonFromTx(
	ctx context.Context,
	caller ContractCaller,
	from common.Address,
	tx *types.Transaction,
	receipt *types.Receipt,
) (string, error) {
	call := ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Data:     tx.Data(),
		Value:    tx.Value(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
	}

	if _, err := caller.CallContract(ctx, call, receipt.BlockNumber); err != nil {
		reason, perr := getJSONErrorData(err)
		if perr == nil {
			return reason, nil
		}

		if reason == "" {
			return err.Error(), nil
		}
	}

	return "", fmt.Errorf("tx %s reverted with no reason", tx.Hash().Hex())
}

// getJSONErrorData extracts the data of a JSON-RPC error.
func getJSONErrorData(err error) (string, error) {
	if err == nil {
		return "", errors.New("cannot parse nil error")
	}

	// rpc.jsonError is private in go-ethereum.
	type jsonError interface {
		Error() string
		ErrorCode() int
		ErrorData() any
	}

	var jerr jsonError
	if !errors.As(err, &jerr) {
		return "", fmt.Errorf("error must be of type jsonError: %w", err)
	}

	data := fmt.Sprintf("%s", jerr.ErrorData())
	if strings.HasPrefix(data, "0x") {
		return data, nil
	}

	return "", fmt.Errorf("unexpected error data %q", data)
}
