// Package deployments persists the outcome of contract deployments, one record per idempotency
// id and network.
//
// A record is only ever written after the deployment transaction is confirmed, so an interrupted
// run leaves nothing behind and the next run deploys again.
package deployments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrRecordNotFound is returned when no record exists for an id.
	ErrRecordNotFound = errors.New("deployment record not found")
	// ErrRecordExists is returned when saving a record for an id that already has one.
	ErrRecordExists = errors.New("deployment record already exists")
)

// Record is a successful deployment.
type Record struct {
	// ID is the idempotency key of the deployment step.
	ID           string         `json:"id"`
	ContractName string         `json:"contractName"`
	Address      common.Address `json:"address"`
	Deployer     common.Address `json:"deployer"`
	TxHash       common.Hash    `json:"transactionHash"`
	BlockNumber  uint64         `json:"blockNumber"`
	Tags         LabelSet       `json:"tags"`
	Network      string         `json:"network"`
	ChainID      uint64         `json:"chainId"`
	DeployedAt   time.Time      `json:"deployedAt"`
}

// Validate checks that the record can be persisted.
func (r Record) Validate() error {
	if r.ID == "" {
		return errors.New("id is required")
	}
	if r.ContractName == "" {
		return errors.New("contract name is required")
	}
	if r.Address == (common.Address{}) {
		return errors.New("address is required")
	}
	if r.ChainID == 0 {
		return errors.New("chain id is required")
	}

	return nil
}

// Store holds the records of a single network.
type Store interface {
	// Get returns the record for id, or ErrRecordNotFound.
	Get(ctx context.Context, id string) (Record, error)
	// Save persists a new record. Saving an id twice fails with ErrRecordExists.
	Save(ctx context.Context, r Record) error
	// List returns every record, ordered by id.
	List(ctx context.Context) ([]Record, error)
	// Reset removes the record for id so the step deploys again. Resetting an unknown id is a
	// no-op.
	Reset(ctx context.Context, id string) error
}

func notFound(id string) error {
	return fmt.Errorf("%w: %q", ErrRecordNotFound, id)
}

func exists(id string) error {
	return fmt.Errorf("%w: %q", ErrRecordExists, id)
}
