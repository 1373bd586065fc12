// Package deploy orchestrates idempotent contract deployments.
//
// The Orchestrator resolves the signing account from the named accounts, skips deployments whose
// id already has a record on the current network and otherwise delegates to an Executor, the
// component that builds, broadcasts and confirms the deployment transaction. Records are saved
// only after confirmation.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/segmentio/ksuid"

	"github.com/contractkit/deployer/accounts"
	"github.com/contractkit/deployer/config/network"
	"github.com/contractkit/deployer/deployments"
	"github.com/contractkit/deployer/pkg/logger"
)

// Request is the input of the deploy-if-absent primitive.
type Request struct {
	ContractName string
	From         accounts.Account
	// Log asks the executor to log its progress.
	Log bool
}

// Response is the output of the deploy-if-absent primitive.
type Response struct {
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
	// Skipped is set when the executor found the contract already deployed and sent nothing.
	Skipped bool
}

// Executor builds, broadcasts and confirms deployment transactions. Errors are returned to the
// caller of Deploy unmodified apart from added context.
type Executor interface {
	DeployIfAbsent(ctx context.Context, req Request) (Response, error)
}

// Options configures a single deployment.
type Options struct {
	// ID is the idempotency key. Defaults to the artifact name.
	ID string
	// Tags group deployment steps for selective runs.
	Tags []string
	// From is the named account signing the deployment. Defaults to "deployer".
	From string
}

// Result is the outcome of Deploy.
type Result struct {
	Address         common.Address
	AlreadyDeployed bool
	Record          deployments.Record
}

// Config holds the dependencies of an Orchestrator.
type Config struct {
	Network  network.Descriptor
	Accounts *accounts.NamedAccounts
	Store    deployments.Store
	Executor Executor
	Logger   logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c Config) validate() error {
	if c.Accounts == nil {
		return errors.New("named accounts are required")
	}
	if c.Store == nil {
		return errors.New("deployment store is required")
	}
	if c.Executor == nil {
		return errors.New("executor is required")
	}

	return nil
}

// Orchestrator runs deployments against one network, one at a time.
type Orchestrator struct {
	cfg   Config
	runID ksuid.KSUID
	lggr  logger.Logger
}

// NewOrchestrator returns an Orchestrator for the configured network.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	runID := ksuid.New()

	return &Orchestrator{
		cfg:   cfg,
		runID: runID,
		lggr:  cfg.Logger.Named("deploy"),
	}, nil
}

// RunID identifies this orchestrator's run in logs.
func (o *Orchestrator) RunID() string {
	return o.runID.String()
}

// Network returns the network the orchestrator deploys to.
func (o *Orchestrator) Network() network.Descriptor {
	return o.cfg.Network
}

// Deploy deploys artifact unless a record for opts.ID already exists on the network.
func (o *Orchestrator) Deploy(ctx context.Context, artifact string, opts Options) (Result, error) {
	if artifact == "" {
		return Result{}, errors.New("artifact name is required")
	}
	id := opts.ID
	if id == "" {
		id = artifact
	}
	role := opts.From
	if role == "" {
		role = accounts.Deployer
	}

	from, err := o.cfg.Accounts.Resolve(role)
	if err != nil {
		return Result{}, err
	}

	prev, err := o.cfg.Store.Get(ctx, id)
	switch {
	case err == nil:
		o.lggr.Infow("Deployment already recorded, skipping",
			"id", id, "contract", prev.ContractName, "address", prev.Address.Hex(),
			"network", o.cfg.Network.Name, "run", o.runID)

		return Result{Address: prev.Address, AlreadyDeployed: true, Record: prev}, nil
	case !errors.Is(err, deployments.ErrRecordNotFound):
		return Result{}, fmt.Errorf("failed to look up deployment %q: %w", id, err)
	}

	resp, err := o.cfg.Executor.DeployIfAbsent(ctx, Request{ContractName: artifact, From: from, Log: true})
	if err != nil {
		return Result{}, fmt.Errorf("deployment %q of %s failed: %w", id, artifact, err)
	}

	rec := deployments.Record{
		ID:           id,
		ContractName: artifact,
		Address:      resp.Address,
		Deployer:     from.Address,
		TxHash:       resp.TxHash,
		BlockNumber:  resp.BlockNumber,
		Tags:         deployments.NewLabelSet(opts.Tags...),
		Network:      string(o.cfg.Network.Name),
		ChainID:      o.cfg.Network.ChainID,
		DeployedAt:   o.cfg.Now().UTC(),
	}
	if err = o.cfg.Store.Save(ctx, rec); err != nil {
		return Result{}, fmt.Errorf("deployment %q confirmed at %s but could not be recorded: %w",
			id, resp.Address.Hex(), err)
	}

	if !resp.Skipped {
		o.lggr.Infow("Deployed contract",
			"id", id, "contract", artifact, "address", resp.Address.Hex(),
			"tx", resp.TxHash.Hex(), "block", resp.BlockNumber, "deployer", from.Address.Hex(),
			"network", o.cfg.Network.Name, "run", o.runID)
	}

	return Result{Address: resp.Address, AlreadyDeployed: resp.Skipped, Record: rec}, nil
}
