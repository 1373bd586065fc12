package deploy

import (
	"context"

	"github.com/contractkit/deployer/accounts"
)

const (
	// BarDeploymentID is the idempotency key of the Bar deployment.
	BarDeploymentID = "BarDeployment"
	// TagDeployment selects the core deployment steps.
	TagDeployment = "Deployment"
)

// BarDeployment deploys the Bar contract from the deployer account.
func BarDeployment() Step {
	tags := []string{TagDeployment}

	return Step{
		ID:   BarDeploymentID,
		Tags: tags,
		Run: func(ctx context.Context, o *Orchestrator) error {
			_, err := o.Deploy(ctx, "Bar", Options{
				ID:   BarDeploymentID,
				Tags: tags,
				From: accounts.Deployer,
			})

			return err
		},
	}
}

// DefaultSteps returns the project's deployment steps in execution order.
func DefaultSteps() []Step {
	return []Step{BarDeployment()}
}
