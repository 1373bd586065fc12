package cli

import (
	"context"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/contractkit/deployer/chain/evm"
	"github.com/contractkit/deployer/compile"
	"github.com/contractkit/deployer/config/secrets"
	"github.com/contractkit/deployer/deploy"
	"github.com/contractkit/deployer/deployments"
	"github.com/contractkit/deployer/internal/text"
)

var (
	deployLong = text.LongDesc(`
		Runs the deployment steps against a network. Steps are filtered by --tags; a step runs
		when it carries any of the given tags, or always when no tags are given.

		A deployment whose id is already recorded for the network is skipped, so running the
		command twice sends each deployment transaction once. The "hardhat" network runs in
		process and keeps no records between invocations.
	`)

	deployExample = text.Examples(`
		# Deploy everything to the in-process network
		deployer deploy

		# Deploy the Deployment steps to goerli without recompiling
		deployer deploy --network goerli --tags Deployment --no-compile
	`)
)

func (a *app) newDeployCmd() *cobra.Command {
	var (
		networkName string
		tags        []string
		noCompile   bool
	)

	cmd := &cobra.Command{
		Use:     "deploy",
		Short:   "Run the deployment steps",
		Long:    deployLong,
		Example: deployExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !noCompile {
				if _, err := a.compile(cmd); err != nil {
					return err
				}
			}

			return a.runDeploy(cmd, networkName, tags)
		},
	}

	cmd.Flags().StringVarP(&networkName, "network", "n", "", "Network to deploy to (default: the project's default network)")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "Only run steps carrying one of these tags")
	cmd.Flags().BoolVar(&noCompile, "no-compile", false, "Skip the compile pass")

	return cmd
}

func (a *app) runDeploy(cmd *cobra.Command, networkName string, tags []string) error {
	ctx := cmd.Context()

	env, err := a.loadNetwork(networkName)
	if err != nil {
		return err
	}

	chain, err := a.deps.Connect(ctx, env.desc, env.wallet, a.project.DeployTimeout, a.lggr)
	if err != nil {
		return err
	}
	defer chain.Close()

	store, closeStore, err := a.openStore(ctx, env)
	if err != nil {
		return err
	}
	defer closeStore()

	artifacts := compile.NewArtifactStore(a.projectPath(a.project.Paths.Artifacts))
	o, err := deploy.NewOrchestrator(deploy.Config{
		Network:  env.desc,
		Accounts: env.named,
		Store:    store,
		Executor: evm.NewExecutor(chain, artifacts, a.lggr),
		Logger:   a.lggr,
	})
	if err != nil {
		return err
	}

	runner := deploy.NewRunner(o, a.lggr)
	if err = runner.Register(deploy.DefaultSteps()...); err != nil {
		return err
	}

	a.lggr.Infow("Deploying", "network", env.desc.Name, "chainId", env.desc.ChainID,
		"selector", env.desc.ChainSelector(), "tags", tags, "run", o.RunID())

	if _, err = runner.Run(ctx, tags...); err != nil {
		return err
	}

	return printRecords(cmd, store)
}

func (a *app) openStore(ctx context.Context, env networkEnv) (deployments.Store, func(), error) {
	return a.deps.OpenStore(ctx,
		a.projectPath(a.project.Paths.Deployments), env.desc, a.source.Lookup(secrets.DatabaseURL),
	)
}

func printRecords(cmd *cobra.Command, store deployments.Store) error {
	records, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"ID", "Contract", "Address", "Block", "Tags"})
	for _, r := range records {
		table.Append([]string{
			r.ID, r.ContractName, r.Address.Hex(), strconv.FormatUint(r.BlockNumber, 10), r.Tags.String(),
		})
	}
	table.Render()

	return nil
}

var deploymentsLong = text.LongDesc(`
	Lists or clears the deployment records of a network. Clearing a record makes the next deploy
	run send its deployment again.
`)

func (a *app) newDeploymentsCmd() *cobra.Command {
	var networkName string

	cmd := &cobra.Command{
		Use:   "deployments",
		Short: "Inspect deployment records",
		Long:  deploymentsLong,
	}
	cmd.PersistentFlags().StringVarP(&networkName, "network", "n", "", "Network of the records (default: the project's default network)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List deployment records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.loadNetwork(networkName)
			if err != nil {
				return err
			}

			store, closeStore, err := a.openStore(cmd.Context(), env)
			if err != nil {
				return err
			}
			defer closeStore()

			return printRecords(cmd, store)
		},
	}

	reset := &cobra.Command{
		Use:   "reset <id>",
		Short: "Clear a deployment record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.loadNetwork(networkName)
			if err != nil {
				return err
			}

			store, closeStore, err := a.openStore(cmd.Context(), env)
			if err != nil {
				return err
			}
			defer closeStore()

			if err = store.Reset(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.lggr.Infow("Cleared deployment record", "id", args[0], "network", env.desc.Name)

			return nil
		},
	}

	cmd.AddCommand(list, reset)

	return cmd
}
