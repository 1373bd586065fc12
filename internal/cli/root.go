// Package cli implements the deployer command line.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/contractkit/deployer/config/project"
	"github.com/contractkit/deployer/config/secrets"
	"github.com/contractkit/deployer/internal/text"
	"github.com/contractkit/deployer/pkg/logger"
)

// annotationSkipSecrets marks commands that run without the project secrets.
const annotationSkipSecrets = "deployer/skip-secrets"

var (
	rootLong = text.LongDesc(`
		Compiles and deploys the project's contracts.

		Secrets (MNEMONIC, RPC_TOKEN and ETHERSCAN_API_KEY) are read from the environment and the
		env file. Environment variables take precedence. Every command except "mnemonic generate"
		fails immediately when one of them is missing.
	`)

	rootExample = text.Examples(`
		# Show the resolved network settings
		deployer networks goerli

		# Deploy the steps tagged Deployment to the in-process network
		deployer deploy --network hardhat --tags Deployment
	`)
)

// app holds the state shared by the commands of one invocation.
type app struct {
	deps Deps

	envFile    string
	configFile string
	logLevel   string

	lggr    logger.Logger
	root    string
	project *project.Config
	source  *secrets.Source
	secrets secrets.Secrets
}

// NewRootCommand returns the deployer root command.
func NewRootCommand(deps Deps) *cobra.Command {
	deps.applyDefaults()
	a := &app{deps: deps}

	cmd := &cobra.Command{
		Use:               "deployer",
		Short:             "Contract compile and deployment tool",
		Long:              rootLong,
		Example:           rootExample,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Secrets file in dotenv format")
	cmd.PersistentFlags().StringVar(&a.configFile, "config", project.DefaultFile, "Project file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		a.newNetworksCmd(),
		a.newRemapCmd(),
		a.newCompileCmd(),
		a.newDeployCmd(),
		a.newDeploymentsCmd(),
		a.newAccountsCmd(),
		newMnemonicCmd(),
	)

	return cmd
}

// setup builds the logger, loads the project file and resolves the secrets.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.deps.Logger != nil {
		a.lggr = a.deps.Logger
	} else {
		cfg, err := logger.ParseLevel(a.logLevel)
		if err != nil {
			return err
		}
		if a.lggr, err = cfg.New(); err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
	}

	if cmd.Annotations[annotationSkipSecrets] == "true" || cmd.Name() == "help" {
		return nil
	}

	src, err := secrets.Load(a.envFile)
	if err != nil {
		return err
	}
	if a.secrets, err = src.Secrets(); err != nil {
		return err
	}
	a.source = src

	if a.project, err = project.Load(a.configFile); err != nil {
		return err
	}
	if a.root, err = filepath.Abs(filepath.Dir(a.configFile)); err != nil {
		return fmt.Errorf("failed to resolve project root: %w", err)
	}

	a.lggr.Debugw("Loaded project", "root", a.root, "network", a.project.DefaultNetwork)

	return nil
}

// projectPath resolves a project relative path.
func (a *app) projectPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(a.root, p)
}
