package cli

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/contractkit/deployer/internal/text"
)

var accountsLong = text.LongDesc(`
	Prints the accounts derived from MNEMONIC for a network, followed by the named accounts of
	the project.
`)

func (a *app) newAccountsCmd() *cobra.Command {
	var networkName string

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List derived and named accounts",
		Long:  accountsLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.loadNetwork(networkName)
			if err != nil {
				return err
			}

			derived := tablewriter.NewWriter(cmd.OutOrStdout())
			derived.SetHeader([]string{"Index", "Address"})
			for i, acc := range env.wallet.Accounts() {
				derived.Append([]string{strconv.Itoa(i), acc.Address.Hex()})
			}
			derived.Render()

			named := tablewriter.NewWriter(cmd.OutOrStdout())
			named.SetHeader([]string{"Role", "Address"})
			for _, role := range env.named.Roles() {
				acc, err := env.named.Resolve(role)
				if err != nil {
					return err
				}
				named.Append([]string{role, acc.Address.Hex()})
			}
			named.Render()

			return nil
		},
	}
	cmd.Flags().StringVarP(&networkName, "network", "n", "", "Network (default: the project's default network)")

	return cmd
}
