package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contractkit/deployer/accounts"
)

func newMnemonicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mnemonic",
		Short: "Mnemonic utilities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:         "generate",
		Short:       "Print a new 24 word mnemonic",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipSecrets: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := accounts.NewMnemonic()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), m)

			return err
		},
	})

	return cmd
}
