package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/contractkit/deployer/accounts"
	"github.com/contractkit/deployer/config/network"
	"github.com/contractkit/deployer/internal/text"
)

var networksLong = text.LongDesc(`
	Prints the settings of the supported networks as YAML, or of a single network when a name is
	given. The mnemonic and the provider token are masked.
`)

func (a *app) newNetworksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks [name]",
		Short: "Show network settings",
		Long:  networksLong,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := network.NewBuilder(a.secrets)

			var out any
			if len(args) == 1 {
				name, err := network.ParseName(args[0])
				if err != nil {
					return err
				}
				d, err := b.Build(name)
				if err != nil {
					return err
				}
				out = d.Redacted(b.Token())
			} else {
				all, err := b.BuildAll()
				if err != nil {
					return err
				}
				redacted := make(map[network.Name]network.Descriptor, len(all))
				for n, d := range all {
					redacted[n] = d.Redacted(b.Token())
				}
				out = redacted
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to encode networks: %w", err)
			}

			return enc.Close()
		},
	}
}

// networkEnv is a network's descriptor with its derived accounts.
type networkEnv struct {
	desc   network.Descriptor
	wallet *accounts.Wallet
	named  *accounts.NamedAccounts
}

// loadNetwork resolves the named network, or the project's default network when name is empty.
func (a *app) loadNetwork(name string) (networkEnv, error) {
	if name == "" {
		name = a.project.DefaultNetwork
	}

	n, err := network.ParseName(name)
	if err != nil {
		return networkEnv{}, err
	}

	desc, err := network.NewBuilder(a.secrets).Build(n)
	if err != nil {
		return networkEnv{}, err
	}
	if err = desc.Validate(); err != nil {
		return networkEnv{}, fmt.Errorf("invalid network %s: %w", n, err)
	}

	wallet, err := accounts.NewWallet(desc.Accounts)
	if err != nil {
		return networkEnv{}, err
	}

	return networkEnv{
		desc:   desc,
		wallet: wallet,
		named:  accounts.NewNamedAccounts(wallet, a.project.NamedAccounts),
	}, nil
}
